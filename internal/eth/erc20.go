package eth

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

func mustType(t string) abi.Type {
	ty, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return ty
}

var (
	typeAddress = mustType("address")
	typeUint256 = mustType("uint256")
	typeBytes32 = mustType("bytes32")
	typeUint8   = mustType("uint8")
	typeBytes   = mustType("bytes")
	typeString  = mustType("string")
)

var (
	transferArgs = abi.Arguments{
		{Name: "to", Type: typeAddress},
		{Name: "value", Type: typeUint256},
	}
	authorizationVRSArgs = abi.Arguments{
		{Name: "from", Type: typeAddress},
		{Name: "to", Type: typeAddress},
		{Name: "value", Type: typeUint256},
		{Name: "validAfter", Type: typeUint256},
		{Name: "validBefore", Type: typeUint256},
		{Name: "nonce", Type: typeBytes32},
		{Name: "v", Type: typeUint8},
		{Name: "r", Type: typeBytes32},
		{Name: "s", Type: typeBytes32},
	}
	authorizationBytesArgs = abi.Arguments{
		{Name: "from", Type: typeAddress},
		{Name: "to", Type: typeAddress},
		{Name: "value", Type: typeUint256},
		{Name: "validAfter", Type: typeUint256},
		{Name: "validBefore", Type: typeUint256},
		{Name: "nonce", Type: typeBytes32},
		{Name: "signature", Type: typeBytes},
	}
	balanceOfArgs = abi.Arguments{
		{Name: "account", Type: typeAddress},
	}
	stringResultArgs = abi.Arguments{
		{Type: typeString},
	}
	uint256ResultArgs = abi.Arguments{
		{Type: typeUint256},
	}
)

func methodSelector(signature string) [4]byte {
	var sel [4]byte
	copy(sel[:], crypto.Keccak256([]byte(signature))[:4])
	return sel
}

// Selectors for the calldata shapes this service packs and decodes.
// transferWithAuthorization exists in two deployed variants: the original
// (v, r, s) form and the later opaque-bytes form.
var (
	TransferSelector                       = methodSelector("transfer(address,uint256)")
	TransferWithAuthorizationSelector      = methodSelector("transferWithAuthorization(address,address,uint256,uint256,uint256,bytes32,uint8,bytes32,bytes32)")
	TransferWithAuthorizationBytesSelector = methodSelector("transferWithAuthorization(address,address,uint256,uint256,uint256,bytes32,bytes)")
	BalanceOfSelector                      = methodSelector("balanceOf(address)")
	NameSelector                           = methodSelector("name()")
	VersionSelector                        = methodSelector("version()")
)

// AuthorizationCall is a decoded transferWithAuthorization invocation. From
// is the true payer regardless of who submitted the transaction.
type AuthorizationCall struct {
	From        common.Address
	To          common.Address
	Value       *big.Int
	ValidAfter  *big.Int
	ValidBefore *big.Int
	Nonce       [32]byte
}

// PackTransferWithAuthorization encodes a transferWithAuthorization call in
// the (v, r, s) variant. The signature must be 65 canonical bytes.
func PackTransferWithAuthorization(from, to common.Address, value, validAfter, validBefore *big.Int, nonce [32]byte, signature []byte) ([]byte, error) {
	r, s, v, err := UnpackSignature(signature)
	if err != nil {
		return nil, err
	}

	var rb, sb [32]byte
	r.FillBytes(rb[:])
	s.FillBytes(sb[:])

	packed, err := authorizationVRSArgs.Pack(from, to, value, validAfter, validBefore, nonce, v, rb, sb)
	if err != nil {
		return nil, fmt.Errorf("failed to pack transferWithAuthorization: %w", err)
	}
	return append(TransferWithAuthorizationSelector[:], packed...), nil
}

// DecodeTransferWithAuthorization decodes either transferWithAuthorization
// variant. Returns false when the calldata is not such a call.
func DecodeTransferWithAuthorization(data []byte) (*AuthorizationCall, bool) {
	if len(data) < 4 {
		return nil, false
	}
	var sel [4]byte
	copy(sel[:], data[:4])

	var args abi.Arguments
	switch sel {
	case TransferWithAuthorizationSelector:
		args = authorizationVRSArgs
	case TransferWithAuthorizationBytesSelector:
		args = authorizationBytesArgs
	default:
		return nil, false
	}

	values, err := args.Unpack(data[4:])
	if err != nil || len(values) < 6 {
		return nil, false
	}

	call := &AuthorizationCall{
		From:        values[0].(common.Address),
		To:          values[1].(common.Address),
		Value:       values[2].(*big.Int),
		ValidAfter:  values[3].(*big.Int),
		ValidBefore: values[4].(*big.Int),
		Nonce:       values[5].([32]byte),
	}
	return call, true
}

// PackTransfer encodes a plain ERC-20 transfer call.
func PackTransfer(to common.Address, value *big.Int) ([]byte, error) {
	packed, err := transferArgs.Pack(to, value)
	if err != nil {
		return nil, fmt.Errorf("failed to pack transfer: %w", err)
	}
	return append(TransferSelector[:], packed...), nil
}

// DecodeTransfer decodes a plain ERC-20 transfer call. Returns false when
// the calldata is not such a call.
func DecodeTransfer(data []byte) (to common.Address, value *big.Int, ok bool) {
	if len(data) < 4 {
		return common.Address{}, nil, false
	}
	var sel [4]byte
	copy(sel[:], data[:4])
	if sel != TransferSelector {
		return common.Address{}, nil, false
	}

	values, err := transferArgs.Unpack(data[4:])
	if err != nil || len(values) != 2 {
		return common.Address{}, nil, false
	}
	return values[0].(common.Address), values[1].(*big.Int), true
}

// PackBalanceOf encodes an ERC-20 balanceOf call.
func PackBalanceOf(account common.Address) []byte {
	packed, _ := balanceOfArgs.Pack(account)
	return append(BalanceOfSelector[:], packed...)
}

// UnpackStringResult decodes a single string return value, as returned by
// the token contract's name() and version() getters.
func UnpackStringResult(ret []byte) (string, error) {
	values, err := stringResultArgs.Unpack(ret)
	if err != nil {
		return "", fmt.Errorf("failed to unpack string result: %w", err)
	}
	return values[0].(string), nil
}

// UnpackUint256Result decodes a single uint256 return value.
func UnpackUint256Result(ret []byte) (*big.Int, error) {
	values, err := uint256ResultArgs.Unpack(ret)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack uint256 result: %w", err)
	}
	return values[0].(*big.Int), nil
}
