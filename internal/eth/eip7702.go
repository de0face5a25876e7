package eth

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// setCodeAuthMagic prefixes EIP-7702 authorization payloads.
const setCodeAuthMagic = 0x05

// AuthorizationDigest computes the EIP-7702 set-code authorization hash:
// keccak256(0x05 || rlp([chainId, address, nonce])).
func AuthorizationDigest(chainID *big.Int, address common.Address, nonce uint64) (common.Hash, error) {
	payload, err := rlp.EncodeToBytes([]interface{}{chainID, address, nonce})
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to encode authorization: %w", err)
	}
	return crypto.Keccak256Hash(append([]byte{setCodeAuthMagic}, payload...)), nil
}
