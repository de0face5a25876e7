package eth

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignatureLength is the canonical r||s||v wire length.
const SignatureLength = 65

var (
	secp256k1N     = crypto.S256().Params().N
	secp256k1HalfN = new(big.Int).Rsh(secp256k1N, 1)
)

// PackSignature encodes r, s and the recovery indicator into the fixed
// 32/32/1-byte wire layout. v must be a parity (0/1) or legacy (27/28)
// recovery indicator; it is written through unchanged.
func PackSignature(r, s *big.Int, v byte) ([]byte, error) {
	if r == nil || s == nil {
		return nil, fmt.Errorf("signature components must not be nil")
	}
	if r.BitLen() > 256 || s.BitLen() > 256 {
		return nil, fmt.Errorf("signature component exceeds 32 bytes")
	}
	sig := make([]byte, SignatureLength)
	r.FillBytes(sig[:32])
	s.FillBytes(sig[32:64])
	sig[64] = v
	return sig, nil
}

// UnpackSignature splits a 65-byte signature into r, s and the recovery
// indicator. Any other length is rejected as malformed.
func UnpackSignature(sig []byte) (r, s *big.Int, v byte, err error) {
	if len(sig) != SignatureLength {
		return nil, nil, 0, fmt.Errorf("signature must be %d bytes, got %d", SignatureLength, len(sig))
	}
	r = new(big.Int).SetBytes(sig[:32])
	s = new(big.Int).SetBytes(sig[32:64])
	return r, s, sig[64], nil
}

// NormalizeSignature returns the canonical form of sig: s in the lower half
// of the curve order (EIP-2) and the recovery indicator as 27/28, which is
// what token contracts expect. The input indicator may be 0/1 or 27/28.
// Normalization is idempotent and preserves the recovered address.
func NormalizeSignature(sig []byte) ([]byte, error) {
	r, s, v, err := UnpackSignature(sig)
	if err != nil {
		return nil, err
	}

	switch v {
	case 0, 1:
		v += 27
	case 27, 28:
	default:
		return nil, fmt.Errorf("invalid recovery indicator %d", v)
	}

	if s.Cmp(secp256k1HalfN) > 0 {
		s = new(big.Int).Sub(secp256k1N, s)
		if v == 27 {
			v = 28
		} else {
			v = 27
		}
	}

	return PackSignature(r, s, v)
}

// RecoverAddress recovers the signer address from a digest and a 65-byte
// signature. Both parity and legacy recovery indicators are accepted.
func RecoverAddress(digest common.Hash, sig []byte) (common.Address, error) {
	if len(sig) != SignatureLength {
		return common.Address{}, fmt.Errorf("signature must be %d bytes, got %d", SignatureLength, len(sig))
	}

	raw := make([]byte, SignatureLength)
	copy(raw, sig)
	if raw[64] >= 27 {
		raw[64] -= 27
	}
	if raw[64] > 1 {
		return common.Address{}, fmt.Errorf("invalid recovery indicator %d", sig[64])
	}

	pub, err := crypto.SigToPub(digest.Bytes(), raw)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// PersonalMessageHash hashes a message per the personal-message scheme
// (EIP-191): keccak256("\x19Ethereum Signed Message:\n" + len(msg) + msg).
func PersonalMessageHash(message []byte) common.Hash {
	return common.BytesToHash(accounts.TextHash(message))
}
