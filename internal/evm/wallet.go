package evm

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer wraps an ECDSA private key to provide signing capabilities for EVM transactions and messages.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// NewSigner creates a new Signer instance from an ECDSA private key.
func NewSigner(pk *ecdsa.PrivateKey) *Signer {
	if pk == nil {
		panic("private key cannot be nil")
	}
	return &Signer{
		privateKey: pk,
		address:    crypto.PubkeyToAddress(pk.PublicKey),
	}
}

// NewSignerFromHex parses a hex private key, with or without the 0x prefix.
func NewSignerFromHex(hexKey string) (*Signer, error) {
	pk, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return NewSigner(pk), nil
}

// Address returns the Ethereum address associated with the Signer's private key.
func (s *Signer) Address() common.Address {
	return s.address
}

// SignTx signs the given Ethereum transaction using the Signer's private key and the provided chain ID.
func (s *Signer) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	signedTx, err := types.SignTx(tx, types.NewLondonSigner(chainID), s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return signedTx, nil
}

// SignPersonalMessage signs the given message according to the EIP-191 standard (`personal_sign`).
func (s *Signer) SignPersonalMessage(message []byte) ([]byte, error) {
	sig, err := crypto.Sign(accountsTextHash(message), s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign message hash: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

// SignPersonalMessageHex is SignPersonalMessage with a 0x-prefixed hex result, the form web APIs expect.
func (s *Signer) SignPersonalMessageHex(message string) (string, error) {
	sig, err := s.SignPersonalMessage([]byte(message))
	if err != nil {
		return "", err
	}
	return hexutil.Encode(sig), nil
}

// RecoverPersonalSigner returns the address that produced a personal_sign signature.
func RecoverPersonalSigner(message []byte, sig []byte) (common.Address, error) {
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("signature length %d", len(sig))
	}
	normalized := make([]byte, len(sig))
	copy(normalized, sig)
	if normalized[crypto.RecoveryIDOffset] >= 27 {
		normalized[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(accountsTextHash(message), normalized)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}

func accountsTextHash(message []byte) []byte {
	prefix := fmt.Sprintf("\x19Ethereum Signed Message:\n%d", len(message))
	return crypto.Keccak256([]byte(prefix), message)
}
