package sui

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

const flagEd25519 = 0x00

// ErrInvalidKey means the signer key could not be decoded.
var ErrInvalidKey = errors.New("invalid signer key")

// Ed25519Signer signs transactions with an Ed25519 key.
type Ed25519Signer struct {
	key     ed25519.PrivateKey
	address string
}

// NewEd25519Signer builds a signer from a base64 key: either the 33-byte
// flag-prefixed export format or a bare 32-byte seed.
func NewEd25519Signer(encoded string) (*Ed25519Signer, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	switch {
	case len(raw) == ed25519.SeedSize+1 && raw[0] == flagEd25519:
		raw = raw[1:]
	case len(raw) == ed25519.SeedSize:
	default:
		return nil, fmt.Errorf("%w: unexpected length %d", ErrInvalidKey, len(raw))
	}
	return NewEd25519SignerFromSeed(raw), nil
}

// NewEd25519SignerFromSeed builds a signer from a 32-byte seed.
func NewEd25519SignerFromSeed(seed []byte) *Ed25519Signer {
	key := ed25519.NewKeyFromSeed(seed)
	pub := key.Public().(ed25519.PublicKey)
	return &Ed25519Signer{key: key, address: deriveAddress(pub)}
}

// Address is the ledger address controlled by the key.
func (s *Ed25519Signer) Address() string { return s.address }

// Sign hashes the transaction with its intent prefix and returns the
// serialized signature: flag, signature, public key, base64 encoded.
func (s *Ed25519Signer) Sign(txBytes []byte) (string, error) {
	msg := make([]byte, 0, 3+len(txBytes))
	msg = append(msg, 0, 0, 0) // intent: TransactionData, V0, Sui
	msg = append(msg, txBytes...)
	digest := blake2b.Sum256(msg)

	sig := ed25519.Sign(s.key, digest[:])
	pub := s.key.Public().(ed25519.PublicKey)

	out := make([]byte, 0, 1+len(sig)+len(pub))
	out = append(out, flagEd25519)
	out = append(out, sig...)
	out = append(out, pub...)
	return base64.StdEncoding.EncodeToString(out), nil
}

func deriveAddress(pub ed25519.PublicKey) string {
	h := blake2b.Sum256(append([]byte{flagEd25519}, pub...))
	return "0x" + hex.EncodeToString(h[:])
}
