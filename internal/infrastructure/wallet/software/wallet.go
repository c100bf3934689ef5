package software

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/blake2b"

	"github.com/perplabs/perp-agent/internal/core/ports"
	"github.com/perplabs/perp-agent/pkg/txutil"
)

const walletName = "software"

var (
	// ErrInvalidSeed ...
	ErrInvalidSeed = errors.New("seed must be a 32-byte array")
)

// Wallet is an in-process ed25519 signer used in development flows and as
// the reference wallet in tests. It signs the blake2b-256 digest of the
// transaction body, the same digest the integrity gate recomputes.
type Wallet struct {
	privateKey ed25519.PrivateKey
}

// NewWallet derives the signing key from the given 32-byte seed.
func NewWallet(seed []byte) (*Wallet, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, ErrInvalidSeed
	}
	return &Wallet{privateKey: ed25519.NewKeyFromSeed(seed)}, nil
}

// NewRandomWallet generates a throwaway signing key.
func NewRandomWallet() (*Wallet, error) {
	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, err
	}
	return NewWallet(seed)
}

var _ ports.WalletProvider = (*Wallet)(nil)

func (w *Wallet) Name() string {
	return walletName
}

func (w *Wallet) IsEnabled(_ context.Context) (bool, error) {
	return true, nil
}

// Address returns the hex-encoded blake2b-224 hash of the verification key,
// the key-hash identity the trading service resolves accounts by.
func (w *Wallet) Address(_ context.Context) (string, error) {
	hasher, err := blake2b.New(28, nil)
	if err != nil {
		return "", err
	}
	hasher.Write(w.publicKey())
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func (w *Wallet) SignTx(
	_ context.Context, unsignedTxHex string,
) (string, error) {
	unsigned, err := hex.DecodeString(unsignedTxHex)
	if err != nil {
		return "", err
	}

	body, err := txutil.ExtractBody(unsigned)
	if err != nil {
		return "", err
	}

	digest := blake2b.Sum256(body)
	signature := ed25519.Sign(w.privateKey, digest[:])

	signed, err := txutil.AssembleTx(body, w.publicKey(), signature)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(signed), nil
}

func (w *Wallet) publicKey() []byte {
	return w.privateKey.Public().(ed25519.PublicKey)
}
