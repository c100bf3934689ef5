package application

import (
	"context"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/perplabs/perp-agent/internal/core/domain"
	"github.com/perplabs/perp-agent/internal/core/ports"
	"github.com/perplabs/perp-agent/pkg/txutil"
)

const (
	// DefaultSigningAttempts ...
	DefaultSigningAttempts = 3
	// DefaultSignTimeout ...
	DefaultSignTimeout = 2 * time.Minute
)

var (
	// ErrNoWalletProviders ...
	ErrNoWalletProviders = errors.New("at least one wallet provider is required")
)

// SigningCoordinator routes an unsigned transaction to the configured wallet
// providers with bounded fallback. Signing requests against the same provider
// are serialized, wallet providers are not guaranteed re-entrant.
type SigningCoordinator struct {
	providers     []ports.WalletProvider
	maxAttempts   int
	signTimeout   time.Duration
	unsignedTxTTL time.Duration

	lock  sync.Mutex
	locks map[string]*sync.Mutex
}

// NewSigningCoordinator returns a coordinator cycling through the given
// providers in order. Non-positive attempts or timeout fall back to defaults,
// a zero TTL disables the staleness check.
func NewSigningCoordinator(
	providers []ports.WalletProvider,
	maxAttempts int,
	signTimeout, unsignedTxTTL time.Duration,
) (*SigningCoordinator, error) {
	if len(providers) <= 0 {
		return nil, ErrNoWalletProviders
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultSigningAttempts
	}
	if signTimeout <= 0 {
		signTimeout = DefaultSignTimeout
	}

	return &SigningCoordinator{
		providers:     providers,
		maxAttempts:   maxAttempts,
		signTimeout:   signTimeout,
		unsignedTxTTL: unsignedTxTTL,
		locks:         make(map[string]*sync.Mutex),
	}, nil
}

// Sign asks the wallet providers, one at a time, to sign the given unsigned
// transaction. A provider result is accepted only if the signed envelope
// references the same transaction body as the unsigned payload. Fallback
// stops at the attempt bound with a SigningExhaustedError, or immediately on
// a body hash mismatch, which is fatal. Staleness is rechecked before every
// attempt: a slow wallet interaction can outlive the TTL, in which case the
// coordinator returns ErrStaleUnsignedTx so the caller requests a fresh
// payload instead of handing the aged one to a fallback wallet.
func (c *SigningCoordinator) Sign(
	ctx context.Context, unsigned *domain.UnsignedTransaction,
) (*domain.SignedTransaction, error) {
	unsignedBytes, err := hex.DecodeString(unsigned.CborHex)
	if err != nil {
		return nil, &domain.ProtocolError{Endpoint: "wallet", Err: err}
	}
	wantHash, err := txutil.BodyHashHex(unsignedBytes)
	if err != nil {
		return nil, &domain.ProtocolError{Endpoint: "wallet", Err: err}
	}

	failures := make([]domain.SigningFailure, 0, c.maxAttempts)
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if unsigned.IsStale(c.unsignedTxTTL) {
			return nil, domain.ErrStaleUnsignedTx
		}

		provider := c.providers[attempt%len(c.providers)]

		signed, failure, err := c.signOnce(ctx, provider, unsigned.CborHex, wantHash)
		if err != nil {
			return nil, err
		}
		if signed != nil {
			return signed, nil
		}

		log.WithField("wallet", provider.Name()).
			Warnf("signing attempt %d failed: %s", attempt+1, failure.Reason)
		failures = append(failures, *failure)
	}

	return nil, &domain.SigningExhaustedError{Attempts: failures}
}

// signOnce runs a single attempt against one provider. It returns a non-nil
// failure for reasons worth falling back on, and a non-nil error for the
// terminal ones.
func (c *SigningCoordinator) signOnce(
	ctx context.Context,
	provider ports.WalletProvider,
	unsignedTxHex, wantHash string,
) (*domain.SignedTransaction, *domain.SigningFailure, error) {
	name := provider.Name()

	enabled, err := provider.IsEnabled(ctx)
	if err != nil {
		return nil, &domain.SigningFailure{Provider: name, Reason: err.Error()}, nil
	}
	if !enabled {
		return nil, &domain.SigningFailure{Provider: name, Reason: "wallet is not enabled"}, nil
	}

	lock := c.lockForProvider(name)
	lock.Lock()
	defer lock.Unlock()

	signCtx, cancel := context.WithTimeout(ctx, c.signTimeout)
	defer cancel()

	signedTxHex, err := provider.SignTx(signCtx, unsignedTxHex)
	if err != nil {
		// A cancellation of the caller after the request was dispatched to
		// the wallet leaves the signature unresolved: the order must end up
		// abandoned, not failed, so it is never submitted twice.
		if ctx.Err() != nil {
			return nil, nil, domain.ErrSigningAbandoned
		}
		return nil, &domain.SigningFailure{Provider: name, Reason: err.Error()}, nil
	}

	if len(signedTxHex) <= 0 || signedTxHex == unsignedTxHex {
		return nil, &domain.SigningFailure{
			Provider: name, Reason: "wallet returned an empty or placeholder result",
		}, nil
	}

	signedBytes, err := hex.DecodeString(signedTxHex)
	if err != nil {
		return nil, &domain.SigningFailure{
			Provider: name, Reason: "wallet returned a non-hex payload",
		}, nil
	}

	gotHash, err := txutil.BodyHashHex(signedBytes)
	if err != nil {
		return nil, &domain.SigningFailure{
			Provider: name, Reason: "wallet returned a malformed envelope: " + err.Error(),
		}, nil
	}
	if gotHash != wantHash {
		return nil, nil, &domain.SignatureIntegrityError{
			Provider: name,
			WantHash: wantHash,
			GotHash:  gotHash,
		}
	}

	return &domain.SignedTransaction{CborHex: signedTxHex, Wallet: name}, nil, nil
}

func (c *SigningCoordinator) lockForProvider(name string) *sync.Mutex {
	c.lock.Lock()
	defer c.lock.Unlock()

	if _, ok := c.locks[name]; !ok {
		c.locks[name] = &sync.Mutex{}
	}
	return c.locks[name]
}
