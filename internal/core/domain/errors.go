package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidSide ...
	ErrInvalidSide = fmt.Errorf("side must be either '%s' or '%s'", SideLong, SideShort)
	// ErrInvalidCollateralAmount ...
	ErrInvalidCollateralAmount = errors.New("collateral amount must be a positive amount")
	// ErrInvalidLeverage ...
	ErrInvalidLeverage = errors.New("leverage must be within the supported range")
	// ErrInvalidAsset is thrown when the asset pair identifies neither the
	// native settlement token nor a policyId/assetName pair.
	ErrInvalidAsset = errors.New("asset must be the native token or a fully qualified policyId/assetName pair")
	// ErrNullAddress ...
	ErrNullAddress = errors.New("account address must not be null")
	// ErrStaleUnsignedTx is thrown when trying to sign an unsigned transaction
	// whose fee or input set may have gone stale. A fresh one must be
	// requested, the stale payload is never signed silently.
	ErrStaleUnsignedTx = errors.New("unsigned transaction is stale and must be requested again")
	// ErrOrderMustBeRequested ...
	ErrOrderMustBeRequested = errors.New("order must be in requested status to be signed")
	// ErrOrderMustBeSigned ...
	ErrOrderMustBeSigned = errors.New("order must be in signed status to be submitted")
	// ErrSigningAbandoned is thrown when the caller cancels the pipeline while
	// a signature request is already dispatched to a wallet.
	ErrSigningAbandoned = errors.New("signing abandoned by caller")
)

// validationErrors classifies the errors that reject an intent before any
// network call and must never be retried.
var validationErrors = []error{
	ErrInvalidSide,
	ErrInvalidCollateralAmount,
	ErrInvalidLeverage,
	ErrInvalidAsset,
	ErrNullAddress,
}

// IsValidation returns whether the given error rejects the trade intent
// itself, as opposed to a failure of a later pipeline stage.
func IsValidation(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// ServiceError is returned when the trading service replies with a non-2xx
// status code.
type ServiceError struct {
	StatusCode int
	Body       string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("trading service replied with status %d: %s", e.StatusCode, e.Body)
}

// ProtocolError is returned when a service reply cannot be decoded.
type ProtocolError struct {
	Endpoint string
	Err      error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("malformed reply from %s: %v", e.Endpoint, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// TimeoutError is returned when a call exceeds its bounded timeout.
type TimeoutError struct {
	Endpoint string
	Err      error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request to %s timed out: %v", e.Endpoint, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// SigningFailure is the reason a single signing attempt failed, kept so that
// an exhausted coordination reports every wallet it tried.
type SigningFailure struct {
	Provider string
	Reason   string
}

// SigningExhaustedError is the terminal error of a signing coordination whose
// configured attempt bound has been reached. Guidance points the caller to an
// alternate signing path, it is not an automated escalation.
type SigningExhaustedError struct {
	Attempts []SigningFailure
}

func (e *SigningExhaustedError) Error() string {
	reasons := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		reasons = append(reasons, fmt.Sprintf("%s: %s", a.Provider, a.Reason))
	}
	return fmt.Sprintf(
		"all %d signing attempts failed [%s]: sign the transaction body "+
			"manually with a wallet's raw-sign interface and submit it out of band",
		len(e.Attempts), strings.Join(reasons, "; "),
	)
}

// SignatureIntegrityError is returned when a wallet signs a transaction body
// different from the one it was given. Fatal, never retried.
type SignatureIntegrityError struct {
	Provider string
	WantHash string
	GotHash  string
}

func (e *SignatureIntegrityError) Error() string {
	return fmt.Sprintf(
		"wallet %s returned a signature over a different transaction body "+
			"(want %s, got %s)", e.Provider, e.WantHash, e.GotHash,
	)
}

// RejectedError is returned when the network rejects a signed transaction.
// Terminal for that transaction, retrying the trade requires a fresh unsigned
// transaction.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("transaction rejected by network: %s", e.Reason)
}

// TransientError is returned on a submission failure that is safe to retry,
// since resubmitting the same signed bytes is idempotent at the network layer.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient submission failure: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsRetryable returns whether the given error may be retried without risking
// a duplicate side effect.
func IsRetryable(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}
