package ports

import (
	"context"

	"github.com/perplabs/perp-agent/internal/core/domain"
)

// TxSubmitter is the client boundary of the network submission endpoint.
type TxSubmitter interface {
	// Submit forwards the signed transaction to the network and returns the
	// assigned transaction hash.
	Submit(
		ctx context.Context, tx domain.SignedTransaction,
	) (domain.SubmissionResult, error)
}
