package submitter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/perplabs/perp-agent/internal/core/domain"
	"github.com/perplabs/perp-agent/internal/core/ports"
	"github.com/perplabs/perp-agent/pkg/circuitbreaker"
	"github.com/perplabs/perp-agent/pkg/httputil"
)

const (
	submitEndpoint = "/tx/submit"

	// DefaultSubmitTimeout ...
	DefaultSubmitTimeout = 30 * time.Second

	maxSubmitAttempts = 3
	submitBackoff     = time.Second
)

var (
	// ErrInvalidSubmitURL ...
	ErrInvalidSubmitURL = errors.New("submission endpoint url must be a valid http(s) url")
)

type txSubmitter struct {
	apiURL string
	client *httputil.Client
	cb     *gobreaker.CircuitBreaker
}

// NewService returns a client of the network submission endpoint as a
// ports.TxSubmitter.
func NewService(apiURL string, timeout time.Duration) (ports.TxSubmitter, error) {
	if !strings.HasPrefix(apiURL, "http") {
		return nil, ErrInvalidSubmitURL
	}
	if timeout <= 0 {
		timeout = DefaultSubmitTimeout
	}

	return &txSubmitter{
		apiURL: strings.TrimSuffix(apiURL, "/"),
		client: httputil.NewClient(timeout),
		cb:     circuitbreaker.NewCircuitBreaker("submitter"),
	}, nil
}

// Submit forwards the signed transaction to the network. A network-rule
// rejection is terminal for this transaction, while transport failures are
// retried with bounded backoff: resubmitting the same signed bytes is
// idempotent at the network layer.
func (s *txSubmitter) Submit(
	ctx context.Context, tx domain.SignedTransaction,
) (domain.SubmissionResult, error) {
	url := fmt.Sprintf("%s%s", s.apiURL, submitEndpoint)
	headers := map[string]string{
		"Content-Type": "application/cbor",
	}

	var lastErr error
	backoff := submitBackoff

	for attempt := 0; attempt < maxSubmitAttempts; attempt++ {
		if attempt > 0 {
			log.Debugf("retrying transaction submission, attempt %d", attempt+1)
			select {
			case <-ctx.Done():
				return domain.SubmissionResult{}, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		ireply, err := s.cb.Execute(func() (interface{}, error) {
			status, resp, err := s.client.NewHTTPRequest(
				ctx, http.MethodPost, url, tx.CborHex, headers,
			)
			if err != nil {
				return nil, &domain.TransientError{Err: err}
			}
			switch {
			case status >= 200 && status < 300:
				return resp, nil
			case status >= 500:
				return nil, &domain.TransientError{
					Err: fmt.Errorf("submission endpoint replied with status %d: %s", status, resp),
				}
			default:
				return nil, &domain.RejectedError{Reason: resp}
			}
		})
		if err != nil {
			var rejected *domain.RejectedError
			if errors.As(err, &rejected) {
				return domain.SubmissionResult{ErrorKind: "rejected"}, err
			}
			if !domain.IsRetryable(err) {
				err = &domain.TransientError{Err: err}
			}
			lastErr = err
			continue
		}

		return domain.SubmissionResult{
			Success: true,
			TxHash:  parseTxHash(ireply.(string)),
		}, nil
	}

	return domain.SubmissionResult{ErrorKind: "transient"}, lastErr
}

// parseTxHash accepts either a JSON-quoted or a plain text transaction hash
// reply.
func parseTxHash(resp string) string {
	var hash string
	if err := json.Unmarshal([]byte(resp), &hash); err == nil {
		return hash
	}
	return strings.TrimSpace(resp)
}
