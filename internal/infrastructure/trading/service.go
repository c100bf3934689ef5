package trading

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
	"github.com/thanhpk/randstr"
	"go.uber.org/ratelimit"

	"github.com/perplabs/perp-agent/internal/core/domain"
	"github.com/perplabs/perp-agent/internal/core/ports"
	"github.com/perplabs/perp-agent/pkg/circuitbreaker"
	"github.com/perplabs/perp-agent/pkg/httputil"
)

const (
	openPositionEndpoint = "/api/perpetuals/openPosition"
	marketInfoEndpoint   = "/api/perpetuals/getMarketInfo"

	// DefaultRequestTimeout bounds every call to the trading service.
	DefaultRequestTimeout = 30 * time.Second

	maxMarketInfoAttempts = 3
	marketInfoBackoff     = 500 * time.Millisecond
	requestsPerSecond     = 5
)

var (
	// ErrInvalidServiceURL ...
	ErrInvalidServiceURL = errors.New("trading service url must be a valid http(s) url")
)

type tradingService struct {
	apiURL string
	apiKey string
	client *httputil.Client
	cb     *gobreaker.CircuitBreaker
	rate   ratelimit.Limiter
}

// NewService returns a client of the external trading API as a
// ports.TradingService. A non-positive timeout falls back to the default
// 30s bound.
func NewService(
	apiURL, apiKey string, timeout time.Duration,
) (ports.TradingService, error) {
	if !strings.HasPrefix(apiURL, "http") {
		return nil, ErrInvalidServiceURL
	}
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	return &tradingService{
		apiURL: strings.TrimSuffix(apiURL, "/"),
		apiKey: apiKey,
		client: httputil.NewClient(timeout),
		cb:     circuitbreaker.NewCircuitBreaker("trading"),
		rate:   ratelimit.New(requestsPerSecond),
	}, nil
}

// OpenPosition asks the trading service to build the unsigned transaction
// opening the requested position. The call is not idempotent, so it is never
// retried here: a duplicate would risk opening the position twice.
func (s *tradingService) OpenPosition(
	ctx context.Context, req *domain.OpenPositionRequest,
) (*domain.UnsignedTransaction, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	reply := &openPositionReply{}
	if err := s.post(ctx, openPositionEndpoint, string(body), reply); err != nil {
		return nil, err
	}
	if len(reply.Cbor) <= 0 {
		return nil, &domain.ProtocolError{
			Endpoint: openPositionEndpoint,
			Err:      errors.New("reply is missing the unsigned transaction payload"),
		}
	}

	return reply.toDomain(), nil
}

// GetMarketInfo returns the current market state. The endpoint is read-only,
// so transient failures are retried with exponential backoff.
func (s *tradingService) GetMarketInfo(
	ctx context.Context,
) (*domain.MarketSnapshot, error) {
	var lastErr error
	backoff := marketInfoBackoff

	for attempt := 0; attempt < maxMarketInfoAttempts; attempt++ {
		if attempt > 0 {
			log.Debugf("retrying market info request, attempt %d", attempt+1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		reply := &marketInfoReply{}
		err := s.get(ctx, marketInfoEndpoint, reply)
		if err == nil {
			return reply.toDomain(), nil
		}
		lastErr = err

		var svcErr *domain.ServiceError
		if errors.As(err, &svcErr) && svcErr.StatusCode < http.StatusInternalServerError {
			break
		}
	}

	return nil, lastErr
}

func (s *tradingService) post(
	ctx context.Context, endpoint, body string, result interface{},
) error {
	return s.call(ctx, http.MethodPost, endpoint, body, result)
}

func (s *tradingService) get(
	ctx context.Context, endpoint string, result interface{},
) error {
	return s.call(ctx, http.MethodGet, endpoint, "", result)
}

func (s *tradingService) call(
	ctx context.Context, method, endpoint, body string, result interface{},
) error {
	s.rate.Take()

	url := fmt.Sprintf("%s%s", s.apiURL, endpoint)
	headers := map[string]string{
		"Content-Type": "application/json",
		"X-Request-Id": randstr.Hex(16),
	}
	if len(s.apiKey) > 0 {
		headers["Authorization"] = fmt.Sprintf("Bearer %s", s.apiKey)
	}

	ireply, err := s.cb.Execute(func() (interface{}, error) {
		status, resp, err := s.client.NewHTTPRequest(ctx, method, url, body, headers)
		if err != nil {
			if httputil.IsTimeout(err) {
				return nil, &domain.TimeoutError{Endpoint: endpoint, Err: err}
			}
			return nil, err
		}
		if status < 200 || status >= 300 {
			return nil, &domain.ServiceError{StatusCode: status, Body: resp}
		}
		return resp, nil
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal([]byte(ireply.(string)), result); err != nil {
		return &domain.ProtocolError{Endpoint: endpoint, Err: err}
	}
	return nil
}
