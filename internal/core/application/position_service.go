package application

import (
	"context"
	"encoding/hex"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/perplabs/perp-agent/internal/core/domain"
	"github.com/perplabs/perp-agent/internal/core/ports"
	"github.com/perplabs/perp-agent/pkg/txutil"
)

// maxStaleRefreshes bounds how many times a pipeline run requests a fresh
// unsigned transaction after the previous one aged past the TTL.
const maxStaleRefreshes = 3

var (
	// ErrNullTradingService ...
	ErrNullTradingService = errors.New("trading service must not be null")
	// ErrNullSigningCoordinator ...
	ErrNullSigningCoordinator = errors.New("signing coordinator must not be null")
	// ErrNullSubmitter ...
	ErrNullSubmitter = errors.New("tx submitter must not be null")
)

// OpenPositionResult is returned to the caller of a successfully completed
// pipeline run.
type OpenPositionResult struct {
	OrderID string
	TxHash  string
	Wallet  string
}

// PositionServiceOpts is the struct given to NewPositionService.
type PositionServiceOpts struct {
	TradingService ports.TradingService
	Signer         *SigningCoordinator
	Submitter      ports.TxSubmitter
	// OrderRepository is optional, a nil repository disables journaling.
	OrderRepository domain.OrderRepository
	MaxLeverage     int
	UnsignedTxTTL   time.Duration
}

func (o PositionServiceOpts) validate() error {
	if o.TradingService == nil {
		return ErrNullTradingService
	}
	if o.Signer == nil {
		return ErrNullSigningCoordinator
	}
	if o.Submitter == nil {
		return ErrNullSubmitter
	}
	return nil
}

// PositionService runs the whole open-position pipeline: intent validation,
// unsigned transaction request, signing coordination, network submission and
// journaling. One logical pipeline per intent, no shared mutable state across
// concurrent intents beyond the per-wallet signing locks.
type PositionService struct {
	trading       ports.TradingService
	signer        *SigningCoordinator
	submitter     ports.TxSubmitter
	repo          domain.OrderRepository
	maxLeverage   int
	unsignedTxTTL time.Duration
}

// NewPositionService returns a new position service initialized with the
// given arguments.
func NewPositionService(opts PositionServiceOpts) (*PositionService, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	maxLeverage := opts.MaxLeverage
	if maxLeverage <= 0 {
		maxLeverage = domain.MinLeverage
	}

	return &PositionService{
		trading:       opts.TradingService,
		signer:        opts.Signer,
		submitter:     opts.Submitter,
		repo:          opts.OrderRepository,
		maxLeverage:   maxLeverage,
		unsignedTxTTL: opts.UnsignedTxTTL,
	}, nil
}

// OpenPosition takes a trade intent through the whole pipeline and returns
// the hash of the submitted transaction. Every stage failure is journaled
// with the stage it happened at.
func (s *PositionService) OpenPosition(
	ctx context.Context, intent domain.TradeIntent,
) (*OpenPositionResult, error) {
	req, err := domain.NewOpenPositionRequest(intent, s.maxLeverage)
	if err != nil {
		return nil, err
	}

	order := domain.NewPositionOrder(intent)
	s.addOrder(ctx, order)

	unsigned, err := s.trading.OpenPosition(ctx, req)
	if err != nil {
		s.failOrder(ctx, order, domain.StageRequest, err)
		return nil, err
	}
	bodyHash := unsignedBodyHash(unsigned)
	order.Request(bodyHash)
	s.updateOrder(ctx, order)

	log.WithFields(log.Fields{
		"order": order.Id,
		"fee":   unsigned.Fee,
	}).Debug("received unsigned transaction")

	// A stale payload is never signed silently: its fee or input set may no
	// longer match the chain, so a fresh one is requested instead. The
	// coordinator rechecks the TTL before every attempt, slow wallet
	// interactions can age the payload mid-coordination.
	var signed *domain.SignedTransaction
	for refresh := 0; ; refresh++ {
		if unsigned.IsStale(s.unsignedTxTTL) {
			if refresh >= maxStaleRefreshes {
				s.failOrder(ctx, order, domain.StageSign, domain.ErrStaleUnsignedTx)
				return nil, domain.ErrStaleUnsignedTx
			}
			log.WithField("order", order.Id).Info("unsigned transaction went stale, requesting a fresh one")
			unsigned, err = s.trading.OpenPosition(ctx, req)
			if err != nil {
				s.failOrder(ctx, order, domain.StageRequest, err)
				return nil, err
			}
			order.Request(unsignedBodyHash(unsigned))
			s.updateOrder(ctx, order)
		}

		signed, err = s.signer.Sign(ctx, unsigned)
		if err == nil {
			break
		}
		if errors.Is(err, domain.ErrStaleUnsignedTx) && refresh < maxStaleRefreshes {
			continue
		}
		if errors.Is(err, domain.ErrSigningAbandoned) {
			order.Abandon()
			s.updateOrder(ctx, order)
			return nil, err
		}
		s.failOrder(ctx, order, domain.StageSign, err)
		return nil, err
	}
	if err := order.Sign(signed.Wallet); err != nil {
		return nil, err
	}
	s.updateOrder(ctx, order)

	result, err := s.submitter.Submit(ctx, *signed)
	if err != nil {
		s.failOrder(ctx, order, domain.StageSubmit, err)
		return nil, err
	}
	if err := order.Submit(result.TxHash); err != nil {
		return nil, err
	}
	s.updateOrder(ctx, order)

	log.WithFields(log.Fields{
		"order":  order.Id,
		"txhash": result.TxHash,
		"wallet": signed.Wallet,
	}).Info("position opened")

	return &OpenPositionResult{
		OrderID: order.Id,
		TxHash:  result.TxHash,
		Wallet:  signed.Wallet,
	}, nil
}

// GetMarketInfo exposes the read-only market probe of the trading service.
func (s *PositionService) GetMarketInfo(
	ctx context.Context,
) (*domain.MarketSnapshot, error) {
	return s.trading.GetMarketInfo(ctx)
}

// ListOrders returns the journaled orders, most recent first.
func (s *PositionService) ListOrders(
	ctx context.Context,
) ([]*domain.PositionOrder, error) {
	if s.repo == nil {
		return nil, nil
	}
	return s.repo.GetAllOrders(ctx)
}

func unsignedBodyHash(unsigned *domain.UnsignedTransaction) string {
	txBytes, err := hex.DecodeString(unsigned.CborHex)
	if err != nil {
		return ""
	}
	hash, err := txutil.BodyHashHex(txBytes)
	if err != nil {
		return ""
	}
	return hash
}

func (s *PositionService) addOrder(ctx context.Context, order *domain.PositionOrder) {
	if s.repo == nil {
		return
	}
	if err := s.repo.AddOrder(ctx, order); err != nil {
		log.WithError(err).WithField("order", order.Id).Warn("could not journal order")
	}
}

func (s *PositionService) updateOrder(ctx context.Context, order *domain.PositionOrder) {
	if s.repo == nil {
		return
	}
	err := s.repo.UpdateOrder(ctx, order.Id,
		func(_ *domain.PositionOrder) (*domain.PositionOrder, error) {
			return order, nil
		},
	)
	if err != nil {
		log.WithError(err).WithField("order", order.Id).Warn("could not update journaled order")
	}
}

func (s *PositionService) failOrder(
	ctx context.Context, order *domain.PositionOrder, stage string, reason error,
) {
	order.Fail(stage, reason)
	s.updateOrder(ctx, order)
}
