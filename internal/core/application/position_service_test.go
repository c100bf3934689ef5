package application_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/perplabs/perp-agent/internal/core/application"
	"github.com/perplabs/perp-agent/internal/core/domain"
	"github.com/perplabs/perp-agent/internal/core/ports"
)

func newTestIntent() domain.TradeIntent {
	return domain.TradeIntent{
		Side:             domain.SideLong,
		CollateralAmount: decimal.NewFromInt(45),
		Leverage:         2,
		Asset:            domain.Asset{},
		AccountAddress:   "addr1qxck2kry3ep5xc5c6de5mqywqvxgqzhsgmwy4xrvdqzq8vyfwtf2",
	}
}

func newTestService(
	t *testing.T,
	trading *mockTradingService,
	submitter *mockSubmitter,
	repo domain.OrderRepository,
	wallets ...ports.WalletProvider,
) *application.PositionService {
	t.Helper()

	if len(wallets) == 0 {
		wallets = []ports.WalletProvider{newSigningWallet("eternl")}
	}
	signer, err := application.NewSigningCoordinator(wallets, 3, time.Second, time.Minute)
	require.NoError(t, err)

	svc, err := application.NewPositionService(application.PositionServiceOpts{
		TradingService:  trading,
		Signer:          signer,
		Submitter:       submitter,
		OrderRepository: repo,
		MaxLeverage:     10,
		UnsignedTxTTL:   time.Minute,
	})
	require.NoError(t, err)
	return svc
}

func TestOpenPositionEndToEnd(t *testing.T) {
	trading := &mockTradingService{
		openFn: func(_ context.Context, req *domain.OpenPositionRequest) (*domain.UnsignedTransaction, error) {
			require.Equal(t, "ADA", req.AssetTicker)
			require.Equal(t, "45", req.CollateralAmount.String())
			require.Equal(t, 2, req.Leverage)
			require.Equal(t, "Long", req.Position)
			return &domain.UnsignedTransaction{
				CborHex:   newUnsignedTxHex(),
				Fee:       170000,
				CreatedAt: time.Now(),
			}, nil
		},
	}
	submitter := &mockSubmitter{
		submitFn: func(_ context.Context, tx domain.SignedTransaction) (domain.SubmissionResult, error) {
			require.NotEmpty(t, tx.CborHex)
			return domain.SubmissionResult{Success: true, TxHash: "deadbeef"}, nil
		},
	}
	repo := newInMemoryOrderRepository()

	svc := newTestService(t, trading, submitter, repo)

	result, err := svc.OpenPosition(context.Background(), newTestIntent())
	require.NoError(t, err)
	require.Equal(t, "deadbeef", result.TxHash)
	require.Equal(t, "eternl", result.Wallet)

	order, err := repo.GetOrder(context.Background(), result.OrderID)
	require.NoError(t, err)
	require.True(t, order.IsSubmitted())
	require.Equal(t, "deadbeef", order.TxHash)
	require.Equal(t, "eternl", order.Wallet)
}

func TestOpenPositionInvalidIntentIssuesNoNetworkCall(t *testing.T) {
	trading := &mockTradingService{
		openFn: func(_ context.Context, _ *domain.OpenPositionRequest) (*domain.UnsignedTransaction, error) {
			t.Fatal("trading service must not be called for an invalid intent")
			return nil, nil
		},
	}
	submitter := &mockSubmitter{
		submitFn: func(_ context.Context, _ domain.SignedTransaction) (domain.SubmissionResult, error) {
			t.Fatal("submitter must not be called for an invalid intent")
			return domain.SubmissionResult{}, nil
		},
	}

	svc := newTestService(t, trading, submitter, nil)

	intent := newTestIntent()
	intent.Leverage = 0

	result, err := svc.OpenPosition(context.Background(), intent)
	require.Nil(t, result)
	require.ErrorIs(t, err, domain.ErrInvalidLeverage)
	require.Equal(t, 0, trading.openCalls)
}

func TestOpenPositionJournalsFailedStage(t *testing.T) {
	trading := &mockTradingService{
		openFn: func(_ context.Context, _ *domain.OpenPositionRequest) (*domain.UnsignedTransaction, error) {
			return &domain.UnsignedTransaction{
				CborHex:   newUnsignedTxHex(),
				CreatedAt: time.Now(),
			}, nil
		},
	}
	submitter := &mockSubmitter{
		submitFn: func(_ context.Context, _ domain.SignedTransaction) (domain.SubmissionResult, error) {
			return domain.SubmissionResult{}, &domain.RejectedError{Reason: "BadInputsUTxO"}
		},
	}
	repo := newInMemoryOrderRepository()

	svc := newTestService(t, trading, submitter, repo)

	result, err := svc.OpenPosition(context.Background(), newTestIntent())
	require.Nil(t, result)

	var rejected *domain.RejectedError
	require.ErrorAs(t, err, &rejected)

	orders, err := repo.GetAllOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.True(t, orders[0].IsFailed())
	require.Equal(t, domain.StageSubmit, orders[0].FailedStage)
}

func TestOpenPositionRefreshesStaleUnsignedTx(t *testing.T) {
	trading := &mockTradingService{}
	trading.openFn = func(_ context.Context, _ *domain.OpenPositionRequest) (*domain.UnsignedTransaction, error) {
		createdAt := time.Now()
		if trading.openCalls == 1 {
			// first reply is already older than the TTL
			createdAt = createdAt.Add(-5 * time.Minute)
		}
		return &domain.UnsignedTransaction{
			CborHex:   newUnsignedTxHex(),
			CreatedAt: createdAt,
		}, nil
	}
	submitter := &mockSubmitter{
		submitFn: func(_ context.Context, _ domain.SignedTransaction) (domain.SubmissionResult, error) {
			return domain.SubmissionResult{Success: true, TxHash: "deadbeef"}, nil
		},
	}

	svc := newTestService(t, trading, submitter, nil)

	result, err := svc.OpenPosition(context.Background(), newTestIntent())
	require.NoError(t, err)
	require.Equal(t, "deadbeef", result.TxHash)
	require.Equal(t, 2, trading.openCalls)
}

func TestOpenPositionRefreshesPayloadGoneStaleMidSigning(t *testing.T) {
	const ttl = 100 * time.Millisecond

	trading := &mockTradingService{
		openFn: func(_ context.Context, _ *domain.OpenPositionRequest) (*domain.UnsignedTransaction, error) {
			return &domain.UnsignedTransaction{
				CborHex:   newUnsignedTxHex(),
				CreatedAt: time.Now(),
			}, nil
		},
	}
	submitter := &mockSubmitter{
		submitFn: func(_ context.Context, _ domain.SignedTransaction) (domain.SubmissionResult, error) {
			return domain.SubmissionResult{Success: true, TxHash: "deadbeef"}, nil
		},
	}

	// the first wallet outlives the TTL before declining, but only once, so
	// the refreshed payload reaches the fallback wallet while still fresh
	var slowCalls int32
	slow := newFailingWallet("eternl")
	slow.signFn = func(_ context.Context, _ string) (string, error) {
		if atomic.AddInt32(&slowCalls, 1) == 1 {
			time.Sleep(3 * ttl)
		}
		return "", errors.New("user declined signature")
	}
	fast := newSigningWallet("nami")

	signer, err := application.NewSigningCoordinator(
		[]ports.WalletProvider{slow, fast}, 3, time.Second, ttl,
	)
	require.NoError(t, err)

	svc, err := application.NewPositionService(application.PositionServiceOpts{
		TradingService: trading,
		Signer:         signer,
		Submitter:      submitter,
		MaxLeverage:    10,
		UnsignedTxTTL:  ttl,
	})
	require.NoError(t, err)

	result, err := svc.OpenPosition(context.Background(), newTestIntent())
	require.NoError(t, err)
	require.Equal(t, "deadbeef", result.TxHash)
	require.Equal(t, "nami", result.Wallet)
	// the payload aged past the TTL mid-coordination, a fresh one was
	// requested before any fallback wallet signed
	require.Equal(t, 2, trading.openCalls)
}

func TestOpenPositionAbandonedIsNotFailed(t *testing.T) {
	trading := &mockTradingService{
		openFn: func(_ context.Context, _ *domain.OpenPositionRequest) (*domain.UnsignedTransaction, error) {
			return &domain.UnsignedTransaction{
				CborHex:   newUnsignedTxHex(),
				CreatedAt: time.Now(),
			}, nil
		},
	}
	submitter := &mockSubmitter{
		submitFn: func(_ context.Context, _ domain.SignedTransaction) (domain.SubmissionResult, error) {
			t.Fatal("an abandoned order must never be submitted")
			return domain.SubmissionResult{}, nil
		},
	}
	repo := newInMemoryOrderRepository()

	slow := newSigningWallet("eternl")
	slow.signFn = func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}

	svc := newTestService(t, trading, submitter, repo, slow)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	result, err := svc.OpenPosition(ctx, newTestIntent())
	require.Nil(t, result)
	require.ErrorIs(t, err, domain.ErrSigningAbandoned)

	orders, err := repo.GetAllOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.True(t, orders[0].IsAbandoned())
	require.False(t, orders[0].IsFailed())
}
