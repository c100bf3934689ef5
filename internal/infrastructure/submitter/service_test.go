package submitter_test

import (
	"context"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/perplabs/perp-agent/internal/core/domain"
	"github.com/perplabs/perp-agent/internal/infrastructure/submitter"
)

var signedTx = domain.SignedTransaction{CborHex: "82a0a1", Wallet: "eternl"}

func TestSubmit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "/tx/submit", r.URL.Path)
			require.Equal(t, "application/cbor", r.Header.Get("Content-Type"))

			body, _ := ioutil.ReadAll(r.Body)
			require.Equal(t, signedTx.CborHex, string(body))

			w.Write([]byte(`"deadbeef"`))
		},
	))
	defer server.Close()

	svc, err := submitter.NewService(server.URL, time.Second)
	require.NoError(t, err)

	result, err := svc.Submit(context.Background(), signedTx)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, "deadbeef", result.TxHash)
}

func TestSubmitIsIdempotent(t *testing.T) {
	// a stub endpoint that assigns a hash per distinct payload: submitting
	// the same signed bytes twice must yield the same result
	var lock sync.Mutex
	seen := map[string]string{}

	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			body, _ := ioutil.ReadAll(r.Body)
			lock.Lock()
			hash, ok := seen[string(body)]
			if !ok {
				hash = "deadbeef"
				seen[string(body)] = hash
			}
			lock.Unlock()
			w.Write([]byte(`"` + hash + `"`))
		},
	))
	defer server.Close()

	svc, err := submitter.NewService(server.URL, time.Second)
	require.NoError(t, err)

	first, err := svc.Submit(context.Background(), signedTx)
	require.NoError(t, err)
	second, err := svc.Submit(context.Background(), signedTx)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Len(t, seen, 1)
}

func TestSubmitRejected(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			http.Error(w, "BadInputsUTxO", http.StatusBadRequest)
		},
	))
	defer server.Close()

	svc, err := submitter.NewService(server.URL, time.Second)
	require.NoError(t, err)

	result, err := svc.Submit(context.Background(), signedTx)
	require.False(t, result.Success)

	var rejected *domain.RejectedError
	require.ErrorAs(t, err, &rejected)
	require.Contains(t, rejected.Reason, "BadInputsUTxO")
	require.False(t, domain.IsRetryable(err))
	// rejections are terminal, no retry
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestSubmitRetriesTransientFailures(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) < 3 {
				http.Error(w, "mempool full", http.StatusServiceUnavailable)
				return
			}
			w.Write([]byte(`"deadbeef"`))
		},
	))
	defer server.Close()

	svc, err := submitter.NewService(server.URL, time.Second)
	require.NoError(t, err)

	result, err := svc.Submit(context.Background(), signedTx)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestSubmitExhaustsTransientRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			http.Error(w, "mempool full", http.StatusServiceUnavailable)
		},
	))
	defer server.Close()

	svc, err := submitter.NewService(server.URL, time.Second)
	require.NoError(t, err)

	result, err := svc.Submit(context.Background(), signedTx)
	require.False(t, result.Success)
	require.True(t, domain.IsRetryable(err))
	require.Equal(t, int32(3), atomic.LoadInt32(&calls))
}
