package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type rpcRequest struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
}

// jsonRPCServer answers every call with result, or with a JSON-RPC error when
// code is non-zero.
func jsonRPCServer(t *testing.T, hits *int32, result interface{}, code int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		if code != 0 {
			resp["error"] = map[string]interface{}{"code": code, "message": "rejected"}
		} else {
			resp["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func brokenServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testOptions() Options {
	return Options{Attempts: 3, RetryDelay: time.Millisecond, RequestTimeout: time.Second}
}

func blockHeight(p *Pool) (uint64, error) {
	var height uint64
	err := p.Execute(context.Background(), "getBlockHeight", func(ctx context.Context, c *solanarpc.Client) error {
		var err error
		height, err = c.GetBlockHeight(ctx, solanarpc.CommitmentConfirmed)
		return err
	})
	return height, err
}

func TestNewPoolRequiresURLs(t *testing.T) {
	_, err := NewPool(nil, Options{}, zap.NewNop())
	assert.ErrorIs(t, err, ErrNoRPCNodes)
}

func TestPoolFailsOverOnTransportError(t *testing.T) {
	var badHits, goodHits int32
	bad := brokenServer(t, &badHits)
	good := jsonRPCServer(t, &goodHits, 42, 0)

	pool, err := NewPool([]string{bad.URL, good.URL}, testOptions(), zap.NewNop())
	require.NoError(t, err)

	height, err := blockHeight(pool)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), height)
	assert.Equal(t, int32(1), atomic.LoadInt32(&badHits))
	assert.Equal(t, int32(1), atomic.LoadInt32(&goodHits))

	stats := pool.Stats()
	require.Len(t, stats, 2)
	assert.False(t, stats[0].Active)
	assert.Equal(t, uint64(1), stats[0].Errors)
	assert.True(t, stats[1].Active)
	assert.Equal(t, uint64(1), stats[1].Successes)
}

func TestPoolDoesNotFailOverOnRequestError(t *testing.T) {
	var firstHits, secondHits int32
	first := jsonRPCServer(t, &firstHits, nil, -32602)
	second := jsonRPCServer(t, &secondHits, 42, 0)

	pool, err := NewPool([]string{first.URL, second.URL}, testOptions(), zap.NewNop())
	require.NoError(t, err)

	_, err = blockHeight(pool)
	require.Error(t, err)

	var rpcErr *jsonrpc.RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, -32602, rpcErr.Code)

	var poolErr *Error
	require.True(t, errors.As(err, &poolErr))
	assert.Equal(t, "getBlockHeight", poolErr.Method)
	assert.Equal(t, first.URL, poolErr.NodeURL)

	assert.Equal(t, int32(0), atomic.LoadInt32(&secondHits))
}

func TestPoolReactivatesWhenAllNodesFail(t *testing.T) {
	var hits int32
	bad := brokenServer(t, &hits)

	pool, err := NewPool([]string{bad.URL}, testOptions(), zap.NewNop())
	require.NoError(t, err)

	_, err = blockHeight(pool)
	require.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits), "single node is retried after reactivation")
}

func TestPoolStopsOnCancelledContext(t *testing.T) {
	var hits int32
	good := jsonRPCServer(t, &hits, 1, 0)
	pool, err := NewPool([]string{good.URL}, testOptions(), zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = pool.Execute(ctx, "getBlockHeight", func(ctx context.Context, c *solanarpc.Client) error {
		_, err := c.GetBlockHeight(ctx, solanarpc.CommitmentConfirmed)
		return err
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
}

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(context.Canceled))
	assert.True(t, IsTransient(ErrTimeout))
	assert.True(t, IsTransient(errors.New("connection refused")))
	assert.True(t, IsTransient(&jsonrpc.RPCError{Code: -32005, Message: "Node is behind"}))
	assert.False(t, IsTransient(&jsonrpc.RPCError{Code: -32002, Message: "Transaction simulation failed"}))
}
