// internal/blockchain/solbc/rpc/types.go
package rpc

import (
	"sync"
	"time"

	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

const (
	DefaultTimeout  = 10 * time.Second
	DefaultAttempts = 3
	RetryDelay      = 500 * time.Millisecond
)

// Options tune how the pool talks to its endpoints.
type Options struct {
	// RateLimit caps requests per second per endpoint. Zero disables limiting.
	RateLimit      int
	Attempts       int
	RetryDelay     time.Duration
	RequestTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Attempts <= 0 {
		o.Attempts = DefaultAttempts
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = RetryDelay
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = DefaultTimeout
	}
	return o
}

// NodeClient представляет отдельный RPC узел
type NodeClient struct {
	Client  *solanarpc.Client
	URL     string
	active  bool
	mutex   sync.RWMutex
	metrics *metrics
}

// metrics содержит метрики производительности RPC узла
type metrics struct {
	successCount uint64
	errorCount   uint64
	latency      time.Duration
	mutex        sync.RWMutex
}

// NodeStats is a snapshot of one endpoint's health.
type NodeStats struct {
	URL       string
	Active    bool
	Successes uint64
	Errors    uint64
	Latency   time.Duration
}

// Pool round-robins requests over a set of endpoints.
type Pool struct {
	nodes   []*NodeClient
	opts    Options
	logger  *zap.Logger
	current int
	mu      sync.Mutex
}
