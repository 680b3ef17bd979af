// internal/blockchain/solbc/rpc/pool.go
package rpc

import (
	"context"
	"errors"
	"time"

	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

// NewPool creates a pool over urls. Order is preserved; the first URL serves
// the first request.
func NewPool(urls []string, opts Options, logger *zap.Logger) (*Pool, error) {
	if len(urls) == 0 {
		return nil, ErrNoRPCNodes
	}
	opts = opts.withDefaults()
	nodes := make([]*NodeClient, len(urls))
	for i, url := range urls {
		nodes[i] = NewNodeClient(url, opts.RateLimit)
	}
	return &Pool{
		nodes:   nodes,
		opts:    opts,
		logger:  logger.Named("rpc-pool"),
		current: len(nodes) - 1,
	}, nil
}

// next возвращает следующий активный узел. If every node has been marked
// inactive, all of them are reactivated and the rotation starts over.
func (p *Pool) next() *NodeClient {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := 0; i < len(p.nodes); i++ {
		p.current = (p.current + 1) % len(p.nodes)
		if p.nodes[p.current].IsActive() {
			return p.nodes[p.current]
		}
	}

	p.logger.Warn("All RPC nodes failed, starting over")
	for _, n := range p.nodes {
		n.SetActive(true)
	}
	p.current = (p.current + 1) % len(p.nodes)
	return p.nodes[p.current]
}

// Execute runs op against successive endpoints. Only transient failures move on
// to the next endpoint; any other error is returned at once.
func (p *Pool) Execute(ctx context.Context, method string, op func(ctx context.Context, c *solanarpc.Client) error) error {
	var lastErr error
	for attempt := 0; attempt < p.opts.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		node := p.next()
		reqCtx, cancel := context.WithTimeout(ctx, p.opts.RequestTimeout)
		start := time.Now()
		err := op(reqCtx, node.Client)
		cancel()
		node.UpdateMetrics(err == nil, time.Since(start))

		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			err = ErrTimeout
		}
		lastErr = NewError(err, node.URL, method)
		if !IsTransient(err) {
			return lastErr
		}

		node.SetActive(false)
		p.logger.Debug("RPC request failed, trying next node",
			zap.String("method", method),
			zap.String("url", node.URL),
			zap.Int("attempt", attempt+1),
			zap.Error(err))

		if attempt < p.opts.Attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.opts.RetryDelay):
			}
		}
	}
	return lastErr
}

// Stats returns a snapshot of every endpoint.
func (p *Pool) Stats() []NodeStats {
	out := make([]NodeStats, len(p.nodes))
	for i, n := range p.nodes {
		out[i] = n.Stats()
	}
	return out
}
