// internal/blockchain/solbc/rpc/node.go
package rpc

import (
	"time"

	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"golang.org/x/time/rate"
)

// NewNodeClient creates a client for a single endpoint. A positive rateLimit
// throttles it to that many requests per second.
func NewNodeClient(url string, rateLimit int) *NodeClient {
	var client *solanarpc.Client
	if rateLimit > 0 {
		client = solanarpc.NewWithCustomRPCClient(
			solanarpc.NewWithLimiter(url, rate.Limit(rateLimit), rateLimit))
	} else {
		client = solanarpc.New(url)
	}
	return &NodeClient{
		Client:  client,
		URL:     url,
		active:  true,
		metrics: &metrics{},
	}
}

// Stats возвращает текущие метрики узла
func (c *NodeClient) Stats() NodeStats {
	c.metrics.mutex.RLock()
	defer c.metrics.mutex.RUnlock()
	return NodeStats{
		URL:       c.URL,
		Active:    c.IsActive(),
		Successes: c.metrics.successCount,
		Errors:    c.metrics.errorCount,
		Latency:   c.metrics.latency,
	}
}

// SetActive устанавливает статус активности узла
func (c *NodeClient) SetActive(state bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.active = state
}

// IsActive возвращает текущий статус активности узла
func (c *NodeClient) IsActive() bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.active
}

// UpdateMetrics обновляет метрики узла
func (c *NodeClient) UpdateMetrics(success bool, latency time.Duration) {
	c.metrics.mutex.Lock()
	defer c.metrics.mutex.Unlock()

	if success {
		c.metrics.successCount++
	} else {
		c.metrics.errorCount++
	}
	if c.metrics.latency == 0 {
		c.metrics.latency = latency
		return
	}
	c.metrics.latency = (c.metrics.latency + latency) / 2
}
