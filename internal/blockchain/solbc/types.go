// internal/blockchain/solbc/types.go
package solbc

import (
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-counter/internal/blockchain"
	rpcpool "github.com/rovshanmuradov/solana-counter/internal/blockchain/solbc/rpc"
)

// Options configures the adapter.
type Options struct {
	Commitment     rpc.CommitmentType
	SkipPreflight  bool
	RateLimit      int
	Attempts       int
	RequestTimeout time.Duration
}

// Client представляет основной клиент Solana
type Client struct {
	pool          *rpcpool.Pool
	commitment    rpc.CommitmentType
	skipPreflight bool
	logger        *zap.Logger
}

// Проверяем, что Client реализует интерфейсы blockchain
var (
	_ blockchain.Client        = (*Client)(nil)
	_ blockchain.Faucet        = (*Client)(nil)
	_ blockchain.BalanceReader = (*Client)(nil)
	_ blockchain.FeeSampler    = (*Client)(nil)
)
