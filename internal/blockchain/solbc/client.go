// internal/blockchain/solbc/client.go
package solbc

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-counter/internal/blockchain"
	rpcpool "github.com/rovshanmuradov/solana-counter/internal/blockchain/solbc/rpc"
)

// NewClient создаёт клиент поверх пула RPC узлов.
func NewClient(urls []string, opts Options, logger *zap.Logger) (*Client, error) {
	pool, err := rpcpool.NewPool(urls, rpcpool.Options{
		RateLimit:      opts.RateLimit,
		Attempts:       opts.Attempts,
		RequestTimeout: opts.RequestTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create rpc pool: %w", err)
	}
	commitment := opts.Commitment
	if commitment == "" {
		commitment = rpc.CommitmentConfirmed
	}
	return &Client{
		pool:          pool,
		commitment:    commitment,
		skipPreflight: opts.SkipPreflight,
		logger:        logger.Named("solbc-client"),
	}, nil
}

// Commitment returns the level the client reads and confirms at.
func (c *Client) Commitment() rpc.CommitmentType {
	return c.commitment
}

// Pool exposes endpoint health for diagnostics.
func (c *Client) Pool() *rpcpool.Pool {
	return c.pool
}

// GetRecentBlockReference получает последний blockhash вместе с его окном валидности.
func (c *Client) GetRecentBlockReference(ctx context.Context) (blockchain.BlockReference, error) {
	var ref blockchain.BlockReference
	err := c.pool.Execute(ctx, "getLatestBlockhash", func(ctx context.Context, rc *rpc.Client) error {
		res, err := rc.GetLatestBlockhash(ctx, c.commitment)
		if err != nil {
			return err
		}
		if res == nil || res.Value == nil {
			return fmt.Errorf("empty getLatestBlockhash response")
		}
		ref = blockchain.BlockReference{
			Blockhash:            res.Value.Blockhash,
			LastValidBlockHeight: res.Value.LastValidBlockHeight,
			Slot:                 res.Context.Slot,
		}
		return nil
	})
	if err != nil {
		c.logger.Error("GetRecentBlockReference error", zap.Error(err))
		return blockchain.BlockReference{}, translate(err)
	}
	return ref, nil
}

func (c *Client) GetBlockHeight(ctx context.Context) (uint64, error) {
	var height uint64
	err := c.pool.Execute(ctx, "getBlockHeight", func(ctx context.Context, rc *rpc.Client) error {
		var err error
		height, err = rc.GetBlockHeight(ctx, c.commitment)
		return err
	})
	if err != nil {
		c.logger.Debug("GetBlockHeight error", zap.Error(err))
		return 0, translate(err)
	}
	return height, nil
}

// Simulate симулирует транзакцию без проверки подписей.
func (c *Client) Simulate(ctx context.Context, tx *solana.Transaction, watch ...solana.PublicKey) (*blockchain.SimulationOutcome, error) {
	opts := &rpc.SimulateTransactionOpts{
		SigVerify:  false,
		Commitment: c.commitment,
	}
	if len(watch) > 0 {
		opts.Accounts = &rpc.SimulateTransactionAccountsOpts{
			Encoding:  solana.EncodingBase64,
			Addresses: watch,
		}
	}

	var res *rpc.SimulateTransactionResponse
	err := c.pool.Execute(ctx, "simulateTransaction", func(ctx context.Context, rc *rpc.Client) error {
		var err error
		res, err = rc.SimulateTransactionWithOpts(ctx, tx, opts)
		return err
	})
	if err != nil {
		c.logger.Error("Simulate error", zap.Error(err))
		return nil, translate(err)
	}
	if res == nil || res.Value == nil {
		return nil, fmt.Errorf("empty simulateTransaction response")
	}

	out := &blockchain.SimulationOutcome{
		Err:  res.Value.Err,
		Logs: res.Value.Logs,
	}
	if res.Value.UnitsConsumed != nil {
		out.UnitsConsumed = *res.Value.UnitsConsumed
	}
	if len(watch) > 0 {
		out.Accounts = make(map[solana.PublicKey][]byte, len(watch))
		for i, acc := range res.Value.Accounts {
			if i >= len(watch) || acc == nil || acc.Data == nil {
				continue
			}
			out.Accounts[watch[i]] = acc.Data.GetBinary()
		}
	}
	return out, nil
}

// Send отправляет подписанную транзакцию.
func (c *Client) Send(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	var sig solana.Signature
	err := c.pool.Execute(ctx, "sendTransaction", func(ctx context.Context, rc *rpc.Client) error {
		var err error
		sig, err = rc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
			SkipPreflight:       c.skipPreflight,
			PreflightCommitment: c.commitment,
		})
		return err
	})
	if err != nil {
		c.logger.Error("Send error", zap.Error(err))
		return solana.Signature{}, translate(err)
	}
	return sig, nil
}

// Confirm probes the status of a single signature. An unknown signature is
// reported as not found, not as an error.
func (c *Client) Confirm(ctx context.Context, sig solana.Signature, _ rpc.CommitmentType) (blockchain.SignatureStatus, error) {
	var status blockchain.SignatureStatus
	err := c.pool.Execute(ctx, "getSignatureStatuses", func(ctx context.Context, rc *rpc.Client) error {
		res, err := rc.GetSignatureStatuses(ctx, false, sig)
		if err != nil {
			return err
		}
		if res == nil || len(res.Value) == 0 || res.Value[0] == nil {
			status = blockchain.SignatureStatus{}
			return nil
		}
		v := res.Value[0]
		status = blockchain.SignatureStatus{
			Found:         true,
			Slot:          v.Slot,
			Confirmations: v.Confirmations,
			Err:           v.Err,
			Level:         v.ConfirmationStatus,
		}
		return nil
	})
	if err != nil {
		c.logger.Warn("Error getting signature statuses", zap.Error(err))
		return blockchain.SignatureStatus{}, translate(err)
	}
	return status, nil
}

// GetTransactionLogs reads meta.logMessages of a landed transaction.
func (c *Client) GetTransactionLogs(ctx context.Context, sig solana.Signature) ([]string, error) {
	var logs []string
	err := c.pool.Execute(ctx, "getTransaction", func(ctx context.Context, rc *rpc.Client) error {
		version := uint64(0)
		res, err := rc.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
			Encoding:                       solana.EncodingBase64,
			Commitment:                     rpc.CommitmentConfirmed,
			MaxSupportedTransactionVersion: &version,
		})
		if errors.Is(err, rpc.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if res != nil && res.Meta != nil {
			logs = res.Meta.LogMessages
		}
		return nil
	})
	if err != nil {
		c.logger.Debug("GetTransaction error", zap.Stringer("signature", sig), zap.Error(err))
		return nil, translate(err)
	}
	return logs, nil
}

// GetAccount получает сырые данные аккаунта.
func (c *Client) GetAccount(ctx context.Context, address solana.PublicKey) (*blockchain.AccountData, error) {
	var (
		account  *blockchain.AccountData
		notFound bool
	)
	err := c.pool.Execute(ctx, "getAccountInfo", func(ctx context.Context, rc *rpc.Client) error {
		res, err := rc.GetAccountInfoWithOpts(ctx, address, &rpc.GetAccountInfoOpts{
			Encoding:   solana.EncodingBase64,
			Commitment: c.commitment,
		})
		if errors.Is(err, rpc.ErrNotFound) {
			notFound = true
			return nil
		}
		if err != nil {
			return err
		}
		if res == nil || res.Value == nil {
			notFound = true
			return nil
		}
		var data []byte
		if res.Value.Data != nil {
			data = res.Value.Data.GetBinary()
		}
		account = &blockchain.AccountData{
			Address:  address,
			Owner:    res.Value.Owner,
			Lamports: res.Value.Lamports,
			Data:     data,
			Slot:     res.Context.Slot,
		}
		return nil
	})
	if err != nil {
		c.logger.Debug("GetAccount error",
			zap.String("pubkey", address.String()),
			zap.Error(err))
		return nil, translate(err)
	}
	if notFound {
		return nil, fmt.Errorf("%w: %s", blockchain.ErrAccountNotFound, address)
	}
	return account, nil
}

// GetBalance получает баланс аккаунта в лампортах.
func (c *Client) GetBalance(ctx context.Context, owner solana.PublicKey) (uint64, error) {
	var balance uint64
	err := c.pool.Execute(ctx, "getBalance", func(ctx context.Context, rc *rpc.Client) error {
		res, err := rc.GetBalance(ctx, owner, c.commitment)
		if err != nil {
			return err
		}
		balance = res.Value
		return nil
	})
	if err != nil {
		c.logger.Error("GetBalance error", zap.Error(err))
		return 0, translate(err)
	}
	return balance, nil
}

// RequestAirdrop asks the cluster faucet for lamports.
func (c *Client) RequestAirdrop(ctx context.Context, to solana.PublicKey, lamports uint64) (solana.Signature, error) {
	var sig solana.Signature
	err := c.pool.Execute(ctx, "requestAirdrop", func(ctx context.Context, rc *rpc.Client) error {
		var err error
		sig, err = rc.RequestAirdrop(ctx, to, lamports, c.commitment)
		return err
	})
	if err != nil {
		c.logger.Error("RequestAirdrop error", zap.Error(err))
		return solana.Signature{}, translate(err)
	}
	return sig, nil
}

// GetRecentPrioritizationFees samples recent per-slot priority fees, optionally
// restricted to transactions writing the given accounts.
func (c *Client) GetRecentPrioritizationFees(ctx context.Context, accounts ...solana.PublicKey) ([]blockchain.PrioritizationFee, error) {
	var fees []blockchain.PrioritizationFee
	err := c.pool.Execute(ctx, "getRecentPrioritizationFees", func(ctx context.Context, rc *rpc.Client) error {
		res, err := rc.GetRecentPrioritizationFees(ctx, solana.PublicKeySlice(accounts))
		if err != nil {
			return err
		}
		fees = make([]blockchain.PrioritizationFee, 0, len(res))
		for _, f := range res {
			fees = append(fees, blockchain.PrioritizationFee{Slot: f.Slot, Fee: f.PrioritizationFee})
		}
		return nil
	})
	if err != nil {
		c.logger.Debug("GetRecentPrioritizationFees error", zap.Error(err))
		return nil, translate(err)
	}
	return fees, nil
}
