// internal/blockchain/solbc/errors.go
package solbc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"

	"github.com/rovshanmuradov/solana-counter/internal/blockchain"
	rpcpool "github.com/rovshanmuradov/solana-counter/internal/blockchain/solbc/rpc"
)

// translate maps a raw pool error onto the blockchain error set. Node
// diagnostics are copied, never rewritten.
func translate(err error) error {
	if err == nil {
		return nil
	}

	var rpcErr *jsonrpc.RPCError
	if !errors.As(err, &rpcErr) {
		if rpcpool.IsTransient(err) {
			return fmt.Errorf("%w: %w", blockchain.ErrUnavailable, err)
		}
		return err
	}

	remote := &blockchain.RemoteError{
		Code:      rpcErr.Code,
		Message:   rpcErr.Message,
		Logs:      extractLogs(rpcErr.Data),
		Data:      rpcErr.Data,
		Transient: rpcpool.IsTransient(rpcErr),
	}
	if isBlockhashNotFound(rpcErr) {
		return fmt.Errorf("%w: %w", blockchain.ErrBlockhashNotFound, remote)
	}
	if isAlreadyProcessed(rpcErr) {
		return fmt.Errorf("%w: %w", blockchain.ErrAlreadyProcessed, remote)
	}
	if remote.Transient {
		return fmt.Errorf("%w: %w", blockchain.ErrUnavailable, remote)
	}
	return remote
}

func extractLogs(data interface{}) []string {
	dataMap, ok := data.(map[string]interface{})
	if !ok {
		return nil
	}
	raw, ok := dataMap["logs"].([]interface{})
	if !ok {
		return nil
	}
	logs := make([]string, 0, len(raw))
	for _, entry := range raw {
		if s, ok := entry.(string); ok {
			logs = append(logs, s)
		}
	}
	return logs
}

func isBlockhashNotFound(rpcErr *jsonrpc.RPCError) bool {
	if dataMap, ok := rpcErr.Data.(map[string]interface{}); ok {
		if s, ok := dataMap["err"].(string); ok && s == "BlockhashNotFound" {
			return true
		}
	}
	return strings.Contains(strings.ToLower(rpcErr.Message), "blockhash not found")
}

func isAlreadyProcessed(rpcErr *jsonrpc.RPCError) bool {
	if dataMap, ok := rpcErr.Data.(map[string]interface{}); ok {
		if s, ok := dataMap["err"].(string); ok && s == "AlreadyProcessed" {
			return true
		}
	}
	return strings.Contains(strings.ToLower(rpcErr.Message), "already been processed")
}
