// internal/blockchain/solbc/rpc/errors.go
package rpc

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
)

var (
	// ErrNoRPCNodes возникает, когда список узлов пуст
	ErrNoRPCNodes = errors.New("no RPC nodes configured")

	// ErrTimeout возникает при превышении времени ожидания
	ErrTimeout = errors.New("request timeout")
)

// Node-side JSON-RPC codes that describe a lagging or overloaded node rather
// than a verdict on the request itself.
var transientCodes = map[int]bool{
	-32004: true, // block not available for slot
	-32005: true, // node is unhealthy / behind
	-32014: true, // block status not yet available
	-32016: true, // minimum context slot not reached
	429:    true,
}

// Error представляет ошибку RPC с дополнительным контекстом
type Error struct {
	Err     error
	NodeURL string
	Method  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("RPC error [%s] at %s: %v", e.Method, e.NodeURL, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError создает новую ошибку RPC
func NewError(err error, nodeURL, method string) error {
	return &Error{
		Err:     err,
		NodeURL: nodeURL,
		Method:  method,
	}
}

// IsTransient reports whether err is worth retrying against another endpoint.
// Transport failures are transient; JSON-RPC errors are transient only for
// codes describing node health.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		return transientCodes[rpcErr.Code]
	}
	return true
}
