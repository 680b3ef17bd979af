// internal/blockchain/types.go
package blockchain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrBlockhashNotFound = errors.New("blockhash not found")
	// ErrAlreadyProcessed: a node has already seen this exact signature.
	ErrAlreadyProcessed = errors.New("transaction already processed")
	// ErrUnavailable marks failures that never reached a node verdict:
	// transport errors, timeouts, overloaded or lagging nodes.
	ErrUnavailable = errors.New("rpc unavailable")
)

// IsTransient reports whether err is worth retrying with the same payload.
func IsTransient(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// BlockReference anchors a transaction to a recent ledger state. A transaction
// signed against it lands only while the block height is at most
// LastValidBlockHeight.
type BlockReference struct {
	Blockhash            solana.Hash
	LastValidBlockHeight uint64
	Slot                 uint64
}

// Expired reports whether height is past the reference's validity window.
// A zero LastValidBlockHeight carries no expiry.
func (r BlockReference) Expired(height uint64) bool {
	return r.LastValidBlockHeight != 0 && height > r.LastValidBlockHeight
}

// SimulationOutcome is the node's answer to a dry run.
type SimulationOutcome struct {
	Err           interface{}
	Logs          []string
	UnitsConsumed uint64
	// Post-simulation account data, keyed by the addresses the caller asked to watch.
	Accounts map[solana.PublicKey][]byte
}

// Failed reports whether the node would reject the transaction.
func (o *SimulationOutcome) Failed() bool {
	return o != nil && o.Err != nil
}

// SignatureStatus is a single confirmation probe result.
type SignatureStatus struct {
	Found         bool
	Slot          uint64
	Confirmations *uint64
	Err           interface{}
	Level         rpc.ConfirmationStatusType
}

var commitmentRank = map[string]int{
	string(rpc.ConfirmationStatusProcessed): 1,
	string(rpc.ConfirmationStatusConfirmed): 2,
	string(rpc.ConfirmationStatusFinalized): 3,
}

// Satisfies reports whether the observed level reaches the requested commitment.
func (s SignatureStatus) Satisfies(commitment rpc.CommitmentType) bool {
	if !s.Found {
		return false
	}
	want, ok := commitmentRank[string(commitment)]
	if !ok {
		want = commitmentRank[string(rpc.CommitmentConfirmed)]
	}
	return commitmentRank[string(s.Level)] >= want
}

// AccountData is the raw state of one account at Slot.
type AccountData struct {
	Address  solana.PublicKey
	Owner    solana.PublicKey
	Lamports uint64
	Data     []byte
	Slot     uint64
}

// PrioritizationFee is one sample from getRecentPrioritizationFees.
type PrioritizationFee struct {
	Slot uint64
	Fee  uint64
}

// RemoteError is a failure reported by the node. Logs and Data are kept exactly
// as received.
type RemoteError struct {
	Code      int
	Message   string
	Logs      []string
	Data      interface{}
	Transient bool
}

func (e *RemoteError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "remote error %d: %s", e.Code, e.Message)
	if len(e.Logs) > 0 {
		fmt.Fprintf(&b, " (%d log lines)", len(e.Logs))
	}
	return b.String()
}

// Client is the RPC capability the submission pipeline runs against. It must be
// safe for concurrent use.
type Client interface {
	GetRecentBlockReference(ctx context.Context) (BlockReference, error)
	GetBlockHeight(ctx context.Context) (uint64, error)
	// Simulate dry-runs tx without signature verification and returns the
	// post-state of every watched account.
	Simulate(ctx context.Context, tx *solana.Transaction, watch ...solana.PublicKey) (*SimulationOutcome, error)
	Send(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	Confirm(ctx context.Context, sig solana.Signature, commitment rpc.CommitmentType) (SignatureStatus, error)
	// GetAccount returns ErrAccountNotFound when the address holds no account.
	GetAccount(ctx context.Context, address solana.PublicKey) (*AccountData, error)
}

// Faucet is implemented by clients connected to clusters that hand out lamports.
type Faucet interface {
	RequestAirdrop(ctx context.Context, to solana.PublicKey, lamports uint64) (solana.Signature, error)
}

type BalanceReader interface {
	GetBalance(ctx context.Context, owner solana.PublicKey) (uint64, error)
}

// LogReader returns the execution logs the node recorded for a landed
// transaction. Nil logs with a nil error mean the node has no record yet.
type LogReader interface {
	GetTransactionLogs(ctx context.Context, sig solana.Signature) ([]string, error)
}

type FeeSampler interface {
	GetRecentPrioritizationFees(ctx context.Context, accounts ...solana.PublicKey) ([]PrioritizationFee, error)
}
