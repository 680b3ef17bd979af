// internal/transaction/types.go
package transaction

import (
	"errors"
	"time"

	"github.com/gagliardetto/solana-go/rpc"

	"github.com/rovshanmuradov/solana-counter/internal/instruction"
)

var (
	ErrInvalidCall        = instruction.ErrInvalidCall
	ErrNoInstructions     = errors.New("no instructions to assemble")
	ErrMissingSigner      = errors.New("missing required signer")
	ErrSimulationRejected = errors.New("simulation rejected")
	ErrExpired            = errors.New("block reference expired")
	ErrRemote             = errors.New("remote error")
	ErrTimeout            = errors.New("confirmation not observed")
)

// Config tunes the submission pipeline.
type Config struct {
	Commitment rpc.CommitmentType
	// SkipSimulation disables the dry run for every request.
	SkipSimulation bool
	// ReassembleOnExpiry re-runs the whole pipeline once, from a fresh block
	// reference, after an Expired outcome.
	ReassembleOnExpiry bool

	SendAttempts        int
	SendInitialInterval time.Duration

	PollInitialInterval time.Duration
	PollMaxInterval     time.Duration
	PollMultiplier      float64
	PollAttempts        int
	PollTimeout         time.Duration
}

// DefaultConfig matches devnet latencies.
func DefaultConfig() Config {
	return Config{
		Commitment:          rpc.CommitmentConfirmed,
		SendAttempts:        3,
		SendInitialInterval: 250 * time.Millisecond,
		PollInitialInterval: 500 * time.Millisecond,
		PollMaxInterval:     4 * time.Second,
		PollMultiplier:      1.5,
		PollAttempts:        40,
		PollTimeout:         90 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Commitment == "" {
		c.Commitment = d.Commitment
	}
	if c.SendAttempts <= 0 {
		c.SendAttempts = d.SendAttempts
	}
	if c.SendInitialInterval <= 0 {
		c.SendInitialInterval = d.SendInitialInterval
	}
	if c.PollInitialInterval <= 0 {
		c.PollInitialInterval = d.PollInitialInterval
	}
	if c.PollMaxInterval < c.PollInitialInterval {
		c.PollMaxInterval = c.PollInitialInterval
	}
	if c.PollMultiplier < 1 {
		c.PollMultiplier = d.PollMultiplier
	}
	if c.PollAttempts <= 0 {
		c.PollAttempts = d.PollAttempts
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = d.PollTimeout
	}
	return c
}
