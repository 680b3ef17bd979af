// internal/transaction/result.go
package transaction

import (
	"encoding/json"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Outcome is the terminal state of one submission.
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomeConfirmed
	OutcomeSimulationRejected
	OutcomeExpired
	OutcomeRemoteError
	OutcomeTimeout
)

func (o Outcome) String() string {
	switch o {
	case OutcomeConfirmed:
		return "confirmed"
	case OutcomeSimulationRejected:
		return "simulation_rejected"
	case OutcomeExpired:
		return "expired"
	case OutcomeRemoteError:
		return "remote_error"
	case OutcomeTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

func (o Outcome) sentinel() error {
	switch o {
	case OutcomeSimulationRejected:
		return ErrSimulationRejected
	case OutcomeExpired:
		return ErrExpired
	case OutcomeRemoteError:
		return ErrRemote
	case OutcomeTimeout:
		return ErrTimeout
	default:
		return nil
	}
}

// Result describes how a submission ended. Code, Message and Logs hold node
// diagnostics exactly as returned.
type Result struct {
	Outcome       Outcome
	Signature     solana.Signature
	Slot          uint64
	Code          int
	Message       string
	Logs          []string
	UnitsConsumed uint64
	// Accounts holds raw data of the accounts fetched after confirmation.
	Accounts map[solana.PublicKey][]byte
	// Owners holds the owning program of each fetched account.
	Owners map[solana.PublicKey]solana.PublicKey
	// Cause is the underlying error, if any, that led to the outcome.
	Cause error
}

// Err returns nil for a confirmed result and a *SubmissionError otherwise.
func (r Result) Err() error {
	if r.Outcome == OutcomeConfirmed {
		return nil
	}
	return &SubmissionError{
		Outcome:   r.Outcome,
		Signature: r.Signature,
		Code:      r.Code,
		Message:   r.Message,
		Logs:      r.Logs,
		Cause:     r.Cause,
	}
}

// SubmissionError is a non-confirmed terminal result. errors.Is matches it
// against the sentinel for its outcome.
type SubmissionError struct {
	Outcome   Outcome
	Signature solana.Signature
	Code      int
	Message   string
	Logs      []string
	Cause     error
}

func (e *SubmissionError) Error() string {
	msg := fmt.Sprintf("transaction %s", e.Outcome)
	if e.Signature != (solana.Signature{}) {
		msg += " (" + e.Signature.String() + ")"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *SubmissionError) Is(target error) bool {
	s := e.Outcome.sentinel()
	return s != nil && target == s
}

func (e *SubmissionError) Unwrap() error {
	return e.Cause
}

// describe renders a node-supplied error value without interpreting it.
func describe(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	if b, err := json.Marshal(v); err == nil {
		return string(b)
	}
	return fmt.Sprintf("%v", v)
}
