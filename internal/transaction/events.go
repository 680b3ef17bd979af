// internal/transaction/events.go
package transaction

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// Stage is a step of the submission state machine.
type Stage int

const (
	StageBuilt Stage = iota
	StageSimulated
	StageSigned
	StageSent
	StageConfirmed
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageBuilt:
		return "built"
	case StageSimulated:
		return "simulated"
	case StageSigned:
		return "signed"
	case StageSent:
		return "sent"
	case StageConfirmed:
		return "confirmed"
	case StageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// StageEvent reports a transition. RunID ties together the events of one
// Execute call.
type StageEvent struct {
	RunID     string
	Stage     Stage
	Signature solana.Signature
	Outcome   Outcome
	Detail    string
	At        time.Time
}

// Observer receives stage events. Implementations must be safe for concurrent
// use when an engine serves concurrent submissions.
type Observer interface {
	OnStage(StageEvent)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(StageEvent)

func (f ObserverFunc) OnStage(ev StageEvent) { f(ev) }
