package ui

import (
	"sync"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rovshanmuradov/solana-counter/internal/transaction"
)

// Tea message types for UI communication

// StageMsg carries one pipeline stage event.
type StageMsg struct {
	Event transaction.StageEvent
}

// DoneMsg ends the view with the work's summary line or error.
type DoneMsg struct {
	Summary string
	Err     error
}

type logTickMsg struct{}

// Bridge forwards engine stage events into the tea program. It implements
// transaction.Observer.
type Bridge struct {
	events  chan tea.Msg
	closed  chan struct{}
	once    sync.Once
	dropped atomic.Uint64
}

func NewBridge(size int) *Bridge {
	return &Bridge{
		events: make(chan tea.Msg, size),
		closed: make(chan struct{}),
	}
}

// OnStage never blocks the engine: when the buffer is full the event is dropped.
func (b *Bridge) OnStage(ev transaction.StageEvent) {
	select {
	case b.events <- StageMsg{Event: ev}:
	default:
		b.dropped.Add(1)
	}
}

// Finish delivers the final message unless the view has already closed.
func (b *Bridge) Finish(summary string, err error) {
	select {
	case b.events <- DoneMsg{Summary: summary, Err: err}:
	case <-b.closed:
	}
}

// Close unblocks pending Finish calls once the program has exited.
func (b *Bridge) Close() {
	b.once.Do(func() { close(b.closed) })
}

// Dropped reports how many stage events did not fit the buffer.
func (b *Bridge) Dropped() uint64 {
	return b.dropped.Load()
}

// Listen returns a tea.Cmd that waits for the next bridged message
func (b *Bridge) Listen() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-b.events:
			return msg
		case <-b.closed:
			return nil
		}
	}
}
