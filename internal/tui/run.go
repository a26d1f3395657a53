package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/iliamunaev/inflight/internal/indicator"
	"github.com/iliamunaev/inflight/internal/model"
	"github.com/iliamunaev/inflight/internal/tracker"
)

// Batch runs the calls the indicator reports on.
type Batch func(ctx context.Context) ([]model.CallResult, error)

// Watch forwards tracker transitions to a buffered channel without blocking
// the caller. When the buffer is full the oldest pending state is dropped.
func Watch(tr *tracker.Tracker, size int) (<-chan tracker.State, *tracker.Subscription) {
	if size < 1 {
		size = 1
	}
	ch := make(chan tracker.State, size)
	sub := tr.Subscribe(tracker.ObserverFunc(func(s tracker.State) {
		for {
			select {
			case ch <- s:
				return
			default:
			}
			select {
			case <-ch:
			default:
			}
		}
	}))
	return ch, sub
}

// Run shows the busy indicator while batch runs and returns its results.
// Quitting early cancels the batch and waits for it to settle.
func Run(ctx context.Context, tr *tracker.Tracker, batch Batch, opts ...tea.ProgramOption) ([]model.CallResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ind := indicator.New()
	ind.Attach(tr)
	defer ind.Detach()

	states, sub := Watch(tr, 64)
	defer sub.Unsubscribe()

	p := tea.NewProgram(NewModel(ind, states), opts...)

	done := make(chan DoneMsg, 1)
	go func() {
		res, err := batch(ctx)
		msg := DoneMsg{Results: res, Err: err}
		done <- msg
		p.Send(msg)
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-done
		return nil, fmt.Errorf("run tui: %w", err)
	}

	// The program also exits on q; stop the batch in that case.
	cancel()
	msg := <-done
	return msg.Results, msg.Err
}
