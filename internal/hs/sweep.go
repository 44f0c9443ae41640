package hs

import "context"

// Sweep is a folder sweep running on a background goroutine.
// Progress events are delivered in order on a bounded channel that is closed
// when the sweep ends.
type Sweep struct {
	events chan Event
	done   chan struct{}
	cancel context.CancelFunc
	result *SweepResult
	err    error
}

// StartSweep runs ProtectFolder in the background. buffer bounds the number of
// undelivered events. The consumer should drain Events until it is closed;
// events that cannot be delivered after the sweep was cancelled are dropped.
func (e *Engine) StartSweep(ctx context.Context, folder string, buffer int) *Sweep {
	if buffer < 1 {
		buffer = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	s := &Sweep{
		events: make(chan Event, buffer),
		done:   make(chan struct{}),
		cancel: cancel,
	}

	go func() {
		defer close(s.done)
		defer close(s.events)
		defer cancel()

		s.result, s.err = e.ProtectFolder(ctx, folder, func(ev Event) {
			select {
			case s.events <- ev:
			case <-ctx.Done():
				// Still try to hand over the final event without blocking.
				select {
				case s.events <- ev:
				default:
				}
			}
		})
	}()

	return s
}

// Events returns the progress channel.
func (s *Sweep) Events() <-chan Event { return s.events }

// Cancel asks the sweep to stop before the next file.
func (s *Sweep) Cancel() { s.cancel() }

// Wait blocks until the sweep has finished and returns its result.
func (s *Sweep) Wait() (*SweepResult, error) {
	<-s.done
	return s.result, s.err
}
