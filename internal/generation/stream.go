package generation

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/deckforge/deckforge-backend/internal/pipeline"
	"github.com/deckforge/deckforge-backend/internal/types"
)

// Stream runs one independent generation and emits an event per stage
// transition, one event per produced card, and a terminal complete or error
// event. One-shot: a dropped consumer loses unseen events. The goroutine
// yields between sends so a long stream cannot starve concurrent runs.
func (p *CardPipeline) Stream(ctx context.Context, req types.GenerationRequest) <-chan types.StreamEvent {
	ch := make(chan types.StreamEvent, 16)

	go func() {
		defer close(ch)

		send := func(ev types.StreamEvent) bool {
			select {
			case ch <- ev:
				runtime.Gosched()
				return true
			case <-ctx.Done():
				return false
			}
		}

		started := time.Now()
		if !send(types.StreamEvent{Type: types.StreamEventProgress, Stage: "starting", Progress: 0}) {
			return
		}

		state := p.Run(ctx, req, pipeline.Hooks[CardState]{
			Cancelled: func(ctx context.Context) bool { return ctx.Err() != nil },
			OnStage: func(stage string, s *CardState) {
				send(types.StreamEvent{Type: types.StreamEventProgress, Stage: stage, Progress: s.Progress})
				if stage == StageSave {
					for i := range s.Saved {
						card := s.Saved[i]
						send(types.StreamEvent{Type: types.StreamEventCard, Card: &card})
					}
				}
			},
		})

		switch {
		case state.Cancelled:
			// Consumer is gone or gave up; nothing left to tell it.
		case state.Error != "":
			send(types.StreamEvent{Type: types.StreamEventError, Message: state.Error})
		default:
			send(types.StreamEvent{
				Type: types.StreamEventComplete,
				Message: fmt.Sprintf("Generated %d cards in %.2fs",
					len(state.Saved), time.Since(started).Seconds()),
			})
		}
	}()

	return ch
}
