package agent

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/toolflow/types"
)

// Event describes one completed Process call.
type Event struct {
	Agent     string
	Request   Request
	Strategy  Strategy
	ToolID    string
	Pattern   string
	Envelope  Envelope
	ErrorCode types.ErrorCode
	Duration  time.Duration
}

// Observer is notified after every Process call, in registration order.
// Implementations must be safe for concurrent use.
type Observer interface {
	ObserveEnvelope(ctx context.Context, ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, ev Event)

// ObserveEnvelope calls f.
func (f ObserverFunc) ObserveEnvelope(ctx context.Context, ev Event) { f(ctx, ev) }

// notify delivers ev to every observer. A panicking observer is logged and
// skipped; it never affects the envelope returned to the caller.
func (a *Agent) notify(ctx context.Context, ev Event) {
	for _, o := range a.observers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					a.logger.Error("observer panicked", zap.Any("panic", r))
				}
			}()
			o.ObserveEnvelope(ctx, ev)
		}()
	}
}
