// Package agent implements the worker mesh: a generic message-pump
// base, the three RAG workers built on it, and the coordinator that
// bridges synchronous callers to the asynchronous mesh.
package agent

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/chakrateja70/Agentic-RAG-Chatbot/comms"
)

const (
	// pollInterval bounds each blocking bus receive so the loop can
	// notice its running flag. It is a responsiveness interval, not a
	// real wait.
	pollInterval = time.Second

	// stopTimeout bounds the join on the processing goroutine.
	stopTimeout = 5 * time.Second
)

// Agent is the generic message-pump every worker builds on. It owns
// one processing goroutine that drains the agent's inbox and dispatches
// each message to the handler registered on the bus.
type Agent struct {
	role   comms.Role
	bus    comms.Bus
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	done    chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
}

// New creates an agent for role and registers it on the bus. The agent
// receives no messages until Start.
func New(role comms.Role, bus comms.Bus, logger *slog.Logger) *Agent {
	if logger == nil {
		logger = slog.Default()
	}
	bus.Register(role)
	return &Agent{
		role:   role,
		bus:    bus,
		logger: logger,
	}
}

// Role returns the agent's role on the bus.
func (a *Agent) Role() comms.Role { return a.role }

// Bus returns the bus the agent is attached to.
func (a *Agent) Bus() comms.Bus { return a.bus }

// Logger returns the agent's logger.
func (a *Agent) Logger() *slog.Logger { return a.logger }

// Context returns a context that is canceled when the agent stops.
// Handlers use it for their outbound calls.
func (a *Agent) Context() context.Context {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ctx == nil {
		return context.Background()
	}
	return a.ctx
}

// RegisterHandler installs h as the handler for kind on this agent.
func (a *Agent) RegisterHandler(kind comms.Kind, h comms.Handler) {
	a.bus.RegisterHandler(a.role, kind, h)
}

// Start spawns the processing loop. No-op if already running.
func (a *Agent) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return
	}
	a.running = true
	a.done = make(chan struct{})
	a.ctx, a.cancel = context.WithCancel(context.Background())
	a.bus.Register(a.role)

	go a.loop(a.done)
	a.logger.Info("agent started", slog.String("agent", string(a.role)))
}

// Stop halts the processing loop, waits for it with a bounded timeout,
// and unregisters from the bus. Messages still queued afterwards are
// not guaranteed to be processed.
func (a *Agent) Stop() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	a.running = false
	done := a.done
	cancel := a.cancel
	a.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-time.After(stopTimeout):
		a.logger.Warn("agent loop did not stop in time", slog.String("agent", string(a.role)))
	}

	a.bus.Unregister(a.role)
	a.logger.Info("agent stopped", slog.String("agent", string(a.role)))
}

func (a *Agent) isRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

// loop is the processing loop: receive with a short poll timeout,
// dispatch, repeat. A handler failure is logged and swallowed so one
// bad message cannot kill the worker; handlers report failures to
// callers through explicit error-response messages.
func (a *Agent) loop(done chan struct{}) {
	defer close(done)
	for a.isRunning() {
		msg, ok := a.bus.Receive(a.role, pollInterval)
		if !ok {
			continue
		}
		if _, err := a.Dispatch(msg); err != nil {
			a.logger.Error("message dispatch failed",
				slog.String("agent", string(a.role)),
				slog.String("kind", string(msg.Kind)),
				slog.String("trace_id", msg.TraceID),
				slog.Any("err", err),
			)
		}
	}
}

// Dispatch invokes the handler registered for msg.Kind synchronously
// and returns its result. A kind with no handler is a *ProtocolError.
func (a *Agent) Dispatch(msg *comms.Message) (map[string]any, error) {
	h := a.bus.Handler(a.role, msg.Kind)
	if h == nil {
		return nil, &comms.ProtocolError{Role: a.role, Kind: msg.Kind}
	}
	return h(msg)
}

// Send constructs a message from this agent and forwards it to the bus.
// Any delivery failure is wrapped in a *comms.CommunicationError
// carrying sender and receiver.
func (a *Agent) Send(receiver comms.Role, kind comms.Kind, payload map[string]any, traceID string) error {
	msg := comms.NewMessage(a.role, receiver, kind, traceID, payload)
	if err := a.bus.Send(msg); err != nil {
		return &comms.CommunicationError{Sender: a.role, Receiver: receiver, Err: err}
	}
	return nil
}
