package agent

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chakrateja70/Agentic-RAG-Chatbot/comms"
)

// Default wait windows. Ingestion covers parsing, embedding, and vector
// upserts for whole uploads; the query stages are interactive.
const (
	DefaultIngestionTimeout = 5 * time.Minute
	DefaultStageTimeout     = 30 * time.Second
	DefaultTopK             = 8

	// responsePollInterval is the sleep between pending-table checks in
	// awaitResponse.
	responsePollInterval = 100 * time.Millisecond
)

// requestStatus is the lifecycle state of a pending request.
type requestStatus string

const (
	statusPending   requestStatus = "pending"
	statusCompleted requestStatus = "completed"
)

// pendingRequest tracks one outstanding correlated exchange. Records
// are only read or mutated under the coordinator's lock.
type pendingRequest struct {
	kind      string // "document_ingestion" | "retrieval" | "llm_query"
	status    requestStatus
	startTime time.Time
	endTime   time.Time
	response  map[string]any
}

// Coordinator fronts external requests. It issues correlated requests
// to the workers and blocks the calling goroutine until the matching
// response arrives or the wait window closes. The pending-request table
// is private to the coordinator and invisible to the bus; it has its
// own mutex, deliberately distinct from the bus's.
type Coordinator struct {
	*Agent

	mu      sync.Mutex
	pending map[string]*pendingRequest

	IngestionTimeout time.Duration
	StageTimeout     time.Duration
	TopK             int
}

// NewCoordinator creates the coordinator and registers its response
// handlers for every response kind plus the error kind.
func NewCoordinator(bus comms.Bus, logger *slog.Logger) *Coordinator {
	c := &Coordinator{
		Agent:            New(comms.RoleCoordinator, bus, logger),
		pending:          make(map[string]*pendingRequest),
		IngestionTimeout: DefaultIngestionTimeout,
		StageTimeout:     DefaultStageTimeout,
		TopK:             DefaultTopK,
	}
	c.RegisterHandler(comms.KindIngestionResponse, c.onResponse)
	c.RegisterHandler(comms.KindRetrievalResponse, c.onResponse)
	c.RegisterHandler(comms.KindLLMQueryResponse, c.onResponse)
	c.RegisterHandler(comms.KindError, c.onResponse)
	return c
}

// onResponse marks the matching pending record completed and stashes
// the payload. A response whose trace id is unknown (typically already
// timed out and purged) is dropped with a warning; late responses are
// never resurrected.
func (c *Coordinator) onResponse(msg *comms.Message) (map[string]any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	req, ok := c.pending[msg.TraceID]
	if !ok {
		c.Logger().Warn("dropping response for unknown trace id",
			slog.String("trace_id", msg.TraceID),
			slog.String("kind", string(msg.Kind)),
			slog.String("sender", string(msg.Sender)),
		)
		return nil, nil
	}
	if req.status == statusCompleted {
		// Exactly-once completion: a duplicate response changes nothing.
		return msg.Payload, nil
	}
	req.status = statusCompleted
	req.response = msg.Payload
	req.endTime = time.Now()
	return msg.Payload, nil
}

// request registers a pending record, sends one correlated request, and
// blocks until the response arrives or timeout elapses. A receiver that
// is not active fails immediately through the returned error; a
// receiver that never answers fails via the timeout payload.
func (c *Coordinator) request(receiver comms.Role, kind comms.Kind, logicalKind string, payload map[string]any, timeout time.Duration) (map[string]any, error) {
	traceID := uuid.NewString()

	c.mu.Lock()
	c.pending[traceID] = &pendingRequest{
		kind:      logicalKind,
		status:    statusPending,
		startTime: time.Now(),
	}
	c.mu.Unlock()

	if err := c.Send(receiver, kind, payload, traceID); err != nil {
		c.mu.Lock()
		delete(c.pending, traceID)
		c.mu.Unlock()
		return nil, err
	}

	return c.awaitResponse(traceID, timeout), nil
}

// awaitResponse parks the calling goroutine in a bounded sleep-poll
// until the pending record completes or timeout elapses. Timing out
// removes the record and yields a structured failure payload — giving
// up the wait does not retract the request or abort an in-flight
// handler.
func (c *Coordinator) awaitResponse(traceID string, timeout time.Duration) map[string]any {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		c.mu.Lock()
		if req, ok := c.pending[traceID]; ok && req.status == statusCompleted {
			response := req.response
			delete(c.pending, traceID)
			c.mu.Unlock()
			return response
		}
		c.mu.Unlock()
		time.Sleep(responsePollInterval)
	}

	c.mu.Lock()
	delete(c.pending, traceID)
	c.mu.Unlock()

	c.Logger().Warn("request timed out",
		slog.String("trace_id", traceID),
		slog.Duration("timeout", timeout),
	)
	return map[string]any{
		"success":  false,
		"error":    fmt.Sprintf("request timed out after %s", timeout),
		"trace_id": traceID,
	}
}

// ProcessDocumentUpload hands the files to the ingestion worker and
// blocks until it reports back. The returned payload carries counts and
// a processing-time figure on success, or success=false with an error
// message.
func (c *Coordinator) ProcessDocumentUpload(filePaths []string, options map[string]any) (map[string]any, error) {
	if options == nil {
		options = map[string]any{}
	}
	payload := map[string]any{
		"file_paths":         filePaths,
		"processing_options": options,
	}
	return c.request(comms.RoleIngestion, comms.KindIngestionRequest, "document_ingestion", payload, c.IngestionTimeout)
}

// ProcessQuery runs the two-stage query: retrieval first, then answer
// generation over the retrieved context. A failed first stage
// short-circuits — the second request is never sent.
func (c *Coordinator) ProcessQuery(query string) (map[string]any, error) {
	start := time.Now()

	retrieval, err := c.request(comms.RoleRetrieval, comms.KindRetrievalRequest, "retrieval", map[string]any{
		"query": query,
		"top_k": c.TopK,
	}, c.StageTimeout)
	if err != nil {
		return nil, err
	}
	if !payloadBool(retrieval, "success") {
		return retrieval, nil
	}

	chunks := payloadStrings(retrieval, "retrieved_chunks")
	llm, err := c.request(comms.RoleLLMResponse, comms.KindLLMQueryRequest, "llm_query", map[string]any{
		"query":    query,
		"context":  strings.Join(chunks, "\n"),
		"sources":  payloadStrings(retrieval, "sources"),
		"metadata": payloadMaps(retrieval, "metadata"),
	}, c.StageTimeout)
	if err != nil {
		return nil, err
	}
	if !payloadBool(llm, "success") {
		return llm, nil
	}

	return map[string]any{
		"success":         true,
		"query":           query,
		"answer":          llm["response"],
		"sources":         payloadStrings(retrieval, "sources"),
		"context_chunks":  chunks,
		"processing_time": time.Since(start).Seconds(),
	}, nil
}

// SystemStatus aggregates the bus snapshot with the coordinator's own
// pending/completed counters.
func (c *Coordinator) SystemStatus() map[string]any {
	busStatus := c.Bus().Status()

	c.mu.Lock()
	pending, completed := 0, 0
	for _, req := range c.pending {
		switch req.status {
		case statusPending:
			pending++
		case statusCompleted:
			completed++
		}
	}
	total := len(c.pending)
	c.mu.Unlock()

	return map[string]any{
		"agent_status":       busStatus,
		"pending_requests":   pending,
		"completed_requests": completed,
		"total_requests":     total,
	}
}
