package agent

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chakrateja70/Agentic-RAG-Chatbot/comms"
)

// echoWorker registers a scripted handler for kind on role that replies
// on responseKind with the given payload merged with the trace id.
func echoWorker(t *testing.T, bus comms.Bus, role comms.Role, kind, responseKind comms.Kind, build func(msg *comms.Message) map[string]any) *Agent {
	t.Helper()
	a := New(role, bus, testLogger())
	a.RegisterHandler(kind, func(msg *comms.Message) (map[string]any, error) {
		payload := build(msg)
		payload["trace_id"] = msg.TraceID
		if err := a.Send(msg.Sender, responseKind, payload, msg.TraceID); err != nil {
			return nil, err
		}
		return payload, nil
	})
	a.Start()
	t.Cleanup(a.Stop)
	return a
}

func TestCoordinator_RequestTimesOut(t *testing.T) {
	bus := comms.NewInMemoryBus()
	c := NewCoordinator(bus, testLogger())
	c.StageTimeout = 300 * time.Millisecond

	// Worker is registered but never answers.
	silent := New(comms.RoleRetrieval, bus, testLogger())
	silent.RegisterHandler(comms.KindRetrievalRequest, func(*comms.Message) (map[string]any, error) {
		return nil, nil
	})
	silent.Start()
	defer silent.Stop()

	start := time.Now()
	result, err := c.request(comms.RoleRetrieval, comms.KindRetrievalRequest, "retrieval", map[string]any{"query": "x"}, c.StageTimeout)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	elapsed := time.Since(start)

	if payloadBool(result, "success") {
		t.Error("timed-out request reported success")
	}
	if msg := payloadString(result, "error"); !strings.Contains(msg, "timed out") {
		t.Errorf("error = %q", msg)
	}
	if elapsed < c.StageTimeout || elapsed > c.StageTimeout+2*time.Second {
		t.Errorf("elapsed = %s, want roughly %s", elapsed, c.StageTimeout)
	}

	// The pending record must be purged on timeout.
	c.mu.Lock()
	n := len(c.pending)
	c.mu.Unlock()
	if n != 0 {
		t.Errorf("pending records after timeout = %d, want 0", n)
	}
}

func TestCoordinator_LateResponseDropped(t *testing.T) {
	bus := comms.NewInMemoryBus()
	c := NewCoordinator(bus, testLogger())
	c.Start()
	defer c.Stop()

	// A response whose trace id was never registered (or already purged
	// by a timeout) must not create a phantom pending record.
	msg := comms.NewMessage(comms.RoleRetrieval, comms.RoleCoordinator, comms.KindRetrievalResponse, "stale-trace", map[string]any{"success": true})
	if _, err := c.onResponse(msg); err != nil {
		t.Fatalf("onResponse: %v", err)
	}

	c.mu.Lock()
	n := len(c.pending)
	c.mu.Unlock()
	if n != 0 {
		t.Errorf("pending records = %d, want 0", n)
	}
}

func TestCoordinator_DuplicateResponseKeepsFirst(t *testing.T) {
	bus := comms.NewInMemoryBus()
	c := NewCoordinator(bus, testLogger())

	c.mu.Lock()
	c.pending["t1"] = &pendingRequest{kind: "retrieval", status: statusPending, startTime: time.Now()}
	c.mu.Unlock()

	first := comms.NewMessage(comms.RoleRetrieval, comms.RoleCoordinator, comms.KindRetrievalResponse, "t1", map[string]any{"n": 1})
	second := comms.NewMessage(comms.RoleRetrieval, comms.RoleCoordinator, comms.KindRetrievalResponse, "t1", map[string]any{"n": 2})
	_, _ = c.onResponse(first)
	_, _ = c.onResponse(second)

	c.mu.Lock()
	req := c.pending["t1"]
	c.mu.Unlock()
	if req.status != statusCompleted {
		t.Fatalf("status = %s", req.status)
	}
	if req.response["n"] != 1 {
		t.Errorf("response = %v, want the first one kept", req.response)
	}
}

func TestCoordinator_ProcessQueryTwoStages(t *testing.T) {
	bus := comms.NewInMemoryBus()
	c := NewCoordinator(bus, testLogger())
	c.Start()
	defer c.Stop()

	echoWorker(t, bus, comms.RoleRetrieval, comms.KindRetrievalRequest, comms.KindRetrievalResponse, func(msg *comms.Message) map[string]any {
		return map[string]any{
			"success":          true,
			"query":            msg.Payload["query"],
			"retrieved_chunks": []string{"chunk one", "chunk two"},
			"sources":          []string{"doc.txt"},
			"total_results":    2,
		}
	})
	echoWorker(t, bus, comms.RoleLLMResponse, comms.KindLLMQueryRequest, comms.KindLLMQueryResponse, func(msg *comms.Message) map[string]any {
		if ctx := payloadString(msg.Payload, "context"); ctx != "chunk one\nchunk two" {
			t.Errorf("llm context = %q", ctx)
		}
		return map[string]any{
			"success":  true,
			"response": map[string]any{"answer": "the answer", "has_justification": true},
			"model":    "mock",
		}
	})

	result, err := c.ProcessQuery("what is it?")
	if err != nil {
		t.Fatalf("ProcessQuery: %v", err)
	}
	if !payloadBool(result, "success") {
		t.Fatalf("result = %v", result)
	}
	if got := payloadStrings(result, "sources"); len(got) != 1 || got[0] != "doc.txt" {
		t.Errorf("sources = %v", got)
	}
	answer, _ := result["answer"].(map[string]any)
	if answer["answer"] != "the answer" {
		t.Errorf("answer = %v", result["answer"])
	}
	if _, ok := result["processing_time"].(float64); !ok {
		t.Errorf("processing_time missing: %v", result)
	}
}

func TestCoordinator_ProcessQueryShortCircuitsOnRetrievalFailure(t *testing.T) {
	bus := comms.NewInMemoryBus()
	c := NewCoordinator(bus, testLogger())
	c.Start()
	defer c.Stop()

	echoWorker(t, bus, comms.RoleRetrieval, comms.KindRetrievalRequest, comms.KindRetrievalResponse, func(msg *comms.Message) map[string]any {
		return map[string]any{"success": false, "error": "vector search failed"}
	})

	llm := New(comms.RoleLLMResponse, bus, testLogger())
	llm.Start()
	defer llm.Stop()

	result, err := c.ProcessQuery("anything")
	if err != nil {
		t.Fatalf("ProcessQuery: %v", err)
	}
	if payloadBool(result, "success") {
		t.Error("failed retrieval reported success")
	}

	// The second stage must never have been asked.
	for _, msg := range bus.History(comms.RoleLLMResponse, 0) {
		if msg.Receiver == comms.RoleLLMResponse {
			t.Errorf("unexpected message to LLM worker: %s", msg.Kind)
		}
	}
}

func TestCoordinator_ConcurrentQueriesKeepTracesDistinct(t *testing.T) {
	bus := comms.NewInMemoryBus()
	c := NewCoordinator(bus, testLogger())
	c.Start()
	defer c.Stop()

	echoWorker(t, bus, comms.RoleRetrieval, comms.KindRetrievalRequest, comms.KindRetrievalResponse, func(msg *comms.Message) map[string]any {
		return map[string]any{
			"success":          true,
			"retrieved_chunks": []string{"ctx for " + payloadString(msg.Payload, "query")},
			"sources":          []string{"doc.txt"},
		}
	})
	echoWorker(t, bus, comms.RoleLLMResponse, comms.KindLLMQueryRequest, comms.KindLLMQueryResponse, func(msg *comms.Message) map[string]any {
		return map[string]any{
			"success":  true,
			"response": map[string]any{"answer": "answer to " + payloadString(msg.Payload, "query")},
		}
	})

	var wg sync.WaitGroup
	queries := []string{"alpha", "beta", "gamma", "delta"}
	results := make([]map[string]any, len(queries))
	for i, q := range queries {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := c.ProcessQuery(q)
			if err != nil {
				t.Errorf("ProcessQuery(%s): %v", q, err)
				return
			}
			results[i] = r
		}()
	}
	wg.Wait()

	for i, q := range queries {
		if results[i] == nil {
			continue
		}
		answer, _ := results[i]["answer"].(map[string]any)
		if got, _ := answer["answer"].(string); got != "answer to "+q {
			t.Errorf("query %q got answer %q", q, got)
		}
	}
}

func TestCoordinator_SystemStatus(t *testing.T) {
	bus := comms.NewInMemoryBus()
	c := NewCoordinator(bus, testLogger())

	c.mu.Lock()
	c.pending["a"] = &pendingRequest{status: statusPending}
	c.pending["b"] = &pendingRequest{status: statusCompleted}
	c.mu.Unlock()

	status := c.SystemStatus()
	if status["pending_requests"] != 1 || status["completed_requests"] != 1 {
		t.Errorf("status = %v", status)
	}
	if status["total_requests"] != 2 {
		t.Errorf("total_requests = %v", status["total_requests"])
	}
	if _, ok := status["agent_status"].(comms.Status); !ok {
		t.Errorf("agent_status missing: %v", status)
	}
}
