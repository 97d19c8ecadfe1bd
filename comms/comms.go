// Package comms provides the inter-agent communication bus.
package comms

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies an agent on the bus. The set is closed: messages are
// only ever routed between these four agents.
type Role string

const (
	RoleCoordinator Role = "CoordinatorAgent"
	RoleIngestion   Role = "IngestionAgent"
	RoleRetrieval   Role = "RetrievalAgent"
	RoleLLMResponse Role = "LLMResponseAgent"
)

// Roles lists every agent role known to the bus.
var Roles = []Role{RoleCoordinator, RoleIngestion, RoleRetrieval, RoleLLMResponse}

// Kind identifies the kind of inter-agent message. Each logical
// operation has a request/response pair; KindError carries failures
// that have no better home.
type Kind string

const (
	KindIngestionRequest  Kind = "DOCUMENT_INGESTION_REQUEST"
	KindIngestionResponse Kind = "DOCUMENT_INGESTION_RESPONSE"
	KindRetrievalRequest  Kind = "RETRIEVAL_REQUEST"
	KindRetrievalResponse Kind = "RETRIEVAL_RESPONSE"
	KindLLMQueryRequest   Kind = "LLM_QUERY_REQUEST"
	KindLLMQueryResponse  Kind = "LLM_QUERY_RESPONSE"
	KindError             Kind = "ERROR"
)

// Message is a single communication unit between agents. It is
// immutable after construction; callers must not mutate Payload or
// Metadata once the message has been sent.
type Message struct {
	ID        string         `json:"message_id"`
	Timestamp time.Time      `json:"timestamp"`
	Sender    Role           `json:"sender"`
	Receiver  Role           `json:"receiver"`
	Kind      Kind           `json:"message_type"`
	TraceID   string         `json:"trace_id"`
	Payload   map[string]any `json:"payload"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewMessage constructs a message with a fresh ID and timestamp. An
// empty traceID gets a fresh one; the coordinator normally supplies the
// trace id so that the whole request/response chain shares it.
func NewMessage(sender, receiver Role, kind Kind, traceID string, payload map[string]any) *Message {
	if traceID == "" {
		traceID = uuid.NewString()
	}
	if payload == nil {
		payload = map[string]any{}
	}
	return &Message{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Sender:    sender,
		Receiver:  receiver,
		Kind:      kind,
		TraceID:   traceID,
		Payload:   payload,
	}
}

// Handler processes an incoming message on the receiving agent's loop.
// The returned payload is the handler's result; workers use it to build
// their response message.
type Handler func(msg *Message) (map[string]any, error)

// Status is a point-in-time snapshot of the bus, for monitoring only.
type Status struct {
	ActiveAgents  []Role       `json:"active_agents"`
	TotalMessages int          `json:"total_messages"`
	QueueSizes    map[Role]int `json:"queue_sizes"`
}

// Bus routes messages between agents. It owns every inbox and handler
// table; agents touch shared state only through these methods.
type Bus interface {
	// Register marks a role active so it can receive messages. Idempotent.
	Register(role Role)

	// Unregister marks a role inactive. Messages already queued are not
	// purged, but new deliveries to the role fail.
	Unregister(role Role)

	// RegisterHandler installs the handler for a (role, kind) pair.
	// Last write wins.
	RegisterHandler(role Role, kind Kind, h Handler)

	// Send delivers msg to its receiver's inbox exactly once, in FIFO
	// order per receiver. It fails with *DeliveryError when the receiver
	// is not active.
	Send(msg *Message) error

	// Receive blocks up to timeout for the next message addressed to
	// role. The second return is false when the wait timed out.
	Receive(role Role, timeout time.Duration) (*Message, bool)

	// Handler returns the registered handler for (role, kind), or nil.
	Handler(role Role, kind Kind) Handler

	// History returns the most recent messages sent to or from role,
	// oldest first, up to limit (0 = no limit).
	History(role Role, limit int) []*Message

	// Status reports active roles, total message count, and queue depths.
	Status() Status
}
