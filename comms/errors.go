package comms

import "fmt"

// DeliveryError reports a send to a receiver that is not active.
// Delivery to an inactive agent is a hard failure, never a silent drop.
type DeliveryError struct {
	Sender   Role
	Receiver Role
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("receiver agent %s is not active (sender %s)", e.Receiver, e.Sender)
}

// ProtocolError reports a message kind the receiving agent has no
// handler for.
type ProtocolError struct {
	Role Role
	Kind Kind
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("agent %s has no handler for message type %s", e.Role, e.Kind)
}

// CommunicationError wraps a send-path failure with sender/receiver
// identities for diagnostics.
type CommunicationError struct {
	Sender   Role
	Receiver Role
	Err      error
}

func (e *CommunicationError) Error() string {
	return fmt.Sprintf("communication %s -> %s: %v", e.Sender, e.Receiver, e.Err)
}

func (e *CommunicationError) Unwrap() error { return e.Err }
