// Package interview runs mock technical interviews in chat channels. It
// classifies inbound platform events, drives the per-channel conversation
// state machine, and relays completion replies back to the channel.
package interview

import "context"

// Adapter is the interface that platform-specific implementations must satisfy.
// An adapter owns the gateway connection, the slash-command registry for one
// server, and the translation of platform payloads into Events.
type Adapter interface {
	// Connect establishes a connection to the chat platform.
	Connect(ctx context.Context) error

	// RegisterCommands replaces the server's slash commands with cmds.
	RegisterCommands(ctx context.Context, cmds []CommandSpec) error

	// Listen returns a channel of inbound events. Listen must only be
	// called after Connect. Consumers stop reading when ctx is done.
	Listen(ctx context.Context) (<-chan Event, error)

	// Close gracefully shuts down the adapter connection.
	Close() error
}

// Responder writes output back to wherever an event came from: the channel
// of a plain message, or the interaction of a slash command.
type Responder interface {
	// Provisional posts a status message that is later edited or deleted.
	Provisional(ctx context.Context, text string) (Provisional, error)
	// Send posts a new message.
	Send(ctx context.Context, text string) error
}

// Provisional is a posted status message that can be replaced or removed.
type Provisional interface {
	Edit(ctx context.Context, text string) error
	Delete(ctx context.Context) error
}
