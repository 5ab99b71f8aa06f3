package interview

import (
	"context"
	"fmt"
	"sync"
)

// MockAdapter implements Adapter for testing. It records registered commands
// and allows simulating inbound events via SimulateEvent.
type MockAdapter struct {
	mu          sync.Mutex
	connected   bool
	closed      bool
	inbound     chan Event
	registered  []CommandSpec
	registerErr error
}

// NewMockAdapter creates a MockAdapter with a buffered inbound channel.
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{
		inbound: make(chan Event, 100),
	}
}

// Connect marks the adapter as connected.
func (m *MockAdapter) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("mock adapter: already closed")
	}
	m.connected = true
	return nil
}

// RegisterCommands records cmds.
func (m *MockAdapter) RegisterCommands(ctx context.Context, cmds []CommandSpec) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return fmt.Errorf("mock adapter: not connected")
	}
	if m.registerErr != nil {
		return m.registerErr
	}
	m.registered = append([]CommandSpec(nil), cmds...)
	return nil
}

// Listen returns the inbound event channel. Must be called after Connect.
func (m *MockAdapter) Listen(ctx context.Context) (<-chan Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return nil, fmt.Errorf("mock adapter: not connected")
	}
	return m.inbound, nil
}

// Close shuts down the mock adapter and closes the inbound channel.
func (m *MockAdapter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	m.connected = false
	close(m.inbound)
	return nil
}

// --- Test helpers ---

// SimulateEvent sends ev into the inbound channel as if it came from the
// chat platform. Safe to call from any goroutine.
func (m *MockAdapter) SimulateEvent(ev Event) {
	m.inbound <- ev
}

// SetRegisterError makes RegisterCommands fail with err.
func (m *MockAdapter) SetRegisterError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registerErr = err
}

// Registered returns the commands passed to the last RegisterCommands call.
func (m *MockAdapter) Registered() []CommandSpec {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]CommandSpec, len(m.registered))
	copy(out, m.registered)
	return out
}

// IsClosed reports whether Close has been called.
func (m *MockAdapter) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Output kinds recorded by MockResponder.
const (
	OutputSend        = "send"
	OutputProvisional = "provisional"
	OutputEdit        = "edit"
	OutputDelete      = "delete"
)

// Output is one call made on a MockResponder or its provisional messages.
type Output struct {
	Kind string
	Text string
}

// MockResponder implements Responder and records everything written to it.
type MockResponder struct {
	mu             sync.Mutex
	outputs        []Output
	sendErr        error
	provisionalErr error
	editErr        error
}

// NewMockResponder creates an empty MockResponder.
func NewMockResponder() *MockResponder {
	return &MockResponder{}
}

// Provisional records the provisional message and returns a handle to it.
func (r *MockResponder) Provisional(ctx context.Context, text string) (Provisional, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.provisionalErr != nil {
		return nil, r.provisionalErr
	}
	r.outputs = append(r.outputs, Output{Kind: OutputProvisional, Text: text})
	return &mockProvisional{r: r}, nil
}

// Send records a new message.
func (r *MockResponder) Send(ctx context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sendErr != nil {
		return r.sendErr
	}
	r.outputs = append(r.outputs, Output{Kind: OutputSend, Text: text})
	return nil
}

// SetSendError makes Send fail with err.
func (r *MockResponder) SetSendError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sendErr = err
}

// SetProvisionalError makes Provisional fail with err.
func (r *MockResponder) SetProvisionalError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.provisionalErr = err
}

// SetEditError makes provisional edits fail with err.
func (r *MockResponder) SetEditError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.editErr = err
}

// Outputs returns a copy of all recorded outputs in call order.
func (r *MockResponder) Outputs() []Output {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Output, len(r.outputs))
	copy(out, r.outputs)
	return out
}

// Last returns the most recent output, or false if there is none.
func (r *MockResponder) Last() (Output, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.outputs) == 0 {
		return Output{}, false
	}
	return r.outputs[len(r.outputs)-1], true
}

type mockProvisional struct {
	r *MockResponder
}

func (p *mockProvisional) Edit(ctx context.Context, text string) error {
	p.r.mu.Lock()
	defer p.r.mu.Unlock()
	if p.r.editErr != nil {
		return p.r.editErr
	}
	p.r.outputs = append(p.r.outputs, Output{Kind: OutputEdit, Text: text})
	return nil
}

func (p *mockProvisional) Delete(ctx context.Context) error {
	p.r.mu.Lock()
	defer p.r.mu.Unlock()
	p.r.outputs = append(p.r.outputs, Output{Kind: OutputDelete})
	return nil
}
