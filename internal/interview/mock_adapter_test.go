package interview

import (
	"context"
	"errors"
	"testing"
	"time"
)

// Compile-time interface compliance checks.
var _ Adapter = (*MockAdapter)(nil)
var _ Responder = (*MockResponder)(nil)
var _ Provisional = (*mockProvisional)(nil)

func TestMockAdapter_ConnectAndClose(t *testing.T) {
	m := NewMockAdapter()
	ctx := context.Background()

	if err := m.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Connect after close should fail.
	if err := m.Connect(ctx); err == nil {
		t.Fatal("Connect after Close should fail")
	}

	// Double close should be safe.
	if err := m.Close(); err != nil {
		t.Fatalf("double Close should succeed: %v", err)
	}
}

func TestMockAdapter_RequiresConnect(t *testing.T) {
	m := NewMockAdapter()
	ctx := context.Background()

	if _, err := m.Listen(ctx); err == nil {
		t.Error("Listen before Connect should fail")
	}
	if err := m.RegisterCommands(ctx, Commands()); err == nil {
		t.Error("RegisterCommands before Connect should fail")
	}
}

func TestMockAdapter_RegisterCommands(t *testing.T) {
	m := NewMockAdapter()
	ctx := context.Background()
	if err := m.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	if err := m.RegisterCommands(ctx, Commands()); err != nil {
		t.Fatalf("RegisterCommands: %v", err)
	}
	if got := len(m.Registered()); got != len(Commands()) {
		t.Errorf("Registered = %d, want %d", got, len(Commands()))
	}

	m.SetRegisterError(errors.New("forbidden"))
	if err := m.RegisterCommands(ctx, nil); err == nil {
		t.Error("expected injected register error")
	}
}

func TestMockAdapter_SimulateEvent(t *testing.T) {
	m := NewMockAdapter()
	ctx := context.Background()
	if err := m.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	ch, err := m.Listen(ctx)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}

	m.SimulateEvent(HelpCommand{Origin{ChannelID: "C123", UserName: "alice"}})

	select {
	case ev := <-ch:
		if _, ok := ev.(HelpCommand); !ok {
			t.Fatalf("event = %T, want HelpCommand", ev)
		}
		if ev.Source().ChannelID != "C123" {
			t.Errorf("ChannelID = %q, want C123", ev.Source().ChannelID)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestMockResponder_RecordsOutputs(t *testing.T) {
	r := NewMockResponder()
	ctx := context.Background()

	if _, ok := r.Last(); ok {
		t.Error("Last on empty responder should report false")
	}

	prov, err := r.Provisional(ctx, "thinking")
	if err != nil {
		t.Fatalf("Provisional: %v", err)
	}
	if err := prov.Edit(ctx, "done"); err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if err := prov.Delete(ctx); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := r.Send(ctx, "hello"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	want := []Output{
		{Kind: OutputProvisional, Text: "thinking"},
		{Kind: OutputEdit, Text: "done"},
		{Kind: OutputDelete},
		{Kind: OutputSend, Text: "hello"},
	}
	got := r.Outputs()
	if len(got) != len(want) {
		t.Fatalf("outputs = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("outputs[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestMockResponder_InjectedErrors(t *testing.T) {
	r := NewMockResponder()
	ctx := context.Background()

	r.SetSendError(errors.New("send"))
	if err := r.Send(ctx, "x"); err == nil {
		t.Error("expected send error")
	}

	r.SetProvisionalError(errors.New("prov"))
	if _, err := r.Provisional(ctx, "x"); err == nil {
		t.Error("expected provisional error")
	}

	r.SetProvisionalError(nil)
	r.SetEditError(errors.New("edit"))
	prov, err := r.Provisional(ctx, "x")
	if err != nil {
		t.Fatalf("Provisional: %v", err)
	}
	if err := prov.Edit(ctx, "y"); err == nil {
		t.Error("expected edit error")
	}
	if len(r.Outputs()) != 1 {
		t.Errorf("failed calls should not be recorded, got %+v", r.Outputs())
	}
}
