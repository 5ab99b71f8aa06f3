package interview

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/zulandar/interviewer/internal/session"
	"github.com/zulandar/interviewer/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// Completer sends a transcript to the completion endpoint and returns the
// reply text.
type Completer interface {
	Complete(ctx context.Context, turns []session.Turn) (string, error)
}

// Recorder receives every exchange committed to a transcript. Recording is
// best-effort: errors are logged and never affect the session.
type Recorder interface {
	Record(ctx context.Context, ex session.Exchange) error
}

// Coordinator drives the per-channel interview state machine. It is safe to
// call Handle concurrently; the store's processing latch keeps at most one
// completion call in flight per channel.
type Coordinator struct {
	store      *session.Store
	client     Completer
	recorder   Recorder
	categoryID string
	maxLen     int
}

// CoordinatorOpts holds parameters for creating a Coordinator.
type CoordinatorOpts struct {
	Store         *session.Store
	Client        Completer
	Recorder      Recorder // optional
	CategoryID    string   // category whose channels receive plain messages
	MaxMessageLen int      // defaults to and is capped at MaxMessageLen
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(opts CoordinatorOpts) (*Coordinator, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("interview: coordinator: store is required")
	}
	if opts.Client == nil {
		return nil, fmt.Errorf("interview: coordinator: completion client is required")
	}
	if opts.CategoryID == "" {
		return nil, fmt.Errorf("interview: coordinator: category id is required")
	}
	maxLen := opts.MaxMessageLen
	if maxLen <= 0 || maxLen > MaxMessageLen {
		maxLen = MaxMessageLen
	}
	return &Coordinator{
		store:      opts.Store,
		client:     opts.Client,
		recorder:   opts.Recorder,
		categoryID: opts.CategoryID,
		maxLen:     maxLen,
	}, nil
}

// Handle processes one inbound event. Errors are logged and surfaced to the
// user as notices; nothing is returned.
func (c *Coordinator) Handle(ctx context.Context, ev Event) {
	src := ev.Source()
	ctx, span := telemetry.StartSpan(ctx, "interview."+ev.kind(),
		attribute.String("channel.id", src.ChannelID),
	)
	defer span.End()

	switch e := ev.(type) {
	case InitCommand:
		c.handleInit(ctx, e)
	case AdvanceCommand:
		c.handleAdvance(ctx, e)
	case ConfigureCommand:
		c.handleConfigure(ctx, e)
	case ConfigureTestCommand:
		c.handleConfigureTest(ctx, e)
	case HelpCommand:
		c.send(ctx, e.Reply, helpText())
	case PlainMessage:
		c.handleMessage(ctx, e)
	default:
		log.Printf("interview: unhandled event %T", ev)
	}
}

// handleInit starts (or restarts) the channel's interview from its
// instruction. The transcript is replaced only after the completion call
// succeeds.
func (c *Coordinator) handleInit(ctx context.Context, e InitCommand) {
	ch := e.ChannelID
	if err := c.store.TrySetProcessing(ch); err != nil {
		c.send(ctx, e.Reply, noticeBusy)
		return
	}
	defer c.store.ClearProcessing(ch)

	prov := c.provisional(ctx, e.Reply)
	system := session.SystemTurn(c.store.Instruction(ch))

	reply, err := c.client.Complete(ctx, []session.Turn{system})
	if err != nil {
		log.Printf("interview: start [ch=%s]: %v", ch, err)
		c.fail(ctx, e.Reply, prov, noticeStartFailed)
		return
	}

	answer := session.AssistantTurn(reply)
	c.store.Start(ch, system, answer)
	log.Printf("interview: started [ch=%s user=%s]", ch, e.UserName)

	c.record(ctx, e.Origin, system, answer)
	c.emit(ctx, e.Reply, prov, reply)
}

// handleAdvance requests the next assistant turn without adding a user turn.
func (c *Coordinator) handleAdvance(ctx context.Context, e AdvanceCommand) {
	ch := e.ChannelID
	if !c.store.GetOrCreate(ch).Started {
		c.send(ctx, e.Reply, noticeNotStarted)
		return
	}
	if err := c.store.TrySetProcessing(ch); err != nil {
		c.send(ctx, e.Reply, noticeBusy)
		return
	}
	defer c.store.ClearProcessing(ch)

	prov := c.provisional(ctx, e.Reply)

	reply, err := c.client.Complete(ctx, c.store.Transcript(ch))
	if err != nil {
		log.Printf("interview: next [ch=%s]: %v", ch, err)
		c.fail(ctx, e.Reply, prov, noticeNextFailed)
		return
	}

	answer := session.AssistantTurn(reply)
	if !c.commit(ch, answer) {
		c.fail(ctx, e.Reply, prov, noticeNextFailed)
		return
	}
	c.record(ctx, e.Origin, answer)
	c.emit(ctx, e.Reply, prov, reply)
}

// handleConfigure overwrites the channel instruction. The transcript restarts
// from a single system turn; prior history is discarded.
func (c *Coordinator) handleConfigure(ctx context.Context, e ConfigureCommand) {
	ch := e.ChannelID
	text := strings.TrimSpace(e.Text)
	if text == "" {
		c.send(ctx, e.Reply, noticeEmptyText)
		return
	}
	if err := c.store.TrySetProcessing(ch); err != nil {
		c.send(ctx, e.Reply, noticeBusy)
		return
	}
	defer c.store.ClearProcessing(ch)

	c.store.Reset(ch, text)
	log.Printf("interview: instruction replaced [ch=%s user=%s len=%d]", ch, e.UserName, len(text))

	c.record(ctx, e.Origin, session.SystemTurn(text))
	c.send(ctx, e.Reply, noticeInstructionUpdated)
}

// handleConfigureTest appends an extra system turn and requests one reply.
// Both turns are committed only if the call succeeds.
func (c *Coordinator) handleConfigureTest(ctx context.Context, e ConfigureTestCommand) {
	ch := e.ChannelID
	text := strings.TrimSpace(e.Text)
	if text == "" {
		c.send(ctx, e.Reply, noticeEmptyText)
		return
	}
	if !c.store.GetOrCreate(ch).Started {
		c.send(ctx, e.Reply, noticeNotStarted)
		return
	}
	if err := c.store.TrySetProcessing(ch); err != nil {
		c.send(ctx, e.Reply, noticeBusy)
		return
	}
	defer c.store.ClearProcessing(ch)

	prov := c.provisional(ctx, e.Reply)
	system := session.SystemTurn(text)
	turns := append(c.store.Transcript(ch), system)

	reply, err := c.client.Complete(ctx, turns)
	if err != nil {
		log.Printf("interview: test [ch=%s]: %v", ch, err)
		c.fail(ctx, e.Reply, prov, noticeNextFailed)
		return
	}

	answer := session.AssistantTurn(reply)
	if !c.commit(ch, system, answer) {
		c.fail(ctx, e.Reply, prov, noticeNextFailed)
		return
	}
	c.record(ctx, e.Origin, system, answer)
	c.emit(ctx, e.Reply, prov, reply)
}

// handleMessage relays a plain channel message as a user turn. Messages
// outside the configured category or from bots are ignored. A message that
// arrives while a call is in flight for the channel is dropped.
func (c *Coordinator) handleMessage(ctx context.Context, e PlainMessage) {
	if e.AuthorIsBot || e.ParentID != c.categoryID {
		return
	}
	ch := e.ChannelID
	if !c.store.GetOrCreate(ch).Started {
		c.send(ctx, e.Reply, noticeNotStarted)
		return
	}
	if err := c.store.TrySetProcessing(ch); err != nil {
		log.Printf("interview: dropped message while processing [ch=%s user=%s]", ch, e.UserName)
		return
	}
	defer c.store.ClearProcessing(ch)

	// The user turn is kept even if the call below fails.
	user := session.UserTurn(e.Text)
	if !c.commit(ch, user) {
		c.send(ctx, e.Reply, noticeMessageFailed)
		return
	}

	prov := c.provisional(ctx, e.Reply)

	reply, err := c.client.Complete(ctx, c.store.Transcript(ch))
	if err != nil {
		log.Printf("interview: relay [ch=%s]: %v", ch, err)
		c.record(ctx, e.Origin, user)
		c.fail(ctx, e.Reply, prov, noticeMessageFailed)
		return
	}

	answer := session.AssistantTurn(reply)
	if !c.commit(ch, answer) {
		c.fail(ctx, e.Reply, prov, noticeMessageFailed)
		return
	}
	c.record(ctx, e.Origin, user, answer)
	c.emit(ctx, e.Reply, prov, reply)
}

// commit appends turns to the channel transcript in order.
func (c *Coordinator) commit(channelID string, turns ...session.Turn) bool {
	for _, t := range turns {
		if err := c.store.AppendTurn(channelID, t); err != nil {
			log.Printf("interview: append %s turn [ch=%s]: %v", t.Role, channelID, err)
			return false
		}
	}
	return true
}

// record forwards committed turns to the recorder, if one is configured.
func (c *Coordinator) record(ctx context.Context, o Origin, turns ...session.Turn) {
	if c.recorder == nil {
		return
	}
	ex := session.Exchange{
		ID:        uuid.NewString(),
		ChannelID: o.ChannelID,
		GuildID:   o.GuildID,
		UserName:  o.UserName,
		Turns:     turns,
		At:        time.Now(),
	}
	if err := c.recorder.Record(ctx, ex); err != nil {
		log.Printf("interview: record exchange %s [ch=%s]: %v", ex.ID, o.ChannelID, err)
	}
}

// provisional posts the processing notice. A nil Provisional is returned if
// it could not be posted; later output then falls back to Send.
func (c *Coordinator) provisional(ctx context.Context, r Responder) Provisional {
	p, err := r.Provisional(ctx, noticeProcessing)
	if err != nil {
		log.Printf("interview: post provisional message: %v", err)
		return nil
	}
	return p
}

// emit delivers a reply. A reply that fits in one message replaces the
// provisional message; a longer one removes it and is sent as sequential
// chunks, each awaited before the next.
func (c *Coordinator) emit(ctx context.Context, r Responder, prov Provisional, reply string) {
	// The transcript keeps the raw reply; only the posted text is replaced.
	if reply == "" {
		reply = noticeEmptyReply
	}
	if utf8.RuneCountInString(reply) <= c.maxLen {
		c.replace(ctx, r, prov, reply)
		return
	}

	if prov != nil {
		if err := prov.Delete(ctx); err != nil {
			log.Printf("interview: delete provisional message: %v", err)
		}
	}
	i := 0
	for chunk := range Chunks(reply, c.maxLen) {
		i++
		if err := r.Send(ctx, chunk); err != nil {
			log.Printf("interview: send chunk %d: %v", i, err)
			return
		}
	}
}

// fail reports a failed operation to the user.
func (c *Coordinator) fail(ctx context.Context, r Responder, prov Provisional, notice string) {
	c.replace(ctx, r, prov, notice)
}

// replace edits the provisional message to text, or sends text when there is
// no provisional message or the edit fails.
func (c *Coordinator) replace(ctx context.Context, r Responder, prov Provisional, text string) {
	if prov != nil {
		err := prov.Edit(ctx, text)
		if err == nil {
			return
		}
		log.Printf("interview: edit provisional message: %v", err)
	}
	c.send(ctx, r, text)
}

func (c *Coordinator) send(ctx context.Context, r Responder, text string) {
	if err := r.Send(ctx, text); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("interview: send: %v", err)
	}
}
