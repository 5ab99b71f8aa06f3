// Package discord implements the interview Adapter for Discord using the
// Gateway WebSocket for inbound events and the REST API for replies.
package discord

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/zulandar/interviewer/internal/interview"
)

// inboundBuffer is the capacity of the inbound event channel.
const inboundBuffer = 100

// session abstracts the discordgo.Session methods we use, enabling test mocks.
type session interface {
	Open() error
	Close() error
	Channel(channelID string) (*discordgo.Channel, error)
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEdit(channelID, messageID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	InteractionResponseDelete(interaction *discordgo.Interaction, options ...discordgo.RequestOption) error
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ApplicationCommandBulkOverwrite(appID, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
	AddHandler(handler interface{}) func()
}

// realSession wraps *discordgo.Session to implement the session interface.
type realSession struct {
	s *discordgo.Session
}

func (r *realSession) Open() error  { return r.s.Open() }
func (r *realSession) Close() error { return r.s.Close() }

// Channel reads from the state cache and falls back to the REST API for
// channels the cache has not seen.
func (r *realSession) Channel(channelID string) (*discordgo.Channel, error) {
	if ch, err := r.s.State.Channel(channelID); err == nil {
		return ch, nil
	}
	return r.s.Channel(channelID)
}
func (r *realSession) ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	return r.s.ChannelMessageSend(channelID, content, options...)
}
func (r *realSession) ChannelMessageEdit(channelID, messageID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	return r.s.ChannelMessageEdit(channelID, messageID, content, options...)
}
func (r *realSession) ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error {
	return r.s.ChannelMessageDelete(channelID, messageID, options...)
}
func (r *realSession) InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error {
	return r.s.InteractionRespond(interaction, resp, options...)
}
func (r *realSession) InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	return r.s.InteractionResponseEdit(interaction, newresp, options...)
}
func (r *realSession) InteractionResponseDelete(interaction *discordgo.Interaction, options ...discordgo.RequestOption) error {
	return r.s.InteractionResponseDelete(interaction, options...)
}
func (r *realSession) FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	return r.s.FollowupMessageCreate(interaction, wait, data, options...)
}
func (r *realSession) ApplicationCommandBulkOverwrite(appID, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error) {
	return r.s.ApplicationCommandBulkOverwrite(appID, guildID, commands, options...)
}
func (r *realSession) AddHandler(handler interface{}) func() {
	return r.s.AddHandler(handler)
}

// Adapter implements interview.Adapter for Discord.
type Adapter struct {
	sess          session
	botToken      string
	applicationID string
	guildID       string
	botUserID     string

	mu        sync.Mutex
	connected bool
	closed    bool
	inbound   chan interview.Event
	done      chan struct{}
	removers  []func()
}

// AdapterOpts holds parameters for creating a Discord Adapter.
type AdapterOpts struct {
	BotToken      string // Discord bot token
	ApplicationID string // application that owns the slash commands
	GuildID       string // guild to register commands in; empty registers globally
	// For testing: inject a mock session instead of real Discord API.
	Session session
}

// New creates a Discord Adapter.
func New(opts AdapterOpts) (*Adapter, error) {
	if opts.Session == nil && opts.BotToken == "" {
		return nil, fmt.Errorf("discord: bot token is required")
	}

	a := &Adapter{
		botToken:      opts.BotToken,
		applicationID: opts.ApplicationID,
		guildID:       opts.GuildID,
		inbound:       make(chan interview.Event, inboundBuffer),
		done:          make(chan struct{}),
	}
	if opts.Session != nil {
		a.sess = opts.Session
	}
	return a, nil
}

// Connect establishes the Discord Gateway WebSocket connection.
func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return fmt.Errorf("discord: adapter already closed")
	}
	if a.connected {
		return nil
	}

	if a.sess == nil {
		dg, err := discordgo.New("Bot " + a.botToken)
		if err != nil {
			return fmt.Errorf("discord: create session: %w", err)
		}
		dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent
		a.sess = &realSession{s: dg}
	}

	// Capture the bot user ID on connect and reconnect.
	a.sess.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		a.mu.Lock()
		a.botUserID = r.User.ID
		a.mu.Unlock()
		log.Printf("discord: connected as %s (ID: %s)", r.User.Username, r.User.ID)
	})

	// discordgo reconnects on its own; these are logged only.
	a.sess.AddHandler(func(_ *discordgo.Session, d *discordgo.Disconnect) {
		log.Printf("discord: gateway disconnected, discordgo will auto-reconnect")
	})
	a.sess.AddHandler(func(_ *discordgo.Session, r *discordgo.Resumed) {
		log.Printf("discord: gateway session resumed")
	})

	if err := a.sess.Open(); err != nil {
		return fmt.Errorf("discord: open gateway: %w", err)
	}

	a.connected = true
	return nil
}

// RegisterCommands overwrites the application's slash commands with cmds.
// Commands are registered in the configured guild, or globally when no guild
// is set.
func (a *Adapter) RegisterCommands(ctx context.Context, cmds []interview.CommandSpec) error {
	a.mu.Lock()
	if !a.connected {
		a.mu.Unlock()
		return fmt.Errorf("discord: not connected")
	}
	appID := a.applicationID
	if appID == "" {
		appID = a.botUserID
	}
	a.mu.Unlock()

	if appID == "" {
		return fmt.Errorf("discord: application id unknown")
	}

	created, err := a.sess.ApplicationCommandBulkOverwrite(appID, a.guildID, buildCommands(cmds))
	if err != nil {
		return fmt.Errorf("discord: register commands: %w", err)
	}
	log.Printf("discord: registered %d slash commands [app=%s guild=%s]", len(created), appID, a.guildID)
	return nil
}

// Listen registers the interaction and message handlers and returns the
// channel they deliver to. Must be called after Connect. The channel is not
// closed by Close; consumers stop on their own context.
func (a *Adapter) Listen(ctx context.Context) (<-chan interview.Event, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.connected {
		return nil, fmt.Errorf("discord: not connected")
	}

	a.removers = append(a.removers,
		a.sess.AddHandler(func(_ *discordgo.Session, ic *discordgo.InteractionCreate) {
			a.handleInteraction(ic)
		}),
		a.sess.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
			a.handleMessage(m)
		}),
	)
	return a.inbound, nil
}

// Close gracefully shuts down the adapter connection.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	a.connected = false
	for _, remove := range a.removers {
		remove()
	}
	a.removers = nil
	close(a.done)
	if a.sess != nil {
		return a.sess.Close()
	}
	return nil
}

// BotUserID returns the bot's Discord user ID (available after Ready).
func (a *Adapter) BotUserID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.botUserID
}

// SetBotUserID sets the bot user ID (used for self-message filtering).
func (a *Adapter) SetBotUserID(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.botUserID = id
}

// deliver queues ev for the consumer, giving up once the adapter is closed.
func (a *Adapter) deliver(ev interview.Event) {
	select {
	case a.inbound <- ev:
	case <-a.done:
	}
}

// handleInteraction converts a slash command invocation to an event.
func (a *Adapter) handleInteraction(ic *discordgo.InteractionCreate) {
	if ic.Interaction == nil || ic.Type != discordgo.InteractionApplicationCommand {
		return
	}
	i := ic.Interaction
	if i.GuildID == "" {
		// Direct-message invocations have no interview channel.
		return
	}

	origin := interview.Origin{
		ChannelID: i.ChannelID,
		GuildID:   i.GuildID,
		Reply:     &interactionResponder{sess: a.sess, interaction: i},
	}
	switch {
	case i.Member != nil && i.Member.User != nil:
		origin.UserID = i.Member.User.ID
		origin.UserName = i.Member.DisplayName()
	case i.User != nil:
		origin.UserID = i.User.ID
		origin.UserName = i.User.DisplayName()
	}

	data, ok := i.Data.(discordgo.ApplicationCommandInteractionData)
	if !ok {
		return
	}
	var ev interview.Event
	switch data.Name {
	case interview.CommandStart:
		ev = interview.InitCommand{Origin: origin}
	case interview.CommandNext:
		ev = interview.AdvanceCommand{Origin: origin}
	case interview.CommandInstruction:
		ev = interview.ConfigureCommand{Origin: origin, Text: textOption(data)}
	case interview.CommandTest:
		ev = interview.ConfigureTestCommand{Origin: origin, Text: textOption(data)}
	case interview.CommandHelp:
		ev = interview.HelpCommand{Origin: origin}
	default:
		log.Printf("discord: unknown command %q [ch=%s]", data.Name, i.ChannelID)
		return
	}
	a.deliver(ev)
}

// handleMessage converts a Discord message event to a PlainMessage.
func (a *Adapter) handleMessage(m *discordgo.MessageCreate) {
	if m.Message == nil || m.Author == nil {
		return
	}

	a.mu.Lock()
	botID := a.botUserID
	a.mu.Unlock()
	if m.Author.ID == botID {
		return
	}

	// The parent of a guild text channel is its category.
	parentID := ""
	if ch, err := a.sess.Channel(m.ChannelID); err == nil {
		parentID = ch.ParentID
	} else {
		log.Printf("discord: lookup channel %s: %v", m.ChannelID, err)
	}

	a.deliver(interview.PlainMessage{
		Origin: interview.Origin{
			ChannelID: m.ChannelID,
			GuildID:   m.GuildID,
			UserID:    m.Author.ID,
			UserName:  m.Author.Username,
			Reply:     &channelResponder{sess: a.sess, channelID: m.ChannelID},
		},
		ParentID:    parentID,
		Text:        m.Content,
		AuthorIsBot: m.Author.Bot,
	})
}

// textOption returns the value of the command's text option, or "".
func textOption(data discordgo.ApplicationCommandInteractionData) string {
	for _, o := range data.Options {
		if o.Name != interview.OptionText || o.Type != discordgo.ApplicationCommandOptionString {
			continue
		}
		if v, ok := o.Value.(string); ok {
			return v
		}
	}
	return ""
}

// buildCommands translates command specs into Discord application commands.
func buildCommands(cmds []interview.CommandSpec) []*discordgo.ApplicationCommand {
	out := make([]*discordgo.ApplicationCommand, 0, len(cmds))
	for _, c := range cmds {
		ac := &discordgo.ApplicationCommand{
			Name:        c.Name,
			Description: c.Description,
		}
		for _, o := range c.Options {
			ac.Options = append(ac.Options, &discordgo.ApplicationCommandOption{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        o.Name,
				Description: o.Description,
				Required:    o.Required,
			})
		}
		out = append(out, ac)
	}
	return out
}
