package interview

// Event is an inbound platform event. The concrete types are InitCommand,
// AdvanceCommand, ConfigureCommand, ConfigureTestCommand, HelpCommand and
// PlainMessage.
type Event interface {
	Source() Origin
	kind() string
}

// Origin identifies where an event came from and how to answer it.
type Origin struct {
	ChannelID string
	GuildID   string
	UserID    string
	UserName  string
	Reply     Responder
}

// Source returns the event's origin.
func (o Origin) Source() Origin { return o }

// InitCommand begins or restarts the channel's interview.
type InitCommand struct{ Origin }

// AdvanceCommand asks for the next assistant turn on the existing transcript.
type AdvanceCommand struct{ Origin }

// ConfigureCommand overwrites the channel instruction and restarts the
// transcript from it.
type ConfigureCommand struct {
	Origin
	Text string
}

// ConfigureTestCommand injects an extra system turn and requests a reply.
type ConfigureTestCommand struct {
	Origin
	Text string
}

// HelpCommand lists the available commands.
type HelpCommand struct{ Origin }

// PlainMessage is a regular channel message.
type PlainMessage struct {
	Origin
	ParentID    string // category the channel belongs to
	Text        string
	AuthorIsBot bool
}

func (InitCommand) kind() string          { return CommandStart }
func (AdvanceCommand) kind() string       { return CommandNext }
func (ConfigureCommand) kind() string     { return CommandInstruction }
func (ConfigureTestCommand) kind() string { return CommandTest }
func (HelpCommand) kind() string          { return CommandHelp }
func (PlainMessage) kind() string         { return "message" }
