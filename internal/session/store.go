// Package session holds the transient per-channel interview state: the
// conversation transcript sent to the completion endpoint and the flags that
// gate it.
package session

import (
	"errors"
	"sort"
	"sync"
)

// Role tags the provenance of a Turn for the completion API.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one role-tagged entry in a transcript.
type Turn struct {
	Role    Role
	Content string
}

// SystemTurn, UserTurn and AssistantTurn build turns of the matching role.
func SystemTurn(content string) Turn    { return Turn{Role: RoleSystem, Content: content} }
func UserTurn(content string) Turn      { return Turn{Role: RoleUser, Content: content} }
func AssistantTurn(content string) Turn { return Turn{Role: RoleAssistant, Content: content} }

var (
	// ErrNotStarted is returned when an operation requires an initialized
	// session and the channel has none.
	ErrNotStarted = errors.New("session: interview not started")
	// ErrAlreadyProcessing is returned by TrySetProcessing when a completion
	// call is already in flight for the channel.
	ErrAlreadyProcessing = errors.New("session: completion already in flight")
)

// Session is a point-in-time copy of a channel's state.
type Session struct {
	ChannelID   string
	Transcript  []Turn
	Started     bool
	Processing  bool
	Instruction string
}

// Status summarizes a session without its transcript content.
type Status struct {
	ChannelID  string `json:"channel_id"`
	Started    bool   `json:"started"`
	Processing bool   `json:"processing"`
	Turns      int    `json:"turns"`
}

type channelState struct {
	transcript  []Turn
	started     bool
	processing  bool
	instruction string // empty means the store default
}

// Store maps channel IDs to their sessions. Sessions are created lazily on
// first access and live for the life of the process. All methods are safe
// for concurrent use.
type Store struct {
	defaultInstruction string

	mu       sync.Mutex
	sessions map[string]*channelState
}

// NewStore creates an empty Store. defaultInstruction is the system prompt
// used by channels that have not configured their own.
func NewStore(defaultInstruction string) *Store {
	return &Store{
		defaultInstruction: defaultInstruction,
		sessions:           make(map[string]*channelState),
	}
}

// lookup returns the state for channelID, creating it if absent. Callers
// must hold s.mu.
func (s *Store) lookup(channelID string) *channelState {
	st, ok := s.sessions[channelID]
	if !ok {
		st = &channelState{}
		s.sessions[channelID] = st
	}
	return st
}

func (s *Store) snapshot(channelID string, st *channelState) Session {
	return Session{
		ChannelID:   channelID,
		Transcript:  copyTurns(st.transcript),
		Started:     st.started,
		Processing:  st.processing,
		Instruction: s.instructionOf(st),
	}
}

func (s *Store) instructionOf(st *channelState) string {
	if st.instruction != "" {
		return st.instruction
	}
	return s.defaultInstruction
}

// GetOrCreate returns a copy of the channel's session, creating a
// zero-valued one if the channel has never been seen.
func (s *Store) GetOrCreate(channelID string) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(channelID, s.lookup(channelID))
}

// AppendTurn appends turn to the channel's transcript. The content is stored
// as given. Returns ErrNotStarted if the session has not been started.
func (s *Store) AppendTurn(channelID string, turn Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[channelID]
	if !ok || !st.started {
		return ErrNotStarted
	}
	st.transcript = append(st.transcript, turn)
	return nil
}

// TrySetProcessing sets the channel's processing latch. It returns
// ErrAlreadyProcessing if the latch is already set.
func (s *Store) TrySetProcessing(channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.lookup(channelID)
	if st.processing {
		return ErrAlreadyProcessing
	}
	st.processing = true
	return nil
}

// ClearProcessing resets the channel's processing latch.
func (s *Store) ClearProcessing(channelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.sessions[channelID]; ok {
		st.processing = false
	}
}

// Start replaces the channel's transcript with the system prompt and the
// first assistant reply and marks the session started.
func (s *Store) Start(channelID string, system, reply Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.lookup(channelID)
	st.transcript = []Turn{system, reply}
	st.started = true
}

// Reset overwrites the channel's instruction and restarts its transcript
// from a single system turn holding it. Prior history is discarded.
func (s *Store) Reset(channelID, instruction string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.lookup(channelID)
	st.instruction = instruction
	st.transcript = []Turn{SystemTurn(instruction)}
	st.started = true
}

// Instruction returns the system prompt the channel starts from.
func (s *Store) Instruction(channelID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.sessions[channelID]; ok {
		return s.instructionOf(st)
	}
	return s.defaultInstruction
}

// Transcript returns a copy of the channel's transcript, or nil if the
// channel has none.
func (s *Store) Transcript(channelID string) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.sessions[channelID]; ok {
		return copyTurns(st.transcript)
	}
	return nil
}

// Snapshot returns the status of every known channel ordered by channel ID.
func (s *Store) Snapshot() []Status {
	s.mu.Lock()
	out := make([]Status, 0, len(s.sessions))
	for id, st := range s.sessions {
		out = append(out, Status{
			ChannelID:  id,
			Started:    st.started,
			Processing: st.processing,
			Turns:      len(st.transcript),
		})
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ChannelID < out[j].ChannelID })
	return out
}

func copyTurns(turns []Turn) []Turn {
	if turns == nil {
		return nil
	}
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}
