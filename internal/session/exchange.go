package session

import "time"

// Exchange is a group of turns committed to a transcript together by one
// relay, such as a user turn and the assistant reply it produced.
type Exchange struct {
	ID        string
	ChannelID string
	GuildID   string
	UserName  string
	Turns     []Turn
	At        time.Time
}
