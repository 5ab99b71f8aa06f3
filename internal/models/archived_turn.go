package models

import "time"

// ArchivedTurn stores one transcript turn for audit. Turns are appended in
// commit order; Sequence increases contiguously per channel.
type ArchivedTurn struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	ExchangeID string    `gorm:"size:36;not null;index"`
	ChannelID  string    `gorm:"size:32;not null;uniqueIndex:idx_channel_seq"`
	Sequence   int       `gorm:"not null;uniqueIndex:idx_channel_seq"`
	GuildID    string    `gorm:"size:32"`
	Role       string    `gorm:"size:16;not null"` // "system", "user", "assistant"
	UserName   string    `gorm:"size:64"`
	Content    string    `gorm:"type:mediumtext"`
	CreatedAt  time.Time `gorm:"index"`
}
