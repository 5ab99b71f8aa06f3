// Package archive persists committed transcript turns for audit. The archive
// is write-only from the bot's point of view: sessions are never rebuilt from
// it.
package archive

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/zulandar/interviewer/internal/models"
	"github.com/zulandar/interviewer/internal/session"
	"gorm.io/gorm"
)

// Store writes and queries archived turns.
type Store struct {
	db *gorm.DB
}

// StoreOpts holds parameters for creating a Store.
type StoreOpts struct {
	DB *gorm.DB
}

// ChannelSummary describes one archived channel.
type ChannelSummary struct {
	ChannelID    string    `json:"channel_id"`
	GuildID      string    `json:"guild_id"`
	Turns        int64     `json:"turns"`
	LastActivity time.Time `json:"last_activity"`
}

// NewStore creates a Store.
func NewStore(opts StoreOpts) (*Store, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("archive: store: db is required")
	}
	return &Store{db: opts.DB}, nil
}

// Record appends the exchange's turns to the channel's archive in order. All
// turns of one exchange are written in a single transaction.
func (s *Store) Record(ctx context.Context, ex session.Exchange) error {
	if len(ex.Turns) == 0 {
		return nil
	}
	at := ex.At
	if at.IsZero() {
		at = time.Now()
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seq, err := nextSequence(tx, ex.ChannelID)
		if err != nil {
			return err
		}
		rows := make([]models.ArchivedTurn, 0, len(ex.Turns))
		for i, t := range ex.Turns {
			row := models.ArchivedTurn{
				ExchangeID: ex.ID,
				ChannelID:  ex.ChannelID,
				Sequence:   seq + i,
				GuildID:    ex.GuildID,
				Role:       string(t.Role),
				Content:    t.Content,
				CreatedAt:  at,
			}
			if t.Role == session.RoleUser {
				row.UserName = ex.UserName
			}
			rows = append(rows, row)
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return fmt.Errorf("archive: record exchange %s: %w", ex.ID, err)
	}
	return nil
}

// ChannelHistory returns the channel's archived turns ordered by sequence.
// With limit > 0 only the most recent limit turns are returned.
func (s *Store) ChannelHistory(ctx context.Context, channelID string, limit int) ([]models.ArchivedTurn, error) {
	var turns []models.ArchivedTurn
	q := s.db.WithContext(ctx).Where("channel_id = ?", channelID)
	if limit > 0 {
		q = q.Order("sequence DESC").Limit(limit)
	} else {
		q = q.Order("sequence")
	}
	if err := q.Find(&turns).Error; err != nil {
		return nil, fmt.Errorf("archive: channel history: %w", err)
	}
	if limit > 0 {
		slices.Reverse(turns)
	}
	return turns, nil
}

// Channels summarizes every archived channel, most recently active first.
func (s *Store) Channels(ctx context.Context) ([]ChannelSummary, error) {
	var groups []struct {
		ChannelID string
		Turns     int64
		LastID    uint
	}
	err := s.db.WithContext(ctx).Model(&models.ArchivedTurn{}).
		Select("channel_id, COUNT(*) AS turns, MAX(id) AS last_id").
		Group("channel_id").
		Scan(&groups).Error
	if err != nil {
		return nil, fmt.Errorf("archive: channels: %w", err)
	}
	if len(groups) == 0 {
		return nil, nil
	}

	ids := make([]uint, len(groups))
	for i, g := range groups {
		ids[i] = g.LastID
	}
	var last []models.ArchivedTurn
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&last).Error; err != nil {
		return nil, fmt.Errorf("archive: channels: %w", err)
	}
	byID := make(map[uint]models.ArchivedTurn, len(last))
	for _, t := range last {
		byID[t.ID] = t
	}

	out := make([]ChannelSummary, 0, len(groups))
	for _, g := range groups {
		t := byID[g.LastID]
		out = append(out, ChannelSummary{
			ChannelID:    g.ChannelID,
			GuildID:      t.GuildID,
			Turns:        g.Turns,
			LastActivity: t.CreatedAt,
		})
	}
	slices.SortFunc(out, func(a, b ChannelSummary) int {
		if c := b.LastActivity.Compare(a.LastActivity); c != 0 {
			return c
		}
		if a.ChannelID < b.ChannelID {
			return -1
		}
		if a.ChannelID > b.ChannelID {
			return 1
		}
		return 0
	})
	return out, nil
}

// Prune deletes turns created before cutoff and returns how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.ArchivedTurn{})
	if result.Error != nil {
		return 0, fmt.Errorf("archive: prune: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// nextSequence returns the next sequence number for a channel.
func nextSequence(tx *gorm.DB, channelID string) (int, error) {
	var maxSeq int
	result := tx.Model(&models.ArchivedTurn{}).
		Where("channel_id = ?", channelID).
		Select("COALESCE(MAX(sequence), 0)").Scan(&maxSeq)
	if result.Error != nil {
		return 0, fmt.Errorf("archive: next sequence: %w", result.Error)
	}
	return maxSeq + 1, nil
}
