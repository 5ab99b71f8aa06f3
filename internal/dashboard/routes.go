package dashboard

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/interviewer/internal/archive"
	"github.com/zulandar/interviewer/internal/models"
	"github.com/zulandar/interviewer/internal/session"
)

// defaultPollInterval is how often the event stream checks session state.
const defaultPollInterval = 2 * time.Second

// SessionSource reports live session state.
type SessionSource interface {
	Snapshot() []session.Status
}

// ArchiveSource queries archived transcripts.
type ArchiveSource interface {
	Channels(ctx context.Context) ([]archive.ChannelSummary, error)
	ChannelHistory(ctx context.Context, channelID string, limit int) ([]models.ArchivedTurn, error)
}

// RouterOpts holds the data sources behind the routes.
type RouterOpts struct {
	Sessions     SessionSource
	Archive      ArchiveSource // optional; archive routes answer 503 without it
	Version      string
	PollInterval time.Duration // event stream poll interval
}

// archivedTurn is the JSON form of an archived turn.
type archivedTurn struct {
	Sequence  int       `json:"sequence"`
	Role      string    `json:"role"`
	UserName  string    `json:"user_name,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// registerRoutes sets up all status routes on the Gin router.
func registerRoutes(router *gin.Engine, opts RouterOpts) {
	router.GET("/healthz", handleHealth(opts.Version))

	api := router.Group("/api")
	api.GET("/sessions", handleSessions(opts.Sessions))
	api.GET("/archive", handleArchiveChannels(opts.Archive))
	api.GET("/archive/:channel", handleArchiveHistory(opts.Archive))

	poll := opts.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}
	api.GET("/events", handleSSE(opts.Sessions, poll))
}

func handleHealth(version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": version})
	}
}

func handleSessions(src SessionSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"sessions": src.Snapshot()})
	}
}

func handleArchiveChannels(src ArchiveSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		if src == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "archive disabled"})
			return
		}
		channels, err := src.Channels(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if channels == nil {
			channels = []archive.ChannelSummary{}
		}
		c.JSON(http.StatusOK, gin.H{"channels": channels})
	}
}

func handleArchiveHistory(src ArchiveSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		if src == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "archive disabled"})
			return
		}
		limit := 0
		if v := c.Query("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
				return
			}
			limit = n
		}

		channelID := c.Param("channel")
		turns, err := src.ChannelHistory(c.Request.Context(), channelID, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		out := make([]archivedTurn, 0, len(turns))
		for _, t := range turns {
			out = append(out, archivedTurn{
				Sequence:  t.Sequence,
				Role:      t.Role,
				UserName:  t.UserName,
				Content:   t.Content,
				CreatedAt: t.CreatedAt,
			})
		}
		c.JSON(http.StatusOK, gin.H{"channel_id": channelID, "turns": out})
	}
}
