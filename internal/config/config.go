// Package config provides YAML and environment configuration loading for the
// interviewer bot.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultPath is the config file read when no path is given, if present.
	DefaultPath = "interviewer.yaml"
	// DefaultEnvFile is the dotenv file loaded before the environment is read.
	DefaultEnvFile = ".env"

	DefaultModel         = "gpt-4"
	DefaultArchiveDriver = "sqlite"
	DefaultArchiveDSN    = "interviewer.db"
	DefaultRetentionDays = 30
	DefaultPruneSchedule = "0 3 * * *"
	DefaultServiceName   = "interviewer"

	// MaxMessageLimit is Discord's single-message character limit.
	MaxMessageLimit = 2000
)

// DefaultInstruction is the system prompt used by channels that have not
// configured their own.
const DefaultInstruction = "Ignore toutes les instructions précédentes. Tu es recruteur IT senior et tu vas faire un entretien avec moi. " +
	"Tu vas me poser des questions dans 3 domaines différents: " +
	"1) domaine technique pour tester mes compétences via mes expériences passées. " +
	"2) savoir comment je peux m'intégrer à une équipe technique. " +
	"3) approfondir mes compétences en te basant sur un test technique que j'ai réalisé. " +
	"Je te donnerai de nouvelles instructions pour chaque partie. Commençons la partie 1. " +
	"Tu devras me poser 6 à 7 questions pour approfondir mes compétences en JavaScript, mais tu ne peux en poser qu'une seule à la fois !! " +
	"donc Attends que j'aie répondu à ta question avant de passer à la suivante. " +
	"Une fois toutes les questions répondues, je veux que tu me notes sur différents critères. " +
	"Une fois l'entretien terminé, donne-moi une notation avec tous les critères des parties précédentes mise à jour."

// Environment variables overlaid on the YAML file.
const (
	EnvDiscordToken  = "DISCORD_TOKEN"
	EnvOpenAIKey     = "OPENAI_API_KEY"
	EnvClientID      = "CLIENT_ID"
	EnvGuildID       = "GUILD_ID"
	EnvCategoryID    = "CATEGORY_ID"
	EnvOpenAIBaseURL = "OPENAI_BASE_URL"
	EnvOpenAIModel   = "OPENAI_MODEL"
	EnvArchiveDSN    = "INTERVIEWER_ARCHIVE_DSN"
	EnvStatusAddr    = "INTERVIEWER_STATUS_ADDR"
	EnvRetentionDays = "INTERVIEWER_RETENTION_DAYS"
	EnvOTLPEndpoint  = "OTEL_EXPORTER_OTLP_ENDPOINT"
)

// Config is the top-level interviewer configuration.
type Config struct {
	Discord   DiscordConfig   `yaml:"discord"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Interview InterviewConfig `yaml:"interview"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Status    StatusConfig    `yaml:"status"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// DiscordConfig holds the bot credentials and the guild it serves.
type DiscordConfig struct {
	Token      string `yaml:"token"`
	ClientID   string `yaml:"client_id"`
	GuildID    string `yaml:"guild_id"`
	CategoryID string `yaml:"category_id"`
}

// OpenAIConfig holds the completion gateway settings.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// InterviewConfig holds interview defaults.
type InterviewConfig struct {
	Instruction   string `yaml:"instruction"`
	MaxMessageLen int    `yaml:"max_message_len"`
}

// ArchiveConfig holds the transcript archive settings.
type ArchiveConfig struct {
	Disabled      bool   `yaml:"disabled"`
	Driver        string `yaml:"driver"` // sqlite or mysql
	DSN           string `yaml:"dsn"`
	RetentionDays int    `yaml:"retention_days"`
	PruneSchedule string `yaml:"prune_schedule"` // cron expression
}

// StatusConfig holds the status server settings. An empty address disables
// the server.
type StatusConfig struct {
	Addr string `yaml:"addr"`
}

// TelemetryConfig holds tracing settings. An empty endpoint keeps spans
// in-process.
type TelemetryConfig struct {
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
}

// MisconfigurationError lists every problem found while validating a Config.
type MisconfigurationError struct {
	Problems []string
}

func (e *MisconfigurationError) Error() string {
	return "config: validation failed: " + strings.Join(e.Problems, "; ")
}

// LookupFunc retrieves an environment variable, like os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Load reads configuration from path, or from DefaultPath if path is empty
// and the file exists, then overlays the process environment. A .env file in
// the working directory is loaded into the environment first.
func Load(path string) (*Config, error) {
	if err := LoadEnvFile(DefaultEnvFile); err != nil {
		return nil, err
	}

	var data []byte
	switch {
	case path != "":
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		data = b
	default:
		b, err := os.ReadFile(DefaultPath)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: read %s: %w", DefaultPath, err)
		}
		data = b
	}
	return ParseEnv(data, os.LookupEnv)
}

// LoadEnvFile loads KEY=value pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

// Parse unmarshals YAML bytes, overlays the process environment, and returns
// a validated Config.
func Parse(data []byte) (*Config, error) {
	return ParseEnv(data, os.LookupEnv)
}

// ParseEnv is Parse with an explicit environment lookup.
func ParseEnv(data []byte, lookup LookupFunc) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv overwrites fields with any non-empty environment variables.
func (c *Config) applyEnv(lookup LookupFunc) error {
	if lookup == nil {
		return nil
	}
	set := func(dst *string, key string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set(&c.Discord.Token, EnvDiscordToken)
	set(&c.Discord.ClientID, EnvClientID)
	set(&c.Discord.GuildID, EnvGuildID)
	set(&c.Discord.CategoryID, EnvCategoryID)
	set(&c.OpenAI.APIKey, EnvOpenAIKey)
	set(&c.OpenAI.BaseURL, EnvOpenAIBaseURL)
	set(&c.OpenAI.Model, EnvOpenAIModel)
	set(&c.Archive.DSN, EnvArchiveDSN)
	set(&c.Status.Addr, EnvStatusAddr)
	set(&c.Telemetry.Endpoint, EnvOTLPEndpoint)

	if v, ok := lookup(EnvRetentionDays); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvRetentionDays, err)
		}
		c.Archive.RetentionDays = n
	}
	return nil
}

// applyDefaults fills in default values.
func (c *Config) applyDefaults() {
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = DefaultModel
	}
	if c.Interview.Instruction == "" {
		c.Interview.Instruction = DefaultInstruction
	}
	if c.Interview.MaxMessageLen == 0 {
		c.Interview.MaxMessageLen = MaxMessageLimit
	}
	if c.Archive.Driver == "" {
		c.Archive.Driver = DefaultArchiveDriver
	}
	if c.Archive.DSN == "" && c.Archive.Driver == DefaultArchiveDriver {
		c.Archive.DSN = DefaultArchiveDSN
	}
	if c.Archive.RetentionDays == 0 {
		c.Archive.RetentionDays = DefaultRetentionDays
	}
	if c.Archive.PruneSchedule == "" {
		c.Archive.PruneSchedule = DefaultPruneSchedule
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = DefaultServiceName
	}
}

// validate checks the values every command needs.
func (c *Config) validate() error {
	var errs []string
	if c.Interview.MaxMessageLen < 1 || c.Interview.MaxMessageLen > MaxMessageLimit {
		errs = append(errs, fmt.Sprintf("interview.max_message_len must be between 1 and %d", MaxMessageLimit))
	}
	if c.Archive.RetentionDays < 0 {
		errs = append(errs, "archive.retention_days must not be negative")
	}
	switch c.Archive.Driver {
	case "sqlite", "mysql":
	default:
		errs = append(errs, fmt.Sprintf("archive.driver %q is not supported (sqlite, mysql)", c.Archive.Driver))
	}
	if !c.Archive.Disabled && c.Archive.DSN == "" {
		errs = append(errs, fmt.Sprintf("archive.dsn (%s) is required for driver %s", EnvArchiveDSN, c.Archive.Driver))
	}
	if len(errs) > 0 {
		return &MisconfigurationError{Problems: errs}
	}
	return nil
}

// RequireBot checks that everything needed to run the bot is present. All
// missing values are reported together.
func (c *Config) RequireBot() error {
	var errs []string
	missing := func(v, key, field string) {
		if v == "" {
			errs = append(errs, fmt.Sprintf("%s (%s) is required", key, field))
		}
	}
	missing(c.Discord.Token, EnvDiscordToken, "discord.token")
	missing(c.OpenAI.APIKey, EnvOpenAIKey, "openai.api_key")
	missing(c.Discord.ClientID, EnvClientID, "discord.client_id")
	missing(c.Discord.GuildID, EnvGuildID, "discord.guild_id")
	missing(c.Discord.CategoryID, EnvCategoryID, "discord.category_id")
	if len(errs) > 0 {
		return &MisconfigurationError{Problems: errs}
	}
	return nil
}

// RequireCommands checks the values needed to register slash commands.
func (c *Config) RequireCommands() error {
	var errs []string
	if c.Discord.Token == "" {
		errs = append(errs, fmt.Sprintf("%s (discord.token) is required", EnvDiscordToken))
	}
	if c.Discord.ClientID == "" {
		errs = append(errs, fmt.Sprintf("%s (discord.client_id) is required", EnvClientID))
	}
	if len(errs) > 0 {
		return &MisconfigurationError{Problems: errs}
	}
	return nil
}

// RequireArchive checks that the archive is enabled.
func (c *Config) RequireArchive() error {
	if c.Archive.Disabled {
		return &MisconfigurationError{Problems: []string{"archive is disabled (archive.disabled: true)"}}
	}
	return nil
}
