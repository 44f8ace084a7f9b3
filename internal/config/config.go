// ABOUTME: Configuration loading and parsing for coven-clan
// ABOUTME: Supports YAML or TOML files with ${VAR} expansion, env overrides, and duration parsing

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Supported platforms and database drivers.
const (
	PlatformDiscord = "discord"
	PlatformMatrix  = "matrix"

	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// Defaults applied when a field is left empty.
const (
	DefaultTitleTemplate     = "Clan Mission Status ({completed}/{total})"
	DefaultPingCooldown      = time.Hour
	DefaultMembershipTTL     = 5 * time.Minute
	DefaultWeeklyRequirement = 50
	DefaultTopLimit          = 15
	DefaultCommandPrefix     = "!"
	DefaultMongoDatabase     = "coven_clan"
	DefaultQueueSize         = 256
	DefaultWorkers           = 1
)

// EnvConfigPath names the environment variable holding the config file path.
const EnvConfigPath = "COVEN_CLAN_CONFIG"

// DefaultModules is the module list used when modules.enabled is empty.
var DefaultModules = []string{"roster", "activity"}

// Config represents the complete coven-clan configuration
type Config struct {
	Platform string         `yaml:"platform" toml:"platform" env:"COVEN_CLAN_PLATFORM"`
	Discord  DiscordConfig  `yaml:"discord" toml:"discord"`
	Matrix   MatrixConfig   `yaml:"matrix" toml:"matrix"`
	Database DatabaseConfig `yaml:"database" toml:"database"`
	Modules  ModulesConfig  `yaml:"modules" toml:"modules"`
	Roster   RosterConfig   `yaml:"roster" toml:"roster"`
	Activity ActivityConfig `yaml:"activity" toml:"activity"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
}

// DiscordConfig holds Discord bot credentials and the command deployment scope
type DiscordConfig struct {
	Token         string `yaml:"token" toml:"token" env:"BOT_TOKEN"`
	ApplicationID string `yaml:"application_id" toml:"application_id" env:"CLIENT_ID"`
	GuildID       string `yaml:"guild_id" toml:"guild_id" env:"GUILD_ID"`
}

// MatrixConfig holds Matrix bot configuration
type MatrixConfig struct {
	Homeserver    string   `yaml:"homeserver" toml:"homeserver" env:"MATRIX_HOMESERVER"`
	UserID        string   `yaml:"user_id" toml:"user_id" env:"MATRIX_USER_ID"`
	AccessToken   string   `yaml:"access_token" toml:"access_token" env:"MATRIX_ACCESS_TOKEN"`
	CommandPrefix string   `yaml:"command_prefix" toml:"command_prefix"`
	ScopeID       string   `yaml:"scope_id" toml:"scope_id"`
	AllowedRooms  []string `yaml:"allowed_rooms" toml:"allowed_rooms"`
	IgnoredUsers  []string `yaml:"ignored_users" toml:"ignored_users"`

	// Roles maps a role id to the Matrix users holding it
	Roles map[string][]string `yaml:"roles" toml:"roles"`
}

// DatabaseConfig selects and configures the store
type DatabaseConfig struct {
	Driver string `yaml:"driver" toml:"driver"`
	Path   string `yaml:"path" toml:"path"`
	URI    string `yaml:"uri" toml:"uri" env:"MONGO_URI"`
	Name   string `yaml:"name" toml:"name"`
}

// ModulesConfig lists the modules to load, in order
type ModulesConfig struct {
	Enabled []string `yaml:"enabled" toml:"enabled"`
}

// RosterConfig holds roster module identifiers and timing
type RosterConfig struct {
	DefaultChannelID  string `yaml:"default_channel_id" toml:"default_channel_id" env:"EMBED_CHANNEL_ID"`
	StaffRoleID       string `yaml:"staff_role_id" toml:"staff_role_id" env:"STAFF_ROLE_ID"`
	PrivilegedUserID  string `yaml:"privileged_user_id" toml:"privileged_user_id"`
	PrivilegedName    string `yaml:"privileged_name" toml:"privileged_name"`
	HelperRoleID      string `yaml:"helper_role_id" toml:"helper_role_id"`
	PingChannelID     string `yaml:"ping_channel_id" toml:"ping_channel_id"`
	TitleTemplate     string `yaml:"title_template" toml:"title_template"`
	ClanRequiresStaff bool   `yaml:"clan_requires_staff" toml:"clan_requires_staff"`

	PingCooldown time.Duration `yaml:"-" toml:"-"`

	// Raw string value for unmarshaling
	PingCooldownRaw string `yaml:"ping_cooldown" toml:"ping_cooldown"`
}

// ActivityConfig holds activity module thresholds and timing
type ActivityConfig struct {
	WeeklyRequirement int    `yaml:"weekly_requirement" toml:"weekly_requirement"`
	TopLimit          int    `yaml:"top_limit" toml:"top_limit"`
	Timezone          string `yaml:"timezone" toml:"timezone"`
	QueueSize         int    `yaml:"queue_size" toml:"queue_size"`
	Workers           int    `yaml:"workers" toml:"workers"`

	MembershipTTL time.Duration `yaml:"-" toml:"-"`

	// Raw string value for unmarshaling
	MembershipTTLRaw string `yaml:"membership_ttl" toml:"membership_ttl"`
}

// Location resolves the configured timezone.
func (a ActivityConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", a.Timezone, err)
	}
	return loc, nil
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level" env:"COVEN_CLAN_LOG_LEVEL"`
	Format string `yaml:"format" toml:"format" env:"COVEN_CLAN_LOG_FORMAT"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded, then the
// well-known variables (BOT_TOKEN, CLIENT_ID, GUILD_ID, MONGO_URI, STAFF_ROLE_ID, ...)
// override file values. Files ending in .toml are parsed as TOML, anything else as YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg, err := Parse(path, data)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes raw config content. The name selects the format by extension.
func Parse(name string, data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	var cfg Config
	if strings.EqualFold(filepath.Ext(name), ".toml") {
		if _, err := toml.Decode(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	applyDefaults(&cfg)

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func applyDefaults(cfg *Config) {
	if cfg.Platform == "" {
		cfg.Platform = PlatformDiscord
	}
	if cfg.Matrix.CommandPrefix == "" {
		cfg.Matrix.CommandPrefix = DefaultCommandPrefix
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DriverSQLite
	}
	if cfg.Database.Name == "" {
		cfg.Database.Name = DefaultMongoDatabase
	}
	if len(cfg.Modules.Enabled) == 0 {
		cfg.Modules.Enabled = append([]string(nil), DefaultModules...)
	}
	if cfg.Roster.TitleTemplate == "" {
		cfg.Roster.TitleTemplate = DefaultTitleTemplate
	}
	if cfg.Roster.PrivilegedName == "" {
		cfg.Roster.PrivilegedName = "the clan leader"
	}
	if cfg.Activity.WeeklyRequirement == 0 {
		cfg.Activity.WeeklyRequirement = DefaultWeeklyRequirement
	}
	if cfg.Activity.TopLimit == 0 {
		cfg.Activity.TopLimit = DefaultTopLimit
	}
	if cfg.Activity.Timezone == "" {
		cfg.Activity.Timezone = "UTC"
	}
	if cfg.Activity.QueueSize == 0 {
		cfg.Activity.QueueSize = DefaultQueueSize
	}
	if cfg.Activity.Workers == 0 {
		cfg.Activity.Workers = DefaultWorkers
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	switch c.Platform {
	case PlatformDiscord:
		if c.Discord.Token == "" {
			return errors.New("discord.token is required (or set BOT_TOKEN)")
		}
		if c.Discord.ApplicationID == "" {
			return errors.New("discord.application_id is required (or set CLIENT_ID)")
		}
	case PlatformMatrix:
		if c.Matrix.Homeserver == "" {
			return errors.New("matrix.homeserver is required")
		}
		if !strings.HasPrefix(c.Matrix.Homeserver, "http://") && !strings.HasPrefix(c.Matrix.Homeserver, "https://") {
			return fmt.Errorf("matrix.homeserver must be an http(s) URL, got %q", c.Matrix.Homeserver)
		}
		if c.Matrix.UserID == "" {
			return errors.New("matrix.user_id is required")
		}
		if c.Matrix.AccessToken == "" {
			return errors.New("matrix.access_token is required")
		}
	default:
		return fmt.Errorf("platform must be %q or %q, got %q", PlatformDiscord, PlatformMatrix, c.Platform)
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return errors.New("database.path is required for the sqlite driver")
		}
	case DriverMongo:
		if c.Database.URI == "" {
			return errors.New("database.uri is required for the mongo driver (or set MONGO_URI)")
		}
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverSQLite, DriverMongo, c.Database.Driver)
	}

	if c.Activity.WeeklyRequirement < 0 {
		return fmt.Errorf("activity.weekly_requirement must be positive, got %d", c.Activity.WeeklyRequirement)
	}
	if c.Activity.TopLimit < 1 || c.Activity.TopLimit > DefaultTopLimit {
		return fmt.Errorf("activity.top_limit must be between 1 and %d, got %d", DefaultTopLimit, c.Activity.TopLimit)
	}
	if c.Activity.QueueSize < 0 {
		return fmt.Errorf("activity.queue_size must be positive, got %d", c.Activity.QueueSize)
	}
	if c.Activity.Workers < 0 {
		return fmt.Errorf("activity.workers must be positive, got %d", c.Activity.Workers)
	}
	if _, err := c.Activity.Location(); err != nil {
		return fmt.Errorf("activity.timezone: %w", err)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	cfg.Roster.PingCooldown = DefaultPingCooldown
	if cfg.Roster.PingCooldownRaw != "" {
		cfg.Roster.PingCooldown, err = time.ParseDuration(cfg.Roster.PingCooldownRaw)
		if err != nil {
			return fmt.Errorf("parsing ping_cooldown %q: %w", cfg.Roster.PingCooldownRaw, err)
		}
		if cfg.Roster.PingCooldown <= 0 {
			return fmt.Errorf("ping_cooldown must be positive, got %q", cfg.Roster.PingCooldownRaw)
		}
	}

	cfg.Activity.MembershipTTL = DefaultMembershipTTL
	if cfg.Activity.MembershipTTLRaw != "" {
		cfg.Activity.MembershipTTL, err = time.ParseDuration(cfg.Activity.MembershipTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing membership_ttl %q: %w", cfg.Activity.MembershipTTLRaw, err)
		}
		if cfg.Activity.MembershipTTL <= 0 {
			return fmt.Errorf("membership_ttl must be positive, got %q", cfg.Activity.MembershipTTLRaw)
		}
	}

	return nil
}

// ResolvePath picks the config file location: the explicit flag value, then
// COVEN_CLAN_CONFIG, then $XDG_CONFIG_HOME/coven/clan.yaml, then
// ~/.config/coven/clan.yaml. When no candidate exists the first one is
// returned so callers can report or create it.
func ResolvePath(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p, nil
	}

	var candidates []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		candidates = append(candidates, filepath.Join(xdg, "coven", "clan.yaml"))
	}
	home, err := os.UserHomeDir()
	if err != nil && len(candidates) == 0 {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	if err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "coven", "clan.yaml"))
	}

	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return candidates[0], nil
}
