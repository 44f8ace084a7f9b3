// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML and TOML loading, env var expansion and overrides, defaults, and validation

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	configContent := `
platform: discord

discord:
  token: "discord-token"
  application_id: "app-1"
  guild_id: "guild-1"

database:
  driver: sqlite
  path: "./test.db"

modules:
  enabled:
    - roster

roster:
  default_channel_id: "chan-1"
  staff_role_id: "staff"
  privileged_user_id: "boss"
  privileged_name: "Boss"
  helper_role_id: "helper"
  ping_channel_id: "help"
  ping_cooldown: "30m"
  title_template: "Status {completed} of {total}"
  clan_requires_staff: true

activity:
  weekly_requirement: 20
  membership_ttl: "1m"
  top_limit: 10
  timezone: "Europe/Berlin"
  queue_size: 32
  workers: 2

logging:
  level: "debug"
  format: "json"
`
	cfg, err := Load(writeConfig(t, "config.yaml", configContent))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Discord.Token != "discord-token" {
		t.Errorf("Discord.Token = %q, want %q", cfg.Discord.Token, "discord-token")
	}
	if cfg.Discord.GuildID != "guild-1" {
		t.Errorf("Discord.GuildID = %q, want %q", cfg.Discord.GuildID, "guild-1")
	}
	if len(cfg.Modules.Enabled) != 1 || cfg.Modules.Enabled[0] != "roster" {
		t.Errorf("Modules.Enabled = %v, want [roster]", cfg.Modules.Enabled)
	}
	if cfg.Roster.PingCooldown != 30*time.Minute {
		t.Errorf("Roster.PingCooldown = %v, want 30m", cfg.Roster.PingCooldown)
	}
	if !cfg.Roster.ClanRequiresStaff {
		t.Error("Roster.ClanRequiresStaff = false, want true")
	}
	if cfg.Roster.TitleTemplate != "Status {completed} of {total}" {
		t.Errorf("Roster.TitleTemplate = %q", cfg.Roster.TitleTemplate)
	}
	if cfg.Activity.MembershipTTL != time.Minute {
		t.Errorf("Activity.MembershipTTL = %v, want 1m", cfg.Activity.MembershipTTL)
	}
	if cfg.Activity.WeeklyRequirement != 20 {
		t.Errorf("Activity.WeeklyRequirement = %d, want 20", cfg.Activity.WeeklyRequirement)
	}
	if cfg.Activity.Workers != 2 {
		t.Errorf("Activity.Workers = %d, want 2", cfg.Activity.Workers)
	}
	loc, err := cfg.Activity.Location()
	if err != nil {
		t.Fatalf("Location() error = %v", err)
	}
	if loc.String() != "Europe/Berlin" {
		t.Errorf("Location = %q, want Europe/Berlin", loc.String())
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v, want debug/json", cfg.Logging)
	}
}

func TestLoad_Defaults(t *testing.T) {
	configContent := `
discord:
  token: "t"
  application_id: "a"
database:
  path: "./x.db"
`
	cfg, err := Load(writeConfig(t, "config.yaml", configContent))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Platform != PlatformDiscord {
		t.Errorf("Platform = %q, want discord", cfg.Platform)
	}
	if cfg.Database.Driver != DriverSQLite {
		t.Errorf("Database.Driver = %q, want sqlite", cfg.Database.Driver)
	}
	if strings.Join(cfg.Modules.Enabled, ",") != "roster,activity" {
		t.Errorf("Modules.Enabled = %v, want [roster activity]", cfg.Modules.Enabled)
	}
	if cfg.Roster.TitleTemplate != DefaultTitleTemplate {
		t.Errorf("Roster.TitleTemplate = %q", cfg.Roster.TitleTemplate)
	}
	if cfg.Roster.PingCooldown != time.Hour {
		t.Errorf("Roster.PingCooldown = %v, want 1h", cfg.Roster.PingCooldown)
	}
	if cfg.Activity.MembershipTTL != 5*time.Minute {
		t.Errorf("Activity.MembershipTTL = %v, want 5m", cfg.Activity.MembershipTTL)
	}
	if cfg.Activity.WeeklyRequirement != 50 {
		t.Errorf("Activity.WeeklyRequirement = %d, want 50", cfg.Activity.WeeklyRequirement)
	}
	if cfg.Activity.TopLimit != 15 {
		t.Errorf("Activity.TopLimit = %d, want 15", cfg.Activity.TopLimit)
	}
	if cfg.Activity.Timezone != "UTC" {
		t.Errorf("Activity.Timezone = %q, want UTC", cfg.Activity.Timezone)
	}
	if cfg.Matrix.CommandPrefix != "!" {
		t.Errorf("Matrix.CommandPrefix = %q, want !", cfg.Matrix.CommandPrefix)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("Logging = %+v, want info/text", cfg.Logging)
	}
}

func TestLoad_TOML(t *testing.T) {
	configContent := `
platform = "matrix"

[matrix]
homeserver = "https://matrix.example.org"
user_id = "@bot:example.org"
access_token = "${TEST_MATRIX_TOKEN}"
command_prefix = "?"
allowed_rooms = ["!room:example.org"]

[matrix.roles]
staff = ["@alice:example.org", "@bob:example.org"]

[database]
driver = "mongo"
uri = "mongodb://localhost:27017"

[roster]
ping_cooldown = "2h"
`
	t.Setenv("TEST_MATRIX_TOKEN", "secret-token")

	cfg, err := Load(writeConfig(t, "clan.toml", configContent))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Platform != PlatformMatrix {
		t.Errorf("Platform = %q, want matrix", cfg.Platform)
	}
	if cfg.Matrix.AccessToken != "secret-token" {
		t.Errorf("Matrix.AccessToken = %q, want expanded value", cfg.Matrix.AccessToken)
	}
	if cfg.Matrix.CommandPrefix != "?" {
		t.Errorf("Matrix.CommandPrefix = %q, want ?", cfg.Matrix.CommandPrefix)
	}
	if got := cfg.Matrix.Roles["staff"]; len(got) != 2 {
		t.Errorf("Matrix.Roles[staff] = %v, want two users", got)
	}
	if cfg.Database.Name != DefaultMongoDatabase {
		t.Errorf("Database.Name = %q, want %q", cfg.Database.Name, DefaultMongoDatabase)
	}
	if cfg.Roster.PingCooldown != 2*time.Hour {
		t.Errorf("Roster.PingCooldown = %v, want 2h", cfg.Roster.PingCooldown)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_CLAN_TOKEN", "expanded-token")

	configContent := `
discord:
  token: "${TEST_CLAN_TOKEN}"
  application_id: "app"
database:
  path: "${TEST_CLAN_UNSET_DIR}/clan.db"
`
	cfg, err := Load(writeConfig(t, "config.yaml", configContent))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Discord.Token != "expanded-token" {
		t.Errorf("Discord.Token = %q, want %q", cfg.Discord.Token, "expanded-token")
	}
	if cfg.Database.Path != "/clan.db" {
		t.Errorf("Database.Path = %q, want unset var to expand to empty", cfg.Database.Path)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("BOT_TOKEN", "env-token")
	t.Setenv("CLIENT_ID", "env-app")
	t.Setenv("GUILD_ID", "env-guild")
	t.Setenv("STAFF_ROLE_ID", "env-staff")
	t.Setenv("MONGO_URI", "mongodb://env:27017")

	configContent := `
discord:
  token: "file-token"
  application_id: "file-app"
database:
  driver: mongo
roster:
  staff_role_id: "file-staff"
  helper_role_id: "file-helper"
`
	cfg, err := Load(writeConfig(t, "config.yaml", configContent))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	checks := map[string][2]string{
		"Discord.Token":         {cfg.Discord.Token, "env-token"},
		"Discord.ApplicationID": {cfg.Discord.ApplicationID, "env-app"},
		"Discord.GuildID":       {cfg.Discord.GuildID, "env-guild"},
		"Roster.StaffRoleID":    {cfg.Roster.StaffRoleID, "env-staff"},
		"Roster.HelperRoleID":   {cfg.Roster.HelperRoleID, "file-helper"},
		"Database.URI":          {cfg.Database.URI, "mongodb://env:27017"},
	}
	for field, c := range checks {
		if c[0] != c[1] {
			t.Errorf("%s = %q, want %q", field, c[0], c[1])
		}
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "unknown platform",
			content: "platform: irc\ndatabase:\n  path: x.db\n",
			wantErr: "platform must be",
		},
		{
			name:    "missing discord token",
			content: "discord:\n  application_id: a\ndatabase:\n  path: x.db\n",
			wantErr: "discord.token is required",
		},
		{
			name:    "missing discord application id",
			content: "discord:\n  token: t\ndatabase:\n  path: x.db\n",
			wantErr: "discord.application_id is required",
		},
		{
			name:    "missing matrix homeserver",
			content: "platform: matrix\nmatrix:\n  user_id: '@b:x'\n  access_token: t\ndatabase:\n  path: x.db\n",
			wantErr: "matrix.homeserver is required",
		},
		{
			name:    "matrix homeserver not a URL",
			content: "platform: matrix\nmatrix:\n  homeserver: example.org\n  user_id: '@b:x'\n  access_token: t\ndatabase:\n  path: x.db\n",
			wantErr: "must be an http(s) URL",
		},
		{
			name:    "unknown driver",
			content: "discord:\n  token: t\n  application_id: a\ndatabase:\n  driver: postgres\n",
			wantErr: "database.driver must be",
		},
		{
			name:    "missing sqlite path",
			content: "discord:\n  token: t\n  application_id: a\n",
			wantErr: "database.path is required",
		},
		{
			name:    "missing mongo uri",
			content: "discord:\n  token: t\n  application_id: a\ndatabase:\n  driver: mongo\n",
			wantErr: "database.uri is required",
		},
		{
			name:    "unknown timezone",
			content: "discord:\n  token: t\n  application_id: a\ndatabase:\n  path: x.db\nactivity:\n  timezone: Mars/Olympus\n",
			wantErr: "activity.timezone",
		},
		{
			name:    "top limit too large",
			content: "discord:\n  token: t\n  application_id: a\ndatabase:\n  path: x.db\nactivity:\n  top_limit: 50\n",
			wantErr: "activity.top_limit",
		},
		{
			name:    "negative top limit",
			content: "discord:\n  token: t\n  application_id: a\ndatabase:\n  path: x.db\nactivity:\n  top_limit: -1\n",
			wantErr: "activity.top_limit",
		},
		{
			name:    "negative requirement",
			content: "discord:\n  token: t\n  application_id: a\ndatabase:\n  path: x.db\nactivity:\n  weekly_requirement: -1\n",
			wantErr: "activity.weekly_requirement",
		},
		{
			name:    "bad log level",
			content: "discord:\n  token: t\n  application_id: a\ndatabase:\n  path: x.db\nlogging:\n  level: loud\n",
			wantErr: "logging.level",
		},
		{
			name:    "invalid duration",
			content: "discord:\n  token: t\n  application_id: a\ndatabase:\n  path: x.db\nroster:\n  ping_cooldown: soon\n",
			wantErr: "ping_cooldown",
		},
		{
			name:    "non-positive duration",
			content: "discord:\n  token: t\n  application_id: a\ndatabase:\n  path: x.db\nactivity:\n  membership_ttl: 0s\n",
			wantErr: "membership_ttl must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Keep ambient deployment variables from satisfying required fields.
			for _, v := range []string{"BOT_TOKEN", "CLIENT_ID", "MONGO_URI", "COVEN_CLAN_PLATFORM"} {
				t.Setenv(v, "")
			}

			_, err := Load(writeConfig(t, "config.yaml", tt.content))
			if err == nil {
				t.Fatalf("Load() error = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %q, want error containing %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidate_TopLimitZero(t *testing.T) {
	for _, v := range []string{"BOT_TOKEN", "CLIENT_ID", "MONGO_URI", "COVEN_CLAN_PLATFORM"} {
		t.Setenv(v, "")
	}
	cfg, err := Parse("config.yaml", []byte("discord:\n  token: t\n  application_id: a\ndatabase:\n  path: x.db\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	cfg.Activity.TopLimit = 0
	err = cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "activity.top_limit must be between 1 and 15") {
		t.Fatalf("Validate() error = %v, want top_limit range error", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("Load() error = nil, want error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "config.yaml", "discord: [unclosed"))
	if err == nil || !strings.Contains(err.Error(), "parsing config file") {
		t.Fatalf("Load() error = %v, want parse error", err)
	}
}

func TestDefaultFile_Loads(t *testing.T) {
	t.Setenv("BOT_TOKEN", "t")
	t.Setenv("CLIENT_ID", "a")
	t.Setenv("GUILD_ID", "g")
	t.Setenv("STAFF_ROLE_ID", "s")

	cfg, err := Parse("clan.yaml", []byte(DefaultFile))
	if err != nil {
		t.Fatalf("Parse(DefaultFile) error = %v", err)
	}
	if cfg.Roster.StaffRoleID != "s" {
		t.Errorf("Roster.StaffRoleID = %q, want s", cfg.Roster.StaffRoleID)
	}
	if cfg.Roster.TitleTemplate != DefaultTitleTemplate {
		t.Errorf("Roster.TitleTemplate = %q", cfg.Roster.TitleTemplate)
	}
}

func TestResolvePath(t *testing.T) {
	t.Run("flag wins", func(t *testing.T) {
		t.Setenv(EnvConfigPath, "/env/clan.yaml")
		got, err := ResolvePath("/flag/clan.yaml")
		if err != nil || got != "/flag/clan.yaml" {
			t.Errorf("ResolvePath() = %q, %v", got, err)
		}
	})

	t.Run("env var", func(t *testing.T) {
		t.Setenv(EnvConfigPath, "/env/clan.yaml")
		got, err := ResolvePath("")
		if err != nil || got != "/env/clan.yaml" {
			t.Errorf("ResolvePath() = %q, %v", got, err)
		}
	})

	t.Run("xdg", func(t *testing.T) {
		xdg := t.TempDir()
		t.Setenv(EnvConfigPath, "")
		t.Setenv("XDG_CONFIG_HOME", xdg)
		t.Setenv("HOME", t.TempDir())

		want := filepath.Join(xdg, "coven", "clan.yaml")
		got, err := ResolvePath("")
		if err != nil || got != want {
			t.Errorf("ResolvePath() = %q, %v, want %q", got, err, want)
		}
	})

	t.Run("home fallback when present", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv(EnvConfigPath, "")
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())
		t.Setenv("HOME", home)

		want := filepath.Join(home, ".config", "coven", "clan.yaml")
		if err := os.MkdirAll(filepath.Dir(want), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(want, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}

		got, err := ResolvePath("")
		if err != nil || got != want {
			t.Errorf("ResolvePath() = %q, %v, want %q", got, err, want)
		}
	})
}
