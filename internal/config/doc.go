// Package config handles configuration loading for coven-clan.
//
// # Overview
//
// Configuration is loaded from a single YAML or TOML file (selected by the
// .toml extension) with environment variable expansion, followed by
// environment overrides for deployment secrets. Defaults are applied before
// validation.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from the --config flag
//  2. Path from COVEN_CLAN_CONFIG environment variable
//  3. $XDG_CONFIG_HOME/coven/clan.yaml
//  4. ~/.config/coven/clan.yaml
//
// # Environment Variables
//
// Values can reference environment variables:
//
//	discord:
//	  token: "${BOT_TOKEN}"
//
// Independently of the file, these variables override their fields when set:
//
//	BOT_TOKEN       discord.token
//	CLIENT_ID       discord.application_id
//	GUILD_ID        discord.guild_id
//	MONGO_URI       database.uri
//	STAFF_ROLE_ID   roster.staff_role_id
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	roster:
//	  ping_cooldown: "1h"
//	activity:
//	  membership_ttl: "5m"
//
// # Validation
//
// Load() fails on an unknown platform or database driver, missing
// credentials for the selected platform, a missing database path or URI,
// invalid durations, an unknown timezone, and out-of-range limits.
package config
