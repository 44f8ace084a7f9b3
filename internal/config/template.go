// ABOUTME: Commented default configuration written by `coven-clan init`
// ABOUTME: Kept valid YAML so the written file loads once credentials are filled in

package config

// DefaultFile is the starter configuration file.
const DefaultFile = `# coven-clan configuration
#
# ${VAR} references are expanded from the environment. BOT_TOKEN, CLIENT_ID,
# GUILD_ID, MONGO_URI and STAFF_ROLE_ID override the matching fields when set.

platform: discord            # discord | matrix

discord:
  token: "${BOT_TOKEN}"
  application_id: "${CLIENT_ID}"
  guild_id: "${GUILD_ID}"    # commands are registered for this guild

# matrix:
#   homeserver: "https://matrix.example.org"
#   user_id: "@clanbot:example.org"
#   access_token: "${MATRIX_ACCESS_TOKEN}"
#   command_prefix: "!"
#   allowed_rooms: []
#   ignored_users: []
#   roles:
#     staff: ["@alice:example.org"]

database:
  driver: sqlite             # sqlite | mongo
  path: "./coven-clan.db"
  # uri: "${MONGO_URI}"
  # name: "coven_clan"

modules:
  enabled:
    - roster
    - activity

roster:
  default_channel_id: ""
  staff_role_id: "${STAFF_ROLE_ID}"
  privileged_user_id: ""
  privileged_name: ""
  helper_role_id: ""
  ping_channel_id: ""
  ping_cooldown: "1h"
  title_template: "Clan Mission Status ({completed}/{total})"
  clan_requires_staff: false

activity:
  weekly_requirement: 50
  membership_ttl: "5m"
  top_limit: 15
  timezone: "UTC"
  queue_size: 256
  workers: 1

logging:
  level: info                # debug | info | warn | error
  format: text               # text | json
`
