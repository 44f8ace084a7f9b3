// ABOUTME: Text command parsing and binding against registered command schemas
// ABOUTME: Accepts positional or name=value arguments, user IDs, pills, and integers

package matrix

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/2389/coven-clan/internal/platform"
)

// Invocation is a parsed command line before schema binding.
type Invocation struct {
	Name  string
	Args  []string
	Named map[string]string
}

// ParseCommand splits body into an invocation when it starts with prefix.
func ParseCommand(prefix, body string) (Invocation, bool) {
	body = strings.TrimSpace(body)
	if prefix == "" || !strings.HasPrefix(body, prefix) {
		return Invocation{}, false
	}
	fields := strings.Fields(strings.TrimPrefix(body, prefix))
	if len(fields) == 0 {
		return Invocation{}, false
	}

	inv := Invocation{Name: strings.ToLower(fields[0]), Named: map[string]string{}}
	for _, f := range fields[1:] {
		if name, value, ok := strings.Cut(f, "="); ok && name != "" && !strings.HasPrefix(f, "@") {
			inv.Named[strings.ToLower(name)] = value
			continue
		}
		inv.Args = append(inv.Args, f)
	}
	return inv, true
}

// Bound is an invocation resolved against a schema.
type Bound struct {
	Command string
	Sub     string
	Users   map[string]platform.User
	Ints    map[string]int64
}

// UsageError reports an invocation that does not fit its schema.
type UsageError struct {
	Usage  string
	Reason string
}

func (e *UsageError) Error() string {
	return e.Reason + "\nUsage: " + e.Usage
}

var errNoSchema = errors.New("no schema")

// Bind resolves inv against schema. A nil schema yields errNoSchema.
func Bind(prefix string, inv Invocation, schema *platform.CommandSchema) (Bound, error) {
	b := Bound{Command: inv.Name, Users: map[string]platform.User{}, Ints: map[string]int64{}}
	if schema == nil {
		return b, errNoSchema
	}

	args := inv.Args
	opts := schema.Options
	usage := Usage(prefix, schema, "")

	if schema.HasSubcommands() {
		if len(args) == 0 {
			return b, &UsageError{Usage: usage, Reason: "Missing subcommand."}
		}
		sub, ok := schema.Subcommand(strings.ToLower(args[0]))
		if !ok {
			return b, &UsageError{Usage: usage, Reason: fmt.Sprintf("Unknown subcommand `%s`.", args[0])}
		}
		b.Sub = sub.Name
		args = args[1:]
		opts = sub.Options
		usage = Usage(prefix, schema, sub.Name)
	}

	for _, o := range opts {
		raw, ok := inv.Named[o.Name]
		if !ok && len(args) > 0 {
			raw, args, ok = args[0], args[1:], true
		}
		if !ok {
			if o.Required {
				return b, &UsageError{Usage: usage, Reason: fmt.Sprintf("Missing `%s`.", o.Name)}
			}
			continue
		}

		switch o.Type {
		case platform.OptionUser:
			userID, valid := ParseUserID(raw)
			if !valid {
				return b, &UsageError{Usage: usage, Reason: fmt.Sprintf("`%s` is not a user ID.", raw)}
			}
			b.Users[o.Name] = platform.User{ID: userID, Tag: userID}
		case platform.OptionInteger:
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return b, &UsageError{Usage: usage, Reason: fmt.Sprintf("`%s` must be a whole number.", o.Name)}
			}
			if (o.MinValue != nil && n < *o.MinValue) || (o.MaxValue != nil && n > *o.MaxValue) {
				return b, &UsageError{Usage: usage, Reason: fmt.Sprintf("`%s` is out of range.", o.Name)}
			}
			b.Ints[o.Name] = n
		}
	}
	return b, nil
}

// ParseUserID accepts a bare user ID or a matrix.to link to one.
func ParseUserID(raw string) (string, bool) {
	s := strings.Trim(strings.TrimSpace(raw), "<>")
	s = strings.TrimPrefix(s, matrixTo)
	if !strings.HasPrefix(s, "@") {
		return "", false
	}
	local, server, ok := strings.Cut(s[1:], ":")
	if !ok || local == "" || server == "" {
		return "", false
	}
	return s, true
}

// Usage renders a usage line for schema, narrowed to sub when set.
func Usage(prefix string, schema *platform.CommandSchema, sub string) string {
	var sb strings.Builder
	sb.WriteString(prefix + schema.Name)

	if schema.HasSubcommands() {
		if sub == "" {
			names := make([]string, 0, len(schema.Options))
			for _, o := range schema.Options {
				names = append(names, o.Name)
			}
			sb.WriteString(" <" + strings.Join(names, "|") + ">")
			return sb.String()
		}
		sb.WriteString(" " + sub)
		if o, ok := schema.Subcommand(sub); ok {
			writeArgs(&sb, o.Options)
		}
		return sb.String()
	}

	writeArgs(&sb, schema.Options)
	return sb.String()
}

func writeArgs(sb *strings.Builder, opts []platform.Option) {
	for _, o := range opts {
		if o.Required {
			sb.WriteString(" <" + o.Name + ">")
		} else {
			sb.WriteString(" [" + o.Name + "]")
		}
	}
}

// ServerName returns the homeserver part of a user ID.
func ServerName(userID string) string {
	_, server, _ := strings.Cut(userID, ":")
	return server
}
