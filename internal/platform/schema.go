// ABOUTME: Command schema payloads pushed to a platform's command registry
// ABOUTME: Options are typed subcommand/user/integer with optional integer bounds

package platform

import (
	"encoding/json"
	"fmt"
)

// OptionType is the kind of a command option.
type OptionType int

const (
	OptionSubcommand OptionType = iota + 1
	OptionUser
	OptionInteger
)

var optionTypeNames = map[OptionType]string{
	OptionSubcommand: "subcommand",
	OptionUser:       "user",
	OptionInteger:    "integer",
}

func (t OptionType) String() string {
	if name, ok := optionTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("OptionType(%d)", int(t))
}

// MarshalJSON encodes the type by name.
func (t OptionType) MarshalJSON() ([]byte, error) {
	name, ok := optionTypeNames[t]
	if !ok {
		return nil, fmt.Errorf("unknown option type %d", int(t))
	}
	return json.Marshal(name)
}

// UnmarshalJSON decodes a type name.
func (t *OptionType) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for k, v := range optionTypeNames {
		if v == name {
			*t = k
			return nil
		}
	}
	return fmt.Errorf("unknown option type %q", name)
}

// Option is a command option or subcommand.
type Option struct {
	Type        OptionType `json:"type"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Required    bool       `json:"required,omitempty"`
	MinValue    *int64     `json:"min_value,omitempty"`
	MaxValue    *int64     `json:"max_value,omitempty"`
	Options     []Option   `json:"options,omitempty"`
}

// CommandSchema is the registry payload for one command.
type CommandSchema struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Options     []Option `json:"options,omitempty"`
}

// Subcommand returns the named subcommand option.
func (s CommandSchema) Subcommand(name string) (Option, bool) {
	for _, o := range s.Options {
		if o.Type == OptionSubcommand && o.Name == name {
			return o, true
		}
	}
	return Option{}, false
}

// HasSubcommands reports whether the command is invoked through subcommands.
func (s CommandSchema) HasSubcommands() bool {
	for _, o := range s.Options {
		if o.Type == OptionSubcommand {
			return true
		}
	}
	return false
}

// Subcommand builds a subcommand option.
func Subcommand(name, description string, options ...Option) Option {
	return Option{Type: OptionSubcommand, Name: name, Description: description, Options: options}
}

// UserOption builds a user option.
func UserOption(name, description string, required bool) Option {
	return Option{Type: OptionUser, Name: name, Description: description, Required: required}
}

// IntOption builds an integer option bounded to [min, max].
func IntOption(name, description string, required bool, min, max int64) Option {
	return Option{
		Type:        OptionInteger,
		Name:        name,
		Description: description,
		Required:    required,
		MinValue:    &min,
		MaxValue:    &max,
	}
}
