// ABOUTME: Rule type and constructors for role, actor, and channel gates
// ABOUTME: Rules compose with All; the first denial wins

package authz

import "github.com/2389/coven-clan/internal/platform"

// DefaultDenial is the reply for a failed role or actor check.
const DefaultDenial = "Insufficient permissions."

// Subject is what a rule inspects. platform.Interaction satisfies it.
type Subject interface {
	User() platform.User
	HasRole(roleID string) bool
	ChannelID() string
}

// Decision is the outcome of a rule.
type Decision struct {
	Allowed bool
	Denial  string
}

// Rule decides whether a subject may proceed.
type Rule func(Subject) Decision

var allowed = Decision{Allowed: true}

func deny(text string) Decision {
	if text == "" {
		text = DefaultDenial
	}
	return Decision{Denial: text}
}

// Check evaluates the rule. A nil rule allows.
func (r Rule) Check(s Subject) Decision {
	if r == nil {
		return allowed
	}
	return r(s)
}

// Allow permits everyone.
func Allow() Rule {
	return func(Subject) Decision { return allowed }
}

// Role requires the subject to hold roleID. An empty roleID denies everyone.
func Role(roleID string) Rule {
	return func(s Subject) Decision {
		if roleID == "" || !s.HasRole(roleID) {
			return deny(DefaultDenial)
		}
		return allowed
	}
}

// Actor requires the subject to be actorID. An empty actorID denies everyone.
func Actor(actorID, denial string) Rule {
	return func(s Subject) Decision {
		if actorID == "" || s.User().ID != actorID {
			return deny(denial)
		}
		return allowed
	}
}

// Channel requires the command to be used in channelID. An empty channelID
// leaves the command unrestricted.
func Channel(channelID, denial string) Rule {
	return func(s Subject) Decision {
		if channelID != "" && s.ChannelID() != channelID {
			return deny(denial)
		}
		return allowed
	}
}

// All requires every rule to allow, evaluated in order.
func All(rules ...Rule) Rule {
	return func(s Subject) Decision {
		for _, r := range rules {
			if d := r.Check(s); !d.Allowed {
				return d
			}
		}
		return allowed
	}
}
