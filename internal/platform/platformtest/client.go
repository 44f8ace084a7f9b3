// ABOUTME: In-memory platform.Client fake with failure injection
// ABOUTME: Tracks channels, messages, registered command payloads, and listeners

package platformtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/2389/coven-clan/internal/platform"
)

// SentEmbed records one SendEmbed call.
type SentEmbed struct {
	Ref   platform.MessageRef
	Embed platform.Embed
}

// FakeClient is an in-memory platform.Client.
type FakeClient struct {
	listeners platform.Listeners

	mu         sync.Mutex
	channels   map[string]bool
	messages   map[platform.MessageRef]platform.Embed
	nextID     int
	sent       []SentEmbed
	edits      []SentEmbed
	registered [][]platform.CommandSchema
	closed     bool

	// Failure injection. Each error, when set, is returned by the matching call.
	RegisterErr error
	SendErr     error
	EditErr     error
}

// NewFakeClient creates a client that can resolve the given channels.
func NewFakeClient(channels ...string) *FakeClient {
	c := &FakeClient{
		channels: make(map[string]bool),
		messages: make(map[platform.MessageRef]platform.Embed),
	}
	for _, ch := range channels {
		c.channels[ch] = true
	}
	return c
}

// AddChannel makes a channel resolvable.
func (c *FakeClient) AddChannel(channelID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.channels[channelID] = true
}

// RemoveChannel deletes a channel and every message in it.
func (c *FakeClient) RemoveChannel(channelID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.channels, channelID)
	for ref := range c.messages {
		if ref.ChannelID == channelID {
			delete(c.messages, ref)
		}
	}
}

// DeleteMessage removes a message out of band.
func (c *FakeClient) DeleteMessage(ref platform.MessageRef) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.messages, ref)
}

// Message returns the current embed of a message.
func (c *FakeClient) Message(ref platform.MessageRef) (platform.Embed, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.messages[ref]
	return e, ok
}

// MessageCount returns how many messages currently exist.
func (c *FakeClient) MessageCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

// Sent returns every SendEmbed call in order.
func (c *FakeClient) Sent() []SentEmbed {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]SentEmbed(nil), c.sent...)
}

// Edits returns every successful EditEmbed call in order.
func (c *FakeClient) Edits() []SentEmbed {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]SentEmbed(nil), c.edits...)
}

// Registered returns every RegisterCommands payload in order.
func (c *FakeClient) Registered() [][]platform.CommandSchema {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]platform.CommandSchema(nil), c.registered...)
}

// ListenerCount returns the number of handlers attached for event.
func (c *FakeClient) ListenerCount(event string) int {
	return c.listeners.Count(event)
}

// Emit delivers a platform event to attached handlers.
func (c *FakeClient) Emit(ctx context.Context, event string, payload any) {
	c.listeners.Emit(ctx, event, payload)
}

// Closed reports whether Close was called.
func (c *FakeClient) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *FakeClient) On(event string, handler platform.Handler) func() {
	return c.listeners.On(event, handler)
}

func (c *FakeClient) RegisterCommands(ctx context.Context, schemas []platform.CommandSchema) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.RegisterErr != nil {
		return c.RegisterErr
	}
	c.registered = append(c.registered, append([]platform.CommandSchema(nil), schemas...))
	return nil
}

func (c *FakeClient) ChannelExists(ctx context.Context, channelID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return channelID != "" && c.channels[channelID]
}

func (c *FakeClient) SendEmbed(ctx context.Context, channelID string, embed platform.Embed) (platform.MessageRef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SendErr != nil {
		return platform.MessageRef{}, c.SendErr
	}
	if !c.channels[channelID] {
		return platform.MessageRef{}, fmt.Errorf("sending to %s: %w", channelID, platform.ErrChannelNotFound)
	}

	c.nextID++
	ref := platform.MessageRef{ChannelID: channelID, MessageID: fmt.Sprintf("msg-%d", c.nextID)}
	c.messages[ref] = embed
	c.sent = append(c.sent, SentEmbed{Ref: ref, Embed: embed})
	return ref, nil
}

func (c *FakeClient) EditEmbed(ctx context.Context, ref platform.MessageRef, embed platform.Embed) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.EditErr != nil {
		return c.EditErr
	}
	if !c.channels[ref.ChannelID] {
		return fmt.Errorf("fetching %s: %w", ref.ChannelID, platform.ErrChannelNotFound)
	}
	if _, ok := c.messages[ref]; !ok {
		return fmt.Errorf("fetching %s: %w", ref.MessageID, platform.ErrMessageNotFound)
	}

	c.messages[ref] = embed
	c.edits = append(c.edits, SentEmbed{Ref: ref, Embed: embed})
	return nil
}

func (c *FakeClient) MentionUser(userID string) string       { return "<@" + userID + ">" }
func (c *FakeClient) MentionRole(roleID string) string       { return "<@&" + roleID + ">" }
func (c *FakeClient) MentionChannel(channelID string) string { return "<#" + channelID + ">" }

// Run blocks until ctx is cancelled.
func (c *FakeClient) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (c *FakeClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.listeners.Clear()
	return nil
}

var _ platform.Client = (*FakeClient)(nil)
