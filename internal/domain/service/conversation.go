package service

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/diegoclair/flashevent-bot/internal/domain"
	"github.com/diegoclair/flashevent-bot/internal/domain/entity"
)

const (
	promptStatus = "How are you doing today?"
	promptColor  = "What's your favorite color?"
)

// conversationTracker holds the checkin dialogue per (user, channel).
// Conversations idle longer than ttl are abandoned.
type conversationTracker struct {
	mu    sync.Mutex
	ttl   time.Duration
	clock domain.Clock
	convs map[entity.ConversationKey]*entity.Conversation
}

func newConversationTracker(ttl time.Duration, clock domain.Clock) *conversationTracker {
	return &conversationTracker{
		ttl:   ttl,
		clock: clock,
		convs: make(map[entity.ConversationKey]*entity.Conversation),
	}
}

// Start opens (or restarts) a dialogue and returns the first prompt
func (c *conversationTracker) Start(key entity.ConversationKey) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.purgeLocked()
	c.convs[key] = &entity.Conversation{
		Key:       key,
		State:     entity.AwaitingStatus,
		UpdatedAt: c.clock.Now(),
	}
	return promptStatus
}

// Continue feeds text into an open dialogue. ok is false when the key has no
// live conversation and the text should be handled some other way.
func (c *conversationTracker) Continue(key entity.ConversationKey, text string) (reply string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.purgeLocked()
	conv, found := c.convs[key]
	if !found {
		return "", false
	}

	answer := strings.TrimSpace(text)
	conv.UpdatedAt = c.clock.Now()

	switch conv.State {
	case entity.AwaitingStatus:
		conv.Status = answer
		conv.State = entity.AwaitingColor
		return fmt.Sprintf("Noted: %s. %s", answer, promptColor), true
	case entity.AwaitingColor:
		conv.Color = answer
		conv.State = entity.Done
		delete(c.convs, key)
		return fmt.Sprintf("%s is a fine color. I prefer Imperial gray. We're done here.", answer), true
	default:
		delete(c.convs, key)
		return "", false
	}
}

// State reports the current state of a live conversation
func (c *conversationTracker) State(key entity.ConversationKey) (entity.ConversationState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.purgeLocked()
	conv, found := c.convs[key]
	if !found {
		return "", false
	}
	return conv.State, true
}

func (c *conversationTracker) purgeLocked() {
	now := c.clock.Now()
	for key, conv := range c.convs {
		if now.Sub(conv.UpdatedAt) > c.ttl {
			delete(c.convs, key)
		}
	}
}
