package entity

import "time"

type ConversationState string

const (
	AwaitingStatus ConversationState = "awaiting_status"
	AwaitingColor  ConversationState = "awaiting_color"
	Done           ConversationState = "done"
)

// ConversationKey identifies a dialogue: one per user per conversation
type ConversationKey struct {
	UserID    string
	ChannelID string
}

type Conversation struct {
	Key       ConversationKey
	State     ConversationState
	Status    string
	Color     string
	UpdatedAt time.Time
}
