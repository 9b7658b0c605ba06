package contract

import (
	"context"

	"github.com/diegoclair/flashevent-bot/internal/domain/entity"
)

// Dispatcher turns inbound chat commands into roster/flag mutations and runs broadcast ticks
type Dispatcher interface {
	Dispatch(ctx context.Context, in entity.Inbound) (*entity.Reply, error)
	Chime(ctx context.Context) (*entity.ChimeReport, error)
}

// MessageSender delivers notifications to a channel or user
type MessageSender interface {
	Send(ctx context.Context, n entity.Notification) error
}
