package service

import (
	"math/rand"
	"time"

	"github.com/diegoclair/flashevent-bot/internal/domain"
	"github.com/diegoclair/flashevent-bot/internal/domain/contract"
	"go.uber.org/zap"
)

// Options tune the engine. Zero values fall back to the defaults in package domain.
type Options struct {
	TriggerHours    []int
	FlavorLines     []string
	ChimeChannelID  string
	DebugChannelID  string
	ConversationTTL time.Duration
	Clock           domain.Clock
	Rand            *rand.Rand
}

type Instance struct {
	Roster     *rosterService
	Flags      *flagService
	Dispatcher contract.Dispatcher
}

func NewInstance(store contract.Store, sender contract.MessageSender, log *zap.Logger, opts Options) (*Instance, error) {
	if opts.TriggerHours == nil {
		opts.TriggerHours = domain.DefaultTriggerHours
	}
	if opts.FlavorLines == nil {
		opts.FlavorLines = domain.FlashEventLines
	}
	if opts.ConversationTTL <= 0 {
		opts.ConversationTTL = 5 * time.Minute
	}
	if opts.Clock == nil {
		opts.Clock = domain.SystemClock{}
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	trigger, err := newTriggerEvaluator(opts.TriggerHours, opts.FlavorLines, opts.Rand)
	if err != nil {
		return nil, err
	}

	roster := NewRoster(store)
	flags := newFlags(store)

	return &Instance{
		Roster: roster,
		Flags:  flags,
		Dispatcher: &dispatcher{
			store:          store,
			roster:         roster,
			flags:          flags,
			trigger:        trigger,
			convs:          newConversationTracker(opts.ConversationTTL, opts.Clock),
			sender:         sender,
			clock:          opts.Clock,
			log:            log,
			chimeChannelID: opts.ChimeChannelID,
			debugChannelID: opts.DebugChannelID,
		},
	}, nil
}
