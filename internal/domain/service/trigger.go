package service

import (
	"context"
	"math/rand"
	"sync"

	"github.com/diegoclair/flashevent-bot/internal/domain"
)

// triggerEvaluator decides whether an officer gets a flash-event notification
// at a given local hour and picks the flavor line for it.
type triggerEvaluator struct {
	hours map[int]bool
	pool  []string

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func newTriggerEvaluator(hours []int, pool []string, rnd *rand.Rand) (*triggerEvaluator, error) {
	set := make(map[int]bool, len(hours))
	for _, h := range hours {
		if h < 0 || h > 23 {
			return nil, domain.NewConfigurationError("trigger hour %d out of range 0-23", h)
		}
		set[h] = true
	}
	if len(pool) == 0 {
		return nil, domain.NewConfigurationError("flavor text pool is empty")
	}

	return &triggerEvaluator{hours: set, pool: pool, rnd: rnd}, nil
}

func (t *triggerEvaluator) IsTriggerHour(hour int) bool {
	return t.hours[hour]
}

// ShouldNotify is true when the flag for weekday is set and hour is a trigger hour.
// The flag lookup is its only side effect.
func (t *triggerEvaluator) ShouldNotify(ctx context.Context, hour, weekday int, flags FlagReader) (bool, error) {
	active, err := flags.GetFlag(ctx, weekday)
	if err != nil {
		return false, err
	}
	return active && t.IsTriggerHour(hour), nil
}

func (t *triggerEvaluator) PickFlavor() string {
	return t.pickFrom(t.pool)
}

// pickFrom draws uniformly from pool; rand.Rand is not safe for concurrent use
func (t *triggerEvaluator) pickFrom(pool []string) string {
	t.rndMu.Lock()
	defer t.rndMu.Unlock()
	return pool[t.rnd.Intn(len(pool))]
}
