package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/diegoclair/flashevent-bot/internal/domain"
	"github.com/diegoclair/flashevent-bot/internal/domain/contract"
)

// FlagReader is the read side of the weekly flag store
type FlagReader interface {
	GetFlag(ctx context.Context, day int) (bool, error)
}

// flagService keeps one boolean per weekday under flashevent:<day>; an absent
// key reads as inactive.
type flagService struct {
	store contract.Store
	mu    sync.RWMutex
}

func newFlags(store contract.Store) *flagService {
	return &flagService{store: store}
}

func flagKey(day int) string {
	return domain.FlagKeyPrefix + strconv.Itoa(day)
}

// ParseWeekday accepts "0".."6"
func ParseWeekday(raw string) (int, error) {
	day, err := strconv.Atoi(raw)
	if err != nil || !domain.ValidWeekday(day) {
		return 0, domain.NewValidationError("invalid weekday %q, use 0-6 (Sunday is 0)", raw)
	}
	return day, nil
}

func validateDay(day int) error {
	if !domain.ValidWeekday(day) {
		return domain.NewValidationError("invalid weekday %d, use 0-6 (Sunday is 0)", day)
	}
	return nil
}

func (s *flagService) SetFlag(ctx context.Context, day int, active bool) error {
	if err := validateDay(day); err != nil {
		return err
	}

	value, err := json.Marshal(active)
	if err != nil {
		return fmt.Errorf("failed to marshal flag: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Set(ctx, flagKey(day), value); err != nil {
		return domain.NewPersistenceError("failed to set flash event flag", err)
	}
	return nil
}

func (s *flagService) GetFlag(ctx context.Context, day int) (bool, error) {
	if err := validateDay(day); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	value, err := s.store.Get(ctx, flagKey(day))
	if err != nil {
		return false, domain.NewPersistenceError("failed to get flash event flag", err)
	}
	if value == nil {
		return false, nil
	}

	var active bool
	if err := json.Unmarshal(value, &active); err != nil {
		return false, domain.NewPersistenceError(fmt.Sprintf("corrupt flash event flag for day %d", day), err)
	}
	return active, nil
}

// Week returns the flags for Sunday through Saturday
func (s *flagService) Week(ctx context.Context) ([7]bool, error) {
	var week [7]bool
	for day := domain.Sunday; day <= domain.Saturday; day++ {
		active, err := s.GetFlag(ctx, day)
		if err != nil {
			return week, err
		}
		week[day] = active
	}
	return week, nil
}

func (s *flagService) ClearFlag(ctx context.Context, day int, confirm string) error {
	if err := validateDay(day); err != nil {
		return err
	}
	if confirm != domain.ConfirmToken {
		return domain.NewValidationError("clearing a flag needs the confirmation token: `forceflashevent %d clear %s`", day, domain.ConfirmToken)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Del(ctx, flagKey(day)); err != nil {
		return domain.NewPersistenceError("failed to clear flash event flag", err)
	}
	return nil
}

// EraseRaw deletes any persisted key, including officer records and keys that
// no longer parse. It is an operator escape hatch and requires the
// confirmation token.
func (s *flagService) EraseRaw(ctx context.Context, key, confirm string) error {
	if key == "" {
		return domain.NewValidationError("a key is required: `erase key %s`", domain.ConfirmToken)
	}
	if confirm != domain.ConfirmToken {
		return domain.NewValidationError("erasing needs the confirmation token: `erase %s %s`", key, domain.ConfirmToken)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Del(ctx, key); err != nil {
		return domain.NewPersistenceError("failed to erase entry", err)
	}
	return nil
}
