package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/diegoclair/flashevent-bot/internal/domain"
	"github.com/diegoclair/flashevent-bot/internal/domain/contract"
	"github.com/diegoclair/flashevent-bot/internal/domain/entity"
)

// rosterService owns officer records. A record is persisted as the JSON
// 2-tuple ["name", "+offset"] under officer:<id>.
type rosterService struct {
	store contract.Store
	mu    sync.RWMutex
}

// NewRoster binds a roster to store, which may be scoped to a transaction
func NewRoster(store contract.Store) *rosterService {
	return &rosterService{store: store}
}

func officerKey(id string) string {
	return domain.OfficerKeyPrefix + id
}

// ParseOffset accepts signed whole hours such as "+5", "-4" or "5"
func ParseOffset(raw string) (int, error) {
	offset, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, domain.NewValidationError("invalid timezone offset %q, use a whole number of hours like +5 or -4", raw)
	}
	return offset, nil
}

func (s *rosterService) Enroll(ctx context.Context, id, displayName, offset string) (*entity.Officer, error) {
	if id == "" {
		return nil, domain.NewValidationError("officer id is required")
	}
	if displayName == "" {
		return nil, domain.NewValidationError("display name is required")
	}

	utcOffset, err := ParseOffset(offset)
	if err != nil {
		return nil, err
	}

	officer := &entity.Officer{ID: id, Name: displayName, UTCOffset: utcOffset}

	value, err := json.Marshal([2]string{officer.Name, officer.OffsetString()})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal officer: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Set(ctx, officerKey(id), value); err != nil {
		return nil, domain.NewPersistenceError("failed to enroll officer", err)
	}

	return officer, nil
}

func (s *rosterService) Unenroll(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Del(ctx, officerKey(id)); err != nil {
		return domain.NewPersistenceError("failed to unenroll officer", err)
	}
	return nil
}

func (s *rosterService) Get(ctx context.Context, id string) (*entity.Officer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.get(ctx, id)
}

func (s *rosterService) get(ctx context.Context, id string) (*entity.Officer, error) {
	value, err := s.store.Get(ctx, officerKey(id))
	if err != nil {
		return nil, domain.NewPersistenceError("failed to get officer", err)
	}
	if value == nil {
		return nil, domain.NewNotFoundError("officer", id)
	}

	return decodeOfficer(id, value)
}

func decodeOfficer(id string, value []byte) (*entity.Officer, error) {
	var record [2]string
	if err := json.Unmarshal(value, &record); err != nil {
		return nil, domain.NewPersistenceError(fmt.Sprintf("corrupt officer record %s", id), err)
	}

	offset, err := ParseOffset(record[1])
	if err != nil {
		return nil, domain.NewPersistenceError(fmt.Sprintf("corrupt officer record %s", id), err)
	}

	return &entity.Officer{ID: id, Name: record[0], UTCOffset: offset}, nil
}

// Each calls fn for every enrolled officer, sorted by id. Enumeration stops at
// the first error from the store or from fn.
func (s *rosterService) Each(ctx context.Context, fn func(entity.Officer) error) error {
	s.mu.RLock()
	ids, err := s.ids(ctx)
	s.mu.RUnlock()
	if err != nil {
		return err
	}

	for _, id := range ids {
		s.mu.RLock()
		officer, err := s.get(ctx, id)
		s.mu.RUnlock()
		if domain.IsKind(err, domain.KindNotFound) {
			// unenrolled since the key listing
			continue
		}
		if err != nil {
			return err
		}
		if err := fn(*officer); err != nil {
			return err
		}
	}

	return nil
}

func (s *rosterService) List(ctx context.Context) ([]entity.Officer, error) {
	var officers []entity.Officer
	err := s.Each(ctx, func(o entity.Officer) error {
		officers = append(officers, o)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return officers, nil
}

func (s *rosterService) ids(ctx context.Context) ([]string, error) {
	keys, err := s.store.List(ctx)
	if err != nil {
		return nil, domain.NewPersistenceError("failed to list officers", err)
	}

	var ids []string
	for _, key := range keys {
		if id, ok := strings.CutPrefix(key, domain.OfficerKeyPrefix); ok && id != "" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	return ids, nil
}
