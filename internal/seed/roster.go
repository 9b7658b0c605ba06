package seed

import (
	"context"
	"fmt"
	"os"

	"github.com/diegoclair/flashevent-bot/internal/domain/contract"
	"github.com/diegoclair/flashevent-bot/internal/domain/entity"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Enroller is the roster write path used to apply a seed file
type Enroller interface {
	Enroll(ctx context.Context, id, displayName, offset string) (*entity.Officer, error)
}

// Transactor runs fn against a store bound to one transaction and commits
// only when fn succeeds
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(store contract.Store) error) error
}

type Officer struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	Offset string `yaml:"offset"`
}

// Roster is the on-disk seed format:
//
//	officers:
//	  - id: U123
//	    name: whopper
//	    offset: "+5"
type Roster struct {
	Officers []Officer `yaml:"officers"`
}

// LoadRoster reads and validates a YAML seed file.
func LoadRoster(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster seed: %w", err)
	}

	return ParseRoster(data)
}

func ParseRoster(data []byte) (*Roster, error) {
	var roster Roster
	if err := yaml.Unmarshal(data, &roster); err != nil {
		return nil, fmt.Errorf("failed to parse roster seed: %w", err)
	}

	if err := roster.Validate(); err != nil {
		return nil, err
	}

	return &roster, nil
}

// Validate checks required fields and duplicate ids
func (r *Roster) Validate() error {
	seen := make(map[string]bool, len(r.Officers))
	for i, o := range r.Officers {
		if o.ID == "" {
			return fmt.Errorf("officer %d: id is required", i)
		}
		if o.Name == "" {
			return fmt.Errorf("officer %q: name is required", o.ID)
		}
		if o.Offset == "" {
			return fmt.Errorf("officer %q: offset is required", o.ID)
		}
		if seen[o.ID] {
			return fmt.Errorf("officer %q: duplicate id", o.ID)
		}
		seen[o.ID] = true
	}
	return nil
}

// Apply enrolls every officer in the seed, overwriting existing records with
// the same id. It stops at the first failure.
func Apply(ctx context.Context, enroller Enroller, roster *Roster, log *zap.Logger) (int, error) {
	for i, o := range roster.Officers {
		officer, err := enroller.Enroll(ctx, o.ID, o.Name, o.Offset)
		if err != nil {
			return i, fmt.Errorf("failed to seed officer %q: %w", o.ID, err)
		}
		log.Debug("officer seeded", zap.String("officer_id", officer.ID), zap.Int("utc_offset", officer.UTCOffset))
	}

	log.Info("roster seeded", zap.Int("officers", len(roster.Officers)))
	return len(roster.Officers), nil
}

// ApplyInTransaction applies the seed all or nothing: enrollerFor builds the
// roster on the transaction's store, and any failure rolls every write back.
func ApplyInTransaction(ctx context.Context, tx Transactor, enrollerFor func(contract.Store) Enroller, roster *Roster, log *zap.Logger) (int, error) {
	var applied int
	err := tx.WithTransaction(ctx, func(store contract.Store) error {
		n, err := Apply(ctx, enrollerFor(store), roster, log)
		applied = n
		return err
	})
	if err != nil {
		return 0, err
	}
	return applied, nil
}
