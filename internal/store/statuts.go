package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/diewo77/go-asso/internal/models"
	"github.com/diewo77/go-asso/internal/statut"
	"gorm.io/gorm"
)

// StatutStore manages the statut taxonomy.
type StatutStore struct {
	lc *Lifecycle
}

// NewStatutStore returns a statut store writing through lc.
func NewStatutStore(lc *Lifecycle) *StatutStore { return &StatutStore{lc: lc} }

// Create adds a statut. Names are unique per type.
func (s *StatutStore) Create(ctx context.Context, name string, t models.TypeEntite) (*models.Statut, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: statut name required", ErrInvariantViolation)
	}
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %w: %q", ErrInvariantViolation, models.ErrInvalidTypeEntite, t)
	}
	existing, err := s.Find(ctx, t, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: statut %s already exists", ErrInvariantViolation, existing)
	}
	st := &models.Statut{Name: name, TypeEntite: t}
	if err := s.lc.Save(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

// Ensure returns the statut (t, name), creating it when missing.
func (s *StatutStore) Ensure(ctx context.Context, name string, t models.TypeEntite) (*models.Statut, bool, error) {
	existing, err := s.Find(ctx, t, strings.TrimSpace(name))
	if err != nil || existing != nil {
		return existing, false, err
	}
	st, err := s.Create(ctx, name, t)
	return st, st != nil, err
}

// Find returns the statut with this exact type and name, nil when absent.
func (s *StatutStore) Find(ctx context.Context, t models.TypeEntite, name string) (*models.Statut, error) {
	var st models.Statut
	err := s.lc.DB(ctx).Where("type_entite = ? AND name = ?", t, name).First(&st).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("find statut", err)
	}
	return &st, nil
}

// Get returns a statut by id, nil when absent.
func (s *StatutStore) Get(ctx context.Context, id uint) (*models.Statut, error) {
	var st models.Statut
	err := s.lc.DB(ctx).First(&st, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("get statut", err)
	}
	return &st, nil
}

// ByType lists the statuts of one type by name.
func (s *StatutStore) ByType(ctx context.Context, t models.TypeEntite) ([]models.Statut, error) {
	var out []models.Statut
	if err := s.lc.DB(ctx).Where("type_entite = ?", t).Order("name").Find(&out).Error; err != nil {
		return nil, wrap("statuts by type", err)
	}
	return out, nil
}

// All lists every statut ordered by type then name.
func (s *StatutStore) All(ctx context.Context) ([]models.Statut, error) {
	var out []models.Statut
	if err := s.lc.DB(ctx).Order("type_entite").Order("name").Find(&out).Error; err != nil {
		return nil, wrap("all statuts", err)
	}
	return out, nil
}

// RequireType loads statut id and checks it belongs to t. A missing statut or
// one of another type is an ErrInvariantViolation.
func (s *StatutStore) RequireType(ctx context.Context, id uint, t models.TypeEntite) (*models.Statut, error) {
	st, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, fmt.Errorf("%w: statut %d does not exist", ErrInvariantViolation, id)
	}
	if st.TypeEntite != t {
		return nil, fmt.Errorf("%w: statut %s is not a %s statut", ErrInvariantViolation, st, t)
	}
	return st, nil
}

// Reclassify files global statuts under the type Classify finds for their
// name. A row whose target (type, name) already exists is left global.
// It returns the number of rows moved.
func (s *StatutStore) Reclassify(ctx context.Context) (int, error) {
	globals, err := s.ByType(ctx, models.TypeGlobal)
	if err != nil {
		return 0, err
	}
	moved := 0
	for i := range globals {
		st := &globals[i]
		target := statut.Classify(st.Name)
		if target == models.TypeGlobal {
			continue
		}
		clash, err := s.Find(ctx, target, st.Name)
		if err != nil {
			return moved, err
		}
		if clash != nil {
			continue
		}
		if err := s.lc.Update(ctx, st, map[string]any{"type_entite": target}); err != nil {
			return moved, err
		}
		moved++
	}
	return moved, nil
}

// Seed inserts the default statuts that are missing and returns how many
// were created.
func (s *StatutStore) Seed(ctx context.Context) (int, error) {
	created := 0
	for _, d := range statut.All() {
		_, isNew, err := s.Ensure(ctx, d.Name, d.TypeEntite)
		if err != nil {
			return created, err
		}
		if isNew {
			created++
		}
	}
	return created, nil
}
