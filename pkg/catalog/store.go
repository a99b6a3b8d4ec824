package catalog

import (
	"context"
	"fmt"
	"log/slog"
)

// Store is the durable response catalog.
type Store struct {
	backend Backend
	log     *slog.Logger
}

// NewStore wraps a backend.
func NewStore(backend Backend, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}

	return &Store{
		backend: backend,
		log:     log.With("component", "catalog.store"),
	}
}

// Open opens the backend kind at path and wraps it in a Store.
func Open(kind string, path string, log *slog.Logger) (*Store, error) {
	backend, err := OpenBackend(kind, path)
	if err != nil {
		return nil, err
	}
	return NewStore(backend, log), nil
}

// LoadAll reads the catalog and never fails: unreadable storage yields an empty
// catalog, malformed entries are skipped.
func (s *Store) LoadAll(ctx context.Context) Catalog {
	cat, err := s.Load(ctx)
	if err != nil {
		s.log.Warn("Catalog unavailable, continuing with empty catalog", "error", err, "category", CategoryFromError(err))
		return Catalog{}
	}
	return cat
}

// Load reads the catalog, reporting storage and document errors. Malformed
// entries are still skipped individually.
func (s *Store) Load(ctx context.Context) (Catalog, error) {
	data, err := s.backend.Read(ctx)
	if err != nil {
		return nil, err
	}

	cat, skipped, err := Decode(data)
	if err != nil {
		return nil, err
	}
	s.logSkipped(skipped)

	return cat, nil
}

// SaveAll replaces the stored catalog.
func (s *Store) SaveAll(ctx context.Context, cat Catalog) error {
	data, err := Encode(cat)
	if err != nil {
		return err
	}

	return s.backend.Update(ctx, func([]byte) ([]byte, error) {
		return data, nil
	})
}

// Upsert stores def under the normalized name, replacing any previous entry.
func (s *Store) Upsert(ctx context.Context, name string, def Definition) error {
	normalized := NormalizeName(name)
	if normalized == "" {
		return NewError(ErrorInvalidName, "name must not be empty")
	}

	err := s.mutate(ctx, func(cat Catalog) bool {
		cat[normalized] = def.normalized()
		return true
	})
	if err != nil {
		return fmt.Errorf("upsert %q: %w", normalized, err)
	}

	s.log.Info("Catalog entry saved", "name", normalized, "buttons", def.normalized().UsesButtons, "links", len(def.ButtonLinks))
	return nil
}

// Remove deletes the normalized name. It reports whether an entry existed;
// removing an absent name writes nothing.
func (s *Store) Remove(ctx context.Context, name string) (bool, error) {
	normalized := NormalizeName(name)
	if normalized == "" {
		return false, NewError(ErrorInvalidName, "name must not be empty")
	}

	removed := false
	err := s.mutate(ctx, func(cat Catalog) bool {
		if _, ok := cat[normalized]; !ok {
			return false
		}
		delete(cat, normalized)
		removed = true
		return true
	})
	if err != nil {
		return false, fmt.Errorf("remove %q: %w", normalized, err)
	}

	if removed {
		s.log.Info("Catalog entry removed", "name", normalized)
	}
	return removed, nil
}

// mutate runs a read-modify-write cycle under the backend lock. A document
// that cannot be parsed is never overwritten.
func (s *Store) mutate(ctx context.Context, fn func(Catalog) bool) error {
	return s.backend.Update(ctx, func(current []byte) ([]byte, error) {
		cat, skipped, err := Decode(current)
		if err != nil {
			return nil, err
		}
		s.logSkipped(skipped)

		if !fn(cat) {
			return nil, nil
		}
		return Encode(cat)
	})
}

func (s *Store) logSkipped(skipped []Skipped) {
	for _, item := range skipped {
		s.log.Warn("Skipping malformed catalog entry", "name", item.Name, "error", item.Err)
	}
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}
