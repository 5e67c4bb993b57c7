package state

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/ducminhle1904/whale-tracker/internal/logger"
)

// TieredStore saves to every store and loads from the first one that has state
type TieredStore struct {
	stores []Store
	logger *logger.Logger
}

// NewTieredStore orders stores by load preference
func NewTieredStore(log *logger.Logger, stores ...Store) *TieredStore {
	if log == nil {
		log = logger.Nop()
	}
	return &TieredStore{stores: stores, logger: log.With("state")}
}

// Name identifies the store in logs
func (t *TieredStore) Name() string { return "tiered" }

// Save succeeds if at least one store accepted the state
func (t *TieredStore) Save(ctx context.Context, s *PersistedState) error {
	var errs []error
	for _, st := range t.stores {
		if err := st.Save(ctx, s); err != nil {
			t.logger.LogWarning("State Save", "%s store failed: %v", st.Name(), err)
			errs = append(errs, fmt.Errorf("%s: %w", st.Name(), err))
		}
	}
	if len(errs) == len(t.stores) && len(errs) > 0 {
		return stderrors.Join(errs...)
	}
	return nil
}

// Load returns the first state found
func (t *TieredStore) Load(ctx context.Context) (*PersistedState, error) {
	var errs []error
	for _, st := range t.stores {
		s, err := st.Load(ctx)
		if err == nil {
			return s, nil
		}
		if !stderrors.Is(err, ErrStateNotFound) {
			t.logger.LogWarning("State Load", "%s store failed: %v", st.Name(), err)
			errs = append(errs, fmt.Errorf("%s: %w", st.Name(), err))
		}
	}
	if len(errs) > 0 {
		return nil, stderrors.Join(errs...)
	}
	return nil, ErrStateNotFound
}
