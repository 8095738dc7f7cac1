package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/TEKIMAX/focus-todo-ai/internal/domain/plan"
	"github.com/TEKIMAX/focus-todo-ai/internal/port/blobstore"
	"github.com/TEKIMAX/focus-todo-ai/internal/secrets"
)

// Blob keys used by BlobPersister.
const (
	KeyState      = "state"
	KeyDailyPlans = "daily_plans"
)

// BlobPersister keeps store state and plan history in a blobstore. When a
// sealer is set, the API key in settings is encrypted at rest.
type BlobPersister struct {
	store  blobstore.Store
	sealer *secrets.Sealer
	// planMu serializes the read-modify-write of the history map.
	planMu sync.Mutex
}

// NewBlobPersister creates a persister over store. sealer may be nil.
func NewBlobPersister(store blobstore.Store, sealer *secrets.Sealer) *BlobPersister {
	return &BlobPersister{store: store, sealer: sealer}
}

// LoadState reads the persisted snapshot. ok is false when none exists.
func (p *BlobPersister) LoadState(ctx context.Context) (State, bool, error) {
	data, ok, err := p.store.Get(ctx, KeyState)
	if err != nil || !ok {
		return State{}, false, err
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, false, fmt.Errorf("decode state: %w", err)
	}

	key := st.AppSettings.OpenAIAPIKey
	if secrets.IsSealed(key) {
		if p.sealer == nil {
			slog.WarnContext(ctx, "stored api key is sealed but no sealing key is configured; ignoring it")
			st.AppSettings.OpenAIAPIKey = ""
		} else if plain, err := p.sealer.Open(key); err != nil {
			slog.WarnContext(ctx, "stored api key could not be unsealed; ignoring it", "error", err)
			st.AppSettings.OpenAIAPIKey = ""
		} else {
			st.AppSettings.OpenAIAPIKey = plain
		}
	}
	return st, true, nil
}

// SaveState writes the snapshot.
func (p *BlobPersister) SaveState(ctx context.Context, st State) error {
	if p.sealer != nil {
		sealed, err := p.sealer.Seal(st.AppSettings.OpenAIAPIKey)
		if err != nil {
			return fmt.Errorf("seal api key: %w", err)
		}
		st.AppSettings.OpenAIAPIKey = sealed
	}
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	return p.store.Put(ctx, KeyState, data)
}

// SavePlan stores pl in the history map under its date key.
func (p *BlobPersister) SavePlan(ctx context.Context, pl *plan.DailyPlan) error {
	p.planMu.Lock()
	defer p.planMu.Unlock()

	plans, err := p.readPlans(ctx)
	if err != nil {
		return err
	}
	plans[pl.DateKey()] = *pl.Clone()

	data, err := json.Marshal(plans)
	if err != nil {
		return fmt.Errorf("encode plans: %w", err)
	}
	return p.store.Put(ctx, KeyDailyPlans, data)
}

// ListPlans returns every archived plan in no particular order.
func (p *BlobPersister) ListPlans(ctx context.Context) ([]plan.DailyPlan, error) {
	p.planMu.Lock()
	defer p.planMu.Unlock()

	plans, err := p.readPlans(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]plan.DailyPlan, 0, len(plans))
	for _, pl := range plans {
		out = append(out, pl)
	}
	return out, nil
}

func (p *BlobPersister) readPlans(ctx context.Context) (map[string]plan.DailyPlan, error) {
	data, ok, err := p.store.Get(ctx, KeyDailyPlans)
	if err != nil {
		return nil, fmt.Errorf("read plans: %w", err)
	}
	plans := make(map[string]plan.DailyPlan)
	if !ok {
		return plans, nil
	}
	if err := json.Unmarshal(data, &plans); err != nil {
		return nil, fmt.Errorf("decode plans: %w", err)
	}
	return plans, nil
}
