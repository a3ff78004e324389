package dashboard

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/toddagriscience/todd-kb/internal/metrics"
)

// Repository persists one layout per user.
type Repository interface {
	// Load returns the user's layout and whether one was ever saved. A saved
	// layout may be empty.
	Load(ctx context.Context, userID string) (items []Item, saved bool, err error)
	// Save replaces the user's layout, writing only what changed.
	Save(ctx context.Context, userID string, items []Item) (Change, error)
}

// LayoutStore keeps layouts in the dashboard_widgets table and records who
// has saved one in dashboard_layouts.
type LayoutStore struct {
	pool *pgxpool.Pool
}

var _ Repository = (*LayoutStore)(nil)

// NewLayoutStore creates a store on an existing pool.
func NewLayoutStore(pool *pgxpool.Pool) *LayoutStore {
	return &LayoutStore{pool: pool}
}

const selectLayoutSQL = `
	SELECT widget_id, kind, x, y, w, h
	FROM dashboard_widgets
	WHERE user_id = $1
	ORDER BY y, x, widget_id`

func (s *LayoutStore) Load(ctx context.Context, userID string) ([]Item, bool, error) {
	var saved bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM dashboard_layouts WHERE user_id = $1)`, userID).Scan(&saved)
	if err != nil {
		return nil, false, fmt.Errorf("load layout marker: %w", err)
	}
	if !saved {
		return []Item{}, false, nil
	}
	items, err := loadLayout(ctx, s.pool, userID, selectLayoutSQL)
	if err != nil {
		return nil, false, err
	}
	return items, true, nil
}

// Save diffs items against the stored layout and applies the change in one
// transaction. The user's marker row serialises concurrent saves.
func (s *LayoutStore) Save(ctx context.Context, userID string, items []Item) (Change, error) {
	if err := Validate(items); err != nil {
		return Change{}, err
	}

	var change Change
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := markSaved(ctx, tx, userID); err != nil {
			return err
		}
		current, err := loadLayout(ctx, tx, userID, selectLayoutSQL+" FOR UPDATE")
		if err != nil {
			return err
		}
		change = Diff(current, items)
		return applyChange(ctx, tx, userID, change)
	})
	if err != nil {
		return Change{}, err
	}
	metrics.LayoutWritesTotal.Add(int64(len(change.Upserts) + len(change.Deletes)))
	return change, nil
}

// Apply writes a precomputed change in one transaction.
func (s *LayoutStore) Apply(ctx context.Context, userID string, change Change) error {
	if err := Validate(change.Upserts); err != nil {
		return err
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := markSaved(ctx, tx, userID); err != nil {
			return err
		}
		return applyChange(ctx, tx, userID, change)
	})
}

func markSaved(ctx context.Context, tx pgx.Tx, userID string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO dashboard_layouts (user_id, saved_at) VALUES ($1, now())
		ON CONFLICT (user_id) DO UPDATE SET saved_at = now()`, userID)
	if err != nil {
		return fmt.Errorf("mark layout saved: %w", err)
	}
	return nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func loadLayout(ctx context.Context, q querier, userID, sql string) ([]Item, error) {
	rows, err := q.Query(ctx, sql, userID)
	if err != nil {
		return nil, fmt.Errorf("load layout: %w", err)
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.WidgetID, &it.Kind, &it.X, &it.Y, &it.W, &it.H); err != nil {
			return nil, fmt.Errorf("scan widget: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load layout: %w", err)
	}
	return items, nil
}

func applyChange(ctx context.Context, tx pgx.Tx, userID string, change Change) error {
	if change.Empty() {
		return nil
	}

	batch := &pgx.Batch{}
	for _, it := range change.Upserts {
		batch.Queue(`
			INSERT INTO dashboard_widgets (user_id, widget_id, kind, x, y, w, h)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (user_id, widget_id) DO UPDATE
			SET kind = EXCLUDED.kind, x = EXCLUDED.x, y = EXCLUDED.y,
			    w = EXCLUDED.w, h = EXCLUDED.h, updated_at = now()`,
			userID, it.WidgetID, string(it.Kind), it.X, it.Y, it.W, it.H)
	}
	if len(change.Deletes) > 0 {
		batch.Queue(`DELETE FROM dashboard_widgets WHERE user_id = $1 AND widget_id = ANY($2)`,
			userID, change.Deletes)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("apply layout change: %w", err)
	}
	return nil
}

// MemoryStore keeps layouts in process. It backs deployments without Postgres.
type MemoryStore struct {
	mu      sync.Mutex
	layouts map[string][]Item
}

var _ Repository = (*MemoryStore)(nil)

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{layouts: make(map[string][]Item)}
}

func (m *MemoryStore) Load(_ context.Context, userID string) ([]Item, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, saved := m.layouts[userID]
	items := append([]Item{}, stored...)
	sortItems(items)
	return items, saved, nil
}

func (m *MemoryStore) Save(_ context.Context, userID string, items []Item) (Change, error) {
	if err := Validate(items); err != nil {
		return Change{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	change := Diff(m.layouts[userID], items)
	m.layouts[userID] = append([]Item{}, items...)
	metrics.LayoutWritesTotal.Add(int64(len(change.Upserts) + len(change.Deletes)))
	return change, nil
}
