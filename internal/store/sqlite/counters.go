package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/maloquacious/count/internal/store"
)

const selectCounter = `SELECT id, name, value, created_at, updated_at FROM counters`

// queryRower is satisfied by both *sql.DB and *sql.Tx.
type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// stamp returns the clock reading as stored in the database.
func (s *SQLiteStore) stamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// nextStamp returns a stamp strictly after prev.
func (s *SQLiteStore) nextStamp(prev time.Time) time.Time {
	now := s.stamp()
	if !now.After(prev) {
		now = prev.Add(time.Microsecond)
	}
	return now
}

// CreateCounter inserts a counter and returns it with its assigned id.
func (s *SQLiteStore) CreateCounter(ctx context.Context, nc store.NewCounter) (store.Counter, error) {
	if s.db == nil {
		return store.Counter{}, errNotOpened
	}
	if err := nc.Validate(); err != nil {
		return store.Counter{}, err
	}

	c := store.Counter{Name: nc.Name}
	if nc.Value != nil {
		c.Value = *nc.Value
	}
	c.CreatedAt = s.stamp()
	c.UpdatedAt = c.CreatedAt

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO counters (name, value, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		c.Name, c.Value, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return store.Counter{}, fmt.Errorf("%w: create counter: %w", store.ErrStorage, err)
	}

	c.ID, err = result.LastInsertId()
	if err != nil {
		return store.Counter{}, fmt.Errorf("%w: read assigned id: %w", store.ErrStorage, err)
	}

	s.log.Debug("created counter %d %q", c.ID, c.Name)
	return c, nil
}

// GetCounter retrieves a counter by id.
func (s *SQLiteStore) GetCounter(ctx context.Context, id int64) (store.Counter, error) {
	if s.db == nil {
		return store.Counter{}, errNotOpened
	}
	if err := store.ValidateID(id); err != nil {
		return store.Counter{}, err
	}
	return getCounter(ctx, s.db, id)
}

func getCounter(ctx context.Context, q queryRower, id int64) (store.Counter, error) {
	var c store.Counter
	err := q.QueryRowContext(ctx, selectCounter+` WHERE id = ?`, id).Scan(
		&c.ID,
		&c.Name,
		&c.Value,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return store.Counter{}, storageErr("get counter", id, err)
	}
	return c, nil
}

// ListCounters returns every counter in ascending id order.
func (s *SQLiteStore) ListCounters(ctx context.Context) ([]store.Counter, error) {
	if s.db == nil {
		return nil, errNotOpened
	}
	rows, err := s.db.QueryContext(ctx, selectCounter+` ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("%w: list counters: %w", store.ErrStorage, err)
	}
	defer rows.Close()

	counters := []store.Counter{}
	for rows.Next() {
		var c store.Counter
		if err := rows.Scan(&c.ID, &c.Name, &c.Value, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan counter: %w", store.ErrStorage, err)
		}
		counters = append(counters, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate counters: %w", store.ErrStorage, err)
	}

	return counters, nil
}

// UpdateCounter replaces the fields present in uc and refreshes updated_at.
func (s *SQLiteStore) UpdateCounter(ctx context.Context, uc store.UpdateCounter) (store.Counter, error) {
	if err := uc.Validate(); err != nil {
		return store.Counter{}, err
	}

	return s.mutate(ctx, uc.ID, func(c *store.Counter) error {
		if uc.Name != nil {
			c.Name = *uc.Name
		}
		if uc.Value != nil {
			c.Value = *uc.Value
		}
		return nil
	})
}

// IncrementCounter adds amount to the counter's value.
func (s *SQLiteStore) IncrementCounter(ctx context.Context, id, amount int64) (store.Counter, error) {
	if err := store.ValidateID(id); err != nil {
		return store.Counter{}, err
	}
	return s.mutate(ctx, id, func(c *store.Counter) error {
		if (amount > 0 && c.Value > math.MaxInt64-amount) || (amount < 0 && c.Value < math.MinInt64-amount) {
			return fmt.Errorf("%w: adding %d to %d overflows", store.ErrValidation, amount, c.Value)
		}
		c.Value += amount
		return nil
	})
}

// ResetCounter sets the counter's value to zero.
func (s *SQLiteStore) ResetCounter(ctx context.Context, id int64) (store.Counter, error) {
	var zero int64
	return s.UpdateCounter(ctx, store.UpdateCounter{ID: id, Value: &zero})
}

// mutate loads the row, applies fn, stamps updated_at and writes it back
// in one transaction.
func (s *SQLiteStore) mutate(ctx context.Context, id int64, fn func(*store.Counter) error) (store.Counter, error) {
	if s.db == nil {
		return store.Counter{}, errNotOpened
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return store.Counter{}, fmt.Errorf("%w: begin transaction: %w", store.ErrStorage, err)
	}
	defer tx.Rollback()

	c, err := getCounter(ctx, tx, id)
	if err != nil {
		return store.Counter{}, err
	}

	if err := fn(&c); err != nil {
		return store.Counter{}, err
	}
	c.UpdatedAt = s.nextStamp(c.UpdatedAt)

	_, err = tx.ExecContext(ctx,
		`UPDATE counters SET name = ?, value = ?, updated_at = ? WHERE id = ?`,
		c.Name, c.Value, c.UpdatedAt, c.ID)
	if err != nil {
		return store.Counter{}, fmt.Errorf("%w: update counter %d: %w", store.ErrStorage, id, err)
	}

	if err := tx.Commit(); err != nil {
		return store.Counter{}, fmt.Errorf("%w: commit: %w", store.ErrStorage, err)
	}

	s.log.Debug("updated counter %d", c.ID)
	return c, nil
}

// DeleteCounter removes a counter by id.
func (s *SQLiteStore) DeleteCounter(ctx context.Context, id int64) error {
	if s.db == nil {
		return errNotOpened
	}
	if err := store.ValidateID(id); err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, `DELETE FROM counters WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%w: delete counter: %w", store.ErrStorage, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: get rows affected: %w", store.ErrStorage, err)
	}

	if rows == 0 {
		return fmt.Errorf("%w: id %d", store.ErrNotFound, id)
	}

	s.log.Debug("deleted counter %d", id)
	return nil
}
