package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const itemColumns = `id, kind, text, created_at, bookmarked, bookmarked_at, review_stage, interaction_score, updated_at`

func scanItem(row rowScanner) (Item, error) {
	var (
		it                                 Item
		kind                               string
		createdAt, bookmarkedAt, updatedAt int64
		bookmarked                         int
	)
	err := row.Scan(&it.ID, &kind, &it.Text, &createdAt, &bookmarked, &bookmarkedAt,
		&it.ReviewStage, &it.InteractionScore, &updatedAt)
	if err != nil {
		return Item{}, err
	}
	it.Kind = Kind(kind)
	it.CreatedAt = fromMillis(createdAt)
	it.Bookmarked = bookmarked != 0
	it.BookmarkedAt = fromMillis(bookmarkedAt)
	it.UpdatedAt = fromMillis(updatedAt)
	return it, nil
}

// UpsertItem mirrors a content item. A new item is inserted as given; an
// existing item only has its kind and text refreshed, so its origin,
// bookmark, stage and score survive edits. It reports whether the item
// was newly created.
func (s *Store) UpsertItem(ctx context.Context, it Item, now time.Time) (bool, error) {
	if it.ID == "" {
		return false, errors.New("upsert item: id is required")
	}
	tx, err := s.sql.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("upsert item %s: begin: %w", it.ID, err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE items SET kind = ?, text = ?, updated_at = ? WHERE id = ?`,
		string(it.Kind), it.Text, toMillis(now), it.ID)
	if err != nil {
		return false, fmt.Errorf("upsert item %s: update: %w", it.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("upsert item %s: %w", it.ID, err)
	}
	created := n == 0
	if created {
		createdAt := it.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO items (`+itemColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			it.ID, string(it.Kind), it.Text, toMillis(createdAt), boolToInt(it.Bookmarked),
			toMillis(it.BookmarkedAt), it.ReviewStage, it.InteractionScore, toMillis(now))
		if err != nil {
			return false, fmt.Errorf("upsert item %s: insert: %w", it.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("upsert item %s: commit: %w", it.ID, err)
	}
	return created, nil
}

// GetItem loads a mirrored item.
func (s *Store) GetItem(ctx context.Context, id string) (Item, error) {
	row := s.sql.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Item{}, fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Item{}, fmt.Errorf("get item %s: %w", id, err)
	}
	return it, nil
}

func (s *Store) requireRow(res sql.Result, op, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %s: %w", op, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", op, id, ErrNotFound)
	}
	return nil
}

// SetBookmark marks an item as kept. The first bookmark time wins; it
// reports whether this call placed the bookmark.
func (s *Store) SetBookmark(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := s.sql.ExecContext(ctx,
		`UPDATE items SET bookmarked = 1, bookmarked_at = ?, updated_at = ? WHERE id = ? AND bookmarked = 0`,
		toMillis(at), toMillis(at), id)
	if err != nil {
		return false, fmt.Errorf("bookmark %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("bookmark %s: %w", id, err)
	}
	if n > 0 {
		return true, nil
	}
	if _, err := s.GetItem(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

// SetStage records the last stage planned for an item.
func (s *Store) SetStage(ctx context.Context, id string, stage int) error {
	res, err := s.sql.ExecContext(ctx, `UPDATE items SET review_stage = ? WHERE id = ?`, stage, id)
	if err != nil {
		return fmt.Errorf("set stage %s: %w", id, err)
	}
	return s.requireRow(res, "set stage", id)
}

// AddScore adds delta to an item's interaction score and returns the new score.
func (s *Store) AddScore(ctx context.Context, id string, delta int) (int, error) {
	var score int
	err := s.sql.QueryRowContext(ctx,
		`UPDATE items SET interaction_score = interaction_score + ? WHERE id = ? RETURNING interaction_score`,
		delta, id).Scan(&score)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("add score %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("add score %s: %w", id, err)
	}
	return score, nil
}

// AddRelation records a semantic relation between two items. The pair is
// unordered; it reports whether the relation is new.
func (s *Store) AddRelation(ctx context.Context, a, b string, now time.Time) (bool, error) {
	if a == b {
		return false, fmt.Errorf("relate %s: an item cannot relate to itself", a)
	}
	if b < a {
		a, b = b, a
	}
	res, err := s.sql.ExecContext(ctx,
		`INSERT INTO relations (a, b, created_at) VALUES (?, ?, ?) ON CONFLICT(a, b) DO NOTHING`,
		a, b, toMillis(now))
	if err != nil {
		return false, fmt.Errorf("relate %s and %s: %w", a, b, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("relate %s and %s: %w", a, b, err)
	}
	return n > 0, nil
}

// DeleteItem removes an item together with its records and relations.
func (s *Store) DeleteItem(ctx context.Context, id string) error {
	res, err := s.sql.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete item %s: %w", id, err)
	}
	return s.requireRow(res, "delete item", id)
}
