package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const recordColumns = `id, item_id, item_kind, content_snapshot, scheduled_at, status, created_at, label, claimed_at, settled_at, dismissed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		r                                                     Record
		kind, status                                          string
		scheduledAt, createdAt, claimedAt, settled, dismissed int64
	)
	err := row.Scan(&r.ID, &r.ItemID, &kind, &r.ContentSnapshot, &scheduledAt, &status, &createdAt, &r.Label,
		&claimedAt, &settled, &dismissed)
	if err != nil {
		return Record{}, err
	}
	r.ItemKind = Kind(kind)
	r.Status = Status(status)
	r.ScheduledAt = fromMillis(scheduledAt)
	r.CreatedAt = fromMillis(createdAt)
	r.ClaimedAt = fromMillis(claimedAt)
	r.SettledAt = fromMillis(settled)
	r.DismissedAt = fromMillis(dismissed)
	return r, nil
}

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := s.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

// Put persists a new record. It fails with ErrDuplicateKey when the item
// already has a record at the same scheduled time. The record is committed
// before Put returns.
func (s *Store) Put(ctx context.Context, r Record) error {
	if r.ID == "" || r.ItemID == "" {
		return errors.New("put record: id and item id are required")
	}
	if r.ScheduledAt.IsZero() {
		return errors.New("put record: scheduled time is required")
	}
	if r.Status == "" {
		r.Status = StatusPending
	}
	if !r.Status.IsValid() {
		return fmt.Errorf("put record: invalid status %q", r.Status)
	}

	res, err := s.sql.ExecContext(ctx, `
		INSERT INTO records (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(item_id, scheduled_at) DO NOTHING`,
		r.ID, r.ItemID, string(r.ItemKind), r.ContentSnapshot, toMillis(r.ScheduledAt),
		string(r.Status), toMillis(r.CreatedAt), r.Label, toMillis(r.ClaimedAt), toMillis(r.SettledAt),
		toMillis(r.DismissedAt),
	)
	if err != nil {
		return fmt.Errorf("put record %s: %w", r.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("put record %s: rows affected: %w", r.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("put record for item %s at %s: %w", r.ItemID, r.ScheduledAt.Format(time.RFC3339), ErrDuplicateKey)
	}
	return nil
}

// GetAt loads the record an item has at scheduled time at.
func (s *Store) GetAt(ctx context.Context, itemID string, at time.Time) (Record, error) {
	row := s.sql.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE item_id = ? AND scheduled_at = ?`,
		itemID, toMillis(at))
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("record for item %s at %s: %w", itemID, at.Format(time.RFC3339), ErrNotFound)
	}
	if err != nil {
		return Record{}, fmt.Errorf("get record for item %s: %w", itemID, err)
	}
	return r, nil
}

// Get loads a single record.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	row := s.sql.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM records WHERE id = ?`, id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("record %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Record{}, fmt.Errorf("get record %s: %w", id, err)
	}
	return r, nil
}

// QueryDue returns every pending record scheduled at or before now,
// ascending by scheduled time.
func (s *Store) QueryDue(ctx context.Context, now time.Time) ([]Record, error) {
	out, err := s.queryRecords(ctx, `
		SELECT `+recordColumns+` FROM records
		WHERE status = ? AND scheduled_at <= ?
		ORDER BY scheduled_at ASC, id ASC`,
		string(StatusPending), toMillis(now))
	if err != nil {
		return nil, fmt.Errorf("query due: %w", err)
	}
	return out, nil
}

// QueryUpcoming returns pending records scheduled in (from, to], ascending.
func (s *Store) QueryUpcoming(ctx context.Context, from, to time.Time) ([]Record, error) {
	out, err := s.queryRecords(ctx, `
		SELECT `+recordColumns+` FROM records
		WHERE status = ? AND scheduled_at > ? AND scheduled_at <= ?
		ORDER BY scheduled_at ASC, id ASC`,
		string(StatusPending), toMillis(from), toMillis(to))
	if err != nil {
		return nil, fmt.Errorf("query upcoming: %w", err)
	}
	return out, nil
}

// ListByItem returns all records of an item, ascending by scheduled time.
func (s *Store) ListByItem(ctx context.Context, itemID string) ([]Record, error) {
	return s.List(ctx, ListFilter{ItemID: itemID})
}

// List returns records matching f, ascending by scheduled time.
func (s *Store) List(ctx context.Context, f ListFilter) ([]Record, error) {
	var (
		where []string
		args  []any
	)
	if f.ItemID != "" {
		where = append(where, "item_id = ?")
		args = append(args, f.ItemID)
	}
	if len(f.Statuses) > 0 {
		clause, statusArgs := inStatuses(f.Statuses)
		where = append(where, clause)
		args = append(args, statusArgs...)
	}
	q := `SELECT ` + recordColumns + ` FROM records`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY scheduled_at ASC, id ASC`
	if f.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", f.Limit)
	}
	out, err := s.queryRecords(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return out, nil
}

func inStatuses(statuses []Status) (string, []any) {
	marks := make([]string, len(statuses))
	args := make([]any, len(statuses))
	for i, st := range statuses {
		marks[i] = "?"
		args[i] = string(st)
	}
	return "status IN (" + strings.Join(marks, ", ") + ")", args
}

// transition runs a compare-and-set status update and reports whether it won.
func (s *Store) transition(ctx context.Context, query string, args ...any) (bool, error) {
	res, err := s.sql.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Claim moves a record from pending to delivering. It returns false when
// another activation already claimed it or it is no longer pending.
func (s *Store) Claim(ctx context.Context, id string, now time.Time) (bool, error) {
	ok, err := s.transition(ctx,
		`UPDATE records SET status = ?, claimed_at = ? WHERE id = ? AND status = ?`,
		string(StatusDelivering), toMillis(now), id, string(StatusPending))
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", id, err)
	}
	return ok, nil
}

// Release hands a claimed record back to pending after a failed delivery.
func (s *Store) Release(ctx context.Context, id string) (bool, error) {
	ok, err := s.transition(ctx,
		`UPDATE records SET status = ?, claimed_at = 0 WHERE id = ? AND status = ?`,
		string(StatusPending), id, string(StatusDelivering))
	if err != nil {
		return false, fmt.Errorf("release %s: %w", id, err)
	}
	return ok, nil
}

// ReclaimExpired returns claims taken before the given time to pending.
// Claims only outlive their activation when the process died mid-delivery.
func (s *Store) ReclaimExpired(ctx context.Context, before time.Time) (int, error) {
	res, err := s.sql.ExecContext(ctx,
		`UPDATE records SET status = ?, claimed_at = 0 WHERE status = ? AND claimed_at < ?`,
		string(StatusPending), string(StatusDelivering), toMillis(before))
	if err != nil {
		return 0, fmt.Errorf("reclaim expired: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reclaim expired: %w", err)
	}
	return int(n), nil
}

// MarkSent settles a live record as sent. Already terminal records are left
// untouched and false is returned.
func (s *Store) MarkSent(ctx context.Context, id string, now time.Time) (bool, error) {
	ok, err := s.transition(ctx,
		`UPDATE records SET status = ?, settled_at = ? WHERE id = ? AND status IN (?, ?)`,
		string(StatusSent), toMillis(now), id, string(StatusPending), string(StatusDelivering))
	if err != nil {
		return false, fmt.Errorf("mark sent %s: %w", id, err)
	}
	return ok, nil
}

// MarkIgnored settles a live record as ignored. Already terminal records are
// left untouched and false is returned.
func (s *Store) MarkIgnored(ctx context.Context, id string, now time.Time) (bool, error) {
	ok, err := s.transition(ctx,
		`UPDATE records SET status = ?, settled_at = ? WHERE id = ? AND status IN (?, ?)`,
		string(StatusIgnored), toMillis(now), id, string(StatusPending), string(StatusDelivering))
	if err != nil {
		return false, fmt.Errorf("mark ignored %s: %w", id, err)
	}
	return ok, nil
}

// IgnorePending settles every live record of an item as ignored and
// returns how many were changed.
func (s *Store) IgnorePending(ctx context.Context, itemID string, now time.Time) (int, error) {
	res, err := s.sql.ExecContext(ctx,
		`UPDATE records SET status = ?, settled_at = ? WHERE item_id = ? AND status IN (?, ?)`,
		string(StatusIgnored), toMillis(now), itemID, string(StatusPending), string(StatusDelivering))
	if err != nil {
		return 0, fmt.Errorf("ignore pending for %s: %w", itemID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("ignore pending for %s: %w", itemID, err)
	}
	return int(n), nil
}

// Dismiss hides a record from the spotlight. A live record is settled as
// ignored at the same time; a sent record keeps its status. It returns
// false when the record was already dismissed or does not exist.
func (s *Store) Dismiss(ctx context.Context, id string, now time.Time) (bool, error) {
	pending, delivering, at := string(StatusPending), string(StatusDelivering), toMillis(now)
	ok, err := s.transition(ctx, `
		UPDATE records SET
			status = CASE WHEN status IN (?, ?) THEN ? ELSE status END,
			settled_at = CASE WHEN status IN (?, ?) THEN ? ELSE settled_at END,
			dismissed_at = ?
		WHERE id = ? AND dismissed_at = 0`,
		pending, delivering, string(StatusIgnored),
		pending, delivering, at,
		at, id)
	if err != nil {
		return false, fmt.Errorf("dismiss %s: %w", id, err)
	}
	return ok, nil
}

// SpotlightCandidates returns records eligible for surfacing: due pending
// records plus records sent at or after sentSince, joined with their
// item's ranking inputs. Dismissed records are excluded.
func (s *Store) SpotlightCandidates(ctx context.Context, now, sentSince time.Time) ([]Candidate, error) {
	rows, err := s.sql.QueryContext(ctx, `
		SELECT r.id, r.item_id, r.item_kind, r.content_snapshot, r.scheduled_at, r.status,
		       r.created_at, r.label, r.claimed_at, r.settled_at, r.dismissed_at,
		       i.interaction_score, i.bookmarked
		FROM records r JOIN items i ON i.id = r.item_id
		WHERE r.scheduled_at <= ? AND r.dismissed_at = 0
		  AND (r.status IN (?, ?) OR (r.status = ? AND r.settled_at >= ?))
		ORDER BY r.scheduled_at ASC, r.id ASC`,
		toMillis(now), string(StatusPending), string(StatusDelivering), string(StatusSent), toMillis(sentSince))
	if err != nil {
		return nil, fmt.Errorf("spotlight candidates: %w", err)
	}
	defer rows.Close()

	var out []Candidate
	for rows.Next() {
		var (
			c                                          Candidate
			kind, status                               string
			scheduledAt, createdAt, claimedAt, settled int64
			dismissed                                  int64
			bookmarked                                 int
		)
		if err := rows.Scan(&c.Record.ID, &c.Record.ItemID, &kind, &c.Record.ContentSnapshot, &scheduledAt,
			&status, &createdAt, &c.Record.Label, &claimedAt, &settled, &dismissed, &c.Score, &bookmarked); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		c.Record.ItemKind = Kind(kind)
		c.Record.Status = Status(status)
		c.Record.ScheduledAt = fromMillis(scheduledAt)
		c.Record.CreatedAt = fromMillis(createdAt)
		c.Record.ClaimedAt = fromMillis(claimedAt)
		c.Record.SettledAt = fromMillis(settled)
		c.Record.DismissedAt = fromMillis(dismissed)
		c.Bookmarked = bookmarked != 0
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}
	return out, nil
}

// Counts returns the number of records per status.
func (s *Store) Counts(ctx context.Context) (map[Status]int, error) {
	rows, err := s.sql.QueryContext(ctx, `SELECT status, COUNT(*) FROM records GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}
	defer rows.Close()

	out := make(map[Status]int, len(validStatuses))
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		out[Status(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate counts: %w", err)
	}
	return out, nil
}
