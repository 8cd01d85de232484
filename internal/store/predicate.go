package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Predicate selects records for bulk deletion. All set conditions must hold.
type Predicate struct {
	// Statuses restricts the match to records in one of these statuses.
	Statuses []Status
	// ScheduledBefore matches records scheduled strictly before this time.
	ScheduledBefore time.Time
	// SettledBefore matches terminal records settled strictly before this time.
	SettledBefore time.Time
	// ItemID restricts the match to one item.
	ItemID string
}

func (p Predicate) empty() bool {
	return len(p.Statuses) == 0 && p.ScheduledBefore.IsZero() && p.SettledBefore.IsZero() && p.ItemID == ""
}

func (p Predicate) where() (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if len(p.Statuses) > 0 {
		clause, statusArgs := inStatuses(p.Statuses)
		clauses = append(clauses, clause)
		args = append(args, statusArgs...)
	}
	if !p.ScheduledBefore.IsZero() {
		clauses = append(clauses, "scheduled_at < ?")
		args = append(args, toMillis(p.ScheduledBefore))
	}
	if !p.SettledBefore.IsZero() {
		clauses = append(clauses, "settled_at > 0 AND settled_at < ?")
		args = append(args, toMillis(p.SettledBefore))
	}
	if p.ItemID != "" {
		clauses = append(clauses, "item_id = ?")
		args = append(args, p.ItemID)
	}
	return strings.Join(clauses, " AND "), args
}

// DeleteWhere removes every record matching p and returns how many were
// deleted. An empty predicate is rejected with ErrEmptyPredicate.
func (s *Store) DeleteWhere(ctx context.Context, p Predicate) (int, error) {
	if p.empty() {
		return 0, ErrEmptyPredicate
	}
	where, args := p.where()
	res, err := s.sql.ExecContext(ctx, `DELETE FROM records WHERE `+where, args...)
	if err != nil {
		return 0, fmt.Errorf("delete records: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete records: %w", err)
	}
	return int(n), nil
}
