package store

import "errors"

// ErrDuplicateKey reports a record whose (item id, scheduled at) pair already exists.
var ErrDuplicateKey = errors.New("duplicate schedule key")

// ErrNotFound reports a missing record or item.
var ErrNotFound = errors.New("not found")

// ErrEmptyPredicate reports a DeleteWhere call without any condition.
var ErrEmptyPredicate = errors.New("empty delete predicate")
