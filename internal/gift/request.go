package gift

import (
	"context"
	"errors"
)

// Remote field names of the scored-items view and its detail relation.
const (
	FieldRecipient   = "recipient"
	FieldTopic       = "cluster"
	FieldArea        = "sub_cluster"
	FieldCategory    = "category"
	FieldScore       = "current_score"
	FieldCreatedAt   = "created_at"
	FieldTitle       = "title"
	FieldLocalTitle  = "local_title"
	FieldDescription = "description"
)

// ErrUnsupportedField is returned by a Fetcher asked to filter or sort on a
// field it does not expose.
var ErrUnsupportedField = errors.New("unsupported query field")

// Predicate is an equality filter on the scored-items view.
type Predicate struct {
	Field string
	Value string
}

// OrderBy is one sort key.
type OrderBy struct {
	Field string
	Desc  bool
}

// PageRequest describes one paginated read over the scored-items view joined
// to item detail. Text, when set, matches case-insensitively as a substring
// of any of TextFields. StrictJoin excludes rows without detail; otherwise
// they come back with a nil Detail.
type PageRequest struct {
	Equals     []Predicate
	Text       string
	TextFields []string
	Order      []OrderBy
	Offset     int
	Limit      int
	StrictJoin bool
}

// RangeEnd is the inclusive index of the last row of the window.
func (r PageRequest) RangeEnd() int {
	return r.Offset + r.Limit - 1
}

// Fetcher reads pages of raw records from the remote data store.
type Fetcher interface {
	Fetch(ctx context.Context, req PageRequest) ([]RawRecord, error)
}
