package gift

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// InMemoryRepository is a simple in-memory Fetcher useful for tests and
// seeding local data.
type InMemoryRepository struct {
	mu      sync.RWMutex
	storage []RawRecord
}

func NewInMemoryRepository(seed []RawRecord) *InMemoryRepository {
	r := &InMemoryRepository{storage: make([]RawRecord, 0, len(seed))}
	r.storage = append(r.storage, seed...)
	return r
}

// Reset replaces the whole in-memory storage with the provided records.
func (r *InMemoryRepository) Reset(records []RawRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.storage = make([]RawRecord, 0, len(records))
	r.storage = append(r.storage, records...)
}

func (r *InMemoryRepository) Fetch(ctx context.Context, req PageRequest) ([]RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]RawRecord, 0, len(r.storage))
	for _, rec := range r.storage {
		ok, err := matches(rec, req)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, rec)
		}
	}

	for _, o := range req.Order {
		if o.Field != FieldScore && o.Field != FieldCreatedAt {
			return nil, fmt.Errorf("%w: order by %s", ErrUnsupportedField, o.Field)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		for _, o := range req.Order {
			c := compareField(matched[i], matched[j], o.Field)
			if c == 0 {
				continue
			}
			if o.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})

	if req.Offset >= len(matched) || req.Limit <= 0 {
		return []RawRecord{}, nil
	}
	end := req.Offset + req.Limit
	if end > len(matched) {
		end = len(matched)
	}
	out := make([]RawRecord, end-req.Offset)
	copy(out, matched[req.Offset:end])
	return out, nil
}

func matches(rec RawRecord, req PageRequest) (bool, error) {
	if req.StrictJoin && rec.Detail == nil {
		return false, nil
	}
	for _, p := range req.Equals {
		var v string
		switch p.Field {
		case FieldRecipient:
			v = rec.Recipient
		case FieldTopic:
			v = rec.Cluster
		case FieldArea:
			v = rec.SubCluster
		case FieldCategory:
			v = rec.Category
		default:
			return false, fmt.Errorf("%w: %s", ErrUnsupportedField, p.Field)
		}
		if v != p.Value {
			return false, nil
		}
	}
	if req.Text == "" {
		return true, nil
	}
	if rec.Detail == nil {
		return false, nil
	}
	needle := strings.ToLower(req.Text)
	for _, f := range req.TextFields {
		var hay string
		switch f {
		case FieldTitle:
			hay = rec.Detail.Title
		case FieldLocalTitle:
			hay = rec.Detail.LocalTitle
		case FieldDescription:
			hay = rec.Detail.Description
		default:
			return false, fmt.Errorf("%w: %s", ErrUnsupportedField, f)
		}
		if strings.Contains(strings.ToLower(hay), needle) {
			return true, nil
		}
	}
	return false, nil
}

func compareField(a, b RawRecord, field string) int {
	switch field {
	case FieldScore:
		x, _ := a.Score.Float()
		y, _ := b.Score.Float()
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	default:
		return strings.Compare(a.CreatedAt, b.CreatedAt)
	}
}
