package session

import (
	"errors"
	"testing"

	"github.com/wichananm65/gift-finder/internal/browse"
	"github.com/wichananm65/gift-finder/internal/gift"
)

func newIdleController() *browse.Controller {
	return browse.NewController(browse.Options{Fetcher: gift.NewInMemoryRepository(nil)})
}

func TestRegistry_EvictionClosesSession(t *testing.T) {
	r, err := NewRegistry(2, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a, b, c := newIdleController(), newIdleController(), newIdleController()
	r.Add("a", a)
	r.Add("b", b)
	if _, err := r.Get("a"); err != nil {
		t.Fatalf("expected a to be present: %v", err)
	}
	// b is now the least recently used
	r.Add("c", c)

	if r.Len() != 2 {
		t.Fatalf("expected 2 sessions, got %d", r.Len())
	}
	if _, err := r.Get("b"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected b to be evicted, got %v", err)
	}
	if err := b.SubmitQuery("mug"); !errors.Is(err, browse.ErrClosed) {
		t.Fatalf("expected evicted session to be closed, got %v", err)
	}
	if err := a.SubmitQuery("mug"); err != nil {
		t.Fatalf("expected a to stay open, got %v", err)
	}
	r.Purge()
}

func TestRegistry_Remove(t *testing.T) {
	r, err := NewRegistry(4, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctrl := newIdleController()
	r.Add("x", ctrl)

	if err := r.Remove("x"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Remove("x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := ctrl.Reset(); !errors.Is(err, browse.ErrClosed) {
		t.Fatalf("expected removed session to be closed, got %v", err)
	}
}

func TestNewRegistry_RejectsZeroSize(t *testing.T) {
	if _, err := NewRegistry(0, nil); err == nil {
		t.Fatalf("expected error for size 0")
	}
}
