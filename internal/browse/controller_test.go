package browse

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wichananm65/gift-finder/internal/gift"
)

type fetchFunc func(ctx context.Context, req gift.PageRequest) ([]gift.RawRecord, error)

func (f fetchFunc) Fetch(ctx context.Context, req gift.PageRequest) ([]gift.RawRecord, error) {
	return f(ctx, req)
}

type recordingSink struct {
	mu      sync.Mutex
	updates []Update
}

func (s *recordingSink) Publish(u Update) {
	s.mu.Lock()
	s.updates = append(s.updates, u)
	s.mu.Unlock()
}

func (s *recordingSink) kinds() []UpdateKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]UpdateKind, 0, len(s.updates))
	for _, u := range s.updates {
		out = append(out, u.Kind)
	}
	return out
}

func (s *recordingSink) clear() {
	s.mu.Lock()
	s.updates = nil
	s.mu.Unlock()
}

func wait(t *testing.T, c *Controller) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Wait(ctx))
}

func newTestController(t *testing.T, opts Options) *Controller {
	t.Helper()
	if opts.Features.Name == "" {
		opts.Features = ExtendedFeatures
	}
	c := NewController(opts)
	t.Cleanup(c.Close)
	return c
}

func TestController_StaleResponseDiscarded(t *testing.T) {
	gate := make(chan struct{})
	c := newTestController(t, Options{
		Fetcher: fetchFunc(func(ctx context.Context, req gift.PageRequest) ([]gift.RawRecord, error) {
			if req.Text == "old" {
				<-gate
				return []gift.RawRecord{rawItem("O", 1, gift.RawValue{}, etsy("O"))}, nil
			}
			return []gift.RawRecord{rawItem("N", 1, gift.RawValue{}, etsy("N"))}, nil
		}),
	})

	require.NoError(t, c.SubmitQuery("old"))
	require.NoError(t, c.SubmitQuery("new"))
	require.Eventually(t, func() bool { return c.Snapshot().State == StateFiltered }, time.Second, 5*time.Millisecond)

	close(gate)
	wait(t, c)

	snap := c.Snapshot()
	assert.Equal(t, StateFiltered, snap.State)
	assert.Equal(t, []string{"N"}, keys(snap.Items))
	assert.Equal(t, "new", snap.Filter.Query)
}

func TestController_FallbackToDefaultOnce(t *testing.T) {
	repo := gift.NewInMemoryRepository([]gift.RawRecord{
		rawItem("1", 5, gift.TextValue("$12"), etsy("1")),
	})
	c := newTestController(t, Options{
		Fetcher: repo,
		Inbound: &InboundConfig{Source: SourceURL, Query: "nothing matches this", Fallback: FallbackDefault},
	})

	require.NoError(t, c.Start())
	wait(t, c)

	snap := c.Snapshot()
	assert.Equal(t, StateDefault, snap.State)
	assert.True(t, snap.FallbackUsed)
	assert.Equal(t, NewFilterState(), snap.Filter)
	require.Len(t, snap.Sections, 1)
	assert.Equal(t, "mom", snap.Sections[0].Recipient)

	// the fallback fires once per session
	require.NoError(t, c.SubmitQuery("nothing matches this"))
	wait(t, c)
	snap = c.Snapshot()
	assert.Equal(t, StateEmpty, snap.State)
	assert.Empty(t, snap.Items)
	assert.False(t, snap.CanLoadMore)
}

func TestController_FallbackStaysArmedAfterNonEmptyInboundPage(t *testing.T) {
	repo := gift.NewInMemoryRepository([]gift.RawRecord{
		rawItem("1", 5, gift.TextValue("$12"), etsy("1")),
	})
	c := newTestController(t, Options{
		Fetcher: repo,
		Inbound: &InboundConfig{Source: SourceEmbed, Recipient: "mom", Fallback: FallbackDefault},
	})

	require.NoError(t, c.Start())
	wait(t, c)
	snap := c.Snapshot()
	assert.Equal(t, StateFiltered, snap.State)
	assert.Equal(t, []string{"1"}, keys(snap.Items))
	assert.False(t, snap.FallbackUsed)

	// a later empty first page still uses the unspent fallback
	require.NoError(t, c.SubmitQuery("no such gift"))
	wait(t, c)
	snap = c.Snapshot()
	assert.Equal(t, StateDefault, snap.State)
	assert.True(t, snap.FallbackUsed)
	assert.Equal(t, NewFilterState(), snap.Filter)

	require.NoError(t, c.SubmitQuery("no such gift"))
	wait(t, c)
	assert.Equal(t, StateEmpty, c.Snapshot().State)
}

func TestController_InboundThenResetRestoresInitialFilter(t *testing.T) {
	c := newTestController(t, Options{
		Fetcher: gift.NewInMemoryRepository(nil),
		Inbound: &InboundConfig{
			Source:    SourceEmbed,
			Recipient: "dad",
			Topic:     "outdoors",
			Category:  "tents",
			Providers: []gift.Provider{"etsy", "amazon"},
			Price:     PriceRange{Max: dec(60)},
		},
	})
	require.NoError(t, c.Start())
	wait(t, c)

	snap := c.Snapshot()
	assert.Equal(t, ViewFiltered, snap.ViewMode)
	assert.Equal(t, "dad", snap.Filter.Recipient)
	assert.Equal(t, "outdoors", snap.Filter.Topic)
	assert.Empty(t, snap.Filter.Category, "orphan category dropped")
	assert.Equal(t, []gift.Provider{gift.ProviderEtsy}, snap.Filter.Providers)
	assert.Equal(t, StateEmpty, snap.State)
	require.NotNil(t, snap.Inbound)

	require.NoError(t, c.Reset())
	wait(t, c)
	snap = c.Snapshot()
	assert.Equal(t, NewFilterState(), snap.Filter)
	assert.Equal(t, StateDefault, snap.State)
	assert.Equal(t, ViewDefault, snap.ViewMode)
}

func TestController_PaginationEndToEnd(t *testing.T) {
	repo := gift.NewInMemoryRepository([]gift.RawRecord{
		rawItem("A", 9, gift.TextValue("$10"), etsy("A")),
		rawItem("B", 8, gift.TextValue("bad data"), etsy("B")),
	})
	c := newTestController(t, Options{
		Fetcher:  repo,
		Features: ExtendedFeatures.WithPageSize(2),
	})

	require.NoError(t, c.SetPriceRange(dec(0), dec(100)))
	wait(t, c)

	snap := c.Snapshot()
	assert.Equal(t, StateFiltered, snap.State)
	assert.Equal(t, []string{"A"}, keys(snap.Items))
	assert.True(t, snap.HasMore)
	assert.True(t, snap.CanLoadMore)
	assert.Equal(t, 1, snap.Filter.Page)

	started, err := c.LoadMore()
	require.NoError(t, err)
	assert.True(t, started)
	wait(t, c)

	snap = c.Snapshot()
	assert.Equal(t, StateFiltered, snap.State)
	assert.Equal(t, []string{"A"}, keys(snap.Items))
	assert.False(t, snap.HasMore)
	assert.False(t, snap.CanLoadMore)

	started, err = c.LoadMore()
	require.NoError(t, err)
	assert.False(t, started, "no more pages")
}

func TestController_ErrorThenRetryKeepsItems(t *testing.T) {
	var mu sync.Mutex
	failed := false
	c := newTestController(t, Options{
		Features: ExtendedFeatures.WithPageSize(1),
		Fetcher: fetchFunc(func(ctx context.Context, req gift.PageRequest) ([]gift.RawRecord, error) {
			switch req.Offset {
			case 0:
				return []gift.RawRecord{rawItem("A", 2, gift.RawValue{}, etsy("A"))}, nil
			case 1:
				mu.Lock()
				defer mu.Unlock()
				if !failed {
					failed = true
					return nil, errors.New("connection reset")
				}
				return []gift.RawRecord{rawItem("B", 1, gift.RawValue{}, etsy("B"))}, nil
			}
			return nil, nil
		}),
	})

	require.NoError(t, c.SubmitQuery("lamp"))
	wait(t, c)
	_, err := c.LoadMore()
	require.NoError(t, err)
	wait(t, c)

	snap := c.Snapshot()
	assert.Equal(t, StateError, snap.State)
	assert.Equal(t, "Unable to load items. Please try again.", snap.Error)
	assert.Equal(t, []string{"A"}, keys(snap.Items))
	assert.False(t, snap.CanLoadMore)
	assert.Equal(t, 1, snap.Filter.Page, "cursor not advanced by the failure")

	started, err := c.LoadMore()
	require.NoError(t, err)
	assert.False(t, started)

	started, err = c.Retry()
	require.NoError(t, err)
	assert.True(t, started)
	wait(t, c)

	snap = c.Snapshot()
	assert.Equal(t, StateFiltered, snap.State)
	assert.Empty(t, snap.Error)
	assert.Equal(t, []string{"A", "B"}, keys(snap.Items))

	started, err = c.Retry()
	require.NoError(t, err)
	assert.False(t, started, "retry outside the error state is a no-op")
}

func TestController_LoadMoreIgnoredWhileLoading(t *testing.T) {
	gate := make(chan struct{})
	var mu sync.Mutex
	calls := map[int]int{}
	c := newTestController(t, Options{
		Features: ExtendedFeatures.WithPageSize(1),
		Fetcher: fetchFunc(func(ctx context.Context, req gift.PageRequest) ([]gift.RawRecord, error) {
			mu.Lock()
			calls[req.Offset]++
			mu.Unlock()
			if req.Offset == 1 {
				<-gate
			}
			id := string(rune('A' + req.Offset))
			return []gift.RawRecord{rawItem(id, 1, gift.RawValue{}, etsy(id))}, nil
		}),
	})

	require.NoError(t, c.SetFacet(FacetRecipient, "friend"))
	wait(t, c)

	started, err := c.LoadMore()
	require.NoError(t, err)
	assert.True(t, started)

	started, err = c.LoadMore()
	require.NoError(t, err)
	assert.False(t, started)
	snap := c.Snapshot()
	assert.True(t, snap.Loading)
	assert.False(t, snap.CanLoadMore)

	close(gate)
	wait(t, c)

	mu.Lock()
	assert.Equal(t, 1, calls[1])
	mu.Unlock()
	assert.Equal(t, []string{"A", "B"}, keys(c.Snapshot().Items))
}

func TestController_TypeQueryDebounces(t *testing.T) {
	var mu sync.Mutex
	var texts []string
	c := newTestController(t, Options{
		Debounce: 20 * time.Millisecond,
		Fetcher: fetchFunc(func(ctx context.Context, req gift.PageRequest) ([]gift.RawRecord, error) {
			mu.Lock()
			texts = append(texts, req.Text)
			mu.Unlock()
			return nil, nil
		}),
	})

	for _, s := range []string{"m", "mu", "mug"} {
		sugg, err := c.TypeQuery(s)
		require.NoError(t, err)
		require.NotEmpty(t, sugg)
		assert.Equal(t, SuggestionSearch, sugg[len(sugg)-1].Type)
	}
	wait(t, c)

	mu.Lock()
	assert.Equal(t, []string{"mug"}, texts)
	mu.Unlock()
	assert.Equal(t, "mug", c.Snapshot().Filter.Query)

	// an immediate submit supersedes a pending keystroke
	_, err := c.TypeQuery("mugs")
	require.NoError(t, err)
	require.NoError(t, c.SubmitQuery("cups"))
	wait(t, c)
	time.Sleep(40 * time.Millisecond)

	mu.Lock()
	assert.Equal(t, []string{"mug", "cups"}, texts)
	mu.Unlock()
}

func TestController_BasicVariantRejectsExtendedFeatures(t *testing.T) {
	c := newTestController(t, Options{
		Fetcher:  gift.NewInMemoryRepository(nil),
		Features: BasicFeatures,
		Inbound:  &InboundConfig{Source: SourceURL, Recipient: "mom"},
	})
	require.NoError(t, c.Start())
	wait(t, c)
	assert.Equal(t, ViewDefault, c.Snapshot().ViewMode, "inbound config ignored")

	assert.ErrorIs(t, c.SetPriceRange(dec(1), dec(2)), ErrFeatureDisabled)
	assert.ErrorIs(t, c.SetProviders([]gift.Provider{gift.ProviderEbay}), ErrFeatureDisabled)
	assert.ErrorIs(t, c.SelectSuggestion(Suggestion{Value: "Mugs"}), ErrFeatureDisabled)

	sugg, err := c.TypeQuery("mug")
	require.NoError(t, err)
	assert.Empty(t, sugg)
	assert.Equal(t, "basic", c.Snapshot().Variant)
}

func TestController_SinkUpdateKinds(t *testing.T) {
	sink := &recordingSink{}
	c := newTestController(t, Options{
		Sink:     sink,
		Features: ExtendedFeatures.WithPageSize(1),
		Fetcher: fetchFunc(func(ctx context.Context, req gift.PageRequest) ([]gift.RawRecord, error) {
			if !req.StrictJoin || req.Offset > 1 {
				return nil, nil
			}
			id := string(rune('A' + req.Offset))
			return []gift.RawRecord{rawItem(id, 1, gift.RawValue{}, etsy(id))}, nil
		}),
	})

	require.NoError(t, c.SubmitQuery("vase"))
	wait(t, c)
	assert.Equal(t, []UpdateKind{UpdateState, UpdateReplace}, sink.kinds())

	sink.clear()
	_, err := c.LoadMore()
	require.NoError(t, err)
	wait(t, c)
	assert.Equal(t, []UpdateKind{UpdateState, UpdateAppend}, sink.kinds())

	sink.clear()
	require.NoError(t, c.Reset())
	wait(t, c)
	assert.Equal(t, []UpdateKind{UpdateState, UpdateDefaultView}, sink.kinds())
}

func TestController_InvalidInputsAndClose(t *testing.T) {
	c := newTestController(t, Options{Fetcher: gift.NewInMemoryRepository(nil)})

	assert.ErrorIs(t, c.SetFacet(FacetCategory, "mugs"), ErrOrphanFacet)
	assert.ErrorIs(t, c.SetFacet("colour", "red"), ErrUnknownFacet)
	assert.ErrorIs(t, c.OpenRecipientFeed("uncle"), ErrInvalidRecipient)
	assert.ErrorIs(t, c.SetProviders(nil), ErrNoProvider)
	assert.ErrorIs(t, c.SetPriceRange(dec(-1), dec(5)), ErrNegativePrice)

	c.Close()
	assert.ErrorIs(t, c.SubmitQuery("x"), ErrClosed)
	_, err := c.LoadMore()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestController_OpenRecipientFeedKeepsPriceAndProviders(t *testing.T) {
	c := newTestController(t, Options{Fetcher: gift.NewInMemoryRepository(nil)})

	require.NoError(t, c.SetProviders([]gift.Provider{gift.ProviderEbay}))
	require.NoError(t, c.SetPriceRange(dec(5), dec(15)))
	require.NoError(t, c.SubmitQuery("scarf"))
	require.NoError(t, c.SetFacet(FacetGender, "female"))
	wait(t, c)

	require.NoError(t, c.OpenRecipientFeed("sister"))
	wait(t, c)

	f := c.Snapshot().Filter
	assert.Equal(t, "sister", f.Recipient)
	assert.Empty(t, f.Query)
	assert.Empty(t, f.Gender)
	assert.Equal(t, []gift.Provider{gift.ProviderEbay}, f.Providers)
	assert.True(t, f.Price.Min.Decimal.Equal(dec(5).Decimal))
}
