package browse

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/wichananm65/gift-finder/internal/gift"
	"github.com/wichananm65/gift-finder/internal/taxonomy"
	"github.com/wichananm65/gift-finder/internal/trending"
)

// State is the session's position in the browse state machine.
type State string

const (
	StateDefault  State = "default"
	StateLoading  State = "loading"
	StateFiltered State = "filtered"
	StateEmpty    State = "empty"
	StateError    State = "error"
)

// ErrClosed is returned by operations on a closed controller.
var ErrClosed = errors.New("session closed")

const (
	DefaultDebounce = 500 * time.Millisecond
	loadErrorText   = "Unable to load items. Please try again."
)

// UpdateKind tells a Sink how to apply an Update.
type UpdateKind string

const (
	// UpdateReplace carries the first page of a filtered session.
	UpdateReplace UpdateKind = "replace"
	// UpdateAppend carries the items a later page added.
	UpdateAppend UpdateKind = "append"
	// UpdateDefaultView carries a freshly built default view.
	UpdateDefaultView UpdateKind = "default_view"
	// UpdateState reports a state change without new items.
	UpdateState UpdateKind = "state"
)

// Update is published after every settled change.
type Update struct {
	Kind     UpdateKind         `json:"kind"`
	State    State              `json:"state"`
	Items    []gift.Item        `json:"items,omitempty"`
	Sections []trending.Section `json:"sections,omitempty"`
	HasMore  bool               `json:"hasMore"`
}

// Sink receives updates. Publish is called with the controller locked and
// must not call back into the controller.
type Sink interface {
	Publish(Update)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Update)

func (f SinkFunc) Publish(u Update) { f(u) }

// Options configures a Controller.
type Options struct {
	Fetcher          gift.Fetcher
	Taxonomy         *taxonomy.Index
	Features         Features
	DefaultViewLimit int
	Debounce         time.Duration
	SuggestionLimit  int
	Inbound          *InboundConfig
	Sink             Sink
	Logger           *zap.Logger
}

// Snapshot is the rendering state of a session.
type Snapshot struct {
	State        State              `json:"state"`
	ViewMode     string             `json:"viewMode"`
	Variant      string             `json:"variant"`
	Loading      bool               `json:"loading"`
	HasMore      bool               `json:"hasMore"`
	CanLoadMore  bool               `json:"canLoadMore"`
	Label        string             `json:"label"`
	Items        []gift.Item        `json:"items"`
	Sections     []trending.Section `json:"sections"`
	Error        string             `json:"error,omitempty"`
	Filter       FilterState        `json:"filter"`
	Inbound      *InboundConfig     `json:"inbound,omitempty"`
	FallbackUsed bool               `json:"fallbackUsed"`
}

// Controller owns one browsing session: its filter, its accumulated results
// and every fetch made on its behalf. Each operation runs to completion under
// the controller's lock; fetch results are applied only if the session has
// not moved to a newer generation in the meantime.
type Controller struct {
	mu sync.Mutex

	fetcher         gift.Fetcher
	index           *taxonomy.Index
	features        Features
	defaultView     *trending.Loader
	debounce        *Debouncer
	suggestionLimit int
	sink            Sink
	logger          *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	filter   FilterState
	acc      *Accumulator
	state    State
	sections []trending.Section
	lastErr  error

	generation uint64
	loading    bool
	inflight   int
	idle       chan struct{}

	started        bool
	closed         bool
	inbound        *InboundConfig
	inboundApplied bool
	fallbackArmed  bool
	fallbackUsed   bool
}

func NewController(opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	features := opts.Features
	if features.PageSize <= 0 {
		features = features.WithPageSize(ExtendedFeatures.PageSize)
	}
	delay := opts.Debounce
	if delay <= 0 {
		delay = DefaultDebounce
	}
	index := opts.Taxonomy
	if index == nil {
		index = taxonomy.Empty()
	}
	sink := opts.Sink
	if sink == nil {
		sink = SinkFunc(func(Update) {})
	}

	ctx, cancel := context.WithCancel(context.Background())
	idle := make(chan struct{})
	close(idle)

	return &Controller{
		fetcher:         opts.Fetcher,
		index:           index,
		features:        features,
		defaultView:     trending.NewLoader(opts.Fetcher, opts.DefaultViewLimit, logger),
		debounce:        NewDebouncer(delay),
		suggestionLimit: opts.SuggestionLimit,
		sink:            sink,
		logger:          logger,
		ctx:             ctx,
		cancel:          cancel,
		filter:          NewFilterState(),
		acc:             NewAccumulator(),
		state:           StateDefault,
		idle:            idle,
		inbound:         opts.Inbound,
	}
}

// Start applies the inbound configuration, if any, or loads the default view.
// Only the first call has an effect.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.started {
		return nil
	}
	c.started = true

	if c.features.InboundConfig && c.inbound != nil && !c.inboundApplied {
		c.inboundApplied = true
		c.applyInboundLocked(c.inbound)
		if c.filter.IsFiltering() {
			c.startFilteredLocked()
			return nil
		}
	}
	c.enterDefaultLocked()
	return nil
}

// SetFacet changes one facet and reloads.
func (c *Controller) SetFacet(name, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	changed, err := c.filter.SetFacet(name, value)
	if err != nil || !changed {
		return err
	}
	c.afterMutationLocked()
	return nil
}

// SetPriceRange changes the price bounds and reloads.
func (c *Controller) SetPriceRange(lo, hi decimal.NullDecimal) error {
	if !c.features.PriceFilter {
		return ErrFeatureDisabled
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	changed, err := c.filter.SetPriceRange(lo, hi)
	if err != nil || !changed {
		return err
	}
	c.afterMutationLocked()
	return nil
}

// SetProviders changes the marketplace selection and reloads.
func (c *Controller) SetProviders(providers []gift.Provider) error {
	if !c.features.ProviderFilter {
		return ErrFeatureDisabled
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	changed, err := c.filter.SetProviders(providers)
	if err != nil || !changed {
		return err
	}
	c.afterMutationLocked()
	return nil
}

// SubmitQuery sets the free-text query right away, dropping any pending
// debounced one.
func (c *Controller) SubmitQuery(text string) error {
	c.debounce.Cancel()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if !c.filter.SetQuery(text) {
		return nil
	}
	c.afterMutationLocked()
	return nil
}

// TypeQuery handles one keystroke: it returns fresh suggestions and schedules
// the query to be submitted after the debounce delay.
func (c *Controller) TypeQuery(text string) ([]Suggestion, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.mu.Unlock()

	c.debounce.Schedule(func() {
		if err := c.SubmitQuery(text); err != nil && !errors.Is(err, ErrClosed) {
			c.logger.Warn("debounced query failed", zap.Error(err))
		}
	})
	if !c.features.Suggestions {
		return []Suggestion{}, nil
	}
	return Suggest(text, c.index, c.suggestionLimit), nil
}

// SelectSuggestion behaves as submitting the suggestion's value as the query.
func (c *Controller) SelectSuggestion(s Suggestion) error {
	if !c.features.Suggestions {
		return ErrFeatureDisabled
	}
	return c.SubmitQuery(s.Value)
}

// OpenRecipientFeed shows the full filtered feed of one recipient, keeping
// only the price and provider selection.
func (c *Controller) OpenRecipientFeed(recipient string) error {
	if !trending.IsRecipient(recipient) {
		return ErrInvalidRecipient
	}
	c.debounce.Cancel()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	next := NewFilterState()
	next.Providers = append([]gift.Provider{}, c.filter.Providers...)
	next.Price = c.filter.Price
	next.Recipient = recipient
	c.filter = next
	c.startFilteredLocked()
	return nil
}

// LoadMore fetches the next page. It is a no-op while a fetch is in flight,
// when no more pages exist, or outside the filtered view.
func (c *Controller) LoadMore() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false, ErrClosed
	}
	if c.loading || !c.filter.HasMore || c.state != StateFiltered {
		return false, nil
	}
	c.fetchPageLocked()
	return true, nil
}

// Retry re-runs the failed fetch with the same page cursor.
func (c *Controller) Retry() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false, ErrClosed
	}
	if c.state != StateError || c.loading {
		return false, nil
	}
	c.logger.Info("retrying page", zap.Int("page", c.filter.Page), zap.NamedError("last_error", c.lastErr))
	c.fetchPageLocked()
	return true, nil
}

// Reset returns to the default view with a fresh filter.
func (c *Controller) Reset() error {
	c.debounce.Cancel()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.resetLocked()
	return nil
}

// Snapshot returns the current rendering state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		State:        c.state,
		ViewMode:     c.filter.ViewMode(),
		Variant:      c.features.Name,
		Loading:      c.loading,
		HasMore:      c.filter.HasMore,
		Label:        Label(c.filter),
		Items:        c.acc.Items(),
		Sections:     []trending.Section{},
		Filter:       c.filter.Clone(),
		FallbackUsed: c.fallbackUsed,
	}
	if c.inboundApplied {
		s.Inbound = c.inbound
	}
	if c.state == StateDefault {
		s.Sections = append(s.Sections, c.sections...)
	}
	s.CanLoadMore = c.state == StateFiltered && !c.loading && c.filter.HasMore && len(s.Items) > 0
	if c.state == StateError {
		s.Error = loadErrorText
	}
	return s
}

// Wait blocks until no fetch is in flight and no debounced query is pending.
func (c *Controller) Wait(ctx context.Context) error {
	for {
		c.mu.Lock()
		idle := c.idle
		busy := c.inflight > 0
		c.mu.Unlock()

		if !busy && !c.debounce.Pending() {
			return nil
		}
		if busy {
			select {
			case <-idle:
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}
		select {
		case <-time.After(10 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close stops the debouncer, cancels in-flight fetches and discards their
// results.
func (c *Controller) Close() {
	c.debounce.Stop()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.generation++
	c.cancel()
}

func (c *Controller) applyInboundLocked(cfg *InboundConfig) {
	f := NewFilterState()
	set := func(name, value string) {
		if value == "" {
			return
		}
		if _, err := f.SetFacet(name, value); err != nil {
			c.logger.Warn("inbound facet ignored", zap.String("source", cfg.Source), zap.String("facet", name), zap.Error(err))
		}
	}
	set(FacetRecipient, cfg.Recipient)
	set(FacetTopic, cfg.Topic)
	set(FacetArea, cfg.Area)
	set(FacetCategory, cfg.Category)

	if c.features.ProviderFilter && len(cfg.Providers) > 0 {
		known := make([]gift.Provider, 0, len(cfg.Providers))
		for _, p := range cfg.Providers {
			if p.Label() != "" {
				known = append(known, p)
			}
		}
		if len(known) > 0 {
			_, _ = f.SetProviders(known)
		}
	}
	if c.features.PriceFilter && cfg.Price.Active() {
		if _, err := f.SetPriceRange(cfg.Price.Min, cfg.Price.Max); err != nil {
			c.logger.Warn("inbound price ignored", zap.String("source", cfg.Source), zap.Error(err))
		}
	}
	f.SetQuery(cfg.Query)

	c.filter = f
	c.fallbackArmed = cfg.FallsBackToDefault()
	c.logger.Info("inbound configuration applied", zap.String("source", cfg.Source), zap.Bool("filtering", f.IsFiltering()))
}

func (c *Controller) afterMutationLocked() {
	if c.filter.IsFiltering() {
		c.startFilteredLocked()
		return
	}
	c.enterDefaultLocked()
}

func (c *Controller) resetLocked() {
	c.filter.Reset()
	c.acc.Reset()
	c.lastErr = nil
	c.enterDefaultLocked()
}

// enterDefaultLocked switches to the default view and rebuilds it in full.
func (c *Controller) enterDefaultLocked() {
	c.generation++
	gen := c.generation
	c.acc.Reset()
	c.filter.Page, c.filter.HasMore = 0, false
	c.state = StateDefault
	c.lastErr = nil
	c.loading = true
	c.publishLocked(Update{Kind: UpdateState, State: c.state})

	c.goLocked(func(ctx context.Context) {
		view := c.defaultView.Load(ctx)

		c.mu.Lock()
		defer c.mu.Unlock()
		if gen != c.generation {
			c.logger.Debug("stale default view discarded", zap.Uint64("generation", gen))
			return
		}
		c.loading = false
		c.sections = view.Sections
		c.publishLocked(Update{Kind: UpdateDefaultView, State: c.state, Sections: view.Sections})
	})
}

// startFilteredLocked begins a new filtered session at page zero.
func (c *Controller) startFilteredLocked() {
	c.generation++
	c.acc.Reset()
	c.filter.Page, c.filter.HasMore = 0, false
	c.fetchPageLocked()
}

func (c *Controller) fetchPageLocked() {
	gen := c.generation
	page := c.filter.Page
	filter := c.filter.Clone()
	req := BuildPageRequest(filter, c.features.PageSize)

	c.state = StateLoading
	c.loading = true
	c.publishLocked(Update{Kind: UpdateState, State: c.state, HasMore: c.filter.HasMore})

	c.goLocked(func(ctx context.Context) {
		raw, err := c.fetcher.Fetch(ctx, req)
		c.completePage(gen, page, raw, err)
	})
}

func (c *Controller) completePage(gen uint64, page int, raw []gift.RawRecord, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation || c.closed {
		c.logger.Debug("stale page discarded", zap.Uint64("generation", gen), zap.Int("page", page))
		return
	}
	c.loading = false

	if err != nil {
		c.state = StateError
		c.lastErr = err
		c.logger.Error("page fetch failed", zap.Int("page", page), zap.Error(err))
		c.publishLocked(Update{Kind: UpdateState, State: c.state, HasMore: c.filter.HasMore})
		return
	}

	res := Reconcile(raw, c.filter, c.acc, c.features.PageSize)
	c.logger.Debug("page reconciled",
		zap.Int("page", page),
		zap.Int("raw", res.RawCount),
		zap.Int("added", len(res.Added)),
		zap.Int("dropped_malformed", res.Dropped.Malformed),
		zap.Int("dropped_duplicate", res.Dropped.Duplicate),
		zap.Int("dropped_price", res.Dropped.Price),
		zap.Int("dropped_provider", res.Dropped.Provider),
		zap.Int("bad_images", res.BadImages),
	)

	if page == 0 && res.Empty() && c.fallbackArmed && !c.fallbackUsed {
		c.fallbackUsed = true
		c.logger.Warn("pre-filtered session returned no items, falling back to default view")
		c.resetLocked()
		return
	}

	c.lastErr = nil
	c.filter.HasMore = res.HasMore
	c.filter.Page = page + 1
	c.state = StateFiltered
	if c.acc.Len() == 0 {
		c.state = StateEmpty
	}

	kind := UpdateAppend
	if page == 0 {
		kind = UpdateReplace
	}
	c.publishLocked(Update{Kind: kind, State: c.state, Items: res.Added, HasMore: res.HasMore})
}

// goLocked runs fn in its own goroutine and tracks it for Wait.
func (c *Controller) goLocked(fn func(ctx context.Context)) {
	if c.inflight == 0 {
		c.idle = make(chan struct{})
	}
	c.inflight++
	ctx := c.ctx
	go func() {
		defer func() {
			c.mu.Lock()
			c.inflight--
			if c.inflight == 0 {
				close(c.idle)
			}
			c.mu.Unlock()
		}()
		fn(ctx)
	}()
}

func (c *Controller) publishLocked(u Update) {
	c.sink.Publish(u)
}
