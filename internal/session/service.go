package session

import (
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wichananm65/gift-finder/internal/browse"
	"github.com/wichananm65/gift-finder/internal/gift"
	"github.com/wichananm65/gift-finder/internal/logging"
	"github.com/wichananm65/gift-finder/internal/taxonomy"
)

// Settings are the engine defaults applied to every new session.
type Settings struct {
	Variant          string
	PageSize         int
	DefaultViewLimit int
	SuggestionLimit  int
	Debounce         time.Duration
}

type Service struct {
	registry *Registry
	fetcher  gift.Fetcher
	index    *taxonomy.Index
	settings Settings
	logger   *zap.Logger
}

func NewService(registry *Registry, fetcher gift.Fetcher, index *taxonomy.Index, settings Settings, logger *zap.Logger) *Service {
	if index == nil {
		index = taxonomy.Empty()
	}
	return &Service{registry: registry, fetcher: fetcher, index: index, settings: settings, logger: logging.OrNop(logger)}
}

// Create starts a session. The URL parameters take precedence over the embed
// attributes; only one of them is applied.
func (s *Service) Create(variant string, query url.Values, embed map[string]string) (string, *browse.Controller, error) {
	if variant == "" {
		variant = s.settings.Variant
	}
	id := uuid.NewString()
	logger := s.logger.With(zap.String("session_id", id))

	c := browse.NewController(browse.Options{
		Fetcher:          s.fetcher,
		Taxonomy:         s.index,
		Features:         browse.FeaturesFor(variant).WithPageSize(s.settings.PageSize),
		DefaultViewLimit: s.settings.DefaultViewLimit,
		Debounce:         s.settings.Debounce,
		SuggestionLimit:  s.settings.SuggestionLimit,
		Inbound:          browse.ResolveInbound(browse.ParseURLQuery(query), browse.ParseEmbed(embed)),
		Sink:             updateLogger(logger),
		Logger:           logger,
	})
	if err := c.Start(); err != nil {
		return "", nil, err
	}
	s.registry.Add(id, c)
	logger.Info("session created", zap.String("variant", variant), zap.Int("sessions", s.registry.Len()))
	return id, c, nil
}

func (s *Service) Get(id string) (*browse.Controller, error) {
	return s.registry.Get(id)
}

func (s *Service) Delete(id string) error {
	return s.registry.Remove(id)
}

// Suggest answers a stateless suggestion lookup.
func (s *Service) Suggest(text string, limit int) []browse.Suggestion {
	if limit <= 0 {
		limit = s.settings.SuggestionLimit
	}
	return browse.Suggest(text, s.index, limit)
}

func updateLogger(logger *zap.Logger) browse.Sink {
	return browse.SinkFunc(func(u browse.Update) {
		logger.Debug("session update",
			zap.String("kind", string(u.Kind)),
			zap.String("state", string(u.State)),
			zap.Int("items", len(u.Items)),
			zap.Int("sections", len(u.Sections)),
			zap.Bool("has_more", u.HasMore),
		)
	})
}
