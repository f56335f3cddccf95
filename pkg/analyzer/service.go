package analyzer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/nexus/pkg/bus"
	"github.com/platinummonkey/nexus/pkg/cache"
	"github.com/platinummonkey/nexus/pkg/config"
	"github.com/platinummonkey/nexus/pkg/dependencies"
	"github.com/platinummonkey/nexus/pkg/observability"
	"github.com/platinummonkey/nexus/pkg/quality"
	"github.com/platinummonkey/nexus/pkg/storage"
)

// Option configures a Service
type Option func(*Service)

// WithLogger sets the logger
func WithLogger(log *logrus.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMetrics sets the Prometheus metrics the service records into
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithTracerProvider sets the provider handler spans are created from
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) {
		if tp != nil {
			s.tracer = tp.Tracer(observability.TracerName)
		}
	}
}

// WithClock overrides the time source for record timestamps and cache ages
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMaxCacheEntries bounds the number of cached analyses
func WithMaxCacheEntries(n int) Option {
	return func(s *Service) {
		s.maxEntries = n
	}
}

// Service is one analyzer instance. It owns the module store and the
// analysis cache and is the only object registered against the bus.
type Service struct {
	bus    bus.Bus
	topics config.Topics

	store  *storage.MemoryStore
	cache  *cache.Layer[analysis]
	engine *dependencies.Engine

	log        *logrus.Logger
	metrics    *observability.Metrics
	tracer     trace.Tracer
	now        func() time.Time
	maxEntries int

	started bool
	mu      sync.Mutex
}

// New creates a service bound to b. A nil cfg uses the defaults.
func New(b bus.Bus, cfg *config.Config, opts ...Option) (*Service, error) {
	if b == nil {
		return nil, fmt.Errorf("bus is required")
	}
	if cfg == nil {
		cfg = config.Defaults()
	}

	s := &Service{
		bus:    b,
		topics: cfg.Mycelium.Topics,
		log:    logrus.StandardLogger(),
		tracer: otel.Tracer(observability.TracerName),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = observability.NewMetrics(prometheus.NewRegistry())
	}

	layer, err := cache.New[analysis](&cache.Config{
		MaxEntries: s.maxEntries,
		TTL:        cfg.CacheTTL(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create analysis cache: %w", err)
	}
	s.cache = layer
	s.store = storage.NewMemoryStore(
		storage.WithInvalidator(layer),
		storage.WithClock(s.now),
	)
	s.engine = dependencies.NewEngine(s.store)

	return s, nil
}

// Start subscribes the request topics. It may be called once.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}

	for _, topic := range []string{s.topics.AnalyzeRequest, s.topics.DependencyUpdate, s.topics.ModuleUpdate} {
		if err := s.bus.Subscribe(topic, s.dispatch); err != nil {
			return fmt.Errorf("failed to subscribe %s: %w", topic, err)
		}
	}
	s.started = true

	s.log.WithFields(logrus.Fields{
		"analyze_request":   s.topics.AnalyzeRequest,
		"dependency_update": s.topics.DependencyUpdate,
		"module_update":     s.topics.ModuleUpdate,
	}).Info("Analyzer subscribed")
	return nil
}

// Topics returns the topic names the service was configured with
func (s *Service) Topics() config.Topics {
	return s.topics
}

// Store returns the module registry
func (s *Service) Store() storage.Store {
	return s.store
}

// UpdateDependencies replaces the dependency list of module and drops the
// cached analyses that read it: module, its old and new dependencies, and
// every module that reaches it. A nil metadata keeps the existing metadata.
func (s *Service) UpdateDependencies(module string, deps []string, metadata map[string]interface{}) storage.Record {
	rec := s.store.UpdateDependencies(module, deps, metadata)
	s.metrics.ModulesTotal.Set(float64(s.store.Len()))
	return rec
}

// UpdateMetadata overwrites the metadata of module and drops its cached analysis
func (s *Service) UpdateMetadata(module string, metadata map[string]interface{}) storage.Record {
	rec := s.store.UpdateMetadata(module, metadata)
	s.metrics.ModulesTotal.Set(float64(s.store.Len()))
	return rec
}

// Analyze returns the analysis of target, served from cache when fresh
func (s *Service) Analyze(ctx context.Context, target string, t AnalysisType, includeMetadata bool) (Result, error) {
	if target == "" {
		return Result{}, missing("target")
	}

	if a, ok := s.cache.Get(target, s.now()); ok {
		s.metrics.RecordCache(true)
		return newResult(a, t, includeMetadata, true), nil
	}
	s.metrics.RecordCache(false)

	gen := s.cache.Generation(target)
	a := s.compute(target)
	if _, err := s.cache.PutIfCurrent(target, gen, a, s.now()); err != nil {
		return Result{}, &ProcessingError{Op: "cache analysis", Err: err}
	}

	if len(a.view.Circular) > 0 {
		s.metrics.CircularDepsFound.Inc()
		s.reportCycle(ctx, target, a.view.Circular)
	}

	return newResult(a, t, includeMetadata, false), nil
}

// SetCacheTTL changes the TTL applied to analyses cached from now on
func (s *Service) SetCacheTTL(ttl time.Duration) {
	s.cache.SetTTL(ttl)
}

// ApplyConfig applies the parts of cfg that can change at runtime. Topic
// changes need a restart and are only logged.
func (s *Service) ApplyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	if ttl := cfg.CacheTTL(); ttl != s.cache.TTL() {
		s.log.WithFields(logrus.Fields{
			"old": s.cache.TTL().String(),
			"new": ttl.String(),
		}).Info("Cache duration updated")
		s.cache.SetTTL(ttl)
	}
	if cfg.Mycelium.Topics != s.topics {
		s.log.Warn("Topic configuration changed; restart to apply")
	}
}

// CacheStats returns analysis cache statistics
func (s *Service) CacheStats() cache.Stats {
	return s.cache.Stats()
}

func (s *Service) compute(module string) analysis {
	rec := s.store.Get(module)
	view := s.engine.View(module)
	metrics := quality.Compute(quality.Complexity(rec.Metadata), len(view.Direct))

	return analysis{
		view:   view,
		record: rec,
		quality: QualityReport{
			Metrics:     metrics,
			Suggestions: quality.Suggest(metrics),
		},
	}
}

func (s *Service) reportCycle(ctx context.Context, module string, circular []string) {
	details := map[string]interface{}{
		"module":                module,
		"circular_dependencies": toInterfaces(circular),
	}
	if path, err := s.engine.DetectCircularDependencies(module); err != nil {
		details["cycle"] = toInterfaces(path)
	}
	s.alert(ctx, AlertCircularDependency, fmt.Sprintf("circular dependencies detected for %s", module), details)
}

func toInterfaces(in []string) []interface{} {
	out := make([]interface{}, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
