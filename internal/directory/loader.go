package directory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/fyrsmithlabs/directoryd/internal/logging"
)

const instrumentationName = "github.com/fyrsmithlabs/directoryd/internal/directory"

// Fetcher retrieves the raw records of a resource.
type Fetcher interface {
	Fetch(ctx context.Context, resource string) ([]Record, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, resource string) ([]Record, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, resource string) ([]Record, error) {
	return f(ctx, resource)
}

// ErrFetcherRequired is returned when a fetching collection has no fetcher.
var ErrFetcherRequired = errors.New("fetcher is required unless the collection is seed-only")

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithSeed supplies records that are used instead of the first fetch.
// An empty seed is ignored unless the collection is seed-only.
func WithSeed(records []Record) LoaderOption {
	return func(l *Loader) {
		l.seed = records
	}
}

// WithLogger sets the loader's logger.
func WithLogger(logger *logging.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithTracer sets the tracer used for load spans.
func WithTracer(tracer trace.Tracer) LoaderOption {
	return func(l *Loader) {
		if tracer != nil {
			l.tracer = tracer
		}
	}
}

// WithMetrics overrides the process-wide loader metrics. A nil value
// disables metrics.
func WithMetrics(m *Metrics) LoaderOption {
	return func(l *Loader) {
		l.metrics = m
	}
}

// Loader obtains one collection and tracks its lifecycle:
//
//	Idle -> Loading -> Loaded | Failed
//
// A non-empty seed skips the fetch. Failure is terminal until Reload; there is
// no retry. Concurrent mounts and reloads share a single in-flight fetch, and
// a caller whose context ends stops waiting without cancelling the fetch.
// After Close, completions are discarded.
type Loader struct {
	def        Definition
	fetcher    Fetcher
	normalizer *Normalizer
	logger     *logging.Logger
	tracer     trace.Tracer
	metrics    *Metrics

	flight singleflight.Group

	mu       sync.RWMutex
	seed     []Record
	state    State
	message  string
	snapshot []Entity
	loadedAt time.Time
	closed   bool
}

// NewLoader creates a loader for def.
func NewLoader(def Definition, fetcher Fetcher, opts ...LoaderOption) (*Loader, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	if fetcher == nil && !def.SeedOnly {
		return nil, ErrFetcherRequired
	}

	l := &Loader{
		def:        def,
		fetcher:    fetcher,
		normalizer: NewNormalizer(def),
		logger:     logging.NewNop(),
		tracer:     otel.Tracer(instrumentationName),
		metrics:    NewMetrics(),
		state:      StateIdle,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.Named("loader")
	return l, nil
}

// Definition returns the loader's collection definition.
func (l *Loader) Definition() Definition {
	return l.def
}

// Status returns the current status.
func (l *Loader) Status() Status {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.statusLocked()
}

// Mount performs the initial load. Calls after the first return the current
// status, joining the in-flight fetch if there is one.
func (l *Loader) Mount(ctx context.Context) Status {
	return l.do(ctx, false)
}

// Reload fetches again regardless of the current state, bypassing the seed.
// A reload issued while a fetch is in flight joins that fetch; one issued
// while a mount applies the seed fetches after it.
func (l *Loader) Reload(ctx context.Context) Status {
	return l.do(ctx, true)
}

// Start mounts in the background. The channel receives the status Mount
// returns and is then closed.
func (l *Loader) Start(ctx context.Context) <-chan Status {
	out := make(chan Status, 1)
	go func() {
		defer close(out)
		out <- l.Mount(ctx)
	}()
	return out
}

// Replace swaps the snapshot for records without fetching. The records also
// become the seed used by later seed-only reloads.
func (l *Loader) Replace(ctx context.Context, records []Record) Status {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return l.statusLocked()
	}
	ctx = logging.WithCollection(ctx, string(l.def.Kind))
	l.seed = records
	return l.applyLocked(ctx, records, outcomeRefreshed)
}

// Close detaches the loader. A fetch still in flight completes but its result
// is discarded.
func (l *Loader) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
}

func (l *Loader) do(ctx context.Context, reload bool) Status {
	key := l.def.Resource + "#mount"
	if reload {
		key = l.def.Resource + "#reload"
	}
	detached := logging.WithCollection(context.WithoutCancel(ctx), string(l.def.Kind))
	ch := l.flight.DoChan(key, func() (any, error) {
		return l.run(detached, reload), nil
	})

	select {
	case res := <-ch:
		return res.Val.(Status)
	case <-ctx.Done():
		return l.Status()
	}
}

func (l *Loader) run(ctx context.Context, reload bool) Status {
	l.mu.Lock()
	if l.closed {
		defer l.mu.Unlock()
		return l.statusLocked()
	}
	if !reload && l.state != StateIdle {
		if l.state != StateLoading {
			defer l.mu.Unlock()
			return l.statusLocked()
		}
		// A fetch is in flight; wait for it.
		ch := l.fetchLocked(ctx)
		l.mu.Unlock()
		return (<-ch).Val.(Status)
	}

	if l.def.SeedOnly {
		defer l.mu.Unlock()
		return l.applyLocked(ctx, l.seed, outcomeSeeded)
	}
	if !reload && len(l.seed) > 0 {
		defer l.mu.Unlock()
		return l.applyLocked(ctx, l.seed, outcomeSeeded)
	}

	l.state = StateLoading
	l.message = ""
	l.snapshot = nil
	ch := l.fetchLocked(ctx)
	l.mu.Unlock()

	return (<-ch).Val.(Status)
}

// fetchLocked starts a fetch, or joins the one in flight. Registering the
// flight under l.mu guarantees that while the state is Loading there is a
// fetch to join.
func (l *Loader) fetchLocked(ctx context.Context) <-chan singleflight.Result {
	return l.flight.DoChan(l.def.Resource+"#fetch", func() (any, error) {
		return l.fetch(ctx), nil
	})
}

func (l *Loader) fetch(ctx context.Context) Status {
	loadID := uuid.NewString()
	ctx = logging.WithLoadID(ctx, loadID)

	ctx, span := l.tracer.Start(ctx, "directory.load",
		trace.WithAttributes(
			attribute.String("collection.kind", string(l.def.Kind)),
			attribute.String("collection.resource", l.def.Resource),
			attribute.String("load.id", loadID),
		),
	)
	defer span.End()

	l.logger.Debug(ctx, "fetching collection", zap.String("resource", l.def.Resource))

	start := time.Now()
	records, err := l.fetcher.Fetch(ctx, l.def.Resource)
	elapsed := time.Since(start)
	l.metrics.recordDuration(l.def.Kind, elapsed.Seconds())

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		l.logger.Debug(ctx, "discarding load result after close", zap.Error(err))
		return l.statusLocked()
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		l.logger.Warn(ctx, "collection load failed",
			zap.Error(err),
			zap.Duration("elapsed", elapsed),
		)
		l.metrics.recordLoad(l.def.Kind, outcomeFailed)

		l.state = StateFailed
		l.message = l.def.Messages.LoadFailed
		l.snapshot = nil
		return l.statusLocked()
	}

	st := l.applyLocked(ctx, records, outcomeFetched)
	span.SetAttributes(attribute.Int("collection.entities", len(st.Snapshot)))
	return st
}

// applyLocked normalizes records into the Loaded snapshot. l.mu must be held.
func (l *Loader) applyLocked(ctx context.Context, records []Record, outcome string) Status {
	entities, report := l.normalizer.Normalize(records)

	if report.Discarded > 0 || report.SynthesizedIDs > 0 || report.Defaulted > 0 {
		l.logger.Warn(ctx, "records repaired during normalization",
			zap.Int("received", report.Received),
			zap.Int("discarded", report.Discarded),
			zap.Int("synthesized_ids", report.SynthesizedIDs),
			zap.Int("defaulted_categories", report.Defaulted),
		)
	}
	l.logger.Info(ctx, "collection loaded",
		zap.String("outcome", outcome),
		zap.Int("entities", len(entities)),
	)
	l.metrics.recordLoad(l.def.Kind, outcome)
	l.metrics.recordSnapshot(l.def.Kind, len(entities), report)

	l.state = StateLoaded
	l.message = ""
	l.snapshot = entities
	l.loadedAt = time.Now()
	return l.statusLocked()
}

func (l *Loader) statusLocked() Status {
	switch l.state {
	case StateLoaded:
		return Status{State: StateLoaded, Snapshot: l.snapshot, LoadedAt: l.loadedAt}
	case StateFailed:
		return Status{State: StateFailed, Message: l.message}
	default:
		return Status{State: StateLoading}
	}
}
