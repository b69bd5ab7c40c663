package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/directoryd/internal/config"
	"github.com/fyrsmithlabs/directoryd/internal/directory"
	"github.com/fyrsmithlabs/directoryd/internal/logging"
	"github.com/fyrsmithlabs/directoryd/internal/source"
)

var (
	// ErrUnknownCollection is returned by Get for kinds that are not
	// configured or are disabled.
	ErrUnknownCollection = errors.New("unknown collection")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("registry closed")
)

// Options configures the registry.
type Options struct {
	Collections map[string]config.CollectionConfig

	// Fetcher serves every collection that is not seed-only.
	Fetcher directory.Fetcher

	Logger  *logging.Logger
	Tracer  trace.Tracer
	Metrics *directory.Metrics
}

// Registry owns the directory of every enabled collection.
type Registry struct {
	logger *logging.Logger
	order  []directory.Kind
	dirs   map[directory.Kind]*directory.Directory
	seeds  map[directory.Kind]string // seed files to watch

	mu       sync.Mutex
	watchers []*source.SeedWatcher
	started  bool
	closed   bool
}

// NewRegistry builds the directories. Seed files are read here, so a broken
// seed file fails startup instead of surfacing later as an empty listing.
func NewRegistry(opts Options) (*Registry, error) {
	defs, err := Definitions(opts.Collections)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	r := &Registry{
		logger: logger.Named("registry"),
		order:  make([]directory.Kind, 0, len(defs)),
		dirs:   make(map[directory.Kind]*directory.Directory, len(defs)),
		seeds:  make(map[directory.Kind]string),
	}

	for _, def := range defs {
		cc := opts.Collections[string(def.Kind)]

		loaderOpts := []directory.LoaderOption{directory.WithLogger(logger)}
		if opts.Tracer != nil {
			loaderOpts = append(loaderOpts, directory.WithTracer(opts.Tracer))
		}
		if opts.Metrics != nil {
			loaderOpts = append(loaderOpts, directory.WithMetrics(opts.Metrics))
		}
		if cc.SeedFile != "" {
			records, err := source.ReadSeed(cc.SeedFile)
			if err != nil {
				return nil, fmt.Errorf("collections.%s: %w", def.Kind, err)
			}
			loaderOpts = append(loaderOpts, directory.WithSeed(records))
			if cc.WatchSeed {
				r.seeds[def.Kind] = cc.SeedFile
			}
		}

		var fetcher directory.Fetcher
		if !def.SeedOnly {
			fetcher = opts.Fetcher
		}
		loader, err := directory.NewLoader(def, fetcher, loaderOpts...)
		if err != nil {
			return nil, fmt.Errorf("collections.%s: %w", def.Kind, err)
		}

		r.order = append(r.order, def.Kind)
		r.dirs[def.Kind] = directory.New(def, loader)
	}
	return r, nil
}

// Kinds returns the enabled collection kinds in display order.
func (r *Registry) Kinds() []directory.Kind {
	out := make([]directory.Kind, len(r.order))
	copy(out, r.order)
	return out
}

// Get returns the directory for kind.
func (r *Registry) Get(kind directory.Kind) (*directory.Directory, error) {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	d, ok := r.dirs[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, kind)
	}
	return d, nil
}

// States returns the loader state of every collection.
func (r *Registry) States() map[directory.Kind]directory.State {
	out := make(map[directory.Kind]directory.State, len(r.dirs))
	for kind, d := range r.dirs {
		out[kind] = d.Status().State
	}
	return out
}

// StartAll mounts every collection in the background and starts the seed
// watchers. It does not wait for any load to finish.
func (r *Registry) StartAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if r.started {
		return nil
	}
	r.started = true

	for _, kind := range r.order {
		r.dirs[kind].Start(ctx)
	}

	for _, kind := range r.order {
		path, ok := r.seeds[kind]
		if !ok {
			continue
		}
		d := r.dirs[kind]
		w, err := source.NewSeedWatcher(path, func(ctx context.Context, records []directory.Record) {
			d.Refresh(ctx, records)
		}, source.WithWatchLogger(r.logger))
		if err != nil {
			return fmt.Errorf("collections.%s: %w", kind, err)
		}
		if err := w.Start(logging.WithCollection(ctx, string(kind))); err != nil {
			w.Stop()
			return fmt.Errorf("collections.%s: %w", kind, err)
		}
		r.watchers = append(r.watchers, w)
		r.logger.Info(ctx, "watching seed file",
			zap.String("collection", string(kind)),
			zap.String("seed_file", path),
		)
	}
	return nil
}

// Close stops the seed watchers and detaches every directory from in-flight
// loads. It is safe to call more than once.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	watchers := r.watchers
	r.watchers = nil
	r.mu.Unlock()

	for _, w := range watchers {
		w.Stop()
	}
	for _, kind := range r.order {
		r.dirs[kind].Close()
	}
}
