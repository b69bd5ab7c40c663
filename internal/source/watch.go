package source

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/directoryd/internal/directory"
	"github.com/fyrsmithlabs/directoryd/internal/logging"
)

// DefaultDebounce is the quiet period after the last change to a seed file
// before it is re-read.
const DefaultDebounce = 250 * time.Millisecond

var (
	// ErrWatcherFailed indicates the filesystem watcher failed to initialize.
	ErrWatcherFailed = errors.New("failed to initialize filesystem watcher")

	// ErrWatcherStarted is returned by Start on a second call.
	ErrWatcherStarted = errors.New("seed watcher already started")
)

// ChangeFunc receives the records of a seed file after it changed.
type ChangeFunc func(ctx context.Context, records []directory.Record)

// SeedWatcher re-reads a seed file whenever it changes and hands the records
// to a ChangeFunc. A file that fails to parse is logged and skipped, so the
// last good snapshot stays in place.
type SeedWatcher struct {
	path     string
	dir      string
	base     string
	onChange ChangeFunc
	debounce time.Duration
	logger   *logging.Logger

	watcher *fsnotify.Watcher
	stop    chan struct{}
	done    chan struct{}

	mu      sync.Mutex
	started bool
}

// WatchOption configures a SeedWatcher.
type WatchOption func(*SeedWatcher)

// WithDebounce sets the quiet period before a changed file is re-read.
func WithDebounce(d time.Duration) WatchOption {
	return func(w *SeedWatcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithWatchLogger sets the watcher's logger.
func WithWatchLogger(l *logging.Logger) WatchOption {
	return func(w *SeedWatcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewSeedWatcher creates a watcher for the seed file at path.
//
// The parent directory is watched rather than the file itself, since editors
// usually replace a file instead of writing it in place.
func NewSeedWatcher(path string, onChange ChangeFunc, opts ...WatchOption) (*SeedWatcher, error) {
	if onChange == nil {
		return nil, errors.New("seed watcher requires a change callback")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving seed path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}

	w := &SeedWatcher{
		path:     abs,
		dir:      filepath.Dir(abs),
		base:     filepath.Base(abs),
		onChange: onChange,
		debounce: DefaultDebounce,
		logger:   logging.NewNop(),
		watcher:  watcher,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named("seed_watcher").With(zap.String("seed_file", abs))
	return w, nil
}

// Start begins watching in a background goroutine. Call Stop to release the
// watcher.
func (w *SeedWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return ErrWatcherStarted
	}

	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}
	w.started = true

	go w.processEvents(ctx)
	return nil
}

// Stop stops the watcher and waits for its goroutine to exit.
func (w *SeedWatcher) Stop() {
	w.mu.Lock()
	started := w.started
	select {
	case <-w.stop:
		w.mu.Unlock()
		return
	default:
		close(w.stop)
		_ = w.watcher.Close()
	}
	w.mu.Unlock()

	if started {
		<-w.done
	}
}

func (w *SeedWatcher) processEvents(ctx context.Context) {
	defer close(w.done)

	var (
		timer   *time.Timer
		trigger <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.stop:
			return
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != w.base {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			trigger = timer.C

		case <-trigger:
			trigger = nil
			w.reload(ctx)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn(ctx, "seed watcher error", zap.Error(err))
		}
	}
}

func (w *SeedWatcher) reload(ctx context.Context) {
	records, err := ReadSeed(w.path)
	if err != nil {
		w.logger.Warn(ctx, "seed file change ignored", zap.Error(err))
		return
	}
	w.logger.Info(ctx, "seed file changed", zap.Int("records", len(records)))
	w.onChange(ctx, records)
}
