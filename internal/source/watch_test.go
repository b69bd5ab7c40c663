package source

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/directoryd/internal/directory"
	"github.com/fyrsmithlabs/directoryd/internal/logging"
)

type recordSink struct {
	mu      sync.Mutex
	batches [][]directory.Record
}

func (s *recordSink) onChange(_ context.Context, records []directory.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, records)
}

func (s *recordSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batches)
}

func (s *recordSink) last() []directory.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.batches) == 0 {
		return nil
	}
	return s.batches[len(s.batches)-1]
}

func startWatcher(t *testing.T, path string, sink *recordSink, opts ...WatchOption) *SeedWatcher {
	t.Helper()
	opts = append([]WatchOption{WithDebounce(20 * time.Millisecond)}, opts...)
	w, err := NewSeedWatcher(path, sink.onChange, opts...)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(w.Stop)
	return w
}

func TestSeedWatcher_ReloadsOnWrite(t *testing.T) {
	path := writeSeed(t, "events.yaml", "- id: e1\n")
	sink := &recordSink{}
	startWatcher(t, path, sink)

	require.NoError(t, os.WriteFile(path, []byte("- id: e1\n- id: e2\n"), 0o600))

	require.Eventually(t, func() bool {
		return len(sink.last()) == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSeedWatcher_ReloadsOnReplace(t *testing.T) {
	path := writeSeed(t, "events.json", `[{"id":"e1"}]`)
	sink := &recordSink{}
	startWatcher(t, path, sink)

	tmp := filepath.Join(filepath.Dir(path), "events.json.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte(`[{"id":"a"},{"id":"b"},{"id":"c"}]`), 0o600))
	require.NoError(t, os.Rename(tmp, path))

	require.Eventually(t, func() bool {
		return len(sink.last()) == 3
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSeedWatcher_IgnoresOtherFiles(t *testing.T) {
	path := writeSeed(t, "events.yaml", "- id: e1\n")
	sink := &recordSink{}
	startWatcher(t, path, sink)

	other := filepath.Join(filepath.Dir(path), "other.yaml")
	require.NoError(t, os.WriteFile(other, []byte("- id: x\n"), 0o600))

	time.Sleep(150 * time.Millisecond)
	assert.Zero(t, sink.count())
}

func TestSeedWatcher_KeepsSnapshotOnParseError(t *testing.T) {
	path := writeSeed(t, "events.json", `[{"id":"e1"}]`)
	sink := &recordSink{}
	tl := logging.NewTestLogger()
	startWatcher(t, path, sink, WithWatchLogger(tl.Logger))

	require.NoError(t, os.WriteFile(path, []byte(`[{`), 0o600))

	require.Eventually(t, func() bool {
		return len(tl.FilterMessage("seed file change ignored").All()) > 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, sink.count())
	tl.AssertLogged(t, zapcore.WarnLevel, "seed file change ignored")
}

func TestSeedWatcher_Debounces(t *testing.T) {
	path := writeSeed(t, "events.yaml", "[]\n")
	sink := &recordSink{}
	startWatcher(t, path, sink, WithDebounce(200*time.Millisecond))

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte("- id: e1\n"), 0o600))
		time.Sleep(10 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		return sink.count() >= 1
	}, 2*time.Second, 10*time.Millisecond)
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 1, sink.count())
}

func TestSeedWatcher_StartTwice(t *testing.T) {
	path := writeSeed(t, "events.yaml", "[]\n")
	w := startWatcher(t, path, &recordSink{})
	assert.ErrorIs(t, w.Start(context.Background()), ErrWatcherStarted)
}

func TestSeedWatcher_StopIdempotent(t *testing.T) {
	path := writeSeed(t, "events.yaml", "[]\n")
	w, err := NewSeedWatcher(path, (&recordSink{}).onChange)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))

	w.Stop()
	w.Stop()
}

func TestSeedWatcher_StopWithoutStart(t *testing.T) {
	path := writeSeed(t, "events.yaml", "[]\n")
	w, err := NewSeedWatcher(path, (&recordSink{}).onChange)
	require.NoError(t, err)
	w.Stop()
}

func TestNewSeedWatcher_RequiresCallback(t *testing.T) {
	_, err := NewSeedWatcher("events.yaml", nil)
	require.Error(t, err)
}
