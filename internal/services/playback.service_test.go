package services

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"twinconsole/internal/apperr"
	"twinconsole/internal/models"
	"twinconsole/internal/observability"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend records control calls and serves a fixed /status.
type fakeBackend struct {
	mu     sync.Mutex
	calls  []string
	status models.BackendStatus
	fail   bool
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if r.Method == http.MethodGet && r.URL.Path == "/status" {
		json.NewEncoder(w).Encode(b.status)
		return
	}
	b.calls = append(b.calls, r.Method+" "+r.URL.Path)
	if b.fail {
		http.Error(w, "boom", http.StatusInternalServerError)
		return
	}
	w.Write([]byte(`{"ok":true}`))
}

func (b *fakeBackend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

func newTestPlayback(t *testing.T, backend *fakeBackend) *PlaybackService {
	t.Helper()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	p, err := NewPlaybackService(PlaybackOptions{BaseURL: srv.URL + "/"})
	require.NoError(t, err)
	t.Cleanup(p.Close)
	return p
}

func TestPlayback_PauseIsOptimistic(t *testing.T) {
	backend := &fakeBackend{}
	p := newTestPlayback(t, backend)

	state := p.Pause()
	assert.False(t, state.IsPlaying)
	assert.False(t, p.State().IsPlaying)

	p.Wait()
	assert.Equal(t, []string{"POST /control/pause"}, backend.Calls())
}

func TestPlayback_Toggle(t *testing.T) {
	backend := &fakeBackend{}
	p := newTestPlayback(t, backend)

	assert.False(t, p.Toggle().IsPlaying)
	p.Wait()
	assert.True(t, p.Toggle().IsPlaying)
	p.Wait()

	assert.Equal(t, []string{"POST /control/pause", "POST /control/play"}, backend.Calls())
}

func TestPlayback_SetSpeed(t *testing.T) {
	backend := &fakeBackend{}
	p := newTestPlayback(t, backend)

	state, err := p.SetSpeed(0.5)
	require.NoError(t, err)
	assert.Equal(t, 0.5, state.Speed)
	p.Wait()
	assert.Equal(t, []string{"POST /control/speed/0.5"}, backend.Calls())
}

func TestPlayback_SetSpeedRejectsInvalid(t *testing.T) {
	backend := &fakeBackend{}
	p := newTestPlayback(t, backend)

	for _, v := range []float64{0, -2, math.NaN(), math.Inf(1)} {
		_, err := p.SetSpeed(v)
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.KindValidation))
	}
	p.Wait()
	assert.Empty(t, backend.Calls())
	assert.Equal(t, 1.0, p.State().Speed)
}

func TestPlayback_RewindUsesSpeedOffset(t *testing.T) {
	backend := &fakeBackend{status: models.BackendStatus{Playing: true, CurrentIndex: 1000}}
	p := newTestPlayback(t, backend)

	_, err := p.SetSpeed(5)
	require.NoError(t, err)
	p.Wait()

	p.Rewind()
	p.Wait()
	assert.Equal(t, []string{"POST /control/speed/5", "POST /control/jump/700"}, backend.Calls())
}

func TestPlayback_RewindUnknownSpeedDefaultsToSixty(t *testing.T) {
	backend := &fakeBackend{status: models.BackendStatus{CurrentIndex: 1000}}
	p := newTestPlayback(t, backend)

	_, err := p.SetSpeed(3)
	require.NoError(t, err)
	p.Wait()
	p.Pause()
	p.Wait()

	state := p.Rewind()
	assert.True(t, state.IsPlaying)
	p.Wait()
	assert.Equal(t, []string{
		"POST /control/speed/3",
		"POST /control/pause",
		"POST /control/jump/940",
		"POST /control/play",
	}, backend.Calls())
}

func TestPlayback_RewindClampsAtZero(t *testing.T) {
	backend := &fakeBackend{status: models.BackendStatus{CurrentIndex: 20}}
	p := newTestPlayback(t, backend)

	p.Rewind()
	p.Wait()
	assert.Equal(t, []string{"POST /control/jump/0"}, backend.Calls())
}

func TestRewindOffset(t *testing.T) {
	assert.Equal(t, int64(30), RewindOffset(0.5))
	assert.Equal(t, int64(60), RewindOffset(1))
	assert.Equal(t, int64(120), RewindOffset(2))
	assert.Equal(t, int64(300), RewindOffset(5))
	assert.Equal(t, int64(600), RewindOffset(10))
	assert.Equal(t, int64(60), RewindOffset(7))
}

func TestPlayback_ResetWhilePausedResumes(t *testing.T) {
	backend := &fakeBackend{}
	p := newTestPlayback(t, backend)

	p.Pause()
	p.Wait()

	state := p.Reset()
	assert.True(t, state.IsPlaying)
	p.Wait()
	assert.Equal(t, []string{"POST /control/pause", "POST /control/jump/0", "POST /control/play"}, backend.Calls())
}

func TestPlayback_ResetWhilePlayingOnlyJumps(t *testing.T) {
	backend := &fakeBackend{}
	p := newTestPlayback(t, backend)

	p.Reset()
	p.Wait()
	assert.Equal(t, []string{"POST /control/jump/0"}, backend.Calls())
}

func TestPlayback_JumpRejectsNegative(t *testing.T) {
	backend := &fakeBackend{}
	p := newTestPlayback(t, backend)

	_, err := p.Jump(-1)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = p.Jump(42)
	require.NoError(t, err)
	p.Wait()
	assert.Equal(t, []string{"POST /control/jump/42"}, backend.Calls())
}

func TestPlayback_FailureKeepsOptimisticState(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)

	backend := &fakeBackend{fail: true}
	srv := httptest.NewServer(backend)
	defer srv.Close()

	p, err := NewPlaybackService(PlaybackOptions{BaseURL: srv.URL, Metrics: metrics})
	require.NoError(t, err)
	defer p.Close()

	p.Pause()
	p.Wait()

	assert.False(t, p.State().IsPlaying)
	assert.Len(t, backend.Calls(), 1)
	n, err := testutil.GatherAndCount(reg, observability.ControlRequests)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPlayback_StatusUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p, err := NewPlaybackService(PlaybackOptions{BaseURL: srv.URL})
	require.NoError(t, err)
	defer p.Close()

	_, err = p.Status(t.Context())
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindUnavailable))
}

func TestNewPlaybackService_RequiresURL(t *testing.T) {
	_, err := NewPlaybackService(PlaybackOptions{})
	assert.Error(t, err)
}
