package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"twinconsole/internal/apperr"
	"twinconsole/internal/logger"
	"twinconsole/internal/models"
	"twinconsole/internal/observability"
)

// defaultRewindOffset applies to speeds outside rewindOffsets.
const defaultRewindOffset = 60

// rewindOffsets maps replay speed to how many rows a rewind steps back.
var rewindOffsets = map[float64]int64{
	0.5: 30,
	1:   60,
	2:   120,
	5:   300,
	10:  600,
}

// RewindOffset returns the rewind step for a replay speed.
func RewindOffset(speed float64) int64 {
	if off, ok := rewindOffsets[speed]; ok {
		return off
	}
	return defaultRewindOffset
}

// PlaybackOptions configures the control client.
type PlaybackOptions struct {
	BaseURL      string
	Timeout      time.Duration
	InitialSpeed float64
	Metrics      *observability.Metrics
}

// PlaybackService relays operator playback commands to the backend. Every
// command updates the local state at once and sends its request in the
// background; failures are logged and counted, never rolled back.
type PlaybackService struct {
	baseURL string
	client  *http.Client
	metrics *observability.Metrics

	mu    sync.Mutex
	state models.PlaybackState

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPlaybackService creates a control client for opts.BaseURL.
func NewPlaybackService(opts PlaybackOptions) (*PlaybackService, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("control base URL is empty")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	speed := opts.InitialSpeed
	if speed <= 0 {
		speed = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &PlaybackService{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		metrics: opts.Metrics,
		state:   models.PlaybackState{Speed: speed, IsPlaying: true},
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// State returns the optimistic playback state.
func (p *PlaybackService) State() models.PlaybackState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Play resumes replay.
func (p *PlaybackService) Play() models.PlaybackState {
	state := p.update(func(s *models.PlaybackState) { s.IsPlaying = true })
	p.dispatch("play", "/control/play")
	return state
}

// Pause halts replay.
func (p *PlaybackService) Pause() models.PlaybackState {
	state := p.update(func(s *models.PlaybackState) { s.IsPlaying = false })
	p.dispatch("pause", "/control/pause")
	return state
}

// Toggle plays when paused and pauses when playing.
func (p *PlaybackService) Toggle() models.PlaybackState {
	if p.State().IsPlaying {
		return p.Pause()
	}
	return p.Play()
}

// SetSpeed changes the replay rate. Non-positive and non-finite values are
// rejected before any state change.
func (p *PlaybackService) SetSpeed(speed float64) (models.PlaybackState, error) {
	if math.IsNaN(speed) || math.IsInf(speed, 0) || speed <= 0 {
		return p.State(), apperr.Errorf(apperr.KindValidation, "speed must be a positive number, got %v", speed)
	}
	state := p.update(func(s *models.PlaybackState) { s.Speed = speed })
	p.dispatch("speed", "/control/speed/"+strconv.FormatFloat(speed, 'g', -1, 64))
	return state, nil
}

// Jump moves the replay cursor to index.
func (p *PlaybackService) Jump(index int64) (models.PlaybackState, error) {
	if index < 0 {
		return p.State(), apperr.Errorf(apperr.KindValidation, "index must be >= 0, got %d", index)
	}
	p.dispatch("jump", jumpPath(index))
	return p.State(), nil
}

// Rewind steps the cursor back by the speed's rewind offset and resumes if
// paused. The current index is read from the backend in the background.
func (p *PlaybackService) Rewind() models.PlaybackState {
	var speed float64
	var wasPaused bool
	state := p.update(func(s *models.PlaybackState) {
		speed = s.Speed
		wasPaused = !s.IsPlaying
		s.IsPlaying = true
	})

	p.spawn(func(ctx context.Context) {
		status, err := p.Status(ctx)
		if err != nil {
			p.metrics.ControlRequest("rewind", err)
			logger.Warnf("[CONTROL] rewind: status lookup failed: %v", err)
			return
		}
		target := status.CurrentIndex - RewindOffset(speed)
		if target < 0 {
			target = 0
		}
		if err := p.send(ctx, "rewind", jumpPath(target)); err != nil {
			return
		}
		if wasPaused {
			p.send(ctx, "play", "/control/play")
		}
	})
	return state
}

// Reset jumps to the first row and resumes if paused.
func (p *PlaybackService) Reset() models.PlaybackState {
	var wasPaused bool
	state := p.update(func(s *models.PlaybackState) {
		wasPaused = !s.IsPlaying
		s.IsPlaying = true
	})

	p.spawn(func(ctx context.Context) {
		if err := p.send(ctx, "reset", jumpPath(0)); err != nil {
			return
		}
		if wasPaused {
			p.send(ctx, "play", "/control/play")
		}
	})
	return state
}

// Status reads the backend's replay status. It is synchronous and uncached.
func (p *PlaybackService) Status(ctx context.Context) (models.BackendStatus, error) {
	var status models.BackendStatus

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/status", nil)
	if err != nil {
		return status, apperr.Wrap(err, apperr.KindInternal, "build status request")
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return status, classifyTransport(err, "status request")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return status, apperr.Errorf(apperr.KindUnavailable, "status request failed with status %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return status, apperr.Wrap(err, apperr.KindUnavailable, "decode status")
	}
	return status, nil
}

// Wait blocks until every in-flight command has finished.
func (p *PlaybackService) Wait() {
	p.wg.Wait()
}

// Close cancels in-flight commands and waits for them.
func (p *PlaybackService) Close() {
	p.cancel()
	p.wg.Wait()
}

func (p *PlaybackService) update(fn func(*models.PlaybackState)) models.PlaybackState {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(&p.state)
	return p.state
}

func (p *PlaybackService) dispatch(command, path string) {
	p.spawn(func(ctx context.Context) {
		p.send(ctx, command, path)
	})
}

func (p *PlaybackService) spawn(fn func(ctx context.Context)) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		fn(p.ctx)
	}()
}

// send posts one control command and records the outcome.
func (p *PlaybackService) send(ctx context.Context, command, path string) error {
	err := p.post(ctx, path)
	p.metrics.ControlRequest(command, err)
	if err != nil {
		logger.Warnf("[CONTROL] %s %s failed: %v", command, path, err)
		return err
	}
	logger.Debugf("[CONTROL] %s %s ok", command, path)
	return nil
}

func (p *PlaybackService) post(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, nil)
	if err != nil {
		return apperr.Wrap(err, apperr.KindInternal, "build control request")
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return classifyTransport(err, "control request")
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode >= 300 {
		return apperr.Errorf(apperr.KindUnavailable, "control request failed with status %s", resp.Status)
	}
	return nil
}

func jumpPath(index int64) string {
	return "/control/jump/" + strconv.FormatInt(index, 10)
}

func classifyTransport(err error, msg string) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return apperr.Wrap(err, apperr.KindTimeout, msg)
	}
	return apperr.Wrap(err, apperr.KindUnavailable, msg)
}
