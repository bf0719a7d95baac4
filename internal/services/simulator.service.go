package services

import (
	"context"
	"encoding/json"
	"math"
	"math/rand"
	"sync"
	"time"

	"twinconsole/internal/logger"
	"twinconsole/internal/models"
)

// simRanges are plausible value ranges for the SWaT channels.
var simRanges = map[string][2]float64{
	"fit101":  {0, 2.8},
	"lit101":  {480, 820},
	"ait201":  {240, 270},
	"fit201":  {0, 2.5},
	"ait203":  {300, 340},
	"fit301":  {0, 2.4},
	"dpit301": {1.5, 3.0},
	"lit301":  {780, 1010},
	"ait401":  {140, 160},
	"ait402":  {150, 170},
	"lit401":  {790, 1010},
	"ait503":  {250, 280},
	"ait504":  {5, 15},
	"pit502":  {0.5, 2.0},
	"fit601":  {0, 0.4},
}

const (
	simAttackChance = 0.05
	simAttackMin    = 3
	simAttackMax    = 12
)

// SimulatorOptions configures the offline feed.
type SimulatorOptions struct {
	Sensors  []string
	Interval time.Duration
	// Playback supplies speed and play state; nil means always playing at 1x.
	Playback func() models.PlaybackState
	Seed     int64
}

// Simulator synthesises stream messages when no backend is available and
// pushes them through the same sink as the live feed.
type Simulator struct {
	opts SimulatorOptions
	sink FrameSink

	mu         sync.Mutex
	rng        *rand.Rand
	index      int64
	attackLeft int
}

// NewSimulator creates a simulator for the given raw sensors.
func NewSimulator(opts SimulatorOptions, sink FrameSink) *Simulator {
	if opts.Interval <= 0 {
		opts.Interval = 2 * time.Second
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Simulator{
		opts: opts,
		sink: sink,
		rng:  rand.New(rand.NewSource(seed)),
	}
}

// Run emits one message per interval/speed until ctx is cancelled. Nothing
// is emitted while playback is paused.
func (s *Simulator) Run(ctx context.Context) {
	logger.Infof("[SIM] Starting simulated feed (%d sensors, interval %s)", len(s.opts.Sensors), s.opts.Interval)
	timer := time.NewTimer(s.nextDelay())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Infof("[SIM] Stopping simulated feed")
			return
		case <-timer.C:
			if s.playing() {
				s.emit(time.Now().UTC())
			}
			timer.Reset(s.nextDelay())
		}
	}
}

func (s *Simulator) playing() bool {
	if s.opts.Playback == nil {
		return true
	}
	return s.opts.Playback().IsPlaying
}

func (s *Simulator) nextDelay() time.Duration {
	speed := 1.0
	if s.opts.Playback != nil {
		if v := s.opts.Playback().Speed; v > 0 {
			speed = v
		}
	}
	return time.Duration(float64(s.opts.Interval) / speed)
}

func (s *Simulator) emit(at time.Time) {
	data, err := json.Marshal(s.Next(at))
	if err != nil {
		logger.Errorf("[SIM] Error marshaling message: %v", err)
		return
	}
	if err := s.sink.IngestRaw(data); err != nil {
		logger.Warnf("[SIM] Message rejected: %v", err)
	}
}

// Next builds the message for one time step.
func (s *Simulator) Next(at time.Time) *models.StreamMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.index++
	if s.attackLeft > 0 {
		s.attackLeft--
	} else if s.rng.Float64() < simAttackChance {
		s.attackLeft = simAttackMin + s.rng.Intn(simAttackMax-simAttackMin+1)
	}
	attack := s.attackLeft > 0

	score := s.rng.Float64() * 0.6
	if attack {
		score = 0.75 + s.rng.Float64()*0.25
	}

	msg := &models.StreamMessage{
		Index:     s.index,
		Timestamp: at.Format(time.RFC3339Nano),
		Sensors:   make(map[string]models.Reading, len(s.opts.Sensors)),
		Label:     models.NewLabel(0),
		Prediction: &models.Prediction{
			AnomalyScore:        models.NewReading(score),
			IsAttack:            attack,
			PerFeatureZ:         make(map[string]float64, len(s.opts.Sensors)),
			PerFeatureIntensity: make(map[string]float64, len(s.opts.Sensors)),
			PerFeatureFlag:      make(map[string]models.SensorStatus, len(s.opts.Sensors)),
		},
	}
	if attack {
		msg.Label = models.NewLabel("attack")
	}

	for _, id := range s.opts.Sensors {
		r, ok := simRanges[id]
		if !ok {
			r = [2]float64{0, 100}
		}
		msg.Sensors[id] = models.NewReading(r[0] + s.rng.Float64()*(r[1]-r[0]))

		z := s.rng.NormFloat64()
		if attack {
			z *= 3
		}
		intensity := min(math.Abs(z)/4, 1)
		msg.Prediction.PerFeatureZ[id] = z
		msg.Prediction.PerFeatureIntensity[id] = intensity
		msg.Prediction.PerFeatureFlag[id] = flagForZ(z)
	}
	return msg
}

func flagForZ(z float64) models.SensorStatus {
	switch a := math.Abs(z); {
	case a > 3:
		return models.StatusCritical
	case a > 2:
		return models.StatusWarning
	default:
		return models.StatusNormal
	}
}
