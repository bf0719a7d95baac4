package services

import (
	"context"
	"testing"
	"time"

	"twinconsole/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulator_NextCoversEverySensor(t *testing.T) {
	sim := NewSimulator(SimulatorOptions{Sensors: []string{"lit101", "fit101", "xyz"}, Seed: 7}, nil)

	at := testBase
	for i := int64(1); i <= 50; i++ {
		msg := sim.Next(at)
		assert.Equal(t, i, msg.Index)
		require.Len(t, msg.Sensors, 3)

		lit := msg.Sensors["lit101"].Float()
		assert.GreaterOrEqual(t, lit, 480.0)
		assert.LessOrEqual(t, lit, 820.0)
		assert.LessOrEqual(t, msg.Sensors["xyz"].Float(), 100.0)

		score := msg.Prediction.Score()
		if msg.Prediction.IsAttack {
			assert.True(t, msg.Label.IsAttack())
			assert.GreaterOrEqual(t, score, 0.75)
		} else {
			assert.Less(t, score, 0.6)
		}
		for id := range msg.Sensors {
			assert.True(t, msg.Prediction.PerFeatureFlag[id].Valid())
		}
		at = at.Add(2 * time.Second)
	}
}

func TestSimulator_RunFeedsConsole(t *testing.T) {
	console := newTestConsole()
	sim := NewSimulator(SimulatorOptions{
		Sensors:  []string{"lit101", "fit101"},
		Interval: 20 * time.Millisecond,
		Playback: func() models.PlaybackState { return models.PlaybackState{Speed: 2, IsPlaying: true} },
		Seed:     1,
	}, console)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sim.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return console.Stats().Messages >= 3 }, 5*time.Second, 5*time.Millisecond)
	cancel()
	<-done
	assert.Zero(t, console.Stats().Malformed)
}

func TestSimulator_PausedEmitsNothing(t *testing.T) {
	console := newTestConsole()
	sim := NewSimulator(SimulatorOptions{
		Sensors:  []string{"lit101"},
		Interval: 5 * time.Millisecond,
		Playback: func() models.PlaybackState { return models.PlaybackState{Speed: 1, IsPlaying: false} },
	}, console)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	sim.Run(ctx)

	assert.Zero(t, console.Stats().Messages)
}

func TestFlagForZ(t *testing.T) {
	assert.Equal(t, models.StatusCritical, flagForZ(-3.5))
	assert.Equal(t, models.StatusWarning, flagForZ(2.5))
	assert.Equal(t, models.StatusNormal, flagForZ(0.3))
}
