package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLCache_ServesWithinTTL(t *testing.T) {
	now := time.Unix(1000, 0)
	c := NewTTLCache[int](time.Second)
	c.now = func() time.Time { return now }

	calls := 0
	fetch := func() (int, error) {
		calls++
		return calls, nil
	}

	v, err := c.Get(fetch)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	now = now.Add(500 * time.Millisecond)
	v, _ = c.Get(fetch)
	assert.Equal(t, 1, v)

	now = now.Add(time.Second)
	v, _ = c.Get(fetch)
	assert.Equal(t, 2, v)
	assert.Equal(t, 2, calls)
}

func TestTTLCache_FetchErrorIsNotCached(t *testing.T) {
	c := NewTTLCache[string](time.Minute)

	_, err := c.Get(func() (string, error) { return "", errors.New("backend down") })
	require.Error(t, err)

	v, err := c.Get(func() (string, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestTTLCache_Invalidate(t *testing.T) {
	c := NewTTLCache[int](time.Minute)
	c.Get(func() (int, error) { return 1, nil })
	c.Invalidate()

	v, _ := c.Get(func() (int, error) { return 2, nil })
	assert.Equal(t, 2, v)
}
