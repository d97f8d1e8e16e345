package throttle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiter_TracksInFlight(t *testing.T) {
	l := Unlimited()
	release := make(chan struct{})
	var wg sync.WaitGroup

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.Do(context.Background(), func(context.Context) error {
				<-release
				return nil
			})
		}()
	}

	assert.Eventually(t, func() bool { return l.InFlight() == 4 }, time.Second, 5*time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(0), l.InFlight())
	assert.Equal(t, int64(4), l.Peak())
	assert.Equal(t, int64(4), l.Total())
}

func TestLimiter_RateLimits(t *testing.T) {
	l := New(Config{RequestsPerSecond: 20, Burst: 1})
	start := time.Now()

	for i := 0; i < 3; i++ {
		assert.NoError(t, l.Do(context.Background(), func(context.Context) error { return nil }))
	}

	// Burst of one: the second and third calls each wait ~50ms.
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestLimiter_ContextCancelled(t *testing.T) {
	l := New(Config{RequestsPerSecond: 0.001, Burst: 1})
	_ = l.Do(context.Background(), func(context.Context) error { return nil })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	called := false
	err := l.Do(ctx, func(context.Context) error {
		called = true
		return nil
	})
	assert.Error(t, err)
	assert.False(t, called)
}

func TestCall(t *testing.T) {
	l := Unlimited()
	v, err := Call(context.Background(), l, func(context.Context) (int, error) { return 7, nil })
	assert.NoError(t, err)
	assert.Equal(t, 7, v)

	_, err = Call(context.Background(), l, func(context.Context) (int, error) { return 0, errors.New("nope") })
	assert.EqualError(t, err, "nope")
}
