package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(attempts int) Policy {
	p := DefaultPolicy()
	p.MaxAttempts = attempts
	p.BaseDelay = time.Millisecond
	p.MaxDelay = 2 * time.Millisecond
	return p
}

func TestKindOf(t *testing.T) {
	base := errors.New("boom")

	assert.Equal(t, KindTransient, KindOf(base))
	assert.Equal(t, KindPermanent, KindOf(Permanent(base)))
	assert.Equal(t, KindConfig, KindOf(ConfigError(base)))
	assert.Equal(t, KindTransient, KindOf(fmt.Errorf("wrapped: %w", Transient(base))))
	assert.Equal(t, KindPermanent, KindOf(context.Canceled))
	assert.Equal(t, Kind(""), KindOf(nil))

	assert.Nil(t, Permanent(nil))
	assert.True(t, errors.Is(Permanent(base), base))
}

func TestRun_RetriesTransient(t *testing.T) {
	calls := 0
	res, err := Run(context.Background(), fastPolicy(3), func() (string, error) {
		calls++
		if calls < 3 {
			return "", Transient(errors.New("503"))
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", res)
	assert.Equal(t, 3, calls)
}

func TestRun_StopsOnPermanent(t *testing.T) {
	calls := 0
	denied := errors.New("permission denied")
	_, err := Run(context.Background(), fastPolicy(5), func() (int, error) {
		calls++
		return 0, Permanent(denied)
	})

	assert.Equal(t, 1, calls)
	assert.True(t, errors.Is(err, denied))
	assert.True(t, IsPermanent(err))
}

func TestRun_ExhaustsAttempts(t *testing.T) {
	calls := 0
	var notified int
	p := fastPolicy(3)
	p.OnRetry = func(error, time.Duration) { notified++ }

	err := Do(context.Background(), p, func() error {
		calls++
		return Transient(errors.New("timeout"))
	})

	assert.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, notified)
}

func TestRun_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, fastPolicy(3), func() error {
		return Transient(errors.New("unreachable"))
	})
	assert.Error(t, err)
}

func TestConfig_Policy(t *testing.T) {
	p := Config{MaxAttempts: 5, BaseDelay: time.Second}.Policy()
	assert.Equal(t, 5, p.MaxAttempts)
	assert.Equal(t, time.Second, p.BaseDelay)
	assert.Equal(t, 5*time.Second, p.MaxDelay)

	d := Config{}.Policy()
	assert.Equal(t, DefaultPolicy().MaxAttempts, d.MaxAttempts)
	assert.NotNil(t, d.Retryable)
}
