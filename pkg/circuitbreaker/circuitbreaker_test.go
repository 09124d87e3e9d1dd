package circuitbreaker

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDown = errors.New("redis: connection refused")

// fakeClock 可手动推进的时钟
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestBreaker(s Settings) (*Breaker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	b := New("redis", s)
	b.now = clock.Now
	b.resetWindow(clock.Now())
	return b, clock
}

func fail() error    { return errDown }
func succeed() error { return nil }

func TestBreaker_ClosedPassesThrough(t *testing.T) {
	b, _ := newTestBreaker(Settings{OpenTimeout: time.Second})

	for i := 0; i < 10; i++ {
		require.NoError(t, b.Do(succeed))
	}
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, uint32(10), b.Counts().Requests)

	// 业务错误原样返回
	assert.ErrorIs(t, b.Do(fail), errDown)
}

func TestBreaker_TripsAfterConsecutiveFailures(t *testing.T) {
	var transitions []string
	b, _ := newTestBreaker(Settings{
		OpenTimeout: 30 * time.Second,
		ShouldTrip:  ConsecutiveFailures(3),
		OnStateChange: func(name string, from, to State) {
			transitions = append(transitions, name+":"+from.String()+"->"+to.String())
		},
	})

	// 中间的成功会打断连续失败
	_ = b.Do(fail)
	_ = b.Do(fail)
	_ = b.Do(succeed)
	_ = b.Do(fail)
	_ = b.Do(fail)
	assert.Equal(t, StateClosed, b.State())

	_ = b.Do(fail)
	assert.Equal(t, StateOpen, b.State())
	assert.Equal(t, []string{"redis:closed->open"}, transitions)

	called := false
	err := b.Do(func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called, "熔断时不应执行fn")
}

func TestBreaker_HalfOpenRecovers(t *testing.T) {
	b, clock := newTestBreaker(Settings{
		OpenTimeout: 30 * time.Second,
		ShouldTrip:  ConsecutiveFailures(1),
	})

	_ = b.Do(fail)
	require.Equal(t, StateOpen, b.State())

	clock.Advance(29 * time.Second)
	assert.Equal(t, StateOpen, b.State())

	clock.Advance(2 * time.Second)
	assert.Equal(t, StateHalfOpen, b.State())

	require.NoError(t, b.Do(succeed))
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	b, clock := newTestBreaker(Settings{
		OpenTimeout: 10 * time.Second,
		ShouldTrip:  ConsecutiveFailures(1),
	})

	_ = b.Do(fail)
	clock.Advance(11 * time.Second)
	require.Equal(t, StateHalfOpen, b.State())

	assert.ErrorIs(t, b.Do(fail), errDown)
	assert.Equal(t, StateOpen, b.State())
}

func TestBreaker_HalfOpenLimitsProbes(t *testing.T) {
	b, clock := newTestBreaker(Settings{
		OpenTimeout:         10 * time.Second,
		HalfOpenMaxRequests: 1,
		ShouldTrip:          ConsecutiveFailures(1),
	})

	_ = b.Do(fail)
	clock.Advance(11 * time.Second)

	// 第一个探测请求执行中,第二个请求被拒绝
	release := make(chan struct{})
	trialDone := make(chan error)
	go func() {
		trialDone <- b.Do(func() error {
			<-release
			return nil
		})
	}()

	require.Eventually(t, func() bool {
		return b.Counts().Requests == 1
	}, time.Second, time.Millisecond)
	assert.ErrorIs(t, b.Do(succeed), ErrOpen)

	close(release)
	require.NoError(t, <-trialDone)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_IntervalResetsCounts(t *testing.T) {
	b, clock := newTestBreaker(Settings{
		Interval:    10 * time.Second,
		OpenTimeout: time.Minute,
		ShouldTrip:  ConsecutiveFailures(3),
	})

	_ = b.Do(fail)
	_ = b.Do(fail)
	clock.Advance(11 * time.Second)

	_ = b.Do(fail)
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, uint32(1), b.Counts().ConsecutiveFailures)
}

func TestCounts_FailureRate(t *testing.T) {
	assert.Zero(t, Counts{}.FailureRate())
	assert.InDelta(t, 0.25, Counts{Requests: 4, TotalFailures: 1}.FailureRate(), 1e-9)
}

func TestBreaker_Concurrent(t *testing.T) {
	b := New("redis", Settings{OpenTimeout: time.Second, ShouldTrip: ConsecutiveFailures(1000)})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_ = b.Do(fail)
				return
			}
			_ = b.Do(succeed)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, uint32(50), b.Counts().Requests)
	assert.Equal(t, uint32(25), b.Counts().TotalFailures)
}
