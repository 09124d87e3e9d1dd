// Package circuitbreaker 熔断器
//
// 用于保护非关键依赖(如Redis缓存):依赖故障时快速失败,调用方直接降级,
// 不必让每个请求都等到超时。
//
// 状态转换:
//
//	CLOSED --(ShouldTrip为true)--> OPEN --(OpenTimeout到期)--> HALF_OPEN
//	HALF_OPEN --(探测成功)--> CLOSED
//	HALF_OPEN --(探测失败)--> OPEN
package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// State 熔断器状态
type State int

const (
	StateClosed   State = iota // 正常放行,统计失败
	StateOpen                  // 熔断,所有调用直接返回ErrOpen
	StateHalfOpen              // 放行少量探测请求
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// ErrOpen 熔断器打开(或半开探测名额已满)时返回
var ErrOpen = errors.New("circuit breaker is open")

// Settings 熔断器参数
type Settings struct {
	// HalfOpenMaxRequests 半开状态允许的探测请求数,0按1处理
	HalfOpenMaxRequests uint32
	// Interval 关闭状态的统计窗口,到期清零计数;0表示不清零
	Interval time.Duration
	// OpenTimeout 打开状态持续多久后进入半开
	OpenTimeout time.Duration
	// ShouldTrip 每次失败后调用,返回true则打开熔断器
	// 为nil时使用连续失败5次的默认策略
	ShouldTrip func(c Counts) bool
	// OnStateChange 状态变化回调(日志、指标),在锁内调用,不能回调熔断器自身
	OnStateChange func(name string, from, to State)
}

// Counts 当前统计窗口内的计数
type Counts struct {
	Requests             uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

// FailureRate 失败率
func (c Counts) FailureRate() float64 {
	if c.Requests == 0 {
		return 0
	}
	return float64(c.TotalFailures) / float64(c.Requests)
}

func (c *Counts) success() {
	c.ConsecutiveSuccesses++
	c.ConsecutiveFailures = 0
}

func (c *Counts) failure() {
	c.TotalFailures++
	c.ConsecutiveFailures++
	c.ConsecutiveSuccesses = 0
}

// ConsecutiveFailures 返回"连续失败n次即熔断"的策略
func ConsecutiveFailures(n uint32) func(Counts) bool {
	return func(c Counts) bool {
		return c.ConsecutiveFailures >= n
	}
}

// Breaker 熔断器,可被多个goroutine并发使用
type Breaker struct {
	name     string
	settings Settings
	now      func() time.Time

	mu         sync.Mutex
	state      State
	generation uint64 // 每次状态切换+1,丢弃上一轮请求的结果
	counts     Counts
	expiry     time.Time
}

// New 创建熔断器
func New(name string, s Settings) *Breaker {
	if s.HalfOpenMaxRequests == 0 {
		s.HalfOpenMaxRequests = 1
	}
	if s.ShouldTrip == nil {
		s.ShouldTrip = ConsecutiveFailures(5)
	}

	b := &Breaker{
		name:     name,
		settings: s,
		now:      time.Now,
	}
	b.resetWindow(b.now())
	return b
}

// Name 熔断器名称
func (b *Breaker) Name() string { return b.name }

// Do 在熔断器保护下执行fn
// 熔断时不调用fn,直接返回ErrOpen;否则返回fn的结果
func (b *Breaker) Do(fn func() error) error {
	generation, err := b.allow()
	if err != nil {
		return err
	}

	err = fn()
	b.done(generation, err == nil)
	return err
}

// State 当前状态(会处理到期的状态切换)
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, _ := b.current(b.now())
	return state
}

// Counts 当前统计
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts
}

func (b *Breaker) allow() (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, generation := b.current(b.now())
	switch {
	case state == StateOpen:
		return generation, ErrOpen
	case state == StateHalfOpen && b.counts.Requests >= b.settings.HalfOpenMaxRequests:
		return generation, ErrOpen
	}

	b.counts.Requests++
	return generation, nil
}

func (b *Breaker) done(before uint64, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	state, generation := b.current(now)
	if generation != before {
		return
	}

	if ok {
		b.counts.success()
		if state == StateHalfOpen && b.counts.ConsecutiveSuccesses >= b.settings.HalfOpenMaxRequests {
			b.setState(StateClosed, now)
		}
		return
	}

	b.counts.failure()
	switch state {
	case StateClosed:
		if b.settings.ShouldTrip(b.counts) {
			b.setState(StateOpen, now)
		}
	case StateHalfOpen:
		b.setState(StateOpen, now)
	}
}

// current 返回当前状态,顺带处理窗口到期和OPEN超时
func (b *Breaker) current(now time.Time) (State, uint64) {
	switch b.state {
	case StateClosed:
		if !b.expiry.IsZero() && b.expiry.Before(now) {
			b.resetWindow(now)
		}
	case StateOpen:
		if b.expiry.Before(now) {
			b.setState(StateHalfOpen, now)
		}
	}
	return b.state, b.generation
}

func (b *Breaker) setState(state State, now time.Time) {
	if b.state == state {
		return
	}

	prev := b.state
	b.state = state
	b.generation++
	b.resetWindow(now)

	if b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.name, prev, state)
	}
}

func (b *Breaker) resetWindow(now time.Time) {
	b.counts = Counts{}

	switch b.state {
	case StateClosed:
		if b.settings.Interval > 0 {
			b.expiry = now.Add(b.settings.Interval)
		} else {
			b.expiry = time.Time{}
		}
	case StateOpen:
		b.expiry = now.Add(b.settings.OpenTimeout)
	default:
		b.expiry = time.Time{}
	}
}
