// Package ratelimit 按来源控制请求间隔、滚动窗口配额与失败退避。
package ratelimit

import (
	"context"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"TicketSync/internal/errs"
	"TicketSync/internal/utils/clock"

	"github.com/sirupsen/logrus"
)

// Options 限流配置
type Options struct {
	Sensitive        map[string]float64 // 与身份管理器共用的敏感来源表
	SensitiveSpacing [2]time.Duration
	StandardSpacing  [2]time.Duration
	SensitiveCeiling int
	StandardCeiling  int
	Window           time.Duration
	BackoffBase      time.Duration
	BackoffCap       time.Duration
	BusinessHours    [2]int // [开始, 结束) 小时，仅工作日
	OffPeakHours     [2]int // 跨零点，[开始, 结束)
	OffPeakFactor    float64
	Clock            clock.Clock
	Sleep            clock.SleepFunc
	Seed             uint64
}

func (o *Options) applyDefaults() {
	if o.SensitiveSpacing[1] == 0 {
		o.SensitiveSpacing = [2]time.Duration{2 * time.Second, 6 * time.Second}
	}
	if o.StandardSpacing[1] == 0 {
		o.StandardSpacing = [2]time.Duration{1 * time.Second, 4 * time.Second}
	}
	if o.SensitiveCeiling <= 0 {
		o.SensitiveCeiling = 15
	}
	if o.StandardCeiling <= 0 {
		o.StandardCeiling = 25
	}
	if o.Window <= 0 {
		o.Window = time.Minute
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = time.Second
	}
	if o.BackoffCap <= 0 {
		o.BackoffCap = time.Minute
	}
	if o.BusinessHours == [2]int{} {
		o.BusinessHours = [2]int{9, 18}
	}
	if o.OffPeakHours == [2]int{} {
		o.OffPeakHours = [2]int{22, 7}
	}
	if o.OffPeakFactor <= 0 {
		o.OffPeakFactor = 0.7
	}
	if o.Clock == nil {
		o.Clock = clock.Real{}
	}
	if o.Sleep == nil {
		o.Sleep = clock.Sleep
	}
	if o.Seed == 0 {
		o.Seed = uint64(time.Now().UnixNano())
	}
}

// Controller 按平台隔离的限流与退避控制器
type Controller struct {
	opts   Options
	mu     sync.Mutex
	states map[string]*platformState

	rngMu sync.Mutex
	rng   *rand.Rand

	logger *logrus.Logger
}

func NewController(opts Options, logger *logrus.Logger) *Controller {
	opts.applyDefaults()
	sensitive := make(map[string]float64, len(opts.Sensitive))
	for k, v := range opts.Sensitive {
		sensitive[strings.ToLower(k)] = v
	}
	opts.Sensitive = sensitive
	return &Controller{
		opts:   opts,
		states: make(map[string]*platformState),
		rng:    rand.New(rand.NewPCG(opts.Seed, opts.Seed>>1|1)),
		logger: logger,
	}
}

func (c *Controller) randFloat() float64 {
	c.rngMu.Lock()
	defer c.rngMu.Unlock()
	return c.rng.Float64()
}

// IsSensitive 来源是否为高敏感；"regional:uk" 这类子键未单独配置时按所属平台判断
func (c *Controller) IsSensitive(platform string) bool {
	key := strings.ToLower(platform)
	if _, ok := c.opts.Sensitive[key]; ok {
		return true
	}
	if parent, _, found := strings.Cut(key, ":"); found {
		_, ok := c.opts.Sensitive[parent]
		return ok
	}
	return false
}

// Ceiling 平台每窗口请求上限
func (c *Controller) Ceiling(platform string) int {
	if c.IsSensitive(platform) {
		return c.opts.SensitiveCeiling
	}
	return c.opts.StandardCeiling
}

// MinSpacing 计算最小请求间隔：敏感来源工作时间加倍，深夜时段打七折
func (c *Controller) MinSpacing(platform string, now time.Time) time.Duration {
	bounds := c.opts.StandardSpacing
	sensitive := c.IsSensitive(platform)
	if sensitive {
		bounds = c.opts.SensitiveSpacing
	}
	d := bounds[0] + time.Duration(c.randFloat()*float64(bounds[1]-bounds[0]))
	switch {
	case sensitive && c.isBusinessHours(now):
		d *= 2
	case c.isOffPeak(now):
		d = time.Duration(float64(d) * c.opts.OffPeakFactor)
	}
	return d
}

func (c *Controller) isBusinessHours(t time.Time) bool {
	if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	h := t.Hour()
	return h >= c.opts.BusinessHours[0] && h < c.opts.BusinessHours[1]
}

func (c *Controller) isOffPeak(t time.Time) bool {
	h := t.Hour()
	start, end := c.opts.OffPeakHours[0], c.opts.OffPeakHours[1]
	if start > end {
		return h >= start || h < end
	}
	return h >= start && h < end
}

// Throttle 阻塞直到距该平台上次请求已超过最小间隔；只持有该平台自己的锁
func (c *Controller) Throttle(ctx context.Context, platform string) error {
	ps := c.state(platform)
	ps.mu.Lock()
	defer ps.mu.Unlock()

	now := c.opts.Clock.Now()
	if !ps.state.LastRequest.IsZero() {
		wait := ps.state.LastRequest.Add(c.MinSpacing(platform, now)).Sub(now)
		if wait > 0 {
			c.logger.WithFields(logrus.Fields{"platform": platform, "wait": wait}).Debug("请求间隔限流等待")
			if err := c.opts.Sleep(ctx, wait); err != nil {
				return err
			}
		}
	}
	ps.state.LastRequest = c.opts.Clock.Now()
	return nil
}

// IsWindowExceeded 当前窗口是否已达上限或处于冷却期（只读）
func (c *Controller) IsWindowExceeded(platform string) bool {
	ps := c.state(platform)
	ps.mu.Lock()
	defer ps.mu.Unlock()
	now := c.opts.Clock.Now()
	if now.Before(ps.state.CooldownUntil) {
		return true
	}
	if ps.state.WindowStart.IsZero() || now.Sub(ps.state.WindowStart) >= c.opts.Window {
		return false
	}
	return ps.state.WindowCount >= c.Ceiling(platform)
}

// Acquire 占用一个窗口配额；超限时直接拒绝而不是等待
func (c *Controller) Acquire(platform string) error {
	ps := c.state(platform)
	ps.mu.Lock()
	defer ps.mu.Unlock()

	now := c.opts.Clock.Now()
	if now.Before(ps.state.CooldownUntil) {
		return &errs.RateLimitedError{Platform: platform, Reason: "cooldown", RetryAfter: ps.state.CooldownUntil.Sub(now)}
	}
	if ps.state.WindowStart.IsZero() || now.Sub(ps.state.WindowStart) >= c.opts.Window {
		ps.state.WindowStart = now
		ps.state.WindowCount = 0
	}
	if ps.state.WindowCount >= c.Ceiling(platform) {
		retry := ps.state.WindowStart.Add(c.opts.Window).Sub(now)
		c.logger.WithFields(logrus.Fields{
			"platform": platform,
			"count":    ps.state.WindowCount,
			"ceiling":  c.Ceiling(platform),
		}).Warn("请求窗口已达上限，拒绝本次请求")
		return &errs.RateLimitedError{Platform: platform, Reason: "window", RetryAfter: retry}
	}
	ps.state.WindowCount++
	return nil
}

// CoolDown 命中反爬或429后让平台冷却一段时间
func (c *Controller) CoolDown(platform string, d time.Duration) {
	ps := c.state(platform)
	ps.mu.Lock()
	defer ps.mu.Unlock()
	until := c.opts.Clock.Now().Add(d)
	if until.After(ps.state.CooldownUntil) {
		ps.state.CooldownUntil = until
	}
	c.logger.WithFields(logrus.Fields{"platform": platform, "cooldown": d}).Warn("平台进入冷却期")
}

// BackoffDelay 指数退避：min(base*2^attempt, cap) + [0, base) 抖动
func (c *Controller) BackoffDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := c.opts.BackoffCap
	if attempt < 30 {
		if exp := c.opts.BackoffBase << uint(attempt); exp > 0 && exp < c.opts.BackoffCap {
			d = exp
		}
	}
	return d + time.Duration(c.randFloat()*float64(c.opts.BackoffBase))
}

// ApplyBackoff 按尝试次数退避休眠，可被 ctx 取消
func (c *Controller) ApplyBackoff(ctx context.Context, attempt int) error {
	return c.opts.Sleep(ctx, c.BackoffDelay(attempt))
}
