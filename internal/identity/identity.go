// Package identity 为每次外部请求生成随机且合理的请求指纹（UA、请求头、时序）。
package identity

import (
	"context"
	"math/rand/v2"
	"net/http"
	"strings"
	"sync"
	"time"

	"TicketSync/internal/utils/clock"

	"github.com/sirupsen/logrus"
)

// RequestKind 请求类型，决定 Accept 头
type RequestKind int

const (
	KindHTML RequestKind = iota
	KindJSON
)

// Target 单次请求的身份参数，全部显式传入
type Target struct {
	Platform string // 平台或子来源标识（俱乐部key、区域），用于敏感度判断
	Locale   string
	BaseURL  string
	Kind     RequestKind
}

// DelayPattern 人类行为延迟模式
type DelayPattern struct {
	Name        string
	Min         time.Duration
	Max         time.Duration
	Exponential bool // 偏向短延迟、偶有长停顿
}

var (
	PatternPageLoad    = DelayPattern{Name: "page_load", Min: 2 * time.Second, Max: 5 * time.Second}
	PatternSearch      = DelayPattern{Name: "search", Min: 1500 * time.Millisecond, Max: 3500 * time.Millisecond}
	PatternTicketCheck = DelayPattern{Name: "ticket_check", Min: 3 * time.Second, Max: 8 * time.Second, Exponential: true}
	PatternNavigation  = DelayPattern{Name: "navigation", Min: 800 * time.Millisecond, Max: 2 * time.Second}
)

// DefaultSensitiveMultiplier 未单独配置倍率的敏感来源
const DefaultSensitiveMultiplier = 1.25

// Options 身份管理器配置
type Options struct {
	Sensitive          map[string]float64 // 敏感来源 → 延迟倍率
	RefererProbability float64
	HintProbability    float64
	Seed               uint64 // 0 表示按时间随机
	Sleep              clock.SleepFunc
}

// Manager 请求身份管理器，并发安全
type Manager struct {
	mu        sync.Mutex
	rng       *rand.Rand
	sensitive map[string]float64
	refererP  float64
	hintP     float64
	sleep     clock.SleepFunc
	logger    *logrus.Logger
}

func NewManager(opts Options, logger *logrus.Logger) *Manager {
	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	if opts.RefererProbability <= 0 {
		opts.RefererProbability = 0.15
	}
	if opts.HintProbability <= 0 {
		opts.HintProbability = 0.7
	}
	if opts.Sleep == nil {
		opts.Sleep = clock.Sleep
	}
	sensitive := make(map[string]float64, len(opts.Sensitive))
	for k, v := range opts.Sensitive {
		sensitive[strings.ToLower(k)] = v
	}
	return &Manager{
		rng:       rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		sensitive: sensitive,
		refererP:  opts.RefererProbability,
		hintP:     opts.HintProbability,
		sleep:     opts.Sleep,
		logger:    logger,
	}
}

// IsSensitive 来源是否被标记为高敏感
func (m *Manager) IsSensitive(platform string) bool {
	_, ok := m.lookup(platform)
	return ok
}

// lookup 子键（如 regional:au）未配置时回落到所属平台
func (m *Manager) lookup(platform string) (float64, bool) {
	key := strings.ToLower(platform)
	if v, ok := m.sensitive[key]; ok {
		return v, true
	}
	if parent, _, found := strings.Cut(key, ":"); found {
		v, ok := m.sensitive[parent]
		return v, ok
	}
	return 0, false
}

func (m *Manager) multiplier(platform string) float64 {
	v, ok := m.lookup(platform)
	if !ok {
		return 1
	}
	if v <= 0 {
		return DefaultSensitiveMultiplier
	}
	return v
}

func (m *Manager) float() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rng.Float64()
}

func (m *Manager) intn(n int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rng.IntN(n)
}

func (m *Manager) chance(p float64) bool { return m.float() < p }

// BuildHeaders 生成一组随机但自洽的请求头
func (m *Manager) BuildHeaders(t Target) http.Header {
	fp := fingerprints[m.intn(len(fingerprints))]
	h := http.Header{}
	h.Set("User-Agent", fp.userAgents[m.intn(len(fp.userAgents))])

	if t.Kind == KindJSON {
		h.Set("Accept", jsonAccepts[m.intn(len(jsonAccepts))])
	} else {
		h.Set("Accept", htmlAccepts[m.intn(len(htmlAccepts))])
		h.Set("Upgrade-Insecure-Requests", "1")
	}
	h.Set("Accept-Language", acceptLanguage(t.Locale))

	// 客户端提示头仅 Chromium 系发送，且逐项独立随机
	if fp.chromium {
		if m.chance(m.hintP) {
			h.Set("Sec-Ch-Ua", fp.brands[m.intn(len(fp.brands))])
		}
		if m.chance(m.hintP) {
			h.Set("Sec-Ch-Ua-Mobile", "?0")
		}
		if m.chance(m.hintP) {
			h.Set("Sec-Ch-Ua-Platform", fp.platform)
		}
	}
	if m.chance(0.5) {
		h.Set("Sec-Fetch-Site", "none")
		h.Set("Sec-Fetch-Mode", "navigate")
		h.Set("Sec-Fetch-Dest", "document")
	}
	if m.chance(0.3) {
		h.Set("DNT", "1")
	}
	if t.BaseURL != "" && m.chance(m.refererP) {
		h.Set("Referer", t.BaseURL)
	}
	return h
}

// Viewport 随机视口尺寸
func (m *Manager) Viewport() (int, int) {
	fp := fingerprints[m.intn(len(fingerprints))]
	v := fp.viewports[m.intn(len(fp.viewports))]
	return v[0], v[1]
}

func acceptLanguage(locale string) string {
	if v, ok := acceptLanguages[locale]; ok {
		return v
	}
	return acceptLanguages["en-GB"]
}

// Delay 计算某模式下的随机延迟，敏感来源按倍率放大
func (m *Manager) Delay(platform string, p DelayPattern) time.Duration {
	r := m.float()
	if p.Exponential {
		r = r * r
	}
	d := p.Min + time.Duration(r*float64(p.Max-p.Min))
	return time.Duration(float64(d) * m.multiplier(platform))
}

// RandomDelay 阻塞当前协程模拟人类停顿，可被 ctx 取消
func (m *Manager) RandomDelay(ctx context.Context, platform string, p DelayPattern) error {
	d := m.Delay(platform, p)
	m.logger.WithFields(logrus.Fields{"platform": platform, "pattern": p.Name, "delay": d}).Debug("模拟人类停顿")
	return m.sleep(ctx, d)
}

// SimulateBrowsing 模拟浏览：若干次页面跳转停顿后加一次页面加载停顿
func (m *Manager) SimulateBrowsing(ctx context.Context, platform string) error {
	steps := 1 + m.intn(2)
	for i := 0; i < steps; i++ {
		if err := m.RandomDelay(ctx, platform, PatternNavigation); err != nil {
			return err
		}
	}
	return m.RandomDelay(ctx, platform, PatternPageLoad)
}
