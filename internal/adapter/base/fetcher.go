// Package base 各平台适配器共用的抓取流水线与解析工具。
package base

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"TicketSync/internal/config"
	"TicketSync/internal/errs"
	"TicketSync/internal/identity"
	"TicketSync/internal/model"
	"TicketSync/internal/ratelimit"
	"TicketSync/internal/store"
	"TicketSync/internal/utils/clock"
	"TicketSync/internal/utils/httpclient"

	"github.com/sirupsen/logrus"
)

// DefaultRetryAfter 429 未携带 Retry-After 时的冷却时长
const DefaultRetryAfter = 300 * time.Second

// Toolkit 所有适配器共享的组件，由进程入口组装一次
type Toolkit struct {
	Identity    *identity.Manager
	Limiter     *ratelimit.Controller
	HTTP        config.HTTPConfig
	Details     *store.TTLCache[*model.Fixture] // 详情页缓存，按URL
	MaxRetries  int
	Concurrency int // 单平台内并发单元上限
	HumanDelays bool
	Logger      *logrus.Logger

	// PlatformDetails 有独立TTL的平台详情缓存
	PlatformDetails map[model.PlatformType]*store.TTLCache[*model.Fixture]
	Clock           clock.Clock
}

// CachedDetail 按平台缓存详情页解析结果；未配置缓存时直接加载
func (k *Toolkit) CachedDetail(ctx context.Context, platform model.PlatformType, key string, load func(context.Context) (*model.Fixture, error)) (*model.Fixture, error) {
	cache := k.Details
	if c, ok := k.PlatformDetails[platform]; ok && c != nil {
		cache = c
	}
	if cache == nil {
		return load(ctx)
	}
	f, _, err := cache.GetOrLoad(ctx, string(platform)+":"+key, load)
	return f, err
}

// Request 单次抓取参数
type Request struct {
	URL     string
	Query   url.Values
	RateKey string // 限流与敏感度判断的键（俱乐部key、区域等），为空时使用平台名
	Locale  string
	BaseURL string // 用作 Referer 的站点地址
	Kind    identity.RequestKind
	Pattern *identity.DelayPattern // 发送前的人类行为停顿，可为空
}

// Response 已读取完毕的响应
type Response struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
}

// IsJSON 响应是否为JSON
func (r *Response) IsJSON() bool {
	mt, _, err := mime.ParseMediaType(r.ContentType)
	if err != nil {
		return strings.Contains(strings.ToLower(r.ContentType), "json")
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

// Fetcher 单个平台的抓取器：限流 → 请求头 → 请求 → 反爬检测 → 有限重试
type Fetcher struct {
	kit      *Toolkit
	platform model.PlatformType
	client   *http.Client
	retries  int
	logger   *logrus.Logger
}

func NewFetcher(kit *Toolkit, platform model.PlatformType, cfg *config.PlatformConfig) *Fetcher {
	retries := kit.MaxRetries
	if cfg != nil && cfg.RetryCount > 0 {
		retries = cfg.RetryCount
	}
	return &Fetcher{
		kit:      kit,
		platform: platform,
		client:   httpclient.NewHTTPClient(cfg, kit.HTTP, kit.Logger),
		retries:  retries,
		logger:   kit.Logger,
	}
}

// Fetch 执行一次带限流和重试的抓取。
// 返回的错误为 errs 包中的类型：RateLimitedError 不等待直接返回，BotDetectionError 不重试
func (f *Fetcher) Fetch(ctx context.Context, req Request) (*Response, error) {
	key := req.RateKey
	if key == "" {
		key = string(f.platform)
	}
	for attempt := 0; ; attempt++ {
		if err := f.kit.Limiter.Acquire(key); err != nil {
			return nil, err
		}
		if err := f.kit.Limiter.Throttle(ctx, key); err != nil {
			return nil, err
		}
		if f.kit.HumanDelays && req.Pattern != nil {
			if err := f.kit.Identity.RandomDelay(ctx, key, *req.Pattern); err != nil {
				return nil, err
			}
		}

		resp, err := f.do(ctx, key, req)
		if err == nil {
			f.kit.Limiter.RecordSuccess(key)
			return resp, nil
		}
		failures := f.kit.Limiter.RecordFailure(key)
		if !errs.Retryable(err) || attempt >= f.retries || ctx.Err() != nil {
			return nil, err
		}
		f.logger.WithFields(logrus.Fields{
			"platform": f.platform,
			"key":      key,
			"attempt":  attempt + 1,
			"failures": failures,
		}).WithError(err).Warn("请求失败，退避后重试")
		if err := f.kit.Limiter.ApplyBackoff(ctx, attempt); err != nil {
			return nil, err
		}
	}
}

func (f *Fetcher) do(ctx context.Context, key string, req Request) (*Response, error) {
	target := req.URL
	if len(req.Query) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + req.Query.Encode()
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &errs.NetworkError{Platform: string(f.platform), URL: target, Err: err}
	}
	httpReq.Header = f.kit.Identity.BuildHeaders(identity.Target{
		Platform: key,
		Locale:   req.Locale,
		BaseURL:  req.BaseURL,
		Kind:     req.Kind,
	})

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, &errs.NetworkError{Platform: string(f.platform), URL: target, Err: err}
	}
	defer resp.Body.Close()

	limit := f.kit.HTTP.MaxBodyBytes
	if limit <= 0 {
		limit = 8 << 20
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, &errs.NetworkError{Platform: string(f.platform), URL: target, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		wait := parseRetryAfter(resp.Header.Get("Retry-After"), f.now())
		f.kit.Limiter.CoolDown(key, wait)
		return nil, &errs.RateLimitedError{Platform: key, Reason: "http_429", RetryAfter: wait}
	}

	text := string(body)
	if identity.IsBotDetectionResponse(text) {
		provider := identity.DetectChallenge(text)
		f.kit.Limiter.CoolDown(key, identity.ChallengeCooldown(provider))
		f.logger.WithFields(logrus.Fields{
			"platform": f.platform,
			"key":      key,
			"url":      target,
			"status":   resp.StatusCode,
			"provider": provider,
		}).Warn("检测到反爬页面，停止本次抓取")
		return nil, &errs.BotDetectionError{Platform: key, URL: target, Provider: provider}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &errs.NetworkError{Platform: string(f.platform), URL: target, StatusCode: resp.StatusCode}
	}
	return &Response{
		URL:         target,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

func (f *Fetcher) now() time.Time {
	if f.kit.Clock != nil {
		return f.kit.Clock.Now()
	}
	return time.Now()
}

// parseRetryAfter 支持秒数和HTTP日期两种格式
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return DefaultRetryAfter
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return DefaultRetryAfter
}

// UnitError 将单元级错误格式化为 "unit: 原因"
func UnitError(unit string, err error) string {
	return fmt.Sprintf("%s: %v", unit, err)
}
