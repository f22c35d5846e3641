package httpclient

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"TicketSync/internal/config"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// DefaultTimeout 外部请求默认硬超时
const DefaultTimeout = 30 * time.Second

// NewHTTPClient 通用HTTP客户端构建方法（支持代理、超时、自动解压、按主机限速）
func NewHTTPClient(cfg *config.PlatformConfig, httpCfg config.HTTPConfig, logger *logrus.Logger) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		IdleConnTimeout:     30 * time.Second,
		DisableCompression:  false,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	// 配置代理
	if cfg != nil && cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			logger.WithError(err).WithField("proxy", cfg.Proxy).Warn("代理地址解析失败，将不使用代理")
		} else {
			transport.Proxy = http.ProxyURL(proxyURL)
			logger.WithField("proxy", cfg.Proxy).Info("HTTP客户端已配置代理")
		}
	}

	timeout := httpCfg.Timeout
	if cfg != nil && cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Second
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var rt http.RoundTripper = &compressedTransport{transport: transport, logger: logger}
	if httpCfg.HostRatePerSec > 0 {
		rt = NewHostLimiter(rt, rate.Limit(httpCfg.HostRatePerSec), httpCfg.HostBurst)
	}
	return &http.Client{Timeout: timeout, Transport: rt}
}

type compressedTransport struct {
	transport http.RoundTripper
	logger    *logrus.Logger
}

func (c *compressedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("Accept-Encoding", "gzip")
	resp, err := c.transport.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	// 处理gzip解压
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			c.logger.WithError(err).Warn("gzip解压失败，返回原始响应")
			return resp, nil
		}
		resp.Body = &gzipReadCloser{Reader: gzReader, closer: resp.Body}
		resp.Header.Del("Content-Encoding")
		resp.ContentLength = -1
	}

	return resp, nil
}

// gzipReadCloser 关闭时同时释放解压reader和原始响应体
type gzipReadCloser struct {
	*gzip.Reader
	closer io.ReadCloser
}

func (g *gzipReadCloser) Close() error {
	if err := g.Reader.Close(); err != nil {
		_ = g.closer.Close()
		return err
	}
	return g.closer.Close()
}

// HostLimiter 按目标主机的令牌桶限速，和平台级间隔控制互为补充
type HostLimiter struct {
	next  http.RoundTripper
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewHostLimiter(next http.RoundTripper, limit rate.Limit, burst int) *HostLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &HostLimiter{next: next, limit: limit, burst: burst, limiters: make(map[string]*rate.Limiter)}
}

func (h *HostLimiter) limiter(host string) *rate.Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()
	l, ok := h.limiters[host]
	if !ok {
		l = rate.NewLimiter(h.limit, h.burst)
		h.limiters[host] = l
	}
	return l
}

func (h *HostLimiter) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := h.limiter(req.URL.Host).Wait(req.Context()); err != nil {
		return nil, err
	}
	return h.next.RoundTrip(req)
}
