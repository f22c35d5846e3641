// Package errs 采集链路的错误分类。
// 单元级错误（单个俱乐部、单场赛事、单个票档）在适配器内被收集为字符串，不向上抛出。
package errs

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// NetworkError 非2xx响应或传输失败，可按退避策略有限重试
type NetworkError struct {
	Platform   string
	URL        string
	StatusCode int // 0 表示传输层失败
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s 请求失败 [HTTP %d] %s", e.Platform, e.StatusCode, e.URL)
	}
	return fmt.Sprintf("%s 请求失败 %s: %v", e.Platform, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// BotDetectionError 命中反爬/验证码页面，本次调用内不再重试
type BotDetectionError struct {
	Platform string
	URL      string
	Provider string
}

func (e *BotDetectionError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("%s 触发反爬检测(%s): %s", e.Platform, e.Provider, e.URL)
	}
	return fmt.Sprintf("%s 触发反爬检测: %s", e.Platform, e.URL)
}

// ParseError 字段缺失或无法解析，跳过对应单元
type ParseError struct {
	Platform string
	Unit     string
	Field    string
	Err      error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("%s 解析失败 [%s]", e.Platform, e.Unit)
	if e.Field != "" {
		msg += " 字段 " + e.Field
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }

// RateLimitedError 请求窗口超限或冷却中，本批次跳过该来源
type RateLimitedError struct {
	Platform   string
	Reason     string
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%s 已限流(%s)，%s后重试", e.Platform, e.Reason, e.RetryAfter.Round(time.Second))
}

// PersistenceError 单条记录入库失败
type PersistenceError struct {
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("票务记录入库失败[%s]: %v", e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Retryable 仅传输失败和5xx（非503反爬页）可重试
func Retryable(err error) bool {
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		return false
	}
	if netErr.StatusCode == 0 {
		return true
	}
	return netErr.StatusCode >= 500 && netErr.StatusCode != http.StatusServiceUnavailable
}
