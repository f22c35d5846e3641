package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Filters 查询条件，未设置的字段不会出现在外部请求中
type Filters struct {
	DateFrom    *time.Time `json:"date_from,omitempty"`
	DateTo      *time.Time `json:"date_to,omitempty"`
	Venue       string     `json:"venue,omitempty"`
	Location    string     `json:"location,omitempty"`
	Category    string     `json:"category,omitempty"`
	Region      string     `json:"region,omitempty"`
	State       string     `json:"state,omitempty"`
	Competition string     `json:"competition,omitempty"`
}

// CacheKey 由平台、标识列表和筛选条件生成结果缓存键
func CacheKey(platform PlatformType, identifiers []string, f Filters) string {
	ids := append([]string(nil), identifiers...)
	sort.Strings(ids)
	var b strings.Builder
	b.WriteString(string(platform))
	b.WriteString("|")
	b.WriteString(strings.Join(ids, ","))
	fmt.Fprintf(&b, "|%s|%s|%s|%s|%s|%s|%s|%s",
		formatDay(f.DateFrom), formatDay(f.DateTo), f.Venue, f.Location, f.Category, f.Region, f.State, f.Competition)
	h := sha256.Sum256([]byte(b.String()))
	return string(platform) + ":" + hex.EncodeToString(h[:])[:32]
}

func formatDay(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}

// SearchResult 适配器查询结果（部分成功是常态）
type SearchResult struct {
	Platform PlatformType `json:"platform"`
	Success  bool         `json:"success"`
	Count    int          `json:"count"`
	Results  []*Fixture   `json:"results"`
	Errors   []string     `json:"errors"`
	Cached   bool         `json:"cached"`
}

// AddError 记录单元级错误
func (r *SearchResult) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Finish 计算汇总字段：至少一个单元产出数据即为成功
func (r *SearchResult) Finish(succeededUnits int) *SearchResult {
	r.Count = len(r.Results)
	r.Success = succeededUnits > 0
	if r.Results == nil {
		r.Results = []*Fixture{}
	}
	if r.Errors == nil {
		r.Errors = []string{}
	}
	return r
}

// ImportResult 导入结果
type ImportResult struct {
	Platform      PlatformType       `json:"platform"`
	Success       bool               `json:"success"`
	ImportedCount int                `json:"imported_count"`
	Imported      []*CanonicalTicket `json:"imported"`
	Errors        []string           `json:"errors"`
}

// Statistics 平台票务统计
type Statistics struct {
	Platform         PlatformType                `json:"platform"`
	TotalTickets     int64                       `json:"total_tickets"`
	AvailableTickets int64                       `json:"available_tickets"`
	StaleTickets     int64                       `json:"stale_tickets"`
	AvailabilityRate float64                     `json:"availability_rate"` // 百分比，保留两位小数
	Breakdown        map[string]map[string]int64 `json:"breakdown"`
	LastUpdated      *time.Time                  `json:"last_updated"`
}
