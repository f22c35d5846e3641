package model

// PlatformType 平台类型枚举
type PlatformType string

const (
	PlatformClubStore   PlatformType = "club_store"  // 俱乐部官网票务
	PlatformMarketplace PlatformType = "marketplace" // 通用票务市场（HTML）
	PlatformRegional    PlatformType = "regional"    // 区域票务市场（JSON优先，HTML兜底）
)

// AvailabilityStatus 规范化后的售票状态
type AvailabilityStatus string

const (
	AvailabilityAvailable  AvailabilityStatus = "available"
	AvailabilitySoldOut    AvailabilityStatus = "sold_out"
	AvailabilityComingSoon AvailabilityStatus = "coming_soon"
	AvailabilityUnknown    AvailabilityStatus = "unknown"
)

// ExtractionMethod 数据提取方式，写入metadata
const (
	ExtractionAPI  = "api"
	ExtractionJSON = "json"
	ExtractionHTML = "html"
)

// Source 平台下可用的子来源（俱乐部、区域站点等）
type Source struct {
	Key     string `json:"key"`
	Name    string `json:"name"`
	Group   string `json:"group,omitempty"` // 俱乐部所属联赛 / 区域货币
	Country string `json:"country,omitempty"`
	URL     string `json:"url,omitempty"`
}
