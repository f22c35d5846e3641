package model

// Fixture 适配器解析出的中间结构（未规范化，不落库）
type Fixture struct {
	ExternalID  string           `json:"external_id,omitempty"`
	Title       string           `json:"title"`
	HomeTeam    string           `json:"home_team,omitempty"`
	Opponent    string           `json:"opponent,omitempty"`
	Competition string           `json:"competition,omitempty"`
	Venue       string           `json:"venue,omitempty"`
	RawDate     string           `json:"raw_date"`
	URL         string           `json:"url,omitempty"`
	ImageURL    string           `json:"image_url,omitempty"`
	Description string           `json:"description,omitempty"`
	Category    string           `json:"category,omitempty"`
	RawPrice    string           `json:"raw_price,omitempty"` // 列表页价格区间文本
	Categories  []TicketCategory `json:"categories"`
	Extras      map[string]any   `json:"extras,omitempty"` // 平台特有字段，最终写入metadata
}

// TicketCategory 单个票档
type TicketCategory struct {
	ExternalID      string   `json:"external_id,omitempty"`
	Category        string   `json:"category"`
	RawPrice        string   `json:"raw_price"`
	RawAvailability string   `json:"raw_availability"`
	Restrictions    []string `json:"restrictions,omitempty"`
	FeesIncluded    *bool    `json:"fees_included,omitempty"`
}

// SetExtra 写入扩展字段
func (f *Fixture) SetExtra(key string, value any) {
	if f.Extras == nil {
		f.Extras = make(map[string]any)
	}
	f.Extras[key] = value
}
