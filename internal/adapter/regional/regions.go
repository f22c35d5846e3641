package regional

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"TicketSync/internal/config"
	"TicketSync/internal/model"
	"TicketSync/internal/normalize"
)

// Region 区域站点
type Region struct {
	Code     string
	Name     string
	BaseURL  string
	Currency string
	Locale   string
	Country  string
}

var builtinRegions = map[string]Region{
	"uk": {Code: "uk", Name: "Ticketek UK", BaseURL: "https://www.ticketek.co.uk", Currency: "GBP", Locale: "en-GB", Country: "United Kingdom"},
	"au": {Code: "au", Name: "Ticketek Australia", BaseURL: "https://premier.ticketek.com.au", Currency: "AUD", Locale: "en-AU", Country: "Australia"},
	"nz": {Code: "nz", Name: "Ticketek New Zealand", BaseURL: "https://premier.ticketek.co.nz", Currency: "NZD", Locale: "en-NZ", Country: "New Zealand"},
}

// regionTable 不可变的区域表：内置区域被配置覆盖，配置可新增区域
type regionTable struct {
	regions     map[string]Region
	defaultCode string
}

func newRegionTable(cfg *config.PlatformConfig) *regionTable {
	t := &regionTable{regions: make(map[string]Region, len(builtinRegions))}
	for code, r := range builtinRegions {
		t.regions[code] = r
	}
	for code, rc := range cfg.Regions {
		code = strings.ToLower(code)
		r := t.regions[code]
		r.Code = code
		if rc.Name != "" {
			r.Name = rc.Name
		}
		if rc.BaseURL != "" {
			r.BaseURL = strings.TrimRight(rc.BaseURL, "/")
		}
		if rc.Currency != "" {
			r.Currency = strings.ToUpper(rc.Currency)
		}
		if rc.Locale != "" {
			r.Locale = rc.Locale
		}
		if r.Name == "" {
			r.Name = strings.ToUpper(code)
		}
		t.regions[code] = r
	}
	t.defaultCode = strings.ToLower(cfg.DefaultRegion)
	if _, ok := t.regions[t.defaultCode]; !ok {
		t.defaultCode = "uk"
	}
	return t
}

// get 未知区域返回 false；空代码表示默认区域
func (t *regionTable) get(code string) (Region, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		code = t.defaultCode
	}
	r, ok := t.regions[code]
	return r, ok
}

// forURL 先按站点地址前缀、再按主机名匹配区域，未匹配返回默认区域
func (t *regionTable) forURL(raw string) Region {
	for _, r := range t.regions {
		if r.BaseURL != "" && strings.HasPrefix(raw, r.BaseURL+"/") {
			return r
		}
	}
	if u, err := url.Parse(raw); err == nil {
		for _, r := range t.regions {
			if ru, err := url.Parse(r.BaseURL); err == nil && ru.Host == u.Host {
				return r
			}
		}
	}
	r, _ := t.get("")
	return r
}

func (t *regionTable) sources() []model.Source {
	out := make([]model.Source, 0, len(t.regions))
	for _, r := range t.regions {
		out = append(out, model.Source{Key: r.Code, Name: r.Name, Group: r.Currency, Country: r.Country, URL: r.BaseURL})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

var bareDollar = regexp.MustCompile(`(^|[^A-Za-z])\$`)

// localPrice 澳新站点的 "$" 指本地货币；文本中没有币种时补上区域币种
func localPrice(text string, r Region) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	switch r.Currency {
	case "AUD":
		text = bareDollar.ReplaceAllString(text, "${1}A$$")
	case "NZD":
		text = bareDollar.ReplaceAllString(text, "${1}NZ$$")
	}
	if normalize.DetectCurrency(text) == "" {
		text += " " + r.Currency
	}
	return text
}

// ticketekCategory 通用分类到站点分类参数
func ticketekCategory(category string) string {
	switch strings.ToLower(category) {
	case "football", "rugby", "cricket", "tennis", "motorsport", "athletics", "boxing", "golf", "sports":
		return "sport"
	case "concert":
		return "music"
	default:
		return strings.ToLower(category)
	}
}
