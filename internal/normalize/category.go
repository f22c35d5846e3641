package normalize

import (
	"regexp"
	"strings"
)

const (
	CategorySports        = "sports"
	CategoryEntertainment = "entertainment"
)

type categoryRule struct {
	name    string
	pattern *regexp.Regexp
}

func keywords(words ...string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(words, "|") + `)\b`)
}

// 顺序即优先级
var categoryRules = []categoryRule{
	{"football", keywords("football", "soccer", "fc", "afc", "premier league", "la liga", "serie a", "bundesliga", "ligue 1", "champions league", "europa league", "fa cup", "fútbol", "futbol", "fussball", "fußball", "calcio", "vs")},
	{"rugby", keywords("rugby", "six nations", "premiership rugby")},
	{"cricket", keywords("cricket", "test match", "ashes", "t20", "odi")},
	{"tennis", keywords("tennis", "wimbledon", "atp", "wta", "open tennis")},
	{"motorsport", keywords("motorsport", "formula 1", "formula one", "f1", "motogp", "grand prix", "nascar", "rally", "superbike")},
	{"athletics", keywords("athletics", "marathon", "diamond league")},
	{"boxing", keywords("boxing", "ufc", "mma", "fight night", "wrestling")},
	{"golf", keywords("golf", "pga", "ryder cup")},
	{"horse-racing", keywords("horse racing", "racecourse", "races", "racing", "derby day", "grand national")},
	{"music", keywords("concert", "tour", "festival", "band", "orchestra", "symphony", "dj", "gig", "live music")},
	{"theatre", keywords("theatre", "theater", "musical", "opera", "ballet", "play", "west end")},
	{"comedy", keywords("comedy", "comedian", "stand-up", "stand up")},
	{"family", keywords("family", "kids", "children", "circus", "disney", "pantomime")},
}

var sportCategories = map[string]bool{
	"football": true, "rugby": true, "cricket": true, "tennis": true, "motorsport": true,
	"athletics": true, "boxing": true, "golf": true, "horse-racing": true,
}

// ClassifyCategory 关键词分类；title 优先，其次 context（如平台原始分类），均未命中返回 fallback
func ClassifyCategory(title, context, fallback string) string {
	for _, text := range []string{title, context} {
		if text == "" {
			continue
		}
		for _, r := range categoryRules {
			if r.pattern.MatchString(text) {
				return r.name
			}
		}
	}
	if fallback == "" {
		return CategoryEntertainment
	}
	return fallback
}

// IsSport 分类是否属于体育
func IsSport(category string) bool {
	return sportCategories[category] || category == CategorySports
}
