package clubstore

import (
	"encoding/json"
	"regexp"
	"strings"

	"TicketSync/internal/adapter/base"
	"TicketSync/internal/errs"
	"TicketSync/internal/model"
	"TicketSync/internal/normalize"
)

// ParseStrategy 单个俱乐部API响应的解析策略
type ParseStrategy interface {
	ParseResponse(payload []byte, club Club) ([]*model.Fixture, error)
}

// jsonLayout 描述一种俱乐部API的字段布局；各候选键按顺序尝试
type jsonLayout struct {
	listPath    [][]string // 赛事数组所在路径的候选
	idKeys      []string
	opponentKey []string
	compKeys    []string
	venueKeys   []string
	dateKeys    []string
	ticketKeys  []string
}

var (
	arsenalLayout = jsonLayout{
		listPath:    [][]string{{"fixtures"}},
		idKeys:      []string{"id"},
		opponentKey: []string{"title"},
		compKeys:    []string{"competition"},
		venueKeys:   []string{"venue"},
		dateKeys:    []string{"date"},
		ticketKeys:  []string{"tickets"},
	}
	chelseaLayout = jsonLayout{
		listPath:    [][]string{{"matches"}},
		idKeys:      []string{"matchId"},
		opponentKey: []string{"opponent"},
		compKeys:    []string{"competition"},
		venueKeys:   []string{"venue"},
		dateKeys:    []string{"kickOff"},
		ticketKeys:  []string{"ticketing"},
	}
	liverpoolLayout = jsonLayout{
		listPath:    [][]string{{"data", "fixtures"}},
		idKeys:      []string{"fixtureId"},
		opponentKey: []string{"opponent"},
		compKeys:    []string{"competition"},
		venueKeys:   []string{"venue"},
		dateKeys:    []string{"matchDate"},
		ticketKeys:  []string{"ticketInfo"},
	}
	realMadridLayout = jsonLayout{
		listPath:    [][]string{{"partidos"}},
		idKeys:      []string{"id"},
		opponentKey: []string{"rival"},
		compKeys:    []string{"competicion"},
		venueKeys:   []string{"estadio"},
		dateKeys:    []string{"fecha"},
		ticketKeys:  []string{"entradas"},
	}
	barcelonaLayout = jsonLayout{
		listPath:    [][]string{{"matches"}},
		idKeys:      []string{"id"},
		opponentKey: []string{"opponent"},
		compKeys:    []string{"competition"},
		venueKeys:   []string{"venue"},
		dateKeys:    []string{"date"},
		ticketKeys:  []string{"tickets"},
	}
	genericLayout = jsonLayout{
		listPath:    [][]string{{"fixtures"}, {"matches"}, {"games"}, {"events"}, {"partidos"}, {"data", "fixtures"}, {"data", "matches"}},
		idKeys:      []string{"id", "matchId", "fixtureId"},
		opponentKey: []string{"opponent", "away_team", "awayTeam", "visitor", "rival", "title", "name"},
		compKeys:    []string{"competition", "league", "competicion", "tournament"},
		venueKeys:   []string{"venue", "stadium", "estadio"},
		dateKeys:    []string{"date", "kickoff", "kickOff", "matchDate", "fecha", "startDate"},
		ticketKeys:  []string{"tickets", "ticketing", "ticketInfo", "entradas", "categories"},
	}
)

// strategies 俱乐部key → 专用解析策略，未登记的走通用策略
var strategies = map[string]ParseStrategy{
	"arsenal":     arsenalLayout,
	"chelsea":     chelseaLayout,
	"liverpool":   liverpoolLayout,
	"real_madrid": realMadridLayout,
	"barcelona":   barcelonaLayout,
}

func strategyFor(clubKey string) ParseStrategy {
	if s, ok := strategies[clubKey]; ok {
		return s
	}
	return genericLayout
}

func (l jsonLayout) ParseResponse(payload []byte, club Club) ([]*model.Fixture, error) {
	var root any
	if err := json.Unmarshal(payload, &root); err != nil {
		return nil, &errs.ParseError{Platform: string(model.PlatformClubStore), Unit: club.Key, Field: "payload", Err: err}
	}
	items, ok := l.findList(root)
	if !ok {
		return nil, &errs.ParseError{Platform: string(model.PlatformClubStore), Unit: club.Key, Field: "fixtures"}
	}

	fixtures := make([]*model.Fixture, 0, len(items))
	for _, item := range base.Maps(items) {
		opponent := extractOpponent(base.StringField(item, l.opponentKey...), club)
		f := &model.Fixture{
			ExternalID:  base.StringField(item, l.idKeys...),
			Title:       club.Name + " vs " + opponent,
			HomeTeam:    club.Name,
			Opponent:    opponent,
			Competition: base.StringField(item, l.compKeys...),
			Venue:       normalize.FirstNonEmpty(base.StringField(item, l.venueKeys...), club.HomeVenue),
			RawDate:     base.StringField(item, l.dateKeys...),
			URL:         normalize.FirstNonEmpty(base.StringField(item, "url", "link"), club.URL),
			Category:    normalize.CategorySports,
		}
		if tickets, ok := base.SliceField(item, l.ticketKeys...); ok {
			f.Categories = parseTicketCategories(tickets)
		}
		fixtures = append(fixtures, f)
	}
	return fixtures, nil
}

// findList 数组可能直接是根节点，也可能在某个候选路径下
func (l jsonLayout) findList(root any) ([]any, bool) {
	if arr, ok := root.([]any); ok {
		return arr, true
	}
	m, ok := root.(map[string]any)
	if !ok {
		return nil, false
	}
	for _, path := range l.listPath {
		node := m
		for i, key := range path {
			if i == len(path)-1 {
				if arr, ok := node[key].([]any); ok {
					return arr, true
				}
				break
			}
			next, ok := node[key].(map[string]any)
			if !ok {
				break
			}
			node = next
		}
	}
	return nil, false
}

// parseTicketCategories 布尔 available 优先，其次 status 文本，缺省视为可售
func parseTicketCategories(items []any) []model.TicketCategory {
	var out []model.TicketCategory
	for _, t := range base.Maps(items) {
		c := model.TicketCategory{
			ExternalID:   base.StringField(t, "id", "ticketId"),
			Category:     normalize.FirstNonEmpty(base.StringField(t, "category", "name", "categoria", "section"), "General"),
			RawPrice:     base.StringField(t, "price", "cost", "amount", "precio"),
			FeesIncluded: base.BoolField(t, "fees_included", "feesIncluded"),
		}
		if cur := base.StringField(t, "currency"); cur != "" && c.RawPrice != "" {
			c.RawPrice += " " + cur
		}
		switch avail := base.BoolField(t, "available", "disponible"); {
		case avail != nil:
			c.RawAvailability = string(normalize.AvailabilityFromFlag(avail, ""))
		case base.StringField(t, "status", "estado") != "":
			c.RawAvailability = base.StringField(t, "status", "estado")
		default:
			c.RawAvailability = string(model.AvailabilityAvailable)
		}
		if rs, ok := base.SliceField(t, "restrictions"); ok {
			for _, r := range rs {
				if s, ok := r.(string); ok && s != "" {
					c.Restrictions = append(c.Restrictions, s)
				}
			}
		}
		out = append(out, c)
	}
	return out
}

var opponentSeparator = regexp.MustCompile(`(?i)(?:^|\s+)(?:vs\.?|v\.?|-|–|contra|gegen|contre)(?:\s+|$)`)

// extractOpponent 从 "Arsenal vs Chelsea" 之类的标题中取客队名；主队名只按整段匹配
func extractOpponent(title string, club Club) string {
	s := normalize.CleanText(title)
	if isHomeName(s, club) {
		return "TBD"
	}
	loc := opponentSeparator.FindStringIndex(s)
	if loc == nil {
		return s
	}
	left := strings.TrimSpace(s[:loc[0]])
	right := strings.TrimSpace(s[loc[1]:])
	switch {
	case left == "" && right == "":
		return "TBD"
	case left == "" || isHomeName(left, club):
		return orTBD(right, club)
	case right == "" || isHomeName(right, club):
		return orTBD(left, club)
	case startsWithHome(left, club):
		// "Arsenal Women vs Chelsea Women"
		return right
	case startsWithHome(right, club):
		return left
	}
	return right
}

func orTBD(s string, club Club) string {
	if s == "" || isHomeName(s, club) {
		return "TBD"
	}
	return s
}

func isHomeName(s string, club Club) bool {
	for _, home := range []string{club.Name, club.ShortName} {
		if home != "" && strings.EqualFold(s, home) {
			return true
		}
	}
	return false
}

// startsWithHome 主队名作为完整单词出现在开头
func startsWithHome(s string, club Club) bool {
	for _, home := range []string{club.Name, club.ShortName} {
		if home == "" || len(s) <= len(home) {
			continue
		}
		if strings.EqualFold(s[:len(home)], home) && s[len(home)] == ' ' {
			return true
		}
	}
	return false
}
