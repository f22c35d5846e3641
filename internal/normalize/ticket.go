package normalize

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"
)

// ClassifyTicketType 票档类型：premium/hospitality/season_ticket/package/standard
func ClassifyTicketType(category string) string {
	s := strings.ToLower(category)
	switch {
	case containsAny(s, []string{"vip", "premium", "platinum", "gold"}):
		return "premium"
	case containsAny(s, []string{"hospitality", "box", "lounge", "suite", "club level"}):
		return "hospitality"
	case containsAny(s, []string{"season", "abono", "dauerkarte", "abonnement", "abbonamento"}):
		return "season_ticket"
	case containsAny(s, []string{"package", "bundle", "experience", "paquete", "paket"}):
		return "package"
	default:
		return "standard"
	}
}

var restrictionRules = []struct {
	name  string
	terms []string
}{
	{"age_restriction", []string{"18+", "16+", "over 18", "under 16", "under 18", "age restriction", "adults only", "mayores de", "ab 18", "interdit aux moins"}},
	{"id_required", []string{"id required", "photo id", "proof of id", "identification", "dni", "ausweis", "pièce d'identité", "documento"}},
	{"non_transferable", []string{"non-transferable", "non transferable", "not transferable", "named ticket", "nominativ", "personalizzato", "intransferible"}},
	{"delivery_restriction", []string{"mobile only", "e-ticket only", "collect", "box office collection", "no delivery", "delivery"}},
	{"membership_required", []string{"member", "membership", "socio", "mitglied", "abonné", "abbonato"}},
}

// ExtractRestrictions 从文本中提取购票限制标签
func ExtractRestrictions(texts ...string) []string {
	s := strings.ToLower(strings.Join(texts, " "))
	var out []string
	for _, r := range restrictionRules {
		if containsAny(s, r.terms) {
			out = append(out, r.name)
		}
	}
	return out
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// CleanText 去除标签、反转义HTML实体并压缩空白
func CleanText(s string) string {
	if s == "" {
		return ""
	}
	s = tagPattern.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.TrimSpace(multiSpace.ReplaceAllString(s, " "))
}

// Truncate 按字符截断，避免超出数据库字段长度
func Truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	r := []rune(s)
	return string(r[:maxLen])
}

// FirstNonEmpty 返回第一个非空字符串
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
