package normalize

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"TicketSync/internal/model"
)

// 售罄词须先于可售词匹配，避免 "not available" 被误判
var (
	soldOutTerms = []string{
		"sold out", "soldout", "not available", "unavailable", "no tickets", "no longer available",
		"agotado", "agotadas", "no disponible", "sin entradas",
		"ausverkauft", "nicht verfügbar", "nicht verfuegbar",
		"épuisé", "epuise", "non disponible",
		"esaurito", "non disponibile", "tutto esaurito",
	}
	// 仅按整词匹配，避免 "complete" / "completed" 误判
	soldOutWords    = []string{"complet", "complète", "completo"}
	comingSoonTerms = []string{
		"coming soon", "pre-sale", "presale", "on sale soon", "not yet on sale",
		"próximamente", "proximamente", "preventa",
		"demnächst", "demnaechst", "vorverkauf",
		"bientôt", "bientot", "prévente", "prevente",
		"prossimamente", "prevendita",
	}
	availableTerms = []string{
		"available", "on sale", "onsale", "buy", "tickets remaining", "few left", "limited", "in stock",
		"disponible", "disponibles", "a la venta", "comprar",
		"verfügbar", "verfuegbar", "erhältlich", "kaufen",
		"en vente", "acheter",
		"disponibile", "disponibili", "in vendita", "acquista",
	}
)

// NormalizeAvailability 多语言售票状态映射，无法识别返回 unknown
func NormalizeAvailability(text string) model.AvailabilityStatus {
	s := strings.ToLower(CleanText(strings.NewReplacer("_", " ").Replace(text)))
	if s == "" {
		return model.AvailabilityUnknown
	}
	if containsAny(s, soldOutTerms) || containsWord(s, soldOutWords) {
		return model.AvailabilitySoldOut
	}
	if containsAny(s, comingSoonTerms) {
		return model.AvailabilityComingSoon
	}
	if containsAny(s, availableTerms) {
		return model.AvailabilityAvailable
	}
	return model.AvailabilityUnknown
}

// AvailabilityFromFlag 布尔可售标记优先于状态文本
func AvailabilityFromFlag(available *bool, status string) model.AvailabilityStatus {
	if available != nil {
		if *available {
			return model.AvailabilityAvailable
		}
		return model.AvailabilitySoldOut
	}
	return NormalizeAvailability(status)
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

// containsWord 词前后不能紧邻字母或数字
func containsWord(s string, words []string) bool {
	for _, w := range words {
		for from := 0; from < len(s); {
			i := strings.Index(s[from:], w)
			if i < 0 {
				break
			}
			start, end := from+i, from+i+len(w)
			before, _ := utf8.DecodeLastRuneInString(s[:start])
			after, _ := utf8.DecodeRuneInString(s[end:])
			if (start == 0 || !isWordRune(before)) && (end == len(s) || !isWordRune(after)) {
				return true
			}
			from = end
		}
	}
	return false
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
