package normalize

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// PriceRange 价格区间，Max 为 nil 表示“起价”
type PriceRange struct {
	Min *decimal.Decimal
	Max *decimal.Decimal
}

var (
	prefixedDollar = regexp.MustCompile(`(?i)\b(?:nz|au|a|us)\$`)
	currencySymbol = regexp.MustCompile(`[€£$¥]`)
	// 五种语言的币种词
	currencyWords = regexp.MustCompile(`(?i)\b(?:euros?|eur|pounds?|gbp|libras?|esterlinas?|sterling|sterlina|sterline|pfund|dollars?|dollari|dólares|dólar|dolares|dolar|usd|aud|nzd)\b`)
	multiSpace    = regexp.MustCompile(`\s+`)

	rangePattern = regexp.MustCompile(`(?i)(\d[\d.,]*)\s*(?:[-–—]|\s(?:to|bis|à|a|al|hasta|fino a)\s)\s*(\d[\d.,]*)`)
	fromPattern  = regexp.MustCompile(`(?i)(?:^|\s)(?:from|starting at|desde|a partir de|ab|à partir de|dès|a partire da|da)\s`)
	numberToken  = regexp.MustCompile(`\d[\d.,]*`)

	europeanDecimal = regexp.MustCompile(`^\d{1,3}(?:\.\d{3})*,\d{1,2}$`)
	europeanGrouped = regexp.MustCompile(`^\d{1,3}(?:\.\d{3})+$`)
	usDecimal       = regexp.MustCompile(`^\d{1,3}(?:,\d{3})*(?:\.\d{1,2})?$`)
	plainDecimal    = regexp.MustCompile(`^\d+(?:\.\d{1,2})?$`)
	bareNumeric     = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
)

// ParsePrice 解析价格文本，返回 (min, max)；无数字时返回 (nil, nil)
// 单值 min==max，“起价”文本 max 为 nil
func ParsePrice(text string) (*decimal.Decimal, *decimal.Decimal) {
	s := stripCurrency(text)
	if s == "" {
		return nil, nil
	}

	if m := rangePattern.FindStringSubmatch(s); m != nil {
		lo, okLo := parseNumber(m[1])
		hi, okHi := parseNumber(m[2])
		if okLo && okHi {
			if hi.LessThan(lo) {
				lo, hi = hi, lo
			}
			return &lo, &hi
		}
	}

	tok := numberToken.FindString(s)
	if tok == "" {
		return nil, nil
	}
	v, ok := parseNumber(tok)
	if !ok {
		return nil, nil
	}
	if fromPattern.MatchString(" " + s) {
		return &v, nil
	}
	return &v, &v
}

// ParsePriceRange 同 ParsePrice，返回区间结构
func ParsePriceRange(text string) PriceRange {
	lo, hi := ParsePrice(text)
	return PriceRange{Min: lo, Max: hi}
}

func stripCurrency(text string) string {
	s := strings.ToLower(CleanText(text))
	s = prefixedDollar.ReplaceAllString(s, " ")
	s = currencySymbol.ReplaceAllString(s, " ")
	s = currencyWords.ReplaceAllString(s, " ")
	return strings.TrimSpace(multiSpace.ReplaceAllString(s, " "))
}

// parseNumber 依次尝试欧洲格式(1.234,56)、英美格式(1,234.56)、纯数字兜底
func parseNumber(tok string) (decimal.Decimal, bool) {
	tok = strings.Trim(tok, ".,")
	if tok == "" {
		return decimal.Zero, false
	}
	var normalized string
	switch {
	case europeanDecimal.MatchString(tok), europeanGrouped.MatchString(tok):
		normalized = strings.ReplaceAll(strings.ReplaceAll(tok, ".", ""), ",", ".")
	case usDecimal.MatchString(tok), plainDecimal.MatchString(tok):
		normalized = strings.ReplaceAll(tok, ",", "")
	default:
		normalized = strings.ReplaceAll(bareNumeric.FindString(tok), ",", ".")
	}
	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero, false
	}
	return d.Round(2), true
}
