package normalize

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	CurrencyEUR = "EUR"
	CurrencyGBP = "GBP"
	CurrencyUSD = "USD"
	CurrencyAUD = "AUD"
	CurrencyNZD = "NZD"
)

type currencyMarkers struct {
	code    string
	markers []string
}

// 先匹配符号再匹配词；带前缀的美元符号须先于 "$" 判断
var currencySymbols = []currencyMarkers{
	{CurrencyNZD, []string{"nz$"}},
	{CurrencyAUD, []string{"a$", "au$"}},
	{CurrencyUSD, []string{"us$"}},
	{CurrencyEUR, []string{"€"}},
	{CurrencyGBP, []string{"£"}},
	{CurrencyUSD, []string{"$"}},
}

var currencyNames = []currencyMarkers{
	{CurrencyNZD, []string{"nzd", "new zealand dollar"}},
	{CurrencyAUD, []string{"aud", "australian dollar"}},
	{CurrencyGBP, []string{"gbp", "pound", "libra", "sterlin", "pfund"}},
	{CurrencyEUR, []string{"eur", "euro"}},
	{CurrencyUSD, []string{"usd", "dollar", "dólar", "dolar", "dollari"}},
}

// DetectCurrency 根据符号或多语言币种词识别币种，无法识别返回空串
func DetectCurrency(text string) string {
	s := strings.ToLower(text)
	for _, table := range [][]currencyMarkers{currencySymbols, currencyNames} {
		for _, c := range table {
			for _, m := range c.markers {
				if strings.Contains(s, m) {
					return c.code
				}
			}
		}
	}
	return ""
}

// CurrencyForCountry 国家默认币种（英国为英镑，其余欧洲国家为欧元）
func CurrencyForCountry(country string) string {
	switch strings.ToLower(country) {
	case "england", "uk", "united kingdom", "scotland", "wales":
		return CurrencyGBP
	case "australia":
		return CurrencyAUD
	case "new zealand":
		return CurrencyNZD
	case "usa", "united states":
		return CurrencyUSD
	default:
		return CurrencyEUR
	}
}

// Converter 汇率转换接口；生产环境应注入实时汇率实现
type Converter interface {
	Rate(from, to string) (decimal.Decimal, bool)
}

// StaticConverter 静态汇率表（以欧元为基准，占位数据，不保证准确）
type StaticConverter map[string]decimal.Decimal

// DefaultConverter 占位汇率
var DefaultConverter = StaticConverter{
	CurrencyEUR: decimal.NewFromInt(1),
	CurrencyGBP: decimal.RequireFromString("1.17"),
	CurrencyUSD: decimal.RequireFromString("0.92"),
	CurrencyAUD: decimal.RequireFromString("0.61"),
	CurrencyNZD: decimal.RequireFromString("0.56"),
}

func (s StaticConverter) Rate(from, to string) (decimal.Decimal, bool) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == to {
		return decimal.NewFromInt(1), true
	}
	f, ok1 := s[from]
	t, ok2 := s[to]
	if !ok1 || !ok2 || t.IsZero() {
		return decimal.Zero, false
	}
	return f.Div(t), true
}

// ConvertCurrency 使用默认汇率表换算价格区间，未知币种原样返回
func ConvertCurrency(r PriceRange, from, to string) PriceRange {
	return ConvertWith(DefaultConverter, r, from, to)
}

// ConvertWith 使用指定汇率源换算
func ConvertWith(c Converter, r PriceRange, from, to string) PriceRange {
	rate, ok := c.Rate(from, to)
	if !ok {
		return r
	}
	conv := func(v *decimal.Decimal) *decimal.Decimal {
		if v == nil {
			return nil
		}
		out := v.Mul(rate).Round(2)
		return &out
	}
	return PriceRange{Min: conv(r.Min), Max: conv(r.Max)}
}
