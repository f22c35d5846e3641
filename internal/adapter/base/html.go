package base

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"TicketSync/internal/normalize"

	"github.com/PuerkitoBio/goquery"
)

// ParseHTML 解析HTML文档
func ParseHTML(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("解析HTML失败: %w", err)
	}
	return doc, nil
}

// Text 依次尝试选择器，返回第一个非空的清洗后文本
func Text(sel *goquery.Selection, selectors ...string) string {
	for _, s := range selectors {
		if t := normalize.CleanText(sel.Find(s).First().Text()); t != "" {
			return t
		}
	}
	return ""
}

// Attr 依次尝试选择器与属性名，返回第一个非空属性值
func Attr(sel *goquery.Selection, selector string, attrs ...string) string {
	node := sel
	if selector != "" {
		node = sel.Find(selector).First()
	}
	for _, a := range attrs {
		if v, ok := node.Attr(a); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// FirstMatch 返回第一个有结果的选择器命中
func FirstMatch(doc *goquery.Selection, selectors ...string) *goquery.Selection {
	for _, s := range selectors {
		if found := doc.Find(s); found.Length() > 0 {
			return found
		}
	}
	return doc.Find("__none__")
}

// AbsoluteURL 将相对地址解析为绝对地址
func AbsoluteURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	b, err := url.Parse(base)
	if err != nil || b.Scheme == "" {
		return href
	}
	return b.ResolveReference(ref).String()
}

// Offer JSON-LD 中的报价信息
type Offer struct {
	Name         string
	Price        string
	HighPrice    string
	Currency     string
	Availability string
	URL          string
}

// RawPrice 组合成可被 ParsePrice 识别的价格文本
func (o Offer) RawPrice() string {
	if o.HighPrice != "" && o.HighPrice != o.Price {
		return o.Price + " - " + o.HighPrice + " " + o.Currency
	}
	return strings.TrimSpace(o.Price + " " + o.Currency)
}

// ExtractJSONLDOffers 从 application/ld+json 脚本中提取 offers，页面结构变化时作为价格兜底
func ExtractJSONLDOffers(doc *goquery.Document) []Offer {
	var offers []Offer
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var payload any
		if err := json.Unmarshal([]byte(s.Text()), &payload); err != nil {
			return
		}
		walkJSONLD(payload, &offers)
	})
	return offers
}

func walkJSONLD(node any, out *[]Offer) {
	switch v := node.(type) {
	case []any:
		for _, item := range v {
			walkJSONLD(item, out)
		}
	case map[string]any:
		if graph, ok := v["@graph"]; ok {
			walkJSONLD(graph, out)
		}
		if offers, ok := v["offers"]; ok {
			collectOffers(offers, out)
		}
	}
}

func collectOffers(node any, out *[]Offer) {
	switch v := node.(type) {
	case []any:
		for _, item := range v {
			collectOffers(item, out)
		}
	case map[string]any:
		if nested, ok := v["offers"]; ok {
			collectOffers(nested, out)
		}
		o := Offer{
			Name:         StringField(v, "name", "category"),
			Price:        StringField(v, "price", "lowPrice"),
			HighPrice:    StringField(v, "highPrice"),
			Currency:     StringField(v, "priceCurrency"),
			Availability: schemaAvailability(StringField(v, "availability")),
			URL:          StringField(v, "url"),
		}
		if o.Price != "" {
			*out = append(*out, o)
		}
	}
}

// schemaAvailability 将 https://schema.org/InStock 之类的值转成可识别文本
func schemaAvailability(v string) string {
	v = v[strings.LastIndex(v, "/")+1:]
	switch strings.ToLower(v) {
	case "instock", "limitedavailability", "onlineonly":
		return "available"
	case "soldout", "outofstock", "discontinued":
		return "sold out"
	case "presale", "preorder":
		return "pre-sale"
	}
	return v
}
