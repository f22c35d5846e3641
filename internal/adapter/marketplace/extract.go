package marketplace

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"TicketSync/internal/adapter/base"
	"TicketSync/internal/model"
	"TicketSync/internal/normalize"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
)

// selectorTable 搜索结果页的选择器表，每项按顺序尝试
type selectorTable struct {
	cards        []string
	title        []string
	date         []string
	venue        []string
	location     []string
	price        string
	availability []string
	link         []string
	image        []string
}

var searchSelectors = selectorTable{
	cards:        []string{".EventCard", ".event-card", ".SearchResultCard", ".search-result", "[class*='event-item']", "li[data-event-id]"},
	title:        []string{".event-name", "a[class*='event-name']", ".event-title", "h3", "h4", ".title", "span[class*='title']"},
	date:         []string{".event-date", ".date", "span[class*='date']", "div[class*='date']", "time"},
	venue:        []string{".venue-name", ".venue", "span[class*='venue']", "div[class*='venue']"},
	location:     []string{".location", "span[class*='location']", "div[class*='city']"},
	price:        "span[class*='price'], div[class*='price']",
	availability: []string{"span[class*='available']", "div[class*='tickets']", "[class*='availability']"},
	link:         []string{"a[href*='/event/']", "a[href*='-tickets']", "a[href]"},
	image:        []string{"img"},
}

// 详情页选择器
var (
	detailTitle       = []string{"h1", ".event-title", "[class*='event-name']"}
	detailDate        = []string{".event-date", "[class*='event-date']", "[class*='date']"}
	detailVenue       = []string{".venue-name", ".venue", ".location"}
	detailDescription = []string{".event-description", "[class*='description']"}
	ticketOptions     = "div.ticket-option, tr.ticket-row"
	optionSection     = []string{".section", "td.section", "[class*='section']", ".category", "[class*='zone']"}
	optionPrice       = []string{".price", ".ticket-price", ".listing-price", "td.price", "[class*='price']"}
	optionStatus      = []string{".availability", "[class*='availability']", "[class*='status']"}
	pagePrices        = ".price, .ticket-price, .listing-price"
)

var (
	eventIDPattern = regexp.MustCompile(`/event/(\d+)`)
	feesIncluded   = regexp.MustCompile(`(?i)incl(?:\.|uding|udes)?\s+(?:all\s+)?fees`)
	feesExtra      = regexp.MustCompile(`(?i)\+\s*fees|plus fees|fees not included`)
)

// parseSearchPage 从搜索结果页提取赛事列表
func parseSearchPage(body []byte, baseURL, categoryHint string) ([]*model.Fixture, error) {
	doc, err := base.ParseHTML(body)
	if err != nil {
		return nil, err
	}
	cards := base.FirstMatch(doc.Selection, searchSelectors.cards...)

	var fixtures []*model.Fixture
	cards.Each(func(_ int, card *goquery.Selection) {
		title := base.Text(card, searchSelectors.title...)
		if title == "" {
			return
		}
		link := ""
		for _, sel := range searchSelectors.link {
			if href := base.Attr(card, sel, "href"); href != "" {
				link = base.AbsoluteURL(baseURL, href)
				break
			}
		}
		dateNode := base.FirstMatch(card, searchSelectors.date...).First()
		rawDate := normalize.FirstNonEmpty(base.Attr(dateNode, "", "datetime", "content"), normalize.CleanText(dateNode.Text()))

		var prices []string
		card.Find(searchSelectors.price).Each(func(_ int, p *goquery.Selection) {
			if t := normalize.CleanText(p.Text()); t != "" {
				prices = append(prices, t)
			}
		})

		f := &model.Fixture{
			ExternalID: eventID(link, title, rawDate),
			Title:      title,
			Venue:      base.Text(card, searchSelectors.venue...),
			RawDate:    rawDate,
			URL:        link,
			ImageURL:   base.AbsoluteURL(baseURL, base.Attr(card, searchSelectors.image[0], "src", "data-src")),
			Category:   normalize.ClassifyCategory(title, categoryHint, normalize.CategorySports),
			RawPrice:   priceRangeText(prices),
		}
		if status := base.Text(card, searchSelectors.availability...); status != "" && f.RawPrice != "" {
			f.Categories = []model.TicketCategory{{Category: base.DefaultSection, RawPrice: f.RawPrice, RawAvailability: status}}
		}
		if loc := base.Text(card, searchSelectors.location...); loc != "" {
			f.SetExtra("location", loc)
		}
		fixtures = append(fixtures, f)
	})
	return fixtures, nil
}

// parseDetailPage 解析赛事详情页：票档选项 → JSON-LD offers → 页面价格
func parseDetailPage(body []byte, pageURL string) (*model.Fixture, error) {
	doc, err := base.ParseHTML(body)
	if err != nil {
		return nil, err
	}
	title := base.Text(doc.Selection, detailTitle...)
	if title == "" {
		return nil, fmt.Errorf("详情页缺少赛事标题")
	}
	dateNode := base.FirstMatch(doc.Selection, append([]string{"time[datetime]"}, detailDate...)...).First()
	rawDate := normalize.FirstNonEmpty(base.Attr(dateNode, "", "datetime", "content"), normalize.CleanText(dateNode.Text()))

	f := &model.Fixture{
		ExternalID:  eventID(pageURL, title, rawDate),
		Title:       title,
		Venue:       base.Text(doc.Selection, detailVenue...),
		RawDate:     rawDate,
		URL:         pageURL,
		Description: base.Text(doc.Selection, detailDescription...),
		Category:    normalize.ClassifyCategory(title, "", normalize.CategorySports),
	}

	doc.Find(ticketOptions).Each(func(_ int, opt *goquery.Selection) {
		price := base.Text(opt, optionPrice...)
		if price == "" {
			return
		}
		c := model.TicketCategory{
			ExternalID:      base.Attr(opt, "", "data-listing-id", "data-ticket-id", "id"),
			Category:        normalize.FirstNonEmpty(base.Text(opt, optionSection...), base.DefaultSection),
			RawPrice:        price,
			RawAvailability: normalize.FirstNonEmpty(base.Text(opt, optionStatus...), string(model.AvailabilityAvailable)),
		}
		text := opt.Text()
		switch {
		case feesIncluded.MatchString(text):
			v := true
			c.FeesIncluded = &v
		case feesExtra.MatchString(text):
			v := false
			c.FeesIncluded = &v
		}
		f.Categories = append(f.Categories, c)
	})
	method := "ticket_options"

	if len(f.Categories) == 0 {
		for _, o := range base.ExtractJSONLDOffers(doc) {
			f.Categories = append(f.Categories, model.TicketCategory{
				Category:        normalize.FirstNonEmpty(o.Name, base.DefaultSection),
				RawPrice:        o.RawPrice(),
				RawAvailability: normalize.FirstNonEmpty(o.Availability, string(model.AvailabilityUnknown)),
			})
		}
		method = "json_ld"
	}
	if len(f.Categories) == 0 {
		var prices []string
		doc.Find(pagePrices).Each(func(_ int, p *goquery.Selection) {
			if t := normalize.CleanText(p.Text()); t != "" {
				prices = append(prices, t)
			}
		})
		f.RawPrice = priceRangeText(prices)
		method = "page_prices"
	}
	f.SetExtra("detail_source", method)
	return f, nil
}

// priceRangeText 把多个价格文本合并成 "最低 - 最高 币种"
func priceRangeText(texts []string) string {
	var lo, hi *decimal.Decimal
	currency := ""
	for _, t := range texts {
		low, high := normalize.ParsePrice(t)
		if low == nil || !low.IsPositive() {
			continue
		}
		if high == nil {
			high = low
		}
		if lo == nil || low.LessThan(*lo) {
			lo = low
		}
		if hi == nil || high.GreaterThan(*hi) {
			hi = high
		}
		if currency == "" {
			currency = normalize.DetectCurrency(t)
		}
	}
	if lo == nil {
		return ""
	}
	out := lo.StringFixed(2)
	if !hi.Equal(*lo) {
		out += " - " + hi.StringFixed(2)
	}
	return strings.TrimSpace(out + " " + currency)
}

// eventID 优先取URL中的数字ID，否则用标题+日期生成稳定ID
func eventID(link, title, date string) string {
	if m := eventIDPattern.FindStringSubmatch(link); m != nil {
		return m[1]
	}
	h := md5.Sum([]byte(title + "|" + date))
	return hex.EncodeToString(h[:])
}
