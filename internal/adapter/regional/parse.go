package regional

import (
	"encoding/json"
	"strings"

	"TicketSync/internal/adapter/base"
	"TicketSync/internal/errs"
	"TicketSync/internal/model"
	"TicketSync/internal/normalize"

	"github.com/PuerkitoBio/goquery"
)

// parseSearchJSON 解析 /api/search 的 events 数组；缺少 id 或 name 的条目跳过
func parseSearchJSON(payload []byte, region Region) ([]*model.Fixture, error) {
	var root map[string]any
	if err := json.Unmarshal(payload, &root); err != nil {
		return nil, &errs.ParseError{Platform: string(model.PlatformRegional), Unit: region.Code, Field: "payload", Err: err}
	}
	events, ok := base.SliceField(root, "events", "results")
	if !ok {
		return nil, &errs.ParseError{Platform: string(model.PlatformRegional), Unit: region.Code, Field: "events"}
	}
	var fixtures []*model.Fixture
	for _, e := range base.Maps(events) {
		if f := eventFromJSON(e, region); f != nil {
			fixtures = append(fixtures, f)
		}
	}
	return fixtures, nil
}

func eventFromJSON(e map[string]any, region Region) *model.Fixture {
	id := base.StringField(e, "id")
	name := base.StringField(e, "name", "title")
	if id == "" || name == "" {
		return nil
	}
	f := &model.Fixture{
		ExternalID:  id,
		Title:       name,
		Venue:       venueName(e),
		RawDate:     eventDate(e),
		URL:         region.BaseURL + "/event/" + id,
		ImageURL:    base.StringField(e, "imageUrl", "heroImage"),
		Description: base.StringField(e, "description", "shortDescription"),
		Category:    normalize.ClassifyCategory(name, base.StringField(e, "type")+" "+base.StringField(e, "genre"), ""),
		RawPrice:    priceText(e, region),
	}
	if cats, ok := base.SliceField(e, "ticketCategories"); ok {
		f.Categories = parseCategories(cats, region)
	}
	if venue, ok := base.MapField(e, "venue"); ok {
		if addr := base.StringField(venue, "address"); addr != "" {
			f.SetExtra("venue_address", addr)
		}
		if capacity := base.StringField(venue, "capacity"); capacity != "" {
			f.SetExtra("venue_capacity", capacity)
		}
	}
	for key, extra := range map[string]string{"type": "event_type", "genre": "genre", "artist": "artist", "ageRestriction": "age_restriction"} {
		if v := base.StringField(e, key); v != "" {
			f.SetExtra(extra, v)
		}
	}
	if perfs, ok := base.SliceField(e, "performances"); ok && len(perfs) > 1 {
		f.SetExtra("performances", len(perfs))
	}
	return f
}

func venueName(e map[string]any) string {
	if v, ok := base.MapField(e, "venue"); ok {
		if name := base.StringField(v, "name"); name != "" {
			return name
		}
	}
	return base.StringField(e, "venueName", "venue")
}

// eventDate eventDate 优先，否则取第一场演出的开始时间
func eventDate(e map[string]any) string {
	if d := base.StringField(e, "eventDate", "startDate"); d != "" {
		return d
	}
	if perfs, ok := base.SliceField(e, "performances"); ok {
		for _, p := range base.Maps(perfs) {
			if d := base.StringField(p, "startDateTime", "date"); d != "" {
				return d
			}
		}
	}
	return ""
}

// priceText priceRange 文本优先，否则由 minPrice/maxPrice 拼出区间
func priceText(e map[string]any, region Region) string {
	if p := base.StringField(e, "priceRange"); p != "" {
		return localPrice(p, region)
	}
	lo := base.StringField(e, "minPrice")
	hi := base.StringField(e, "maxPrice")
	switch {
	case lo != "" && hi != "" && lo != hi:
		return lo + " - " + hi + " " + region.Currency
	case lo != "":
		return lo + " " + region.Currency
	case hi != "":
		return hi + " " + region.Currency
	}
	return ""
}

// parseCategories 缺少 name 或 price 的票档跳过；availability 文本优先于 available 标记
func parseCategories(items []any, region Region) []model.TicketCategory {
	var out []model.TicketCategory
	for _, c := range base.Maps(items) {
		name := base.StringField(c, "name")
		price := base.StringField(c, "price")
		if name == "" || price == "" {
			continue
		}
		if cur := base.StringField(c, "currency"); cur != "" && normalize.DetectCurrency(price) == "" {
			price += " " + cur
		}
		tc := model.TicketCategory{
			ExternalID:   base.StringField(c, "id"),
			Category:     name,
			RawPrice:     localPrice(price, region),
			FeesIncluded: base.BoolField(c, "feesIncluded"),
		}
		if status := base.StringField(c, "availability"); status != "" {
			tc.RawAvailability = status
		} else {
			avail := base.BoolField(c, "available")
			if avail == nil {
				t := true
				avail = &t
			}
			tc.RawAvailability = string(normalize.AvailabilityFromFlag(avail, ""))
		}
		if rs, ok := base.SliceField(c, "restrictions"); ok {
			for _, r := range rs {
				if s, ok := r.(string); ok && s != "" {
					tc.Restrictions = append(tc.Restrictions, s)
				}
			}
		}
		out = append(out, tc)
	}
	return out
}

// parseDetailJSON 详情接口：与搜索条目同构，另含 ticketCategories
func parseDetailJSON(payload []byte, eventURL string, region Region) (*model.Fixture, error) {
	var e map[string]any
	if err := json.Unmarshal(payload, &e); err != nil {
		return nil, &errs.ParseError{Platform: string(model.PlatformRegional), Unit: eventURL, Field: "payload", Err: err}
	}
	if ev, ok := base.MapField(e, "event"); ok {
		e = ev
	}
	f := eventFromJSON(e, region)
	if f == nil {
		return nil, &errs.ParseError{Platform: string(model.PlatformRegional), Unit: eventURL, Field: "id/name"}
	}
	f.URL = eventURL
	return f, nil
}

// 列表页与详情页的HTML选择器
var (
	htmlCards    = []string{"[data-testid='event-card']", ".event-card", ".event-tile", ".search-result", "li.event"}
	htmlTitle    = []string{"[data-testid='event-title']", ".event-title", "h1", "h2", "h3"}
	htmlDate     = []string{"[data-testid='performance-date']", ".performance-date", ".event-date", "time"}
	htmlVenue    = []string{"[data-testid='venue-name']", "span.venue", ".venue"}
	htmlPrice    = []string{"[data-testid='price']", "[class*='price']"}
	htmlDesc     = []string{"[data-testid='event-description']", ".event-description"}
	htmlTickets  = "[data-testid='ticket-option'], [class*='ticket-category']"
	htmlSection  = []string{"[data-testid='section-name']", "[class*='section-name']"}
	htmlAvail    = []string{"[data-testid='availability']", "[class*='availability']"}
	htmlEventRef = "a[href*='/event/']"
)

// parseSearchHTML 搜索接口返回非JSON时解析页面
func parseSearchHTML(body []byte, region Region) ([]*model.Fixture, error) {
	doc, err := base.ParseHTML(body)
	if err != nil {
		return nil, err
	}
	var fixtures []*model.Fixture
	base.FirstMatch(doc.Selection, htmlCards...).Each(func(_ int, card *goquery.Selection) {
		title := base.Text(card, htmlTitle...)
		if title == "" {
			return
		}
		link := base.AbsoluteURL(region.BaseURL, base.Attr(card, htmlEventRef, "href"))
		dateNode := base.FirstMatch(card, htmlDate...).First()
		f := &model.Fixture{
			ExternalID: eventIDFromURL(link),
			Title:      title,
			Venue:      base.Text(card, htmlVenue...),
			RawDate:    normalize.FirstNonEmpty(base.Attr(dateNode, "", "datetime"), normalize.CleanText(dateNode.Text())),
			URL:        link,
			ImageURL:   base.AbsoluteURL(region.BaseURL, base.Attr(card, "img", "src")),
			Category:   normalize.ClassifyCategory(title, "", ""),
			RawPrice:   localPrice(base.Text(card, htmlPrice...), region),
		}
		fixtures = append(fixtures, f)
	})
	return fixtures, nil
}

// parseDetailHTML 详情页兜底解析；多场演出取第一个可解析日期
func parseDetailHTML(body []byte, eventURL string, region Region) (*model.Fixture, error) {
	doc, err := base.ParseHTML(body)
	if err != nil {
		return nil, err
	}
	title := base.Text(doc.Selection, htmlTitle...)
	if title == "" {
		return nil, &errs.ParseError{Platform: string(model.PlatformRegional), Unit: eventURL, Field: "title"}
	}
	f := &model.Fixture{
		ExternalID:  eventIDFromURL(eventURL),
		Title:       title,
		Venue:       base.Text(doc.Selection, htmlVenue...),
		URL:         eventURL,
		Description: base.Text(doc.Selection, htmlDesc...),
		ImageURL:    base.AbsoluteURL(region.BaseURL, base.Attr(doc.Selection, "img.event-image, img[data-testid='event-image']", "src")),
		Category:    normalize.ClassifyCategory(title, "", ""),
	}
	performances := 0
	base.FirstMatch(doc.Selection, htmlDate...).Each(func(_ int, n *goquery.Selection) {
		raw := normalize.FirstNonEmpty(base.Attr(n, "", "datetime"), normalize.CleanText(n.Text()))
		if normalize.ParseDate(raw, region.Locale) == nil {
			return
		}
		if performances == 0 {
			f.RawDate = raw
		}
		performances++
	})
	if performances > 1 {
		f.SetExtra("performances", performances)
	}

	doc.Find(htmlTickets).Each(func(_ int, t *goquery.Selection) {
		price := base.Text(t, htmlPrice...)
		if price == "" {
			return
		}
		f.Categories = append(f.Categories, model.TicketCategory{
			Category:        normalize.FirstNonEmpty(base.Text(t, htmlSection...), base.DefaultSection),
			RawPrice:        localPrice(price, region),
			RawAvailability: normalize.FirstNonEmpty(base.Text(t, htmlAvail...), string(model.AvailabilityAvailable)),
			Restrictions:    normalize.ExtractRestrictions(t.Text()),
		})
	})
	return f, nil
}

func eventIDFromURL(link string) string {
	idx := strings.Index(link, "/event/")
	if idx < 0 {
		return ""
	}
	id := link[idx+len("/event/"):]
	if cut := strings.IndexAny(id, "/?#"); cut >= 0 {
		id = id[:cut]
	}
	return id
}
