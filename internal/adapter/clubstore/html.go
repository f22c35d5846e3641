package clubstore

import (
	"crypto/md5"
	"encoding/hex"

	"TicketSync/internal/adapter/base"
	"TicketSync/internal/model"
	"TicketSync/internal/normalize"

	"github.com/PuerkitoBio/goquery"
)

// htmlSelectors 俱乐部票务页的选择器表
type htmlSelectors struct {
	container    string
	title        []string
	date         []string
	tickets      string
	category     []string
	price        []string
	availability []string
}

var defaultHTMLSelectors = htmlSelectors{
	container:    "div.fixture, div.match, li.fixture, li.match, article.fixture, tr.fixture, [class*='fixture-item'], [class*='match-item']",
	title:        []string{"h2", "h3", ".title", "[class*='title']"},
	date:         []string{"time", "span.date", "[class*='date']"},
	tickets:      "div[class*='ticket'], li[class*='ticket'], tr[class*='ticket']",
	category:     []string{"span.category", "h4", "[class*='category']"},
	price:        []string{"span.price", "[class*='price']"},
	availability: []string{"span.availability", "[class*='availability']", "[class*='status']"},
}

var htmlStrategies = map[string]htmlSelectors{
	"arsenal": {
		container:    "div.fixture-item",
		title:        []string{"h3.fixture-title"},
		date:         []string{"time.fixture-date"},
		tickets:      "div.ticket-info",
		category:     defaultHTMLSelectors.category,
		price:        defaultHTMLSelectors.price,
		availability: defaultHTMLSelectors.availability,
	},
	"chelsea": {
		container:    "div.match-item",
		title:        []string{"h2.match-title"},
		date:         []string{"span.match-date"},
		tickets:      "div.ticket-availability",
		category:     defaultHTMLSelectors.category,
		price:        defaultHTMLSelectors.price,
		availability: defaultHTMLSelectors.availability,
	},
}

func htmlSelectorsFor(clubKey string) htmlSelectors {
	if s, ok := htmlStrategies[clubKey]; ok {
		return s
	}
	return defaultHTMLSelectors
}

// parseHTML 从票务列表页提取赛事；专用选择器无结果时退回默认选择器
func parseHTML(body []byte, club Club) ([]*model.Fixture, error) {
	doc, err := base.ParseHTML(body)
	if err != nil {
		return nil, err
	}
	sel := htmlSelectorsFor(club.Key)
	nodes := doc.Find(sel.container)
	if nodes.Length() == 0 && sel.container != defaultHTMLSelectors.container {
		sel = defaultHTMLSelectors
		nodes = doc.Find(sel.container)
	}

	var fixtures []*model.Fixture
	nodes.Each(func(_ int, node *goquery.Selection) {
		title := base.Text(node, sel.title...)
		if title == "" {
			return
		}
		dateNode := base.FirstMatch(node, sel.date...).First()
		rawDate := normalize.FirstNonEmpty(base.Attr(dateNode, "", "datetime", "content"), normalize.CleanText(dateNode.Text()))

		opponent := extractOpponent(title, club)
		f := &model.Fixture{
			ExternalID: htmlFixtureID(title, rawDate),
			Title:      club.Name + " vs " + opponent,
			HomeTeam:   club.Name,
			Opponent:   opponent,
			Venue:      normalize.FirstNonEmpty(base.Text(node, ".venue", "[class*='venue']"), club.HomeVenue),
			RawDate:    rawDate,
			URL:        normalize.FirstNonEmpty(base.AbsoluteURL(club.URL, base.Attr(node, "a[href]", "href")), club.URL),
			Category:   normalize.CategorySports,
		}
		node.Find(sel.tickets).Each(func(_ int, t *goquery.Selection) {
			price := base.Text(t, sel.price...)
			if price == "" {
				return
			}
			f.Categories = append(f.Categories, model.TicketCategory{
				Category:        normalize.FirstNonEmpty(base.Text(t, sel.category...), "General"),
				RawPrice:        price,
				RawAvailability: normalize.FirstNonEmpty(base.Text(t, sel.availability...), string(model.AvailabilityAvailable)),
			})
		})
		fixtures = append(fixtures, f)
	})
	return fixtures, nil
}

// htmlFixtureID HTML页面没有赛事ID时用标题+日期生成稳定ID
func htmlFixtureID(title, date string) string {
	h := md5.Sum([]byte(title + date))
	return hex.EncodeToString(h[:])
}
