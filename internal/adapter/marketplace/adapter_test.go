package marketplace

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"TicketSync/internal/adapter/base"
	"TicketSync/internal/config"
	"TicketSync/internal/identity"
	"TicketSync/internal/model"
	"TicketSync/internal/ratelimit"
	"TicketSync/internal/store"

	"github.com/sirupsen/logrus"
)

func noSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

func newTestAdapter(baseURL string) *MarketplaceAdapter {
	l := logrus.New()
	l.SetOutput(io.Discard)
	kit := &base.Toolkit{
		Identity: identity.NewManager(identity.Options{Seed: 11, Sleep: noSleep}, l),
		Limiter:  ratelimit.NewController(ratelimit.Options{Seed: 11, Sleep: noSleep}, l),
		HTTP:     config.HTTPConfig{Timeout: 5 * time.Second},
		Details:  store.NewTTLCache[*model.Fixture](15*time.Minute, nil),
		Logger:   l,
	}
	return newMarketplaceAdapter(&config.PlatformConfig{Enabled: true, BaseURL: baseURL, Locale: "en-US"}, kit, l)
}

const searchPage = `<html><body><ul>
<li class="event-card">
  <a class="event-name" href="/arsenal-tickets/event/104512">Arsenal vs Chelsea</a>
  <time datetime="2025-03-15T15:00:00Z">Sat, Mar 15</time>
  <span class="venue-name">Emirates Stadium</span>
  <span class="location">London, UK</span>
  <span class="price">$85</span><span class="price">$240.50</span>
  <span class="tickets-available">312 tickets available</span>
</li>
<li class="event-card">
  <a class="event-name" href="/taylor-swift-tickets/event/998">Taylor Swift Concert</a>
  <span class="date">03/22/2025</span>
  <span class="venue-name">Wembley</span>
</li>
<li class="event-card">
  <a class="event-name" href="/event/555">Mystery Event</a>
  <span class="date">Date TBA</span>
  <span class="price">$40</span>
</li>
</ul></body></html>`

func TestSearchParsesCards(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, searchPage)
	}))
	defer server.Close()

	a := newTestAdapter(server.URL)
	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	res := a.Search(context.Background(), []string{"arsenal"}, model.Filters{DateFrom: &from, Location: "London"})
	if !res.Success {
		t.Fatalf("search failed: %v", res.Errors)
	}
	for _, want := range []string{"q=arsenal", "sort=date", "view=list", "date_from=2025-03-01", "location=London"} {
		if !strings.Contains(gotQuery, want) {
			t.Errorf("query %q missing %q", gotQuery, want)
		}
	}
	if strings.Contains(gotQuery, "date_to") || strings.Contains(gotQuery, "category") {
		t.Errorf("unset filters leaked into query: %q", gotQuery)
	}
	// "Date TBA" 无法确定日期，被丢弃
	if res.Count != 2 {
		t.Fatalf("Count = %d, want 2", res.Count)
	}

	first := res.Results[0]
	if first.ExternalID != "104512" || first.URL != server.URL+"/arsenal-tickets/event/104512" {
		t.Errorf("first fixture = %+v", first)
	}
	if first.RawPrice != "85.00 - 240.50 USD" || first.Category != "football" && first.Category != "sports" {
		t.Errorf("raw price = %q category = %q", first.RawPrice, first.Category)
	}
	if first.Extras["location"] != "London, UK" || first.Extras["query"] != "arsenal" {
		t.Errorf("extras = %v", first.Extras)
	}

	tickets, errList := a.ToTickets(res.Results)
	if len(errList) != 0 {
		t.Fatalf("ToTickets errors: %v", errList)
	}
	// 第二场没有价格，转换时丢弃
	if len(tickets) != 1 {
		t.Fatalf("tickets = %d, want 1", len(tickets))
	}
	tk := tickets[0]
	if tk.Price.StringFixed(2) != "85.00" || tk.PriceMax == nil || tk.PriceMax.StringFixed(2) != "240.50" {
		t.Errorf("price = %s max = %v", tk.Price, tk.PriceMax)
	}
	if tk.Currency != "USD" || tk.AvailabilityStatus != model.AvailabilityAvailable || tk.Section != base.DefaultSection {
		t.Errorf("ticket = %+v", tk)
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	a := newTestAdapter("http://127.0.0.1:1")
	res := a.Search(context.Background(), []string{"  "}, model.Filters{})
	if res.Success || len(res.Errors) != 1 {
		t.Errorf("result = %+v", res)
	}
}

func TestSearchStopsAfterBotDetection(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = io.WriteString(w, `<html><title>Attention Required! | Cloudflare</title></html>`)
	}))
	defer server.Close()

	a := newTestAdapter(server.URL)
	res := a.Search(context.Background(), []string{"arsenal", "chelsea"}, model.Filters{})
	if res.Success || len(res.Errors) != 1 || !strings.HasPrefix(res.Errors[0], "query arsenal:") {
		t.Fatalf("result = %+v", res)
	}
	if hits != 1 {
		t.Errorf("hits = %d, want 1", hits)
	}
}

const detailPage = `<html><body>
<h1 class="event-title">Arsenal vs Chelsea</h1>
<time datetime="2025-03-15T15:00:00Z">Saturday</time>
<div class="venue-name">Emirates Stadium</div>
<div class="event-description">Premier League fixture. Age restrictions apply.</div>
<table>
<tr class="ticket-row" data-listing-id="L1"><td class="section">Lower Tier 12</td><td class="price">$120.00</td><td class="status">Available</td><td>incl. fees</td></tr>
<tr class="ticket-row" data-listing-id="L2"><td class="section">Upper Tier</td><td class="price">$75</td><td class="status">Sold out</td><td>+ fees</td></tr>
</table>
</body></html>`

const jsonLDPage = `<html><head><script type="application/ld+json">
{"@context":"https://schema.org","@type":"SportsEvent","name":"Liverpool vs Everton",
 "offers":[{"@type":"Offer","name":"Kop End","price":"65","priceCurrency":"GBP","availability":"https://schema.org/InStock"}]}
</script></head><body><h1>Liverpool vs Everton</h1><span class="event-date">2025-04-05 12:30</span></body></html>`

func TestGetEventDetailsCached(t *testing.T) {
	var hits int32
	mux := http.NewServeMux()
	mux.HandleFunc("/event/1", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = io.WriteString(w, detailPage)
	})
	mux.HandleFunc("/event/2", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, jsonLDPage)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	a := newTestAdapter(server.URL)
	for i := 0; i < 2; i++ {
		f, err := a.GetEventDetails(context.Background(), server.URL+"/event/1")
		if err != nil {
			t.Fatal(err)
		}
		if len(f.Categories) != 2 || f.ExternalID != "1" || f.Extras["detail_source"] != "ticket_options" {
			t.Fatalf("fixture = %+v", f)
		}
		if c := f.Categories[0]; c.ExternalID != "L1" || c.FeesIncluded == nil || !*c.FeesIncluded {
			t.Errorf("first option = %+v", c)
		}
		if c := f.Categories[1]; c.FeesIncluded == nil || *c.FeesIncluded {
			t.Errorf("second option = %+v", c)
		}
	}
	if hits != 1 {
		t.Errorf("detail page fetched %d times, want 1", hits)
	}

	f, err := a.GetEventDetails(context.Background(), server.URL+"/event/2")
	if err != nil {
		t.Fatal(err)
	}
	if f.Extras["detail_source"] != "json_ld" || len(f.Categories) != 1 || f.Categories[0].Category != "Kop End" {
		t.Fatalf("json-ld fixture = %+v", f)
	}
	tickets, _ := a.ToTickets([]*model.Fixture{f})
	if len(tickets) != 1 || tickets[0].Currency != "GBP" || tickets[0].AvailabilityStatus != model.AvailabilityAvailable {
		t.Errorf("tickets = %+v", tickets)
	}
}

func TestPriceRangeText(t *testing.T) {
	cases := []struct {
		in   []string
		want string
	}{
		{[]string{"£25", "£50"}, "25.00 - 50.00 GBP"},
		{[]string{"From $19"}, "19.00 USD"},
		{[]string{"free", "0"}, ""},
		{nil, ""},
	}
	for _, c := range cases {
		if got := priceRangeText(c.in); got != c.want {
			t.Errorf("priceRangeText(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}
