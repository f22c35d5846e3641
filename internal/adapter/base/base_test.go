package base

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"TicketSync/internal/config"
	"TicketSync/internal/errs"
	"TicketSync/internal/identity"
	"TicketSync/internal/model"
	"TicketSync/internal/ratelimit"

	"github.com/sirupsen/logrus"
)

func noSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

func newTestKit() *Toolkit {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &Toolkit{
		Identity:   identity.NewManager(identity.Options{Seed: 1, Sleep: noSleep}, l),
		Limiter:    ratelimit.NewController(ratelimit.Options{Seed: 1, Sleep: noSleep}, l),
		HTTP:       config.HTTPConfig{Timeout: 5 * time.Second},
		MaxRetries: 2,
		Logger:     l,
	}
}

func TestFetchSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("User-Agent header missing")
		}
		if r.URL.Query().Get("limit") != "50" {
			t.Errorf("query = %q", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(`{"fixtures":[{"title":"Arsenal vs Chelsea","date":"2025-03-15","price":"£45"}]}`))
	}))
	defer server.Close()

	f := NewFetcher(newTestKit(), model.PlatformClubStore, &config.PlatformConfig{})
	resp, err := f.Fetch(context.Background(), Request{URL: server.URL, Query: map[string][]string{"limit": {"50"}}, Kind: identity.KindJSON})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if !resp.IsJSON() {
		t.Errorf("IsJSON() = false for %q", resp.ContentType)
	}
}

func TestFetchBotDetectionCoolsDown(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`<html><title>Just a moment...</title><div id="cf-chl-widget">Checking your browser</div></html>`))
	}))
	defer server.Close()

	kit := newTestKit()
	f := NewFetcher(kit, model.PlatformClubStore, &config.PlatformConfig{})
	_, err := f.Fetch(context.Background(), Request{URL: server.URL, RateKey: "barcelona"})
	var bot *errs.BotDetectionError
	if !errors.As(err, &bot) {
		t.Fatalf("expected BotDetectionError, got %v", err)
	}
	if bot.Provider != "cloudflare" {
		t.Errorf("provider = %q", bot.Provider)
	}
	if hits != 1 {
		t.Errorf("bot page must not be retried, hits = %d", hits)
	}
	var rl *errs.RateLimitedError
	if err := kit.Limiter.Acquire("barcelona"); !errors.As(err, &rl) {
		t.Errorf("source should be cooling down, got %v", err)
	}
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	f := NewFetcher(newTestKit(), model.PlatformRegional, &config.PlatformConfig{})
	if _, err := f.Fetch(context.Background(), Request{URL: server.URL}); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if hits != 3 {
		t.Errorf("hits = %d, want 3", hits)
	}
}

func TestFetchDoesNotRetryClientErrors(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.NotFound(w, r)
	}))
	defer server.Close()

	f := NewFetcher(newTestKit(), model.PlatformMarketplace, &config.PlatformConfig{})
	_, err := f.Fetch(context.Background(), Request{URL: server.URL})
	var netErr *errs.NetworkError
	if !errors.As(err, &netErr) || netErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 NetworkError, got %v", err)
	}
	if hits != 1 {
		t.Errorf("hits = %d, want 1", hits)
	}
}

func TestFetchTooManyRequests(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "120")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	f := NewFetcher(newTestKit(), model.PlatformMarketplace, &config.PlatformConfig{})
	_, err := f.Fetch(context.Background(), Request{URL: server.URL})
	var rl *errs.RateLimitedError
	if !errors.As(err, &rl) || rl.RetryAfter != 120*time.Second {
		t.Fatalf("expected RateLimitedError with 120s, got %v", err)
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	if got := parseRetryAfter("", now); got != DefaultRetryAfter {
		t.Errorf("empty = %v", got)
	}
	if got := parseRetryAfter("garbage", now); got != DefaultRetryAfter {
		t.Errorf("garbage = %v", got)
	}
	if got := parseRetryAfter(now.Add(90*time.Second).Format(http.TimeFormat), now); got != 90*time.Second {
		t.Errorf("http date = %v", got)
	}
}

func TestExtractJSONLDOffers(t *testing.T) {
	page := `<html><head>
<script type="application/ld+json">{"@context":"https://schema.org","@graph":[{"@type":"SportsEvent","name":"Chelsea vs Spurs",
"offers":{"@type":"AggregateOffer","lowPrice":"35","highPrice":"120","priceCurrency":"GBP","availability":"https://schema.org/InStock"}}]}</script>
<script type="application/ld+json">[{"@type":"Event","offers":[{"name":"Family","price":20,"priceCurrency":"GBP","availability":"SoldOut"}]}]</script>
</head></html>`
	doc, err := ParseHTML([]byte(page))
	if err != nil {
		t.Fatal(err)
	}
	offers := ExtractJSONLDOffers(doc)
	if len(offers) != 2 {
		t.Fatalf("offers = %+v", offers)
	}
	if offers[0].RawPrice() != "35 - 120 GBP" || offers[0].Availability != "available" {
		t.Errorf("aggregate offer = %+v", offers[0])
	}
	if offers[1].Price != "20" || offers[1].Availability != "sold out" {
		t.Errorf("second offer = %+v", offers[1])
	}
}

func TestToTicketsDropsIncompleteFixtures(t *testing.T) {
	l := logrus.New()
	l.SetOutput(io.Discard)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	fixtures := []*model.Fixture{
		{
			Title: "Arsenal vs Chelsea", RawDate: "15/03/2025 15:00", Venue: "Emirates Stadium",
			Extras: map[string]any{"club": "arsenal", "extraction_method": "api"},
			Categories: []model.TicketCategory{
				{Category: "Lower Tier", RawPrice: "£45", RawAvailability: "Available"},
				{Category: "Lower Tier", RawPrice: "£45", RawAvailability: "Available"},
				{Category: "Hospitality Box", RawPrice: "£250 - £400", RawAvailability: "sold out"},
				{Category: "Complimentary", RawPrice: "Free"},
			},
		},
		{Title: "Arsenal vs Spurs", RawDate: "TBC", Categories: []model.TicketCategory{{Category: "Upper", RawPrice: "£30"}}},
		{Title: "Arsenal vs Everton", RawDate: "2025-04-01", Categories: []model.TicketCategory{{Category: "Upper", RawPrice: "Sold out"}}},
		{Title: "Arsenal vs Leeds", RawDate: "2025-04-10", RawPrice: "From 25 GBP"},
	}
	tickets, errList := ToTickets(fixtures, TicketOptions{
		Platform:   model.PlatformClubStore,
		LocaleOf:   func(*model.Fixture) string { return "en-GB" },
		CurrencyOf: func(*model.Fixture) string { return "GBP" },
		Now:        func() time.Time { return now },
		Logger:     l,
	})
	if len(errList) != 0 {
		t.Errorf("unexpected errors: %v", errList)
	}
	if len(tickets) != 3 {
		t.Fatalf("got %d tickets, want 3", len(tickets))
	}

	lower := tickets[0]
	if lower.Currency != "GBP" || lower.Price.String() != "45" || lower.AvailabilityStatus != model.AvailabilityAvailable {
		t.Errorf("lower tier ticket = %+v", lower)
	}
	if lower.EventDate == nil || lower.EventDate.Day() != 15 || !lower.LastSeen.Equal(now) {
		t.Errorf("date/last_seen = %v / %v", lower.EventDate, lower.LastSeen)
	}
	var meta map[string]any
	if err := json.Unmarshal(lower.Metadata, &meta); err != nil {
		t.Fatal(err)
	}
	if meta["club"] != "arsenal" || meta["extraction_method"] != "api" || meta["ticket_type"] != "standard" {
		t.Errorf("metadata = %v", meta)
	}

	box := tickets[1]
	if box.PriceMax == nil || box.PriceMax.String() != "400" || box.AvailabilityStatus != model.AvailabilitySoldOut {
		t.Errorf("hospitality ticket = %+v", box)
	}

	leeds := tickets[2]
	if leeds.Section != DefaultSection || leeds.Price.String() != "25" || leeds.PriceMax != nil {
		t.Errorf("listing-price ticket = %+v", leeds)
	}
}
