package normalize

import (
	"reflect"
	"testing"
	"time"

	"TicketSync/internal/model"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in      string
		min     string // "" 表示 nil
		max     string
		wantNil bool
	}{
		{in: "£25 - £50", min: "25.00", max: "50.00"},
		{in: "1.234,56", min: "1234.56", max: "1234.56"},
		{in: "From £25", min: "25.00"},
		{in: "€1,234.56", min: "1234.56", max: "1234.56"},
		{in: "25,50 €", min: "25.50", max: "25.50"},
		{in: "45 euros", min: "45", max: "45"},
		{in: "25 to 50 pounds", min: "25", max: "50"},
		{in: "ab 30 Euro", min: "30"},
		{in: "desde 19,90€", min: "19.90"},
		{in: "A$89.90", min: "89.90", max: "89.90"},
		{in: "Tickets", wantNil: true},
		{in: "", wantNil: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			lo, hi := ParsePrice(tt.in)
			if tt.wantNil {
				if lo != nil || hi != nil {
					t.Fatalf("ParsePrice(%q) = (%v, %v), want (nil, nil)", tt.in, lo, hi)
				}
				return
			}
			if lo == nil || !lo.Equal(dec(tt.min)) {
				t.Errorf("ParsePrice(%q) min = %v, want %s", tt.in, lo, tt.min)
			}
			if tt.max == "" {
				if hi != nil {
					t.Errorf("ParsePrice(%q) max = %v, want nil", tt.in, hi)
				}
			} else if hi == nil || !hi.Equal(dec(tt.max)) {
				t.Errorf("ParsePrice(%q) max = %v, want %s", tt.in, hi, tt.max)
			}
		})
	}
}

func TestDetectCurrency(t *testing.T) {
	cases := map[string]string{
		"£25":             CurrencyGBP,
		"25,00 €":         CurrencyEUR,
		"A$45":            CurrencyAUD,
		"NZ$60":           CurrencyNZD,
		"$20":             CurrencyUSD,
		"20 euros":        CurrencyEUR,
		"30 libras":       CurrencyGBP,
		"European Cup £5": CurrencyGBP,
		"free entry":      "",
	}
	for in, want := range cases {
		if got := DetectCurrency(in); got != want {
			t.Errorf("DetectCurrency(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestConvertCurrency(t *testing.T) {
	ten := dec("10")
	r := ConvertCurrency(PriceRange{Min: &ten}, CurrencyGBP, CurrencyEUR)
	if r.Min == nil || !r.Min.Equal(dec("11.70")) {
		t.Errorf("GBP->EUR min = %v, want 11.70", r.Min)
	}
	if r.Max != nil {
		t.Errorf("nil max should stay nil, got %v", r.Max)
	}

	same := ConvertCurrency(PriceRange{Min: &ten, Max: &ten}, "XYZ", CurrencyEUR)
	if !same.Min.Equal(ten) {
		t.Errorf("unknown currency should be unchanged, got %v", same.Min)
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		text   string
		locale string
		want   time.Time
	}{
		{"15.03.2025", "de-DE", time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"2025-03-15T19:45:00Z", "en-GB", time.Date(2025, 3, 15, 19, 45, 0, 0, time.UTC)},
		{"2025-03-15T20:45:00+01:00", "es-ES", time.Date(2025, 3, 15, 19, 45, 0, 0, time.UTC)},
		{"15/03/2025 20:00", "en-GB", time.Date(2025, 3, 15, 20, 0, 0, 0, time.UTC)},
		{"03/15/2025", "en-US", time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"2025-03-15", "it-IT", time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"Saturday 15 March 2025", "en-GB", time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"Sat, 15th March 2025 at 17:30", "en-GB", time.Date(2025, 3, 15, 17, 30, 0, 0, time.UTC)},
		{"15 de marzo de 2025", "es-ES", time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"15 mars 2025 à 20h45", "fr-FR", time.Date(2025, 3, 15, 20, 45, 0, 0, time.UTC)},
		{"Date: 15 Mar 2025", "en-GB", time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"Saturday 15 March 2025, 3pm", "en-GB", time.Date(2025, 3, 15, 15, 0, 0, 0, time.UTC)},
		{"Sat 15 Mar 2025 - 15:00", "en-GB", time.Date(2025, 3, 15, 15, 0, 0, 0, time.UTC)},
		{"15 March 2025 15:00 GMT", "en-GB", time.Date(2025, 3, 15, 15, 0, 0, 0, time.UTC)},
		{"Sunday 16th March 2025 at 4.30pm", "en-GB", time.Date(2025, 3, 16, 16, 30, 0, 0, time.UTC)},
		{"5 April 2025 19:45 BST", "en-GB", time.Date(2025, 4, 5, 18, 45, 0, 0, time.UTC)},
		{"Sat 12 Apr 2025 – 7.45 p.m.", "en-GB", time.Date(2025, 4, 12, 19, 45, 0, 0, time.UTC)},
		{"15.03.2025 20:45 CET", "de-DE", time.Date(2025, 3, 15, 19, 45, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := ParseDate(tt.text, tt.locale)
			if got == nil {
				t.Fatalf("ParseDate(%q) = nil", tt.text)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}

	for _, bad := range []string{"", "TBC", "not a date", "32/13/2025"} {
		if got := ParseDate(bad, "en-GB"); got != nil {
			t.Errorf("ParseDate(%q) = %v, want nil", bad, got)
		}
	}
}

func TestNormalizeAvailability(t *testing.T) {
	cases := map[string]model.AvailabilityStatus{
		"Ausverkauft":                model.AvailabilitySoldOut,
		"Disponible":                 model.AvailabilityAvailable,
		"Not available":              model.AvailabilitySoldOut,
		"no disponible":              model.AvailabilitySoldOut,
		"sold_out":                   model.AvailabilitySoldOut,
		"Coming Soon":                model.AvailabilityComingSoon,
		"Pocas entradas disponibles": model.AvailabilityAvailable,
		"On Sale":                    model.AvailabilityAvailable,
		"Lorem ipsum":                model.AvailabilityUnknown,
		"Complet":                    model.AvailabilitySoldOut,
		"Guichets fermés, complet !": model.AvailabilitySoldOut,
		"Complete your booking":      model.AvailabilityUnknown,
		"Sale completed":             model.AvailabilityUnknown,
		"":                           model.AvailabilityUnknown,
	}
	for in, want := range cases {
		if got := NormalizeAvailability(in); got != want {
			t.Errorf("NormalizeAvailability(%q) = %s, want %s", in, got, want)
		}
	}

	no := false
	if got := AvailabilityFromFlag(&no, "available"); got != model.AvailabilitySoldOut {
		t.Errorf("flag should win over status text, got %s", got)
	}
	if got := AvailabilityFromFlag(nil, "agotado"); got != model.AvailabilitySoldOut {
		t.Errorf("AvailabilityFromFlag(nil, agotado) = %s", got)
	}
}

func TestClassifyCategory(t *testing.T) {
	tests := []struct {
		title, context, fallback, want string
	}{
		{"Arsenal vs Chelsea", "", "", "football"},
		{"Ed Sheeran: Mathematics Tour", "", "", "music"},
		{"Hamlet", "Theatre", "", "theatre"},
		{"Premiership Rugby Final", "", "", "rugby"},
		{"Wimbledon Championships", "", "sports", "tennis"},
		{"Something Else", "", "sports", "sports"},
		{"Something Else", "", "", CategoryEntertainment},
	}
	for _, tt := range tests {
		if got := ClassifyCategory(tt.title, tt.context, tt.fallback); got != tt.want {
			t.Errorf("ClassifyCategory(%q, %q) = %q, want %q", tt.title, tt.context, got, tt.want)
		}
	}
}

func TestClassifyTicketType(t *testing.T) {
	cases := map[string]string{
		"VIP Lounge":        "premium",
		"Hospitality Box":   "hospitality",
		"Season Ticket":     "season_ticket",
		"Family Package":    "package",
		"General Admission": "standard",
	}
	for in, want := range cases {
		if got := ClassifyTicketType(in); got != want {
			t.Errorf("ClassifyTicketType(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExtractRestrictions(t *testing.T) {
	got := ExtractRestrictions("Over 18s only.", "Photo ID required")
	want := []string{"age_restriction", "id_required"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractRestrictions() = %v, want %v", got, want)
	}
	if got := ExtractRestrictions("Standard seat"); got != nil {
		t.Errorf("expected no restrictions, got %v", got)
	}
}

func TestCleanAndTruncate(t *testing.T) {
	if got := CleanText("  <b>Emirates</b>&nbsp;Stadium \n"); got != "Emirates Stadium" {
		t.Errorf("CleanText() = %q", got)
	}
	if got := Truncate("Atlético Madrid", 8); got != "Atlético" {
		t.Errorf("Truncate() = %q", got)
	}
}
