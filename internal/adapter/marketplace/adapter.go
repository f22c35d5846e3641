// Package marketplace 通用票务市场适配器（HTML搜索页 + 详情页）。
package marketplace

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"TicketSync/internal/adapter"
	"TicketSync/internal/adapter/base"
	"TicketSync/internal/config"
	"TicketSync/internal/errs"
	"TicketSync/internal/identity"
	"TicketSync/internal/interfaces"
	"TicketSync/internal/model"
	"TicketSync/internal/normalize"

	"github.com/sirupsen/logrus"
)

const (
	defaultBaseURL = "https://www.stubhub.com"
	defaultLocale  = "en-US"
)

func init() {
	adapter.Register(model.PlatformMarketplace, NewMarketplaceAdapter)
}

// MarketplaceAdapter 通用票务市场适配器
type MarketplaceAdapter struct {
	cfg     *config.PlatformConfig
	kit     *base.Toolkit
	fetcher *base.Fetcher
	baseURL string
	locale  string
	logger  *logrus.Logger
}

func NewMarketplaceAdapter(cfg *config.PlatformConfig, kit *base.Toolkit, logger *logrus.Logger) interfaces.PlatformAdapter {
	return newMarketplaceAdapter(cfg, kit, logger)
}

func newMarketplaceAdapter(cfg *config.PlatformConfig, kit *base.Toolkit, logger *logrus.Logger) *MarketplaceAdapter {
	return &MarketplaceAdapter{
		cfg:     cfg,
		kit:     kit,
		fetcher: base.NewFetcher(kit, model.PlatformMarketplace, cfg),
		baseURL: strings.TrimRight(normalize.FirstNonEmpty(cfg.BaseURL, defaultBaseURL), "/"),
		locale:  normalize.FirstNonEmpty(cfg.Locale, defaultLocale),
		logger:  logger,
	}
}

func (a *MarketplaceAdapter) GetName() string { return "Ticket Marketplace" }

func (a *MarketplaceAdapter) GetType() model.PlatformType { return model.PlatformMarketplace }

func (a *MarketplaceAdapter) SupportedSources() []model.Source {
	return []model.Source{{
		Key:     "search",
		Name:    a.GetName(),
		Group:   currencyForLocale(a.locale),
		Country: countryForLocale(a.locale),
		URL:     a.baseURL,
	}}
}

// Search 每个标识作为一个关键词依次搜索（同一站点，按平台限流）
func (a *MarketplaceAdapter) Search(ctx context.Context, identifiers []string, filters model.Filters) *model.SearchResult {
	result := &model.SearchResult{Platform: model.PlatformMarketplace}
	queries := make([]string, 0, len(identifiers))
	for _, q := range identifiers {
		if q = strings.TrimSpace(q); q != "" {
			queries = append(queries, q)
		}
	}
	if len(queries) == 0 {
		result.AddError("缺少搜索关键词")
		return result.Finish(0)
	}

	succeeded := 0
	for _, q := range queries {
		fixtures, err := a.searchQuery(ctx, q, filters)
		if err != nil {
			result.AddError("%s", base.UnitError("query "+q, err))
			var bot *errs.BotDetectionError
			if errors.As(err, &bot) || ctx.Err() != nil {
				// 被拦截或超时后放弃剩余关键词
				break
			}
			continue
		}
		succeeded++
		result.Results = append(result.Results, fixtures...)
	}
	if len(result.Errors) > 0 {
		a.logger.WithFields(logrus.Fields{
			"queries":   len(queries),
			"succeeded": succeeded,
			"errors":    len(result.Errors),
		}).Warn("部分关键词搜索失败")
	}
	return result.Finish(succeeded)
}

func (a *MarketplaceAdapter) searchQuery(ctx context.Context, query string, filters model.Filters) ([]*model.Fixture, error) {
	resp, err := a.fetcher.Fetch(ctx, base.Request{
		URL:     a.baseURL + "/search",
		Query:   searchParams(query, filters),
		Locale:  a.locale,
		BaseURL: a.baseURL,
		Kind:    identity.KindHTML,
		Pattern: &identity.PatternSearch,
	})
	if err != nil {
		return nil, err
	}
	fixtures, err := parseSearchPage(resp.Body, a.baseURL, filters.Category)
	if err != nil {
		return nil, &errs.ParseError{Platform: string(model.PlatformMarketplace), Unit: query, Field: "search_page", Err: err}
	}
	kept := base.KeepComplete(fixtures, base.KeepOptions{
		Locale:   a.locale,
		Platform: model.PlatformMarketplace,
		Unit:     query,
		Logger:   a.logger,
	})
	for _, f := range kept {
		f.SetExtra("query", query)
		f.SetExtra("extraction_method", model.ExtractionHTML)
	}
	return kept, nil
}

// searchParams 仅包含已设置的筛选条件
func searchParams(query string, filters model.Filters) url.Values {
	q := url.Values{}
	q.Set("q", query)
	q.Set("sort", "date")
	q.Set("view", "list")
	if filters.Category != "" {
		q.Set("category", filters.Category)
	}
	if filters.DateFrom != nil {
		q.Set("date_from", filters.DateFrom.Format("2006-01-02"))
	}
	if filters.DateTo != nil {
		q.Set("date_to", filters.DateTo.Format("2006-01-02"))
	}
	if filters.Location != "" {
		q.Set("location", filters.Location)
	}
	return q
}

// GetEventDetails 解析详情页票档，按URL缓存
func (a *MarketplaceAdapter) GetEventDetails(ctx context.Context, eventURL string) (*model.Fixture, error) {
	return a.kit.CachedDetail(ctx, model.PlatformMarketplace, eventURL, func(ctx context.Context) (*model.Fixture, error) {
		resp, err := a.fetcher.Fetch(ctx, base.Request{
			URL:     eventURL,
			Locale:  a.locale,
			BaseURL: a.baseURL,
			Kind:    identity.KindHTML,
			Pattern: &identity.PatternTicketCheck,
		})
		if err != nil {
			return nil, err
		}
		f, err := parseDetailPage(resp.Body, eventURL)
		if err != nil {
			return nil, &errs.ParseError{Platform: string(model.PlatformMarketplace), Unit: eventURL, Field: "detail_page", Err: err}
		}
		f.SetExtra("extraction_method", model.ExtractionHTML)
		return f, nil
	})
}

func (a *MarketplaceAdapter) ToTickets(fixtures []*model.Fixture) ([]*model.CanonicalTicket, []string) {
	currency := currencyForLocale(a.locale)
	return base.ToTickets(fixtures, base.TicketOptions{
		Platform:   model.PlatformMarketplace,
		LocaleOf:   func(*model.Fixture) string { return a.locale },
		CurrencyOf: func(*model.Fixture) string { return currency },
		Now:        a.now,
		Logger:     a.logger,
	})
}

func (a *MarketplaceAdapter) now() time.Time {
	if a.kit.Clock != nil {
		return a.kit.Clock.Now()
	}
	return time.Now()
}

func countryForLocale(locale string) string {
	switch strings.ToUpper(locale[strings.LastIndex(locale, "-")+1:]) {
	case "US":
		return "USA"
	case "GB":
		return "England"
	case "AU":
		return "Australia"
	case "NZ":
		return "New Zealand"
	case "ES":
		return "Spain"
	case "DE":
		return "Germany"
	case "FR":
		return "France"
	case "IT":
		return "Italy"
	default:
		return ""
	}
}

// currencyForLocale 价格文本无币种符号时的默认币种
func currencyForLocale(locale string) string {
	return normalize.CurrencyForCountry(countryForLocale(locale))
}
