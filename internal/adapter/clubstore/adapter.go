// Package clubstore 欧洲足球俱乐部官方票务站点适配器：优先API，失败时解析票务页面。
package clubstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
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
	"golang.org/x/sync/errgroup"
)

// 默认单批次并发抓取的俱乐部数量
const defaultConcurrency = 4

func init() {
	adapter.Register(model.PlatformClubStore, NewClubStoreAdapter)
}

// ClubStoreAdapter 俱乐部官方票务适配器
type ClubStoreAdapter struct {
	cfg         *config.PlatformConfig
	kit         *base.Toolkit
	fetcher     *base.Fetcher
	directory   *Directory
	concurrency int
	logger      *logrus.Logger
}

func NewClubStoreAdapter(cfg *config.PlatformConfig, kit *base.Toolkit, logger *logrus.Logger) interfaces.PlatformAdapter {
	return newClubStoreAdapter(cfg, kit, logger)
}

func newClubStoreAdapter(cfg *config.PlatformConfig, kit *base.Toolkit, logger *logrus.Logger) *ClubStoreAdapter {
	concurrency := kit.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &ClubStoreAdapter{
		cfg:         cfg,
		kit:         kit,
		fetcher:     base.NewFetcher(kit, model.PlatformClubStore, cfg),
		directory:   NewDirectory(cfg.Clubs),
		concurrency: concurrency,
		logger:      logger,
	}
}

func (a *ClubStoreAdapter) GetName() string { return "Football Club Stores" }

func (a *ClubStoreAdapter) GetType() model.PlatformType { return model.PlatformClubStore }

func (a *ClubStoreAdapter) SupportedSources() []model.Source { return a.directory.Sources() }

type clubOutcome struct {
	fixtures []*model.Fixture
	err      error
}

// Search 每个俱乐部一个goroutine并行抓取；至少一个俱乐部成功即视为成功。
// 标识为空时抓取目录中的全部俱乐部
func (a *ClubStoreAdapter) Search(ctx context.Context, identifiers []string, filters model.Filters) *model.SearchResult {
	result := &model.SearchResult{Platform: model.PlatformClubStore}
	keys := identifiers
	if len(keys) == 0 {
		keys = a.directory.Keys()
	}

	outcomes := make([]clubOutcome, len(keys))
	g := new(errgroup.Group)
	g.SetLimit(a.concurrency)
	for i, key := range keys {
		club, ok := a.directory.Get(strings.ToLower(strings.TrimSpace(key)))
		if !ok {
			outcomes[i].err = errors.New("未知俱乐部")
			continue
		}
		g.Go(func() error {
			fixtures, err := a.searchClub(ctx, club, filters)
			outcomes[i] = clubOutcome{fixtures: fixtures, err: err}
			return nil
		})
	}
	_ = g.Wait()

	succeeded := 0
	for i, o := range outcomes {
		if o.err != nil {
			result.AddError("%s", base.UnitError("club "+keys[i], o.err))
			continue
		}
		succeeded++
		result.Results = append(result.Results, o.fixtures...)
	}
	if len(result.Errors) > 0 {
		a.logger.WithFields(logrus.Fields{
			"clubs":     len(keys),
			"succeeded": succeeded,
			"errors":    len(result.Errors),
		}).Warn("部分俱乐部抓取失败")
	}
	return result.Finish(succeeded)
}

// searchClub 优先API；API失败（反爬与限流除外）时解析票务页面
func (a *ClubStoreAdapter) searchClub(ctx context.Context, club Club, filters model.Filters) ([]*model.Fixture, error) {
	var (
		fixtures []*model.Fixture
		method   = model.ExtractionAPI
		err      error
	)
	if club.APIEndpoint != "" {
		fixtures, err = a.searchViaAPI(ctx, club, filters)
		if err != nil {
			var bot *errs.BotDetectionError
			var rl *errs.RateLimitedError
			if errors.As(err, &bot) || errors.As(err, &rl) || ctx.Err() != nil {
				return nil, err
			}
			a.logger.WithError(err).WithField("club", club.Key).Warn("俱乐部API抓取失败，改为解析票务页面")
		}
	}
	if club.APIEndpoint == "" || err != nil {
		method = model.ExtractionHTML
		fixtures, err = a.searchViaHTML(ctx, club)
		if err != nil {
			return nil, err
		}
	}

	locale := identity.LocaleForCountry(club.Country)
	kept := base.KeepComplete(fixtures, base.KeepOptions{
		Locale:       locale,
		RequirePrice: true,
		Platform:     model.PlatformClubStore,
		Unit:         club.Key,
		Logger:       a.logger,
	})
	for _, f := range kept {
		f.SetExtra("club", club.Name)
		f.SetExtra("club_key", club.Key)
		f.SetExtra("league", club.League)
		f.SetExtra("country", club.Country)
		f.SetExtra("extraction_method", method)
	}
	return kept, nil
}

func (a *ClubStoreAdapter) searchViaAPI(ctx context.Context, club Club, filters model.Filters) ([]*model.Fixture, error) {
	resp, err := a.fetcher.Fetch(ctx, base.Request{
		URL:     club.APIEndpoint,
		Query:   apiParams(filters),
		RateKey: club.Key,
		Locale:  identity.LocaleForCountry(club.Country),
		BaseURL: club.URL,
		Kind:    identity.KindJSON,
		Pattern: &identity.PatternSearch,
	})
	if err != nil {
		return nil, err
	}
	if !resp.IsJSON() && !looksLikeJSON(resp.Body) {
		return nil, &errs.ParseError{Platform: string(model.PlatformClubStore), Unit: club.Key, Field: "content-type", Err: fmt.Errorf("非JSON响应: %s", resp.ContentType)}
	}
	return strategyFor(club.Key).ParseResponse(resp.Body, club)
}

func (a *ClubStoreAdapter) searchViaHTML(ctx context.Context, club Club) ([]*model.Fixture, error) {
	resp, err := a.fetcher.Fetch(ctx, base.Request{
		URL:     club.URL,
		RateKey: club.Key,
		Locale:  identity.LocaleForCountry(club.Country),
		Kind:    identity.KindHTML,
		Pattern: &identity.PatternPageLoad,
	})
	if err != nil {
		return nil, err
	}
	return parseHTML(resp.Body, club)
}

// apiParams 仅包含已设置的筛选条件
func apiParams(filters model.Filters) url.Values {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(50))
	if filters.DateFrom != nil {
		q.Set("from_date", filters.DateFrom.Format("2006-01-02"))
	}
	if filters.DateTo != nil {
		q.Set("to_date", filters.DateTo.Format("2006-01-02"))
	}
	if filters.Competition != "" {
		q.Set("competition", filters.Competition)
	}
	return q
}

func looksLikeJSON(body []byte) bool {
	s := strings.TrimSpace(string(body))
	return strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[")
}

// GetEventDetails 解析单场赛事的票务页面，结果按URL缓存
func (a *ClubStoreAdapter) GetEventDetails(ctx context.Context, eventURL string) (*model.Fixture, error) {
	club := a.clubForURL(eventURL)
	load := func(ctx context.Context) (*model.Fixture, error) {
		resp, err := a.fetcher.Fetch(ctx, base.Request{
			URL:     eventURL,
			RateKey: club.Key,
			Locale:  identity.LocaleForCountry(club.Country),
			BaseURL: club.URL,
			Kind:    identity.KindHTML,
			Pattern: &identity.PatternTicketCheck,
		})
		if err != nil {
			return nil, err
		}
		fixtures, err := parseHTML(resp.Body, club)
		if err != nil {
			return nil, err
		}
		if len(fixtures) == 0 {
			return nil, &errs.ParseError{Platform: string(model.PlatformClubStore), Unit: eventURL, Field: "fixture"}
		}
		f := fixtures[0]
		f.URL = eventURL
		f.SetExtra("club", club.Name)
		f.SetExtra("club_key", club.Key)
		f.SetExtra("league", club.League)
		f.SetExtra("country", club.Country)
		f.SetExtra("extraction_method", model.ExtractionHTML)
		return f, nil
	}
	return a.kit.CachedDetail(ctx, model.PlatformClubStore, eventURL, load)
}

// clubForURL 按主机名匹配俱乐部，未匹配时返回只带URL的占位俱乐部
func (a *ClubStoreAdapter) clubForURL(raw string) Club {
	u, err := url.Parse(raw)
	if err == nil {
		for _, k := range a.directory.Keys() {
			c, _ := a.directory.Get(k)
			if cu, err := url.Parse(c.URL); err == nil && cu.Host == u.Host {
				return c
			}
		}
	}
	return Club{Key: "club_store", Name: "Club", URL: raw, Country: "England"}
}

// ToTickets 语言区域与默认币种取决于俱乐部所在国家
func (a *ClubStoreAdapter) ToTickets(fixtures []*model.Fixture) ([]*model.CanonicalTicket, []string) {
	countryOf := func(f *model.Fixture) string {
		c, _ := f.Extras["country"].(string)
		return c
	}
	return base.ToTickets(fixtures, base.TicketOptions{
		Platform:   model.PlatformClubStore,
		LocaleOf:   func(f *model.Fixture) string { return identity.LocaleForCountry(countryOf(f)) },
		CurrencyOf: func(f *model.Fixture) string { return normalize.CurrencyForCountry(countryOf(f)) },
		Now:        func() time.Time { return a.now() },
		Logger:     a.logger,
	})
}

func (a *ClubStoreAdapter) now() time.Time {
	if a.kit.Clock != nil {
		return a.kit.Clock.Now()
	}
	return time.Now()
}
