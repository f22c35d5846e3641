// Package regional 多区域票务市场适配器：优先JSON接口，响应不是JSON时解析页面。
package regional

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"TicketSync/internal/adapter"
	"TicketSync/internal/adapter/base"
	"TicketSync/internal/config"
	"TicketSync/internal/identity"
	"TicketSync/internal/interfaces"
	"TicketSync/internal/model"
	"TicketSync/internal/normalize"

	"github.com/sirupsen/logrus"
)

const searchLimit = 50

func init() {
	adapter.Register(model.PlatformRegional, NewRegionalAdapter)
}

// RegionalAdapter 区域票务市场适配器
type RegionalAdapter struct {
	cfg     *config.PlatformConfig
	kit     *base.Toolkit
	fetcher *base.Fetcher
	regions *regionTable
	logger  *logrus.Logger
}

func NewRegionalAdapter(cfg *config.PlatformConfig, kit *base.Toolkit, logger *logrus.Logger) interfaces.PlatformAdapter {
	return newRegionalAdapter(cfg, kit, logger)
}

func newRegionalAdapter(cfg *config.PlatformConfig, kit *base.Toolkit, logger *logrus.Logger) *RegionalAdapter {
	return &RegionalAdapter{
		cfg:     cfg,
		kit:     kit,
		fetcher: base.NewFetcher(kit, model.PlatformRegional, cfg),
		regions: newRegionTable(cfg),
		logger:  logger,
	}
}

func (a *RegionalAdapter) GetName() string { return "Regional Ticket Marketplace" }

func (a *RegionalAdapter) GetType() model.PlatformType { return model.PlatformRegional }

func (a *RegionalAdapter) SupportedSources() []model.Source { return a.regions.sources() }

// rateKey 每个区域站点单独限流
func rateKey(r Region) string { return string(model.PlatformRegional) + ":" + r.Code }

// splitIdentifier "au:cricket" 指定区域；无前缀时用 filters.Region，再退回默认区域
func (a *RegionalAdapter) splitIdentifier(id string, filters model.Filters) (Region, string, error) {
	code, query := filters.Region, id
	if before, after, ok := strings.Cut(id, ":"); ok {
		if _, known := a.regions.get(before); known && before != "" {
			code, query = before, after
		}
	}
	r, ok := a.regions.get(code)
	if !ok {
		return Region{}, "", errors.New("未知区域: " + code)
	}
	return r, strings.TrimSpace(query), nil
}

// Search 标识为关键词，可带区域前缀；各关键词依次搜索
func (a *RegionalAdapter) Search(ctx context.Context, identifiers []string, filters model.Filters) *model.SearchResult {
	result := &model.SearchResult{Platform: model.PlatformRegional}
	if len(identifiers) == 0 {
		result.AddError("缺少搜索关键词")
		return result.Finish(0)
	}

	succeeded := 0
	for _, id := range identifiers {
		region, query, err := a.splitIdentifier(id, filters)
		if err == nil && query == "" {
			err = errors.New("搜索关键词为空")
		}
		if err != nil {
			result.AddError("%s", base.UnitError("query "+id, err))
			continue
		}
		fixtures, err := a.searchRegion(ctx, region, query, filters)
		if err != nil {
			result.AddError("%s", base.UnitError("region "+region.Code+" "+query, err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		succeeded++
		result.Results = append(result.Results, fixtures...)
	}
	if len(result.Errors) > 0 {
		a.logger.WithFields(logrus.Fields{
			"queries":   len(identifiers),
			"succeeded": succeeded,
			"errors":    len(result.Errors),
		}).Warn("部分区域搜索失败")
	}
	return result.Finish(succeeded)
}

func (a *RegionalAdapter) searchRegion(ctx context.Context, region Region, query string, filters model.Filters) ([]*model.Fixture, error) {
	resp, err := a.fetcher.Fetch(ctx, base.Request{
		URL:     region.BaseURL + "/api/search",
		Query:   searchParams(query, filters),
		RateKey: rateKey(region),
		Locale:  region.Locale,
		BaseURL: region.BaseURL,
		Kind:    identity.KindJSON,
		Pattern: &identity.PatternSearch,
	})
	if err != nil {
		return nil, err
	}

	var (
		fixtures []*model.Fixture
		method   string
	)
	if resp.IsJSON() {
		method = model.ExtractionJSON
		fixtures, err = parseSearchJSON(resp.Body, region)
	} else {
		a.logger.WithFields(logrus.Fields{
			"region":       region.Code,
			"content_type": resp.ContentType,
		}).Warn("搜索接口未返回JSON，改为解析页面")
		method = model.ExtractionHTML
		fixtures, err = parseSearchHTML(resp.Body, region)
	}
	if err != nil {
		return nil, err
	}

	kept := base.KeepComplete(fixtures, base.KeepOptions{
		Locale:   region.Locale,
		Platform: model.PlatformRegional,
		Unit:     region.Code,
		Logger:   a.logger,
	})
	for _, f := range kept {
		tagRegion(f, region, method)
		f.SetExtra("query", query)
	}
	return kept, nil
}

func tagRegion(f *model.Fixture, region Region, method string) {
	f.SetExtra("region", region.Code)
	f.SetExtra("region_name", region.Name)
	f.SetExtra("extraction_method", method)
}

// searchParams 仅包含已设置的筛选条件
func searchParams(query string, filters model.Filters) url.Values {
	q := url.Values{}
	q.Set("search", query)
	q.Set("format", "json")
	q.Set("limit", strconv.Itoa(searchLimit))
	if filters.Category != "" {
		q.Set("category", ticketekCategory(filters.Category))
	}
	if filters.DateFrom != nil {
		q.Set("dateFrom", filters.DateFrom.Format("2006-01-02"))
	}
	if filters.DateTo != nil {
		q.Set("dateTo", filters.DateTo.Format("2006-01-02"))
	}
	if v := normalize.FirstNonEmpty(filters.Venue, filters.Location); v != "" {
		q.Set("venue", v)
	}
	if filters.State != "" {
		q.Set("state", filters.State)
	}
	return q
}

// GetEventDetails 接受完整地址或 "区域:ID"；JSON优先，页面兜底，按URL缓存
func (a *RegionalAdapter) GetEventDetails(ctx context.Context, eventURL string) (*model.Fixture, error) {
	region, target, err := a.resolveEventURL(eventURL)
	if err != nil {
		return nil, err
	}
	return a.kit.CachedDetail(ctx, model.PlatformRegional, target, func(ctx context.Context) (*model.Fixture, error) {
		resp, err := a.fetcher.Fetch(ctx, base.Request{
			URL:     target,
			RateKey: rateKey(region),
			Locale:  region.Locale,
			BaseURL: region.BaseURL,
			Kind:    identity.KindJSON,
			Pattern: &identity.PatternTicketCheck,
		})
		if err != nil {
			return nil, err
		}
		var (
			f      *model.Fixture
			method = model.ExtractionJSON
		)
		if resp.IsJSON() {
			f, err = parseDetailJSON(resp.Body, target, region)
		} else {
			method = model.ExtractionHTML
			f, err = parseDetailHTML(resp.Body, target, region)
		}
		if err != nil {
			return nil, err
		}
		tagRegion(f, region, method)
		return f, nil
	})
}

func (a *RegionalAdapter) resolveEventURL(ref string) (Region, string, error) {
	ref = strings.TrimSpace(ref)
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return a.regions.forURL(ref), ref, nil
	}
	code, id := "", ref
	if before, after, ok := strings.Cut(ref, ":"); ok {
		code, id = before, after
	}
	region, ok := a.regions.get(code)
	if !ok {
		return Region{}, "", errors.New("未知区域: " + code)
	}
	if id == "" {
		return Region{}, "", errors.New("缺少赛事ID")
	}
	return region, region.BaseURL + "/event/" + url.PathEscape(id), nil
}

// ToTickets 语言区域与默认币种取决于赛事所属区域
func (a *RegionalAdapter) ToTickets(fixtures []*model.Fixture) ([]*model.CanonicalTicket, []string) {
	regionOf := func(f *model.Fixture) Region {
		code, _ := f.Extras["region"].(string)
		r, ok := a.regions.get(code)
		if !ok {
			r, _ = a.regions.get("")
		}
		return r
	}
	return base.ToTickets(fixtures, base.TicketOptions{
		Platform:   model.PlatformRegional,
		LocaleOf:   func(f *model.Fixture) string { return regionOf(f).Locale },
		CurrencyOf: func(f *model.Fixture) string { return regionOf(f).Currency },
		Now:        a.now,
		Logger:     a.logger,
	})
}

func (a *RegionalAdapter) now() time.Time {
	if a.kit.Clock != nil {
		return a.kit.Clock.Now()
	}
	return time.Now()
}
