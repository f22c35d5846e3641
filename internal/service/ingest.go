package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"TicketSync/internal/adapter"
	"TicketSync/internal/config"
	"TicketSync/internal/interfaces"
	"TicketSync/internal/model"
	"TicketSync/internal/repository"
	"TicketSync/internal/store"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// 批量截止后等待进行中的平台交回部分结果的时长
const completionGrace = time.Second

// SearchRequest 批量查询中的单个平台请求
type SearchRequest struct {
	Platform    model.PlatformType `json:"platform" binding:"required"`
	Identifiers []string           `json:"identifiers"`
	Filters     model.Filters      `json:"filters"`
}

// IngestService 采集编排：查询缓存、转换入库、推送下游
type IngestService struct {
	registry  *adapter.PlatformRegistry
	store     *store.TicketStore
	publisher interfaces.TicketPublisher
	cfg       config.IngestConfig
	logger    *logrus.Logger
}

func NewIngestService(registry *adapter.PlatformRegistry, ticketStore *store.TicketStore, publisher interfaces.TicketPublisher, cfg config.IngestConfig, logger *logrus.Logger) *IngestService {
	return &IngestService{
		registry:  registry,
		store:     ticketStore,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
	}
}

// Platforms 已启用的平台
func (s *IngestService) Platforms() []model.PlatformType {
	return s.registry.ListRegisteredPlatforms()
}

func failedResult(platform model.PlatformType, err error) *model.SearchResult {
	res := &model.SearchResult{Platform: platform}
	res.AddError("%v", err)
	return res.Finish(0)
}

// Search 先查结果缓存，未命中再调用适配器；只有成功的结果会被缓存
func (s *IngestService) Search(ctx context.Context, platform model.PlatformType, identifiers []string, filters model.Filters) *model.SearchResult {
	a, err := s.registry.GetAdapter(platform)
	if err != nil {
		return failedResult(platform, err)
	}
	key := model.CacheKey(platform, identifiers, filters)
	if cached, ok := s.store.GetCached(platform, key); ok {
		s.logger.WithFields(logrus.Fields{"platform": platform, "count": cached.Count}).Debug("命中查询缓存")
		return cached
	}

	start := time.Now()
	res := a.Search(ctx, identifiers, filters)
	s.store.PutCached(platform, key, res)
	s.logger.WithFields(logrus.Fields{
		"platform": platform,
		"count":    res.Count,
		"errors":   len(res.Errors),
		"elapsed":  time.Since(start).Round(time.Millisecond),
	}).Info("平台查询完成")
	return res
}

// SearchAll 多平台并发查询；整体截止后已完成的结果照常返回，未完成的平台记为超时
func (s *IngestService) SearchAll(ctx context.Context, requests []SearchRequest) []*model.SearchResult {
	if len(requests) == 0 {
		return []*model.SearchResult{}
	}
	batchCtx := ctx
	if s.cfg.BatchTimeout > 0 {
		var cancel context.CancelFunc
		batchCtx, cancel = context.WithTimeout(ctx, s.cfg.BatchTimeout)
		defer cancel()
	}

	var (
		mu      sync.Mutex
		results = make([]*model.SearchResult, len(requests))
	)
	g, gctx := errgroup.WithContext(batchCtx)
	if s.cfg.Concurrency > 0 {
		g.SetLimit(s.cfg.Concurrency)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i, req := range requests {
			g.Go(func() error {
				res := s.Search(gctx, req.Platform, req.Identifiers, req.Filters)
				mu.Lock()
				results[i] = res
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()
	}()

	select {
	case <-done:
	case <-batchCtx.Done():
		select {
		case <-done:
		case <-time.After(completionGrace):
			s.logger.WithField("requests", len(requests)).Warn("批量查询超时，返回已完成部分")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	out := make([]*model.SearchResult, len(requests))
	for i, res := range results {
		if res == nil {
			res = failedResult(requests[i].Platform, fmt.Errorf("批量查询超时: %w", context.DeadlineExceeded))
		}
		out[i] = res
	}
	return out
}

// Import 重新抓取（不走缓存）并转换入库；单条入库失败不影响其余记录
func (s *IngestService) Import(ctx context.Context, platform model.PlatformType, identifiers []string, filters model.Filters) *model.ImportResult {
	result := &model.ImportResult{Platform: platform, Imported: []*model.CanonicalTicket{}, Errors: []string{}}
	a, err := s.registry.GetAdapter(platform)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	search := a.Search(ctx, identifiers, filters)
	s.store.PutCached(platform, model.CacheKey(platform, identifiers, filters), search)
	result.Errors = append(result.Errors, search.Errors...)

	tickets, convErrs := a.ToTickets(search.Results)
	result.Errors = append(result.Errors, convErrs...)

	for _, t := range tickets {
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("入库中断: %v", ctx.Err()))
			break
		}
		if err := s.store.Upsert(ctx, t); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("ticket %s/%s: %v", t.EventTitle, t.Section, err))
			continue
		}
		result.Imported = append(result.Imported, t)
	}
	result.ImportedCount = len(result.Imported)
	result.Success = search.Success && (len(tickets) == 0 || result.ImportedCount > 0)

	if result.ImportedCount > 0 && s.publisher != nil {
		if err := s.publisher.Publish(ctx, result.Imported); err != nil {
			s.logger.WithError(err).WithField("platform", platform).Warn("推送下游失败")
			result.Errors = append(result.Errors, fmt.Sprintf("publish: %v", err))
		}
	}

	s.logger.WithFields(logrus.Fields{
		"platform": platform,
		"fixtures": search.Count,
		"tickets":  len(tickets),
		"imported": result.ImportedCount,
		"errors":   len(result.Errors),
	}).Info("导入完成")
	return result
}

// GetStatistics 平台票务统计；平台未启用时仍可查询历史数据
func (s *IngestService) GetStatistics(ctx context.Context, platform model.PlatformType) (*model.Statistics, error) {
	if platform == "" {
		return nil, errors.New("缺少平台参数")
	}
	stats, err := s.store.Statistics(ctx, platform)
	if err != nil {
		return nil, fmt.Errorf("查询%s统计失败: %w", platform, err)
	}
	return stats, nil
}

// GetSupportedSources 平台下可用的子来源
func (s *IngestService) GetSupportedSources(platform model.PlatformType) ([]model.Source, error) {
	a, err := s.registry.GetAdapter(platform)
	if err != nil {
		return nil, err
	}
	return a.SupportedSources(), nil
}

// GetEventDetails 抓取单个赛事详情
func (s *IngestService) GetEventDetails(ctx context.Context, platform model.PlatformType, eventURL string) (*model.Fixture, error) {
	a, err := s.registry.GetAdapter(platform)
	if err != nil {
		return nil, err
	}
	f, err := a.GetEventDetails(ctx, eventURL)
	if err != nil {
		return nil, fmt.Errorf("%s获取详情失败: %w", platform, err)
	}
	return f, nil
}

// SweepStale 标记超过 stale_after 未再观测的记录
func (s *IngestService) SweepStale(ctx context.Context, platform model.PlatformType) (int64, error) {
	if s.cfg.StaleAfter <= 0 {
		return 0, errors.New("ingest.stale_after 未配置")
	}
	return s.store.SweepStale(ctx, platform, s.cfg.StaleAfter)
}

// ListTickets 分页查询已入库的票务记录
func (s *IngestService) ListTickets(ctx context.Context, filter repository.TicketFilter, page, pageSize int) ([]*model.CanonicalTicket, int64, error) {
	return s.store.List(ctx, filter, page, pageSize)
}
