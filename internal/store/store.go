// Package store 票务存储门面：查询结果缓存 + 持久化。
package store

import (
	"context"
	"time"

	"TicketSync/internal/model"
	"TicketSync/internal/repository"
	"TicketSync/internal/utils/clock"

	"github.com/sirupsen/logrus"
)

// TicketStore 适配器结果缓存与规范化票务持久化
type TicketStore struct {
	results *TTLCache[*model.SearchResult]
	repo    repository.TicketRepository
	clock   clock.Clock
	logger  *logrus.Logger
}

func NewTicketStore(repo repository.TicketRepository, searchTTL time.Duration, clk clock.Clock, logger *logrus.Logger) *TicketStore {
	if clk == nil {
		clk = clock.Real{}
	}
	return &TicketStore{
		results: NewTTLCache[*model.SearchResult](searchTTL, clk),
		repo:    repo,
		clock:   clk,
		logger:  logger,
	}
}

func resultKey(platform model.PlatformType, key string) string {
	return string(platform) + "/" + key
}

// GetCached 读取未过期的查询结果
func (s *TicketStore) GetCached(platform model.PlatformType, key string) (*model.SearchResult, bool) {
	res, ok := s.results.Get(resultKey(platform, key))
	if !ok {
		return nil, false
	}
	// 返回副本，调用方修改 Cached 标记不影响缓存
	cp := *res
	cp.Cached = true
	return &cp, true
}

// PutCached 缓存查询结果；全部失败的结果不缓存
func (s *TicketStore) PutCached(platform model.PlatformType, key string, res *model.SearchResult) {
	if res == nil || !res.Success {
		return
	}
	s.results.Put(resultKey(platform, key), res)
}

// Upsert 持久化一条规范化记录，失败返回 *errs.PersistenceError
func (s *TicketStore) Upsert(ctx context.Context, t *model.CanonicalTicket) error {
	return s.repo.Upsert(ctx, t)
}

func (s *TicketStore) Statistics(ctx context.Context, platform model.PlatformType) (*model.Statistics, error) {
	return s.repo.Statistics(ctx, platform)
}

// SweepStale 标记超过 olderThan 未再观测的记录
func (s *TicketStore) SweepStale(ctx context.Context, platform model.PlatformType, olderThan time.Duration) (int64, error) {
	n, err := s.repo.SweepStale(ctx, platform, s.clock.Now().Add(-olderThan))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.WithFields(logrus.Fields{"platform": platform, "count": n}).Info("已标记过期票务记录")
	}
	return n, nil
}

func (s *TicketStore) List(ctx context.Context, filter repository.TicketFilter, page, pageSize int) ([]*model.CanonicalTicket, int64, error) {
	return s.repo.List(ctx, filter, page, pageSize)
}

// SweepCache 清理过期缓存条目
func (s *TicketStore) SweepCache() int {
	return s.results.Sweep()
}

// RunCacheJanitor 定期清理过期缓存，直到 ctx 取消
func (s *TicketStore) RunCacheJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.SweepCache(); n > 0 {
				s.logger.WithField("count", n).Debug("已清理过期结果缓存")
			}
		}
	}
}
