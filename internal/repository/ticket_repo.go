package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"TicketSync/internal/errs"
	"TicketSync/internal/model"
	"TicketSync/internal/utils/keylock"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TicketRepository 规范化票务仓储
type TicketRepository interface {
	// Upsert 按 (platform, event_title, section, price) 插入或更新，last_seen 总是前移
	Upsert(ctx context.Context, t *model.CanonicalTicket) error
	Statistics(ctx context.Context, platform model.PlatformType) (*model.Statistics, error)
	// SweepStale 将 last_seen 早于 cutoff 的记录标记为过期，返回标记数量
	SweepStale(ctx context.Context, platform model.PlatformType, cutoff time.Time) (int64, error)
	List(ctx context.Context, filter TicketFilter, page, pageSize int) ([]*model.CanonicalTicket, int64, error)
}

// TicketFilter 票务列表筛选
type TicketFilter struct {
	Platform     model.PlatformType
	Availability model.AvailabilityStatus
	Keyword      string     // 赛事标题模糊匹配
	FromTime     *time.Time // 赛事时间起
	ToTime       *time.Time // 赛事时间止
	IncludeStale bool
}

// 统计时从 metadata 中按这些键分组
var breakdownKeys = []string{"league", "club", "region"}

// 每次观测都会刷新的非身份字段
var upsertColumns = []string{
	"price_max", "currency", "venue", "event_date", "availability_status",
	"source_url", "image_url", "description", "metadata", "stale", "stale_since", "last_seen",
}

type ticketRepository struct {
	db    *gorm.DB
	locks *keylock.KeyedMutex
	now   func() time.Time
}

func NewTicketRepository(db *gorm.DB) TicketRepository {
	return &ticketRepository{db: db, locks: keylock.New(), now: time.Now}
}

func (r *ticketRepository) Upsert(ctx context.Context, t *model.CanonicalTicket) error {
	key := t.IdentityKey()
	unlock := r.locks.Lock(key)
	defer unlock()

	now := r.now().UTC()
	if t.LastSeen.Before(now) {
		t.LastSeen = now
	}
	if t.TicketUUID == "" {
		t.TicketUUID = uuid.NewString()
	}
	t.Price = t.Price.Round(2)
	t.Stale = false
	t.StaleSince = nil
	if t.AvailabilityStatus == "" {
		t.AvailabilityStatus = model.AvailabilityUnknown
	}

	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "platform"}, {Name: "event_title"}, {Name: "section"}, {Name: "price"}},
		DoUpdates: clause.AssignmentColumns(upsertColumns),
	}).Create(t).Error; err != nil {
		return &errs.PersistenceError{Key: key, Err: err}
	}

	// 冲突更新时 ticket_uuid / created_at 保留首次写入的值，回填到调用方对象
	var stored model.CanonicalTicket
	if err := r.identityScope(ctx, t).Select("id", "ticket_uuid", "created_at").Take(&stored).Error; err != nil {
		return &errs.PersistenceError{Key: key, Err: fmt.Errorf("回查记录失败: %w", err)}
	}
	t.ID = stored.ID
	t.TicketUUID = stored.TicketUUID
	t.CreatedAt = stored.CreatedAt
	return nil
}

func (r *ticketRepository) identityScope(ctx context.Context, t *model.CanonicalTicket) *gorm.DB {
	return r.db.WithContext(ctx).Model(&model.CanonicalTicket{}).
		Where("platform = ? AND event_title = ? AND section = ? AND price = ?", t.Platform, t.EventTitle, t.Section, t.Price)
}

func (r *ticketRepository) Statistics(ctx context.Context, platform model.PlatformType) (*model.Statistics, error) {
	stats := &model.Statistics{
		Platform:  platform,
		Breakdown: map[string]map[string]int64{"availability": {}},
	}
	base := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&model.CanonicalTicket{}).Where("platform = ?", platform)
	}

	if err := base().Count(&stats.TotalTickets).Error; err != nil {
		return nil, fmt.Errorf("统计总数失败: %w", err)
	}
	if stats.TotalTickets == 0 {
		return stats, nil
	}
	if err := base().Where("availability_status = ? AND stale = ?", model.AvailabilityAvailable, false).
		Count(&stats.AvailableTickets).Error; err != nil {
		return nil, fmt.Errorf("统计可售数量失败: %w", err)
	}
	if err := base().Where("stale = ?", true).Count(&stats.StaleTickets).Error; err != nil {
		return nil, fmt.Errorf("统计过期数量失败: %w", err)
	}
	stats.AvailabilityRate = math.Round(float64(stats.AvailableTickets)/float64(stats.TotalTickets)*10000) / 100

	var groups []struct {
		Status string
		Total  int64
	}
	if err := base().Select("availability_status AS status, COUNT(*) AS total").
		Group("availability_status").Scan(&groups).Error; err != nil {
		return nil, fmt.Errorf("按售票状态分组失败: %w", err)
	}
	for _, g := range groups {
		stats.Breakdown["availability"][g.Status] = g.Total
	}

	// metadata 的 JSON 查询语法因数据库而异，这里取回后在内存中分组
	var metas []datatypes.JSON
	if err := base().Pluck("metadata", &metas).Error; err != nil {
		return nil, fmt.Errorf("读取metadata失败: %w", err)
	}
	for _, raw := range metas {
		if len(raw) == 0 {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			continue
		}
		for _, k := range breakdownKeys {
			v, ok := m[k].(string)
			if !ok || v == "" {
				continue
			}
			if stats.Breakdown[k] == nil {
				stats.Breakdown[k] = map[string]int64{}
			}
			stats.Breakdown[k][v]++
		}
	}

	var latest model.CanonicalTicket
	if err := base().Select("last_seen").Order("last_seen DESC").Take(&latest).Error; err != nil {
		return nil, fmt.Errorf("查询最近更新时间失败: %w", err)
	}
	ts := latest.LastSeen
	stats.LastUpdated = &ts
	return stats, nil
}

func (r *ticketRepository) SweepStale(ctx context.Context, platform model.PlatformType, cutoff time.Time) (int64, error) {
	now := r.now().UTC()
	res := r.db.WithContext(ctx).Model(&model.CanonicalTicket{}).
		Where("platform = ? AND stale = ? AND last_seen < ?", platform, false, cutoff.UTC()).
		Updates(map[string]interface{}{"stale": true, "stale_since": now})
	if res.Error != nil {
		return 0, fmt.Errorf("标记过期记录失败: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter, page, pageSize int) ([]*model.CanonicalTicket, int64, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	q := r.db.WithContext(ctx).Model(&model.CanonicalTicket{})
	if filter.Platform != "" {
		q = q.Where("platform = ?", filter.Platform)
	}
	if filter.Availability != "" {
		q = q.Where("availability_status = ?", filter.Availability)
	}
	if filter.Keyword != "" {
		q = q.Where("event_title LIKE ?", "%"+filter.Keyword+"%")
	}
	if filter.FromTime != nil {
		q = q.Where("event_date >= ?", filter.FromTime.UTC())
	}
	if filter.ToTime != nil {
		q = q.Where("event_date <= ?", filter.ToTime.UTC())
	}
	if !filter.IncludeStale {
		q = q.Where("stale = ?", false)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []*model.CanonicalTicket
	if err := q.Order("event_date ASC, id ASC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}
