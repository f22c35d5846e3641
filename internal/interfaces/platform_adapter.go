package interfaces

import (
	"context"

	"TicketSync/internal/model"
)

// PlatformAdapter 所有票务平台必须实现的核心接口
type PlatformAdapter interface {
	GetName() string             // 平台名称
	GetType() model.PlatformType // 平台类型
	// Search 按标识（俱乐部key、关键词、区域代码）查询赛事；单元级错误记录在结果中，不返回error
	Search(ctx context.Context, identifiers []string, filters model.Filters) *model.SearchResult
	GetEventDetails(ctx context.Context, url string) (*model.Fixture, error)  // 详情页（含票档）
	ToTickets(fixtures []*model.Fixture) ([]*model.CanonicalTicket, []string) // 转换为规范化记录
	SupportedSources() []model.Source                                         // 平台下可用的子来源
}

// TicketSink 规范化记录的持久化出口
type TicketSink interface {
	Upsert(ctx context.Context, t *model.CanonicalTicket) error
}

// TicketPublisher 入库后向下游推送
type TicketPublisher interface {
	Publish(ctx context.Context, tickets []*model.CanonicalTicket) error
	Close()
}
