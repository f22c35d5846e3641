package base

import (
	"TicketSync/internal/model"
	"TicketSync/internal/normalize"

	"github.com/sirupsen/logrus"
)

// KeepOptions 查询结果过滤参数
type KeepOptions struct {
	Locale       string
	RequirePrice bool // 是否要求至少一个正价票档（列表页可能不含价格）
	Platform     model.PlatformType
	Unit         string
	Logger       *logrus.Logger
}

// KeepComplete 过滤掉无法确定身份的赛事：日期无法解析、或要求价格时没有正价票档。
// 被过滤的赛事只记日志，不作为错误
func KeepComplete(fixtures []*model.Fixture, opts KeepOptions) []*model.Fixture {
	kept := make([]*model.Fixture, 0, len(fixtures))
	var noDate, noPrice int
	for _, f := range fixtures {
		if f == nil {
			continue
		}
		if normalize.ParseDate(f.RawDate, opts.Locale) == nil {
			noDate++
			continue
		}
		if opts.RequirePrice && !hasPositivePrice(f) {
			noPrice++
			continue
		}
		kept = append(kept, f)
	}
	if noDate+noPrice > 0 && opts.Logger != nil {
		opts.Logger.WithFields(logrus.Fields{
			"platform": opts.Platform,
			"unit":     opts.Unit,
			"no_date":  noDate,
			"no_price": noPrice,
			"kept":     len(kept),
		}).Warn("部分赛事缺少日期或价格，已丢弃")
	}
	return kept
}

func hasPositivePrice(f *model.Fixture) bool {
	for _, c := range f.Categories {
		if lo, _ := normalize.ParsePrice(c.RawPrice); lo != nil && lo.IsPositive() {
			return true
		}
	}
	if lo, _ := normalize.ParsePrice(f.RawPrice); lo != nil && lo.IsPositive() {
		return true
	}
	return false
}
