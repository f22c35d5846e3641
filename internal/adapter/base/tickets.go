package base

import (
	"encoding/json"
	"fmt"
	"time"

	"TicketSync/internal/model"
	"TicketSync/internal/normalize"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// DefaultSection 没有票档信息时使用的区域名
const DefaultSection = "General Admission"

// TicketOptions 赛事转换为规范化记录时的平台参数
type TicketOptions struct {
	Platform model.PlatformType
	// LocaleOf 解析日期使用的语言区域
	LocaleOf func(f *model.Fixture) string
	// CurrencyOf 价格文本中无法识别币种时的默认币种
	CurrencyOf func(f *model.Fixture) string
	Now        func() time.Time
	Logger     *logrus.Logger
}

// ToTickets 将赛事与票档展开为规范化记录。
// 无法解析日期或没有正价票档的赛事被丢弃（记日志，不算错误）
func ToTickets(fixtures []*model.Fixture, opts TicketOptions) ([]*model.CanonicalTicket, []string) {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	seenAt := now().UTC()

	var (
		tickets []*model.CanonicalTicket
		errList []string
		dropped int
	)
	seen := make(map[string]bool)
	for _, f := range fixtures {
		if f == nil {
			continue
		}
		locale := ""
		if opts.LocaleOf != nil {
			locale = opts.LocaleOf(f)
		}
		title := normalize.Truncate(normalize.CleanText(f.Title), 256)
		date := normalize.ParseDate(f.RawDate, locale)
		if title == "" || date == nil {
			dropped++
			opts.Logger.WithFields(logrus.Fields{
				"platform": opts.Platform,
				"title":    f.Title,
				"raw_date": f.RawDate,
			}).Warn("赛事缺少标题或日期无法解析，已丢弃")
			continue
		}

		categories := f.Categories
		if len(categories) == 0 && f.RawPrice != "" {
			categories = []model.TicketCategory{{Category: DefaultSection, RawPrice: f.RawPrice}}
		}

		produced := 0
		for _, c := range categories {
			t, err := categoryTicket(f, c, title, date, seenAt, opts)
			if err != nil {
				errList = append(errList, UnitError("event "+title, err))
				continue
			}
			if t == nil {
				continue
			}
			key := t.IdentityKey()
			if seen[key] {
				continue
			}
			seen[key] = true
			tickets = append(tickets, t)
			produced++
		}
		if produced == 0 {
			dropped++
			opts.Logger.WithFields(logrus.Fields{
				"platform": opts.Platform,
				"title":    title,
			}).Warn("赛事没有有效价格的票档，已丢弃")
		}
	}
	if dropped > 0 {
		opts.Logger.WithFields(logrus.Fields{
			"platform": opts.Platform,
			"dropped":  dropped,
			"kept":     len(tickets),
		}).Info("票务转换完成，部分赛事被丢弃")
	}
	return tickets, errList
}

func categoryTicket(f *model.Fixture, c model.TicketCategory, title string, date *time.Time, seenAt time.Time, opts TicketOptions) (*model.CanonicalTicket, error) {
	lo, hi := normalize.ParsePrice(c.RawPrice)
	if lo == nil || !lo.IsPositive() {
		return nil, nil
	}
	currency := normalize.DetectCurrency(c.RawPrice)
	if currency == "" && opts.CurrencyOf != nil {
		currency = opts.CurrencyOf(f)
	}
	section := normalize.Truncate(normalize.FirstNonEmpty(normalize.CleanText(c.Category), DefaultSection), 128)

	meta := make(map[string]any, len(f.Extras)+8)
	for k, v := range f.Extras {
		meta[k] = v
	}
	meta["ticket_type"] = normalize.ClassifyTicketType(section)
	restrictions := append([]string(nil), c.Restrictions...)
	if len(restrictions) == 0 {
		restrictions = normalize.ExtractRestrictions(c.Category, f.Description)
	}
	if len(restrictions) > 0 {
		meta["restrictions"] = restrictions
	}
	if c.FeesIncluded != nil {
		meta["fees_included"] = *c.FeesIncluded
	}
	if c.ExternalID != "" {
		meta["external_ticket_id"] = c.ExternalID
	}
	if f.ExternalID != "" {
		meta["external_event_id"] = f.ExternalID
	}
	if f.Competition != "" {
		meta["competition"] = f.Competition
	}
	if f.HomeTeam != "" {
		meta["home_team"] = f.HomeTeam
	}
	if f.Opponent != "" {
		meta["opponent"] = f.Opponent
	}
	if f.Category != "" {
		meta["event_category"] = f.Category
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("序列化metadata失败: %w", err)
	}

	availability := normalize.NormalizeAvailability(c.RawAvailability)
	return &model.CanonicalTicket{
		Platform:           opts.Platform,
		EventTitle:         title,
		Section:            section,
		Price:              *lo,
		PriceMax:           hi,
		Currency:           currency,
		Venue:              normalize.Truncate(normalize.CleanText(f.Venue), 256),
		EventDate:          date,
		AvailabilityStatus: availability,
		SourceURL:          normalize.Truncate(f.URL, 512),
		ImageURL:           normalize.Truncate(f.ImageURL, 512),
		Description:        normalize.CleanText(f.Description),
		Metadata:           datatypes.JSON(raw),
		LastSeen:           seenAt,
	}, nil
}
