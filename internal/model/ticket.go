package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// CanonicalTicket 规范化票务记录
// (platform, event_title, section, price) 为唯一身份，价格变化即视为新记录
type CanonicalTicket struct {
	ID                 uint64             `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID"`
	TicketUUID         string             `gorm:"column:ticket_uuid;type:varchar(64);uniqueIndex;not null;comment:全局唯一ID"`
	Platform           PlatformType       `gorm:"column:platform;type:varchar(32);not null;uniqueIndex:uq_ticket_identity,priority:1;comment:来源平台"`
	EventTitle         string             `gorm:"column:event_title;type:varchar(256);not null;uniqueIndex:uq_ticket_identity,priority:2;comment:赛事标题"`
	Section            string             `gorm:"column:section;type:varchar(128);not null;uniqueIndex:uq_ticket_identity,priority:3;comment:座位区域/票档"`
	Price              decimal.Decimal    `gorm:"column:price;type:numeric(12,2);not null;uniqueIndex:uq_ticket_identity,priority:4;comment:单价"`
	PriceMax           *decimal.Decimal   `gorm:"column:price_max;type:numeric(12,2);comment:价格区间上限"`
	Currency           string             `gorm:"column:currency;type:varchar(8);comment:ISO 4217币种"`
	Venue              string             `gorm:"column:venue;type:varchar(256);comment:场馆"`
	EventDate          *time.Time         `gorm:"column:event_date;type:timestamp;index;comment:赛事时间(UTC)"`
	AvailabilityStatus AvailabilityStatus `gorm:"column:availability_status;type:varchar(16);not null;comment:售票状态"`
	SourceURL          string             `gorm:"column:source_url;type:varchar(512);comment:来源地址"`
	ImageURL           string             `gorm:"column:image_url;type:varchar(512);comment:图片地址"`
	Description        string             `gorm:"column:description;type:text;comment:描述"`
	Metadata           datatypes.JSON     `gorm:"column:metadata;comment:平台扩展字段"`
	Stale              bool               `gorm:"column:stale;not null;default:false;index;comment:是否过期未再观测"`
	StaleSince         *time.Time         `gorm:"column:stale_since;type:timestamp;comment:标记过期时间"`
	LastSeen           time.Time          `gorm:"column:last_seen;type:timestamp;not null;index;comment:最后观测时间"`
	CreatedAt          time.Time          `gorm:"column:created_at;type:timestamp;autoCreateTime;comment:创建时间"`
}

func (CanonicalTicket) TableName() string { return "canonical_tickets" }

// IdentityKey 身份元组的稳定哈希，用于进程内按键加锁
func (t *CanonicalTicket) IdentityKey() string {
	data := fmt.Sprintf("%s|%s|%s|%s", t.Platform, t.EventTitle, t.Section, t.Price.StringFixed(2))
	h := sha256.Sum256([]byte(data))
	return hex.EncodeToString(h[:])[:32]
}
