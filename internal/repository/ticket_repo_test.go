package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"TicketSync/internal/model"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// 内存库每个连接独立，限制为单连接
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&model.CanonicalTicket{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestRepo(t *testing.T, now time.Time) (*ticketRepository, *gorm.DB) {
	db := newTestDB(t)
	repo := NewTicketRepository(db).(*ticketRepository)
	repo.now = func() time.Time { return now }
	return repo, db
}

func sampleTicket(price string, status model.AvailabilityStatus, meta string) *model.CanonicalTicket {
	date := time.Date(2025, 3, 15, 15, 0, 0, 0, time.UTC)
	return &model.CanonicalTicket{
		Platform:           model.PlatformClubStore,
		EventTitle:         "Arsenal vs Chelsea",
		Section:            "Lower Tier",
		Price:              decimal.RequireFromString(price),
		Currency:           "GBP",
		Venue:              "Emirates Stadium",
		EventDate:          &date,
		AvailabilityStatus: status,
		Metadata:           datatypes.JSON(meta),
	}
}

func TestUpsertIsIdempotent(t *testing.T) {
	t0 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	repo, db := newTestRepo(t, t0)
	ctx := context.Background()

	first := sampleTicket("45.00", model.AvailabilityAvailable, `{"club":"arsenal"}`)
	if err := repo.Upsert(ctx, first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if first.ID == 0 || first.TicketUUID == "" {
		t.Fatalf("insert should assign id and uuid, got %d / %q", first.ID, first.TicketUUID)
	}

	repo.now = func() time.Time { return t0.Add(time.Hour) }
	second := sampleTicket("45", model.AvailabilitySoldOut, `{"club":"arsenal"}`)
	if err := repo.Upsert(ctx, second); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	var count int64
	db.Model(&model.CanonicalTicket{}).Count(&count)
	if count != 1 {
		t.Fatalf("row count = %d, want 1", count)
	}
	if second.ID != first.ID || second.TicketUUID != first.TicketUUID {
		t.Errorf("re-observation should keep identity: id %d/%d uuid %q/%q", second.ID, first.ID, second.TicketUUID, first.TicketUUID)
	}

	var stored model.CanonicalTicket
	if err := db.First(&stored, first.ID).Error; err != nil {
		t.Fatal(err)
	}
	if stored.AvailabilityStatus != model.AvailabilitySoldOut {
		t.Errorf("availability = %s, want sold_out", stored.AvailabilityStatus)
	}
	if !stored.LastSeen.After(t0) {
		t.Errorf("last_seen should advance, got %v", stored.LastSeen)
	}

	// 价格不同即为新记录
	if err := repo.Upsert(ctx, sampleTicket("55.00", model.AvailabilityAvailable, `{}`)); err != nil {
		t.Fatal(err)
	}
	db.Model(&model.CanonicalTicket{}).Count(&count)
	if count != 2 {
		t.Errorf("row count = %d, want 2 after price change", count)
	}
}

func TestUpsertConcurrentSameKey(t *testing.T) {
	repo, db := newTestRepo(t, time.Now())
	ctx := context.Background()

	var wg sync.WaitGroup
	errCh := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errCh <- repo.Upsert(ctx, sampleTicket("30.50", model.AvailabilityAvailable, `{}`))
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			t.Fatalf("concurrent upsert: %v", err)
		}
	}
	var count int64
	db.Model(&model.CanonicalTicket{}).Count(&count)
	if count != 1 {
		t.Errorf("row count = %d, want 1", count)
	}
}

func TestSweepStaleAndStatistics(t *testing.T) {
	t0 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	repo, _ := newTestRepo(t, t0)
	ctx := context.Background()

	old := sampleTicket("20", model.AvailabilityAvailable, `{"club":"arsenal","league":"Premier League"}`)
	if err := repo.Upsert(ctx, old); err != nil {
		t.Fatal(err)
	}

	repo.now = func() time.Time { return t0.Add(48 * time.Hour) }
	fresh := []*model.CanonicalTicket{
		sampleTicket("30", model.AvailabilityAvailable, `{"club":"arsenal","league":"Premier League"}`),
		sampleTicket("40", model.AvailabilitySoldOut, `{"club":"chelsea","league":"Premier League"}`),
		sampleTicket("50", model.AvailabilityAvailable, `{"club":"chelsea","league":"Premier League"}`),
	}
	for _, tk := range fresh {
		if err := repo.Upsert(ctx, tk); err != nil {
			t.Fatal(err)
		}
	}

	n, err := repo.SweepStale(ctx, model.PlatformClubStore, t0.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("SweepStale() error = %v", err)
	}
	if n != 1 {
		t.Errorf("SweepStale() marked %d, want 1", n)
	}

	stats, err := repo.Statistics(ctx, model.PlatformClubStore)
	if err != nil {
		t.Fatalf("Statistics() error = %v", err)
	}
	if stats.TotalTickets != 4 || stats.StaleTickets != 1 {
		t.Errorf("total/stale = %d/%d, want 4/1", stats.TotalTickets, stats.StaleTickets)
	}
	if stats.AvailableTickets != 2 {
		t.Errorf("available = %d, want 2 (stale rows excluded)", stats.AvailableTickets)
	}
	if stats.AvailabilityRate != 50 {
		t.Errorf("availability rate = %v, want 50", stats.AvailabilityRate)
	}
	if got := stats.Breakdown["club"]["chelsea"]; got != 2 {
		t.Errorf("club breakdown chelsea = %d, want 2", got)
	}
	if got := stats.Breakdown["league"]["Premier League"]; got != 4 {
		t.Errorf("league breakdown = %d, want 4", got)
	}
	if got := stats.Breakdown["availability"]["sold_out"]; got != 1 {
		t.Errorf("availability breakdown sold_out = %d, want 1", got)
	}
	if stats.LastUpdated == nil {
		t.Error("LastUpdated should be set")
	}

	// 再次观测过期记录会清除过期标记
	repo.now = func() time.Time { return t0.Add(72 * time.Hour) }
	if err := repo.Upsert(ctx, sampleTicket("20", model.AvailabilityAvailable, `{}`)); err != nil {
		t.Fatal(err)
	}
	list, total, err := repo.List(ctx, TicketFilter{Platform: model.PlatformClubStore}, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if total != 4 || len(list) != 4 {
		t.Errorf("List() total = %d len = %d, want 4", total, len(list))
	}
}

func TestStatisticsEmptyPlatform(t *testing.T) {
	repo, _ := newTestRepo(t, time.Now())
	stats, err := repo.Statistics(context.Background(), model.PlatformRegional)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalTickets != 0 || stats.AvailabilityRate != 0 || stats.LastUpdated != nil {
		t.Errorf("unexpected stats for empty platform: %+v", stats)
	}
}
