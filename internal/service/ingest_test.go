package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"TicketSync/internal/adapter"
	"TicketSync/internal/config"
	"TicketSync/internal/interfaces"
	"TicketSync/internal/model"
	"TicketSync/internal/repository"
	"TicketSync/internal/store"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeAdapter struct {
	platform model.PlatformType
	calls    int32
	fail     bool
	block    chan struct{} // 非nil时 Search 阻塞到关闭，忽略ctx
	titles   []string
}

func (f *fakeAdapter) GetName() string             { return "fake " + string(f.platform) }
func (f *fakeAdapter) GetType() model.PlatformType { return f.platform }

func (f *fakeAdapter) Search(ctx context.Context, identifiers []string, filters model.Filters) *model.SearchResult {
	atomic.AddInt32(&f.calls, 1)
	if f.block != nil {
		<-f.block
	}
	res := &model.SearchResult{Platform: f.platform}
	if f.fail {
		res.AddError("club x: boom")
		return res.Finish(0)
	}
	for _, title := range f.titles {
		res.Results = append(res.Results, &model.Fixture{Title: title, RawDate: "2025-03-15", RawPrice: "£45"})
	}
	return res.Finish(1)
}

func (f *fakeAdapter) GetEventDetails(ctx context.Context, url string) (*model.Fixture, error) {
	return &model.Fixture{Title: "detail", URL: url}, nil
}

func (f *fakeAdapter) ToTickets(fixtures []*model.Fixture) ([]*model.CanonicalTicket, []string) {
	date := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	var out []*model.CanonicalTicket
	for _, fx := range fixtures {
		out = append(out, &model.CanonicalTicket{
			Platform:           f.platform,
			EventTitle:         fx.Title,
			Section:            "General Admission",
			Price:              decimal.RequireFromString("45"),
			Currency:           "GBP",
			EventDate:          &date,
			AvailabilityStatus: model.AvailabilityAvailable,
		})
	}
	return out, nil
}

func (f *fakeAdapter) SupportedSources() []model.Source {
	return []model.Source{{Key: "a", Name: "A"}}
}

type recordingPublisher struct {
	mu    sync.Mutex
	sent  int
	err   error
	calls int
}

func (p *recordingPublisher) Publish(ctx context.Context, tickets []*model.CanonicalTicket) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return p.err
	}
	p.sent += len(tickets)
	return nil
}

func (p *recordingPublisher) Close() {}

// failingRepo 对指定标题的记录返回持久化错误
type failingRepo struct {
	repository.TicketRepository
	failTitle string
}

func (r *failingRepo) Upsert(ctx context.Context, t *model.CanonicalTicket) error {
	if t.EventTitle == r.failTitle {
		return errors.New("disk full")
	}
	return r.TicketRepository.Upsert(ctx, t)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&model.CanonicalTicket{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestService(t *testing.T, repo repository.TicketRepository, pub *recordingPublisher, cfg config.IngestConfig, adapters ...*fakeAdapter) *IngestService {
	t.Helper()
	l := testLogger()
	if repo == nil {
		repo = repository.NewTicketRepository(newTestDB(t))
	}
	list := make([]interfaces.PlatformAdapter, 0, len(adapters))
	for _, a := range adapters {
		list = append(list, a)
	}
	ticketStore := store.NewTicketStore(repo, 15*time.Minute, nil, l)
	var publisher interfaces.TicketPublisher
	if pub != nil {
		publisher = pub
	}
	return NewIngestService(adapter.NewStaticRegistry(l, list...), ticketStore, publisher, cfg, l)
}

func TestSearchCachesOnlySuccess(t *testing.T) {
	ok := &fakeAdapter{platform: model.PlatformClubStore, titles: []string{"Arsenal vs Chelsea"}}
	bad := &fakeAdapter{platform: model.PlatformMarketplace, fail: true}
	s := newTestService(t, nil, nil, config.IngestConfig{}, ok, bad)
	ctx := context.Background()

	first := s.Search(ctx, model.PlatformClubStore, []string{"arsenal"}, model.Filters{})
	second := s.Search(ctx, model.PlatformClubStore, []string{"arsenal"}, model.Filters{})
	if first.Cached || !second.Cached || second.Count != 1 {
		t.Errorf("cached flags = %v/%v count = %d", first.Cached, second.Cached, second.Count)
	}
	if ok.calls != 1 {
		t.Errorf("adapter calls = %d, want 1", ok.calls)
	}
	// 不同筛选条件是不同的缓存键
	s.Search(ctx, model.PlatformClubStore, []string{"arsenal"}, model.Filters{Venue: "Emirates"})
	if ok.calls != 2 {
		t.Errorf("adapter calls = %d, want 2", ok.calls)
	}

	s.Search(ctx, model.PlatformMarketplace, []string{"x"}, model.Filters{})
	res := s.Search(ctx, model.PlatformMarketplace, []string{"x"}, model.Filters{})
	if bad.calls != 2 || res.Cached || res.Success {
		t.Errorf("failed results must not be cached: calls=%d res=%+v", bad.calls, res)
	}
}

func TestSearchUnknownPlatform(t *testing.T) {
	s := newTestService(t, nil, nil, config.IngestConfig{})
	res := s.Search(context.Background(), model.PlatformRegional, []string{"uk"}, model.Filters{})
	if res.Success || len(res.Errors) != 1 || res.Results == nil {
		t.Errorf("result = %+v", res)
	}
	if _, err := s.GetSupportedSources(model.PlatformRegional); err == nil {
		t.Error("expected error for unregistered platform")
	}
}

func TestImportPersistsAndPublishes(t *testing.T) {
	a := &fakeAdapter{platform: model.PlatformClubStore, titles: []string{"Arsenal vs Chelsea", "Chelsea vs Liverpool"}}
	pub := &recordingPublisher{}
	s := newTestService(t, nil, pub, config.IngestConfig{}, a)
	ctx := context.Background()

	res := s.Import(ctx, model.PlatformClubStore, []string{"arsenal"}, model.Filters{})
	if !res.Success || res.ImportedCount != 2 || len(res.Errors) != 0 {
		t.Fatalf("import = %+v", res)
	}
	if res.Imported[0].ID == 0 || res.Imported[0].TicketUUID == "" {
		t.Errorf("imported ticket not backfilled: %+v", res.Imported[0])
	}
	if pub.sent != 2 {
		t.Errorf("published = %d", pub.sent)
	}

	// 重复导入不产生重复记录，并且总是重新抓取
	if again := s.Import(ctx, model.PlatformClubStore, []string{"arsenal"}, model.Filters{}); again.ImportedCount != 2 {
		t.Fatalf("second import = %+v", again)
	}
	if a.calls != 2 {
		t.Errorf("adapter calls = %d, want 2", a.calls)
	}
	stats, err := s.GetStatistics(ctx, model.PlatformClubStore)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalTickets != 2 || stats.AvailableTickets != 2 || stats.AvailabilityRate != 100 {
		t.Errorf("stats = %+v", stats)
	}
	// 导入结果同时进入查询缓存
	if cached := s.Search(ctx, model.PlatformClubStore, []string{"arsenal"}, model.Filters{}); !cached.Cached {
		t.Error("search after import should hit cache")
	}
}

func TestImportContinuesAfterPersistenceError(t *testing.T) {
	a := &fakeAdapter{platform: model.PlatformClubStore, titles: []string{"Broken Fixture", "Arsenal vs Chelsea"}}
	repo := &failingRepo{TicketRepository: repository.NewTicketRepository(newTestDB(t)), failTitle: "Broken Fixture"}
	pub := &recordingPublisher{err: errors.New("broker down")}
	s := newTestService(t, repo, pub, config.IngestConfig{}, a)

	res := s.Import(context.Background(), model.PlatformClubStore, []string{"arsenal"}, model.Filters{})
	if !res.Success || res.ImportedCount != 1 {
		t.Fatalf("import = %+v", res)
	}
	if len(res.Errors) != 2 || !strings.Contains(res.Errors[0], "Broken Fixture") || !strings.HasPrefix(res.Errors[1], "publish:") {
		t.Errorf("errors = %v", res.Errors)
	}
}

func TestImportFailedSearch(t *testing.T) {
	a := &fakeAdapter{platform: model.PlatformClubStore, fail: true}
	pub := &recordingPublisher{}
	s := newTestService(t, nil, pub, config.IngestConfig{}, a)
	res := s.Import(context.Background(), model.PlatformClubStore, []string{"x"}, model.Filters{})
	if res.Success || res.ImportedCount != 0 || len(res.Errors) != 1 || pub.calls != 0 {
		t.Errorf("import = %+v publish calls = %d", res, pub.calls)
	}
}

func TestSearchAllReturnsCompletedOnDeadline(t *testing.T) {
	fast := &fakeAdapter{platform: model.PlatformClubStore, titles: []string{"Arsenal vs Chelsea"}}
	slow := &fakeAdapter{platform: model.PlatformRegional, block: make(chan struct{})}
	defer close(slow.block)
	s := newTestService(t, nil, nil, config.IngestConfig{BatchTimeout: 50 * time.Millisecond, Concurrency: 2}, fast, slow)

	start := time.Now()
	results := s.SearchAll(context.Background(), []SearchRequest{
		{Platform: model.PlatformClubStore, Identifiers: []string{"arsenal"}},
		{Platform: model.PlatformRegional, Identifiers: []string{"uk"}},
		{Platform: model.PlatformMarketplace, Identifiers: []string{"q"}},
	})
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("SearchAll took %v", elapsed)
	}
	if len(results) != 3 {
		t.Fatalf("results = %d", len(results))
	}
	if !results[0].Success || results[0].Count != 1 {
		t.Errorf("fast platform = %+v", results[0])
	}
	if results[1].Success || len(results[1].Errors) != 1 || !strings.Contains(results[1].Errors[0], "超时") {
		t.Errorf("slow platform = %+v", results[1])
	}
	if results[1].Platform != model.PlatformRegional {
		t.Errorf("platform = %s", results[1].Platform)
	}
	// 未注册的平台在截止前已经返回错误结果
	if results[2].Success || len(results[2].Errors) != 1 || strings.Contains(results[2].Errors[0], "超时") {
		t.Errorf("unknown platform = %+v", results[2])
	}
}

func TestSweepStale(t *testing.T) {
	a := &fakeAdapter{platform: model.PlatformClubStore, titles: []string{"Arsenal vs Chelsea"}}
	s := newTestService(t, nil, nil, config.IngestConfig{StaleAfter: time.Millisecond}, a)
	ctx := context.Background()
	if res := s.Import(ctx, model.PlatformClubStore, nil, model.Filters{}); res.ImportedCount != 1 {
		t.Fatalf("import = %+v", res)
	}
	time.Sleep(20 * time.Millisecond)
	n, err := s.SweepStale(ctx, model.PlatformClubStore)
	if err != nil || n != 1 {
		t.Fatalf("SweepStale() = %d, %v", n, err)
	}
	list, total, err := s.ListTickets(ctx, repository.TicketFilter{Platform: model.PlatformClubStore}, 1, 20)
	if err != nil || total != 0 || len(list) != 0 {
		t.Errorf("stale tickets should be hidden: %d %v", total, err)
	}
	_, total, _ = s.ListTickets(ctx, repository.TicketFilter{Platform: model.PlatformClubStore, IncludeStale: true}, 1, 20)
	if total != 1 {
		t.Errorf("total with stale = %d", total)
	}
}
