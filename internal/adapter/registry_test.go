package adapter

import (
	"context"
	"io"
	"testing"

	"TicketSync/internal/adapter/base"
	"TicketSync/internal/config"
	"TicketSync/internal/interfaces"
	"TicketSync/internal/model"

	"github.com/sirupsen/logrus"
)

type namedAdapter struct {
	platform model.PlatformType
	cfg      *config.PlatformConfig
}

func (n *namedAdapter) GetName() string             { return string(n.platform) }
func (n *namedAdapter) GetType() model.PlatformType { return n.platform }
func (n *namedAdapter) Search(ctx context.Context, ids []string, f model.Filters) *model.SearchResult {
	return (&model.SearchResult{Platform: n.platform}).Finish(0)
}
func (n *namedAdapter) GetEventDetails(ctx context.Context, url string) (*model.Fixture, error) {
	return nil, nil
}
func (n *namedAdapter) ToTickets(f []*model.Fixture) ([]*model.CanonicalTicket, []string) {
	return nil, nil
}
func (n *namedAdapter) SupportedSources() []model.Source { return nil }

func factoryFor(platform model.PlatformType) Factory {
	return func(cfg *config.PlatformConfig, kit *base.Toolkit, logger *logrus.Logger) interfaces.PlatformAdapter {
		return &namedAdapter{platform: platform, cfg: cfg}
	}
}

func TestRegistryBuildsEnabledPlatforms(t *testing.T) {
	Register("test_alpha", factoryFor("test_alpha"))
	Register("test_beta", factoryFor("test_beta"))
	// 工厂返回的类型与配置不一致
	Register("test_mismatch", factoryFor("test_other"))

	l := logrus.New()
	l.SetOutput(io.Discard)
	cfg := &config.Config{Platforms: map[string]config.PlatformConfig{
		"test_alpha":    {Enabled: true, BaseURL: "https://alpha.test"},
		"test_beta":     {Enabled: false},
		"test_mismatch": {Enabled: true},
		"test_missing":  {Enabled: true},
	}}
	r := NewPlatformRegistry(cfg, &base.Toolkit{Logger: l}, l)

	if got := r.ListRegisteredPlatforms(); len(got) != 1 || got[0] != "test_alpha" {
		t.Fatalf("platforms = %v", got)
	}
	a, err := r.GetAdapter("test_alpha")
	if err != nil {
		t.Fatal(err)
	}
	if a.(*namedAdapter).cfg.BaseURL != "https://alpha.test" {
		t.Errorf("adapter got wrong config: %+v", a.(*namedAdapter).cfg)
	}
	if _, err := r.GetAdapter("test_beta"); err == nil {
		t.Error("disabled platform should not be instantiated")
	}
	if r.GetPlatformCount() != 1 {
		t.Errorf("count = %d", r.GetPlatformCount())
	}
}

func TestStaticRegistry(t *testing.T) {
	l := logrus.New()
	l.SetOutput(io.Discard)
	r := NewStaticRegistry(l, &namedAdapter{platform: model.PlatformRegional}, &namedAdapter{platform: model.PlatformClubStore})
	got := r.ListRegisteredPlatforms()
	if len(got) != 2 || got[0] != model.PlatformClubStore || got[1] != model.PlatformRegional {
		t.Errorf("platforms = %v", got)
	}
}

func TestRegisterNilPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	Register("test_nil", nil)
}
