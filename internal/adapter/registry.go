package adapter

import (
	"fmt"
	"sort"

	"TicketSync/internal/adapter/base"
	"TicketSync/internal/config"
	"TicketSync/internal/interfaces"
	"TicketSync/internal/model"

	"github.com/sirupsen/logrus"
)

// PlatformRegistry 按配置实例化的适配器集合，初始化后只读
type PlatformRegistry struct {
	cfg    *config.Config
	kit    *base.Toolkit
	logger *logrus.Logger
	// 平台类型→适配器实例
	adapters map[model.PlatformType]interfaces.PlatformAdapter
}

func NewPlatformRegistry(cfg *config.Config, kit *base.Toolkit, logger *logrus.Logger) *PlatformRegistry {
	r := &PlatformRegistry{
		cfg:      cfg,
		kit:      kit,
		logger:   logger,
		adapters: make(map[model.PlatformType]interfaces.PlatformAdapter),
	}
	r.initAdaptersFromFactories()
	return r
}

// NewStaticRegistry 直接使用给定的适配器实例（测试与嵌入场景）
func NewStaticRegistry(logger *logrus.Logger, adapters ...interfaces.PlatformAdapter) *PlatformRegistry {
	r := &PlatformRegistry{logger: logger, adapters: make(map[model.PlatformType]interfaces.PlatformAdapter)}
	for _, a := range adapters {
		r.adapters[a.GetType()] = a
	}
	return r
}

// initAdaptersFromFactories 遍历配置中启用的平台，匹配工厂函数创建实例
func (r *PlatformRegistry) initAdaptersFromFactories() {
	r.logger.WithField("factory_platforms", ListFactories()).Debug("已注册的适配器工厂函数")

	for name, platformCfg := range r.cfg.Platforms {
		platformType := model.PlatformType(name)
		if !platformCfg.Enabled {
			r.logger.WithField("platform", platformType).Info("平台未启用，跳过")
			continue
		}

		factory, ok := GetFactory(platformType)
		if !ok {
			r.logger.WithField("platform", platformType).Error("未找到对应的工厂函数（init未注册？）")
			continue
		}

		pc := platformCfg
		adapterIns := factory(&pc, r.kit, r.logger)
		if adapterIns == nil {
			r.logger.WithField("platform", platformType).Error("工厂函数返回nil适配器实例")
			continue
		}
		if adapterIns.GetType() != platformType {
			r.logger.WithFields(logrus.Fields{
				"config_platform":  platformType,
				"adapter_platform": adapterIns.GetType(),
			}).Error("适配器平台类型与配置不匹配")
			continue
		}

		r.adapters[platformType] = adapterIns
		r.logger.WithField("platform", platformType).Info("适配器实例初始化成功")
	}
	r.logger.WithField("instance_platforms", len(r.adapters)).Info("适配器初始化完成")
}

// ListRegisteredPlatforms 获取所有已初始化的平台类型（有序）
func (r *PlatformRegistry) ListRegisteredPlatforms() []model.PlatformType {
	platforms := make([]model.PlatformType, 0, len(r.adapters))
	for p := range r.adapters {
		platforms = append(platforms, p)
	}
	sort.Slice(platforms, func(i, j int) bool { return platforms[i] < platforms[j] })
	return platforms
}

// GetAdapter 获取适配器实例
func (r *PlatformRegistry) GetAdapter(platform model.PlatformType) (interfaces.PlatformAdapter, error) {
	adapterIns, ok := r.adapters[platform]
	if !ok {
		return nil, fmt.Errorf("平台%s未初始化适配器实例（已初始化：%v）", platform, r.ListRegisteredPlatforms())
	}
	return adapterIns, nil
}

// GetPlatformCount 获取已初始化实例的平台数量
func (r *PlatformRegistry) GetPlatformCount() int {
	return len(r.adapters)
}
