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

// Factory 平台适配器工厂函数签名
// 入参：平台配置、共享抓取组件、日志实例
type Factory func(cfg *config.PlatformConfig, kit *base.Toolkit, logger *logrus.Logger) interfaces.PlatformAdapter

// 全局工厂函数注册表，由各适配器 init 填充
var factoryRegistry = make(map[model.PlatformType]Factory)

// Register 供适配器init函数调用，注册工厂函数
func Register(platform model.PlatformType, factory Factory) {
	if factory == nil {
		panic(fmt.Sprintf("平台%s的工厂函数不能为nil", platform))
	}
	if _, exists := factoryRegistry[platform]; exists {
		logrus.Warnf("平台%s的适配器已注册，将覆盖原有实现", platform)
	}
	factoryRegistry[platform] = factory
	logrus.Debugf("平台%s工厂函数注册成功", platform)
}

// GetFactory 获取指定平台的工厂函数
func GetFactory(platform model.PlatformType) (Factory, bool) {
	factory, ok := factoryRegistry[platform]
	return factory, ok
}

// ListFactories 列出所有已注册的工厂函数平台（有序）
func ListFactories() []model.PlatformType {
	platforms := make([]model.PlatformType, 0, len(factoryRegistry))
	for p := range factoryRegistry {
		platforms = append(platforms, p)
	}
	sort.Slice(platforms, func(i, j int) bool { return platforms[i] < platforms[j] })
	return platforms
}
