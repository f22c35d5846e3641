package ratelimit

import (
	"sync"
	"time"
)

// RateState 单个平台的限流状态，仅由 Controller 在平台锁内修改
type RateState struct {
	LastRequest         time.Time `json:"last_request"`
	WindowStart         time.Time `json:"window_start"`
	WindowCount         int       `json:"window_count"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	CooldownUntil       time.Time `json:"cooldown_until"`
}

type platformState struct {
	mu    sync.Mutex
	state RateState
}

// state 获取（不存在则创建）平台状态；全局锁只保护 map 本身，不跨休眠持有
func (c *Controller) state(platform string) *platformState {
	c.mu.Lock()
	defer c.mu.Unlock()
	ps, ok := c.states[platform]
	if !ok {
		ps = &platformState{}
		c.states[platform] = ps
	}
	return ps
}

// Snapshot 返回平台状态副本
func (c *Controller) Snapshot(platform string) RateState {
	ps := c.state(platform)
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.state
}

// RecordFailure 记录一次失败，返回连续失败次数
func (c *Controller) RecordFailure(platform string) int {
	ps := c.state(platform)
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.state.ConsecutiveFailures++
	return ps.state.ConsecutiveFailures
}

// RecordSuccess 成功后清零连续失败
func (c *Controller) RecordSuccess(platform string) {
	ps := c.state(platform)
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.state.ConsecutiveFailures = 0
}
