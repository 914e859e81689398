package metrics

import (
	"sync"
	"time"
)

// Counter 计数项
type Counter string

const (
	ReportsSent     Counter = "reportsSent"     // 已交给传输层的上报
	SendFailures    Counter = "sendFailures"    // 本地发送失败
	CardInserted    Counter = "cardInserted"    // 插卡事件
	CardRemoved     Counter = "cardRemoved"     // 拔卡事件
	InvalidLines    Counter = "invalidLines"    // 长度不符的串口行
	OverflowLines   Counter = "overflowLines"   // 超出缓冲区的串口行
	CommandsApplied Counter = "commandsApplied" // 生效的远程命令
	CommandsIgnored Counter = "commandsIgnored" // 被忽略的数据报
	MirrorFailures  Counter = "mirrorFailures"  // 镜像发布失败
)

// ReportMetrics 上报客户端诊断指标
type ReportMetrics struct {
	mu        sync.RWMutex
	counts    map[Counter]uint64
	startTime time.Time
}

// New 创建指标实例
func New() *ReportMetrics {
	return &ReportMetrics{
		counts:    make(map[Counter]uint64),
		startTime: time.Now(),
	}
}

// Inc 计数加一
func (m *ReportMetrics) Inc(c Counter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[c]++
}

// Get 获取计数
func (m *ReportMetrics) Get(c Counter) uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.counts[c]
}

// Summary 获取指标摘要
func (m *ReportMetrics) Summary() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[string]uint64, len(m.counts))
	for c, n := range m.counts {
		counts[string(c)] = n
	}

	return map[string]interface{}{
		"counts":    counts,
		"uptime":    time.Since(m.startTime).String(),
		"startTime": m.startTime.Format("2006-01-02 15:04:05"),
	}
}
