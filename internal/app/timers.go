package app

import "time"

// TimerKind 定时器类型
type TimerKind uint8

const (
	TimerPeriodic    TimerKind = iota + 1 // 周期定时器
	TimerJitter                           // 抖动单次定时器
	TimerAddressPoll                      // 全局地址轮询
)

func (k TimerKind) String() string {
	switch k {
	case TimerPeriodic:
		return "periodic"
	case TimerJitter:
		return "jitter"
	case TimerAddressPoll:
		return "address_poll"
	default:
		return "unknown"
	}
}

// TimerEvent 定时器到期事件
// Seq 用于识别被重新设置而失效的抖动定时器
type TimerEvent struct {
	Kind TimerKind
	Seq  uint64
}

// Timers 定时器后端
// 到期事件统一投递到 Expired 通道，由事件循环串行处理
type Timers interface {
	After(d time.Duration, ev TimerEvent) error
	Expired() <-chan TimerEvent
}
