package app

import (
	"math/rand/v2"
	"time"

	"github.com/bujia-iot/card-sensor-client/pkg/errors"
)

// JitterFunc 在 [0, interval) 内取随机延迟
type JitterFunc func(interval time.Duration) time.Duration

// UniformJitter 均匀分布抖动
func UniformJitter(interval time.Duration) time.Duration {
	return rand.N(interval)
}

// BoundedJitter 为定时器后端的精度预留余量，保证抖动上报仍落在本周期内
func BoundedJitter(resolution time.Duration) JitterFunc {
	return func(interval time.Duration) time.Duration {
		if resolution <= 0 || interval <= resolution {
			return UniformJitter(interval)
		}
		return UniformJitter(interval - resolution)
	}
}

// ReportScheduler 上报调度器
// 周期定时器到期后立即重新设置下一周期，再在本周期内随机延迟触发一次上报，
// 使大量节点的上报时间分散开
type ReportScheduler struct {
	interval time.Duration
	timers   Timers
	jitter   JitterFunc
	onSend   func()

	armed      bool
	started    bool
	nextTick   time.Time
	jitterSeq  uint64
	jitterLive bool
}

// NewReportScheduler 创建上报调度器
func NewReportScheduler(interval time.Duration, timers Timers, jitter JitterFunc, onSend func()) (*ReportScheduler, error) {
	if interval <= 0 {
		return nil, errors.Newf(errors.ErrInvalidParameter, "上报周期必须大于0: %s", interval)
	}
	if timers == nil {
		return nil, errors.New(errors.ErrInvalidParameter, "缺少定时器")
	}
	if onSend == nil {
		return nil, errors.New(errors.ErrInvalidParameter, "缺少上报回调")
	}
	if jitter == nil {
		jitter = UniformJitter
	}
	return &ReportScheduler{
		interval: interval,
		timers:   timers,
		jitter:   jitter,
		onSend:   onSend,
	}, nil
}

// Start 设置第一个周期定时器
func (s *ReportScheduler) Start(now time.Time) error {
	if s.started {
		return nil
	}
	s.started = true
	s.nextTick = now.Add(s.interval)
	return s.timers.After(s.interval, TimerEvent{Kind: TimerPeriodic})
}

// Arm 房间号推导完成后启用调度
func (s *ReportScheduler) Arm() {
	s.armed = true
}

// Armed 调度是否已启用
func (s *ReportScheduler) Armed() bool {
	return s.armed
}

// Interval 上报周期
func (s *ReportScheduler) Interval() time.Duration {
	return s.interval
}

// HandleExpiry 处理定时器到期事件，返回事件是否属于调度器
func (s *ReportScheduler) HandleExpiry(ev TimerEvent, now time.Time) (bool, error) {
	switch ev.Kind {
	case TimerPeriodic:
		return true, s.onPeriodic(now)
	case TimerJitter:
		s.onJitter(ev)
		return true, nil
	default:
		return false, nil
	}
}

func (s *ReportScheduler) onPeriodic(now time.Time) error {
	tick := s.nextTick

	// 按上一个到期点推进，避免周期漂移；落后超过一个周期时从当前时间重新对齐
	s.nextTick = tick.Add(s.interval)
	if !s.nextTick.After(now) {
		tick = now
		s.nextTick = now.Add(s.interval)
	}
	if err := s.timers.After(s.nextTick.Sub(now), TimerEvent{Kind: TimerPeriodic}); err != nil {
		return err
	}

	if !s.armed {
		return nil
	}

	delay := s.jitter(s.interval)
	if delay < 0 || delay >= s.interval {
		delay = 0
	}
	wait := tick.Add(delay).Sub(now)
	if wait < 0 {
		wait = 0
	}

	// 重新设置抖动定时器，未触发的旧定时器作废
	s.jitterSeq++
	s.jitterLive = true
	return s.timers.After(wait, TimerEvent{Kind: TimerJitter, Seq: s.jitterSeq})
}

func (s *ReportScheduler) onJitter(ev TimerEvent) {
	if !s.jitterLive || ev.Seq != s.jitterSeq {
		return
	}
	s.jitterLive = false
	s.onSend()
}
