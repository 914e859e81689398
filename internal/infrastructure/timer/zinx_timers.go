package timer

import (
	"sync"
	"time"

	"github.com/aceld/zinx/ztimer"
	"github.com/bujia-iot/card-sensor-client/internal/app"
	"github.com/bujia-iot/card-sensor-client/internal/infrastructure/logger"
	"github.com/sirupsen/logrus"
)

// Resolution zinx 秒级时间轮的精度
const Resolution = time.Duration(ztimer.SecondInterval) * time.Millisecond

// ZinxTimers 基于 zinx 时间轮的定时器后端
// 到期回调在时间轮的执行协程中运行，只负责把事件投递给事件循环
type ZinxTimers struct {
	scheduler *ztimer.TimerScheduler
	expired   chan app.TimerEvent
	done      chan struct{}
	closeOnce sync.Once
}

// NewZinxTimers 创建并启动定时器后端
func NewZinxTimers(buffer int) *ZinxTimers {
	if buffer <= 0 {
		buffer = 16
	}
	return &ZinxTimers{
		scheduler: ztimer.NewAutoExecTimerScheduler(),
		expired:   make(chan app.TimerEvent, buffer),
		done:      make(chan struct{}),
	}
}

// After 在 d 之后投递 ev；d 为负时按0处理
func (t *ZinxTimers) After(d time.Duration, ev app.TimerEvent) error {
	if d < 0 {
		d = 0
	}
	df := ztimer.NewDelayFunc(t.fire, []interface{}{ev})
	tid, err := t.scheduler.CreateTimerAfter(df, d)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"timer": ev.Kind.String(),
			"delay": d.String(),
		}).WithError(err).Error("创建定时器失败")
		return err
	}

	logger.WithFields(logrus.Fields{
		"timer": ev.Kind.String(),
		"seq":   ev.Seq,
		"tid":   tid,
		"delay": d.String(),
	}).Debug("定时器已设置")
	return nil
}

// Expired 到期事件通道
func (t *ZinxTimers) Expired() <-chan app.TimerEvent {
	return t.expired
}

// Close 停止投递；之后到期的定时器被丢弃
func (t *ZinxTimers) Close() {
	t.closeOnce.Do(func() {
		close(t.done)
	})
}

func (t *ZinxTimers) fire(v ...interface{}) {
	if len(v) == 0 {
		return
	}
	ev, ok := v[0].(app.TimerEvent)
	if !ok {
		return
	}
	select {
	case t.expired <- ev:
	case <-t.done:
	}
}
