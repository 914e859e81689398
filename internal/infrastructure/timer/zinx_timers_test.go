package timer

import (
	"testing"
	"time"

	"github.com/bujia-iot/card-sensor-client/internal/app"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZinxTimers_DeliversEvent(t *testing.T) {
	timers := NewZinxTimers(4)
	defer timers.Close()

	want := app.TimerEvent{Kind: app.TimerJitter, Seq: 7}
	require.NoError(t, timers.After(10*time.Millisecond, want))

	select {
	case got := <-timers.Expired():
		assert.Equal(t, want, got)
	case <-time.After(Resolution + 3*time.Second):
		t.Fatal("定时器未触发")
	}
}

func TestZinxTimers_NegativeDelay(t *testing.T) {
	timers := NewZinxTimers(4)
	defer timers.Close()

	require.NoError(t, timers.After(-time.Second, app.TimerEvent{Kind: app.TimerPeriodic}))

	select {
	case got := <-timers.Expired():
		assert.Equal(t, app.TimerPeriodic, got.Kind)
	case <-time.After(Resolution + 3*time.Second):
		t.Fatal("定时器未触发")
	}
}

func TestZinxTimers_CloseDropsPending(t *testing.T) {
	timers := NewZinxTimers(1)
	timers.Close()
	timers.Close()

	// 关闭后回调不会阻塞
	done := make(chan struct{})
	go func() {
		timers.fire(app.TimerEvent{Kind: app.TimerPeriodic})
		timers.fire(app.TimerEvent{Kind: app.TimerPeriodic})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("关闭后回调被阻塞")
	}
}

func TestResolution(t *testing.T) {
	assert.Equal(t, time.Second, Resolution)
}
