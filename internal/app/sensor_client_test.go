package app

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/bujia-iot/card-sensor-client/internal/domain/card_protocol"
	"github.com/bujia-iot/card-sensor-client/pkg/errors"
	"github.com/bujia-iot/card-sensor-client/pkg/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 末字节 0x9d = 157，房间号 255
const roomAddr = "aaaa::212:4b00:ff:fe00:9d/64"

type clientHarness struct {
	client    *SensorClient
	timers    *fakeTimers
	transport *fakeTransport
	indicator *fakeIndicator
	mirror    *fakeMirror
	metrics   *metrics.ReportMetrics
}

func newHarness(t *testing.T, addrs AddressSource, mutate ...func(*Options)) *clientHarness {
	t.Helper()
	h := &clientHarness{
		timers:    newFakeTimers(schedulerStart),
		transport: &fakeTransport{},
		indicator: &fakeIndicator{},
		mirror:    &fakeMirror{},
		metrics:   metrics.New(),
	}
	opts := Options{
		Session:      "test-session",
		Interval:     time.Minute,
		PollInterval: 15 * time.Second,
		RoomOffset:   98,
		Addresses:    addrs,
		Transport:    h.transport,
		Timers:       h.timers,
		Indicator:    h.indicator,
		Mirror:       h.mirror,
		Metrics:      h.metrics,
		Jitter:       seededJitter(11),
		Now:          h.timers.clock,
	}
	for _, fn := range mutate {
		fn(&opts)
	}
	c, err := NewSensorClient(opts)
	require.NoError(t, err)
	h.client = c
	return h
}

func (h *clientHarness) feed(s string) {
	for i := 0; i < len(s); i++ {
		h.client.HandleSerialByte(s[i])
	}
}

func (h *clientHarness) step(t *testing.T) TimerEvent {
	t.Helper()
	p, ok := h.timers.popNext()
	require.True(t, ok, "没有待触发的定时器")
	require.NoError(t, h.client.HandleTimer(p.ev))
	return p.ev
}

func TestNewSensorClient_RequiresTransport(t *testing.T) {
	_, err := NewSensorClient(Options{Interval: time.Minute, Timers: newFakeTimers(schedulerStart)})
	assert.True(t, errors.IsErrCode(err, errors.ErrTransportUnavailable))
}

func TestNewSensorClient_InvalidInterval(t *testing.T) {
	_, err := NewSensorClient(Options{Transport: &fakeTransport{}, Timers: newFakeTimers(schedulerStart)})
	assert.True(t, errors.IsErrCode(err, errors.ErrInvalidParameter))

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Nil(t, appErr.Cause, "调度器参数错误直接返回")
}

func TestNewSensorClient_GeneratesSession(t *testing.T) {
	h := newHarness(t, staticAddrs(roomAddr), func(o *Options) { o.Session = "" })
	assert.Len(t, h.client.Session(), 36)
}

func TestSensorClient_CardInsertedSendsImmediately(t *testing.T) {
	h := newHarness(t, staticAddrs(roomAddr))
	require.NoError(t, h.client.Start())

	h.feed("12345678\n")

	assert.Equal(t, []string{"255   12345678"}, h.transport.sent())
	assert.Equal(t, "12345678", h.client.State().Card.String())
	assert.Equal(t, uint64(1), h.metrics.Get(metrics.CardInserted))
	require.Len(t, h.mirror.reports, 1)
	assert.Equal(t, uint32(1), h.mirror.reports[0].Seq)
}

func TestSensorClient_CardRemovedClearsIndicator(t *testing.T) {
	h := newHarness(t, staticAddrs(roomAddr))
	require.NoError(t, h.client.Start())

	h.feed("12345678\n")
	h.client.HandleDatagram([]byte("1"))
	state, _ := h.indicator.last()
	require.Equal(t, card_protocol.IndicatorEntryOK, state)

	h.feed("00000000\n")

	state, _ = h.indicator.last()
	assert.Equal(t, card_protocol.IndicatorOff, state)
	assert.Equal(t, card_protocol.IndicatorOff, h.client.State().Indicator)
	assert.True(t, h.client.State().Card.IsNoCard())
	assert.Equal(t, []string{"255   12345678", "255   00000000"}, h.transport.sent())
}

func TestSensorClient_InvalidLines(t *testing.T) {
	h := newHarness(t, staticAddrs(roomAddr))
	require.NoError(t, h.client.Start())
	h.feed("ABCDEFGH\n")

	h.feed("1234\n")
	h.feed("12345678\r\n")
	h.feed("\n")

	assert.Equal(t, "ABCDEFGH", h.client.State().Card.String())
	assert.Len(t, h.transport.sent(), 1)
	assert.Equal(t, uint64(2), h.metrics.Get(metrics.InvalidLines))
}

func TestSensorClient_OverflowRecovers(t *testing.T) {
	h := newHarness(t, staticAddrs(roomAddr))
	require.NoError(t, h.client.Start())

	h.feed(strings.Repeat("x", 129) + "12345678\n")

	assert.Equal(t, uint64(1), h.metrics.Get(metrics.OverflowLines))
	assert.True(t, h.client.State().Card.IsNoCard(), "超长行的尾部不能当作卡号")
	assert.Empty(t, h.transport.sent())

	h.feed("87654321\n")
	assert.Equal(t, []string{"255   87654321"}, h.transport.sent())
}

func TestSensorClient_Commands(t *testing.T) {
	h := newHarness(t, staticAddrs(roomAddr))
	require.NoError(t, h.client.Start())

	steps := []struct {
		data string
		want card_protocol.IndicatorState
	}{
		{"1xyz", card_protocol.IndicatorEntryOK},
		{"e", card_protocol.IndicatorExitPending},
		{"q", card_protocol.IndicatorExitPending},
		{"", card_protocol.IndicatorExitPending},
		{"0", card_protocol.IndicatorOff},
		{"0", card_protocol.IndicatorOff},
	}
	for _, s := range steps {
		h.client.HandleDatagram([]byte(s.data))
		assert.Equal(t, s.want, h.client.State().Indicator, "命令 %q", s.data)
	}

	assert.Equal(t, uint64(4), h.metrics.Get(metrics.CommandsApplied))
	assert.Equal(t, uint64(2), h.metrics.Get(metrics.CommandsIgnored))
	assert.Empty(t, h.transport.sent(), "命令不触发上报")
}

func TestSensorClient_PeriodicReport(t *testing.T) {
	h := newHarness(t, staticAddrs(roomAddr))
	require.NoError(t, h.client.Start())

	assert.Equal(t, TimerPeriodic, h.step(t).Kind)
	assert.Equal(t, TimerJitter, h.step(t).Kind)
	assert.Equal(t, []string{"255   00000000"}, h.transport.sent())

	h.feed("12345678\n")
	assert.Equal(t, TimerPeriodic, h.step(t).Kind)
	assert.Equal(t, TimerJitter, h.step(t).Kind)
	sent := h.transport.sent()
	require.Len(t, sent, 3)
	assert.Equal(t, "255   12345678", sent[2])
}

func TestSensorClient_WaitsForGlobalAddress(t *testing.T) {
	var available []string
	source := func() ([]net.Addr, error) {
		return staticAddrs(append([]string{"fe80::1/64", "127.0.0.1/8"}, available...)...)()
	}
	h := newHarness(t, source)
	require.NoError(t, h.client.Start())
	assert.Equal(t, 1, h.timers.countKind(TimerAddressPoll))

	// 推导前卡状态照常更新，但不上报、不接受命令
	h.feed("12345678\n")
	h.client.HandleDatagram([]byte("1"))
	h.feed("00000000\n")
	h.feed("87654321\n")
	assert.Equal(t, "87654321", h.client.State().Card.String())
	assert.Equal(t, card_protocol.IndicatorOff, h.client.State().Indicator)
	assert.Empty(t, h.transport.sent())
	assert.Equal(t, uint64(0), h.metrics.Get(metrics.ReportsSent))
	assert.Equal(t, 0, h.timers.countKind(TimerJitter))

	// 第一次轮询仍无全局地址
	assert.Equal(t, TimerAddressPoll, h.step(t).Kind)
	assert.Equal(t, 1, h.timers.countKind(TimerAddressPoll))
	assert.True(t, h.client.State().Room.IsBlank())

	available = []string{"2001:db8::5/64", roomAddr}
	assert.Equal(t, TimerAddressPoll, h.step(t).Kind)
	assert.Equal(t, 0, h.timers.countKind(TimerAddressPoll))
	assert.Equal(t, "255   ", h.client.State().Room.String())
	assert.Empty(t, h.transport.sent(), "推导完成本身不触发上报")

	h.feed("00000000\n")
	assert.Equal(t, []string{"255   00000000"}, h.transport.sent())
}

func TestSensorClient_RoomOverflowIsFatal(t *testing.T) {
	h := newHarness(t, staticAddrs(roomAddr), func(o *Options) { o.RoomOffset = 999999 })

	err := h.client.Run(context.Background(), nil, nil)
	require.Error(t, err)
	assert.True(t, errors.IsErrCode(err, errors.ErrRoomIDOverflow))
	assert.Empty(t, h.transport.sent())
}

func TestSensorClient_RunAndSnapshot(t *testing.T) {
	h := newHarness(t, staticAddrs(roomAddr))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serialIn := make(chan []byte)
	datagrams := make(chan []byte)
	done := make(chan error, 1)
	go func() { done <- h.client.Run(ctx, serialIn, datagrams) }()

	serialIn <- []byte("1234")
	serialIn <- []byte("5678\n")
	datagrams <- []byte("e")

	snapCtx, snapCancel := context.WithTimeout(ctx, 2*time.Second)
	defer snapCancel()
	snap, err := h.client.Snapshot(snapCtx)
	require.NoError(t, err)

	assert.Equal(t, "test-session", snap.Session)
	assert.Equal(t, "255   ", snap.Room)
	assert.Equal(t, "12345678", snap.Card)
	assert.Equal(t, "EXIT_PENDING", snap.Indicator)
	assert.Equal(t, uint32(1), snap.Seq)
	assert.True(t, snap.Armed)
	assert.Equal(t, "1m0s", snap.Interval)
	assert.Equal(t, []string{"255   12345678"}, h.transport.sent())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("事件循环未退出")
	}
}

func TestSensorClient_SnapshotHonorsContext(t *testing.T) {
	h := newHarness(t, staticAddrs(roomAddr))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := h.client.Snapshot(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
