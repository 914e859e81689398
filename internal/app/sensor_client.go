package app

import (
	"context"
	"net"
	"time"

	"github.com/bujia-iot/card-sensor-client/internal/domain/card_protocol"
	"github.com/bujia-iot/card-sensor-client/internal/infrastructure/logger"
	"github.com/bujia-iot/card-sensor-client/pkg/constants"
	"github.com/bujia-iot/card-sensor-client/pkg/errors"
	"github.com/bujia-iot/card-sensor-client/pkg/metrics"
	"github.com/bujia-iot/card-sensor-client/pkg/network"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// IndicatorOutput 指示灯输出（绿灯、蓝灯两路开关量）
type IndicatorOutput interface {
	Apply(state card_protocol.IndicatorState) error
}

// AddressSource 枚举本机地址
type AddressSource func() ([]net.Addr, error)

// Options 客户端依赖与参数
type Options struct {
	Session       string
	Interval      time.Duration // 上报周期
	MaxPayloadLen int
	RoomOffset    int
	PollInterval  time.Duration // 等待全局地址的轮询间隔
	AddressFilter network.AddressFilter
	Addresses     AddressSource
	Transport     Transport
	Timers        Timers
	Indicator     IndicatorOutput
	Mirror        ReportMirror
	Metrics       *metrics.ReportMetrics
	Jitter        JitterFunc
	Now           func() time.Time
	LogHexDump    bool
}

// Snapshot 诊断快照
type Snapshot struct {
	Session   string                 `json:"session"`
	Room      string                 `json:"room"`
	Card      string                 `json:"card"`
	Indicator string                 `json:"indicator"`
	Seq       uint32                 `json:"seq"`
	Armed     bool                   `json:"armed"`
	Interval  string                 `json:"interval"`
	Metrics   map[string]interface{} `json:"metrics"`
}

// SensorClient 刷卡节点客户端
// 所有状态只在 Run 的事件循环中读写；每个事件处理完毕（含立即上报）后才取下一个事件
type SensorClient struct {
	opts      Options
	state     *ClientState
	assembler *card_protocol.LineAssembler
	scheduler *ReportScheduler
	sender    *ReportSender
	metrics   *metrics.ReportMetrics
	log       *logrus.Entry

	snapshotReq chan chan Snapshot
}

// NewSensorClient 创建客户端
func NewSensorClient(opts Options) (*SensorClient, error) {
	if opts.Session == "" {
		opts.Session = uuid.New().String()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.MaxPayloadLen <= 0 {
		opts.MaxPayloadLen = constants.MaxPayloadLen
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = constants.DefaultStartInterval
	}
	if opts.Addresses == nil {
		opts.Addresses = net.InterfaceAddrs
	}
	if opts.Transport == nil {
		return nil, errors.New(errors.ErrTransportUnavailable, "传输层未配置")
	}

	c := &SensorClient{
		opts:        opts,
		state:       NewClientState(),
		assembler:   card_protocol.NewLineAssembler(),
		metrics:     opts.Metrics,
		log:         logger.WithField("session", opts.Session),
		snapshotReq: make(chan chan Snapshot),
	}

	c.sender = NewReportSender(opts.Transport, opts.MaxPayloadLen, opts.Metrics)
	if opts.Mirror != nil {
		c.sender.SetMirror(opts.Mirror)
	}

	scheduler, err := NewReportScheduler(opts.Interval, opts.Timers, opts.Jitter, c.sendCurrent)
	if err != nil {
		return nil, err
	}
	c.scheduler = scheduler

	return c, nil
}

// Session 本次运行的会话ID
func (c *SensorClient) Session() string {
	return c.opts.Session
}

// State 当前状态（只供事件循环与测试使用）
func (c *SensorClient) State() *ClientState {
	return c.state
}

// Run 事件循环；ctx 取消时返回 nil
// 房间号溢出属于致命错误，直接返回
func (c *SensorClient) Run(ctx context.Context, serialIn <-chan []byte, datagrams <-chan []byte) error {
	if err := c.Start(); err != nil {
		return err
	}

	c.log.WithFields(logrus.Fields{
		"interval": c.scheduler.Interval().String(),
	}).Info("UDP client process started")

	for {
		select {
		case <-ctx.Done():
			c.log.Info("事件循环已停止")
			return nil

		case chunk, ok := <-serialIn:
			if !ok {
				c.log.Warn("串口输入已关闭")
				serialIn = nil
				continue
			}
			for _, b := range chunk {
				c.HandleSerialByte(b)
			}

		case data, ok := <-datagrams:
			if !ok {
				c.log.Warn("数据报输入已关闭")
				datagrams = nil
				continue
			}
			c.HandleDatagram(data)

		case ev := <-c.opts.Timers.Expired():
			if err := c.HandleTimer(ev); err != nil {
				return err
			}

		case reply := <-c.snapshotReq:
			reply <- c.snapshot()
		}
	}
}

// Start 设置周期定时器并尝试推导房间号
func (c *SensorClient) Start() error {
	if err := c.scheduler.Start(c.opts.Now()); err != nil {
		return errors.Wrap(errors.ErrInvalidParameter, "设置周期定时器失败", err)
	}
	return c.pollAddress()
}

// HandleSerialByte 处理串口输入的一个字节
func (c *SensorClient) HandleSerialByte(b byte) {
	ev, err := c.assembler.Feed(b)
	if err != nil {
		c.metrics.Inc(metrics.OverflowLines)
		c.log.WithError(err).WithField("capacity", constants.SerialBufSize).Warn("串口行过长，已丢弃")
		return
	}
	if ev == nil {
		return
	}

	switch ev.Kind {
	case card_protocol.CardInserted:
		c.state.ApplyCardEvent(*ev)
		c.metrics.Inc(metrics.CardInserted)
		c.log.WithField("card", ev.Card.String()).Info("Card inserted")

	case card_protocol.CardRemoved:
		c.state.ApplyCardEvent(*ev)
		c.applyIndicator()
		c.metrics.Inc(metrics.CardRemoved)
		c.log.Info("Card removed")

	case card_protocol.CardInvalid:
		c.metrics.Inc(metrics.InvalidLines)
		c.log.WithError(errors.Newf(errors.ErrLineLength, "卡号长度应为%d，实际%d", constants.CardIDSize, ev.Length)).
			Warn("Try again")
		return
	}

	c.triggerSend("card")
}

// HandleDatagram 处理采集端下发的命令数据报
func (c *SensorClient) HandleDatagram(data []byte) {
	if !c.scheduler.Armed() {
		c.log.Debug("房间号未推导，忽略数据报")
		return
	}

	logger.HexDump("DATA recv", data, c.opts.LogHexDump)
	c.log.WithField("data", string(data)).Info("DATA recv")

	state, ok := card_protocol.DecodeCommand(data)
	if !ok {
		c.metrics.Inc(metrics.CommandsIgnored)
		return
	}

	c.state.ApplyCommand(state)
	c.metrics.Inc(metrics.CommandsApplied)
	c.applyIndicator()
}

// HandleTimer 处理定时器到期事件
func (c *SensorClient) HandleTimer(ev TimerEvent) error {
	if ev.Kind == TimerAddressPoll {
		return c.pollAddress()
	}

	handled, err := c.scheduler.HandleExpiry(ev, c.opts.Now())
	if err != nil {
		c.log.WithError(err).WithField("timer", ev.Kind.String()).Error("定时器设置失败")
		return nil
	}
	if !handled {
		c.log.WithField("timer", ev.Kind.String()).Debug("未知定时器事件")
	}
	return nil
}

// Snapshot 从事件循环获取诊断快照
func (c *SensorClient) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	select {
	case c.snapshotReq <- reply:
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

func (c *SensorClient) snapshot() Snapshot {
	return Snapshot{
		Session:   c.opts.Session,
		Room:      c.state.Room.String(),
		Card:      c.state.Card.String(),
		Indicator: c.state.Indicator.String(),
		Seq:       c.sender.Seq(),
		Armed:     c.scheduler.Armed(),
		Interval:  c.scheduler.Interval().String(),
		Metrics:   c.metrics.Summary(),
	}
}

// pollAddress 选择全局地址并推导房间号，成功后启用调度；只成功一次
func (c *SensorClient) pollAddress() error {
	if c.state.RoomDerived() {
		return nil
	}

	addrs, err := c.opts.Addresses()
	if err == nil {
		var ip net.IP
		ip, err = network.SelectRoomAddress(addrs, c.opts.AddressFilter)
		if err == nil {
			return c.deriveRoom(ip)
		}
	}

	c.log.WithError(err).WithField("retry_in", c.opts.PollInterval.String()).Debug("等待全局地址")
	if err := c.opts.Timers.After(c.opts.PollInterval, TimerEvent{Kind: TimerAddressPoll}); err != nil {
		return errors.Wrap(errors.ErrInvalidParameter, "设置地址轮询定时器失败", err)
	}
	return nil
}

func (c *SensorClient) deriveRoom(ip net.IP) error {
	room, err := card_protocol.DeriveRoomIDWithOffset(network.LastOctet(ip), c.opts.RoomOffset)
	if err != nil {
		c.log.WithError(err).WithField("address", ip.String()).Error("房间号推导失败")
		return err
	}

	c.state.SetRoom(room)
	c.scheduler.Arm()
	c.log = c.log.WithField("room", room.String())
	c.log.WithField("address", ip.String()).Info("Room selected")
	return nil
}

func (c *SensorClient) sendCurrent() {
	c.triggerSend("periodic")
}

// 房间号推导前整个调度器处于静止状态，插拔卡只更新状态，不以空白房间号上报
func (c *SensorClient) triggerSend(reason string) {
	if !c.scheduler.Armed() {
		c.log.WithField("reason", reason).Debug("房间号未推导，跳过上报")
		return
	}
	if seq, err := c.sender.Send(c.state.Room, c.state.Card); err != nil {
		c.log.WithError(err).WithFields(logrus.Fields{
			"reason": reason,
			"seq":    seq,
			"card":   c.state.Card.String(),
		}).Warn("上报未发出")
	}
}

func (c *SensorClient) applyIndicator() {
	state := c.state.Indicator
	if c.opts.Indicator == nil {
		return
	}
	if err := c.opts.Indicator.Apply(state); err != nil {
		c.log.WithError(err).WithField("state", state.String()).Warn("指示灯输出失败")
	}
}
