package app

import (
	"time"

	"github.com/bujia-iot/card-sensor-client/internal/domain/card_protocol"
	"github.com/bujia-iot/card-sensor-client/internal/infrastructure/logger"
	"github.com/bujia-iot/card-sensor-client/pkg/errors"
	"github.com/bujia-iot/card-sensor-client/pkg/metrics"
	"github.com/sirupsen/logrus"
)

// Transport 无连接数据报传输，发送到固定采集端
// 返回 nil 只表示本地已交付，不代表对端收到
type Transport interface {
	Send(payload []byte) error
}

// ReportMirror 上报镜像，Publish 不得阻塞调用方
type ReportMirror interface {
	Publish(r card_protocol.Report)
}

// ReportSender 上报发送器：尽力而为，不确认、不重试
type ReportSender struct {
	transport Transport
	maxLen    int
	seq       uint32
	metrics   *metrics.ReportMetrics
	mirror    ReportMirror
	now       func() time.Time
}

// NewReportSender 创建上报发送器
func NewReportSender(transport Transport, maxLen int, m *metrics.ReportMetrics) *ReportSender {
	if m == nil {
		m = metrics.New()
	}
	return &ReportSender{
		transport: transport,
		maxLen:    maxLen,
		metrics:   m,
		now:       time.Now,
	}
}

// SetMirror 设置上报镜像
func (s *ReportSender) SetMirror(mirror ReportMirror) {
	s.mirror = mirror
}

// Seq 当前序号
func (s *ReportSender) Seq() uint32 {
	return s.seq
}

// Send 组装 房间号+卡号 并交给传输层
// 每次调用序号加一（按无符号32位回绕），序号不随负载发送
func (s *ReportSender) Send(room card_protocol.RoomID, card card_protocol.CardID) (uint32, error) {
	s.seq++
	seq := s.seq

	payload, err := card_protocol.BuildPayload(room, card, s.maxLen)
	if err != nil {
		s.metrics.Inc(metrics.SendFailures)
		return seq, err
	}

	if s.transport == nil {
		s.metrics.Inc(metrics.SendFailures)
		return seq, errors.New(errors.ErrTransportUnavailable, "传输层未就绪")
	}
	if err := s.transport.Send(payload); err != nil {
		s.metrics.Inc(metrics.SendFailures)
		return seq, errors.Wrap(errors.ErrSendFailed, "上报发送失败", err)
	}

	s.metrics.Inc(metrics.ReportsSent)
	logger.WithFields(logrus.Fields{
		"seq":     seq,
		"payload": string(payload),
	}).Info("DATA send")

	if s.mirror != nil {
		s.mirror.Publish(card_protocol.Report{Room: room, Card: card, Seq: seq, At: s.now()})
	}
	return seq, nil
}
