package redis

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/bujia-iot/card-sensor-client/internal/domain/card_protocol"
	"github.com/bujia-iot/card-sensor-client/internal/infrastructure/logger"
	apperrors "github.com/bujia-iot/card-sensor-client/pkg/errors"
	"github.com/bujia-iot/card-sensor-client/pkg/metrics"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	mirrorQueueSize = 64
	publishTimeout  = 2 * time.Second
)

// Publisher 镜像用到的Redis能力，*redis.Client 满足该接口
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Close() error
}

// mirrorMessage 镜像消息格式
type mirrorMessage struct {
	Session string    `json:"session"`
	Room    string    `json:"room"`
	Card    string    `json:"card"`
	Seq     uint32    `json:"seq"`
	At      time.Time `json:"at"`
}

// ReportMirror 把已交给传输层的上报异步发布到Redis频道
// 队列满或发布失败只记日志和计数，不影响事件循环
type ReportMirror struct {
	client  Publisher
	channel string
	session string
	metrics *metrics.ReportMetrics

	queue     chan card_protocol.Report
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewReportMirror 创建并启动镜像协程
func NewReportMirror(client Publisher, channel, session string, m *metrics.ReportMetrics) *ReportMirror {
	if m == nil {
		m = metrics.New()
	}
	mirror := &ReportMirror{
		client:  client,
		channel: channel,
		session: session,
		metrics: m,
		queue:   make(chan card_protocol.Report, mirrorQueueSize),
		done:    make(chan struct{}),
	}
	mirror.wg.Add(1)
	go mirror.run()
	return mirror
}

// Publish 入队，不阻塞
func (m *ReportMirror) Publish(r card_protocol.Report) {
	select {
	case <-m.done:
		return
	default:
	}

	select {
	case m.queue <- r:
	default:
		m.metrics.Inc(metrics.MirrorFailures)
		logger.WithField("seq", r.Seq).Warn("镜像队列已满，丢弃上报")
	}
}

// Close 发布完队列中剩余的上报后关闭连接
func (m *ReportMirror) Close() error {
	var err error
	m.closeOnce.Do(func() {
		close(m.done)
		m.wg.Wait()
		err = m.client.Close()
	})
	return err
}

func (m *ReportMirror) run() {
	defer m.wg.Done()
	for {
		select {
		case r := <-m.queue:
			m.publish(r)
		case <-m.done:
			for {
				select {
				case r := <-m.queue:
					m.publish(r)
				default:
					return
				}
			}
		}
	}
}

func (m *ReportMirror) publish(r card_protocol.Report) {
	payload, err := json.Marshal(mirrorMessage{
		Session: m.session,
		Room:    r.Room.String(),
		Card:    r.Card.String(),
		Seq:     r.Seq,
		At:      r.At,
	})
	if err != nil {
		m.fail(r, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := m.client.Publish(ctx, m.channel, payload).Err(); err != nil {
		m.fail(r, err)
	}
}

func (m *ReportMirror) fail(r card_protocol.Report, err error) {
	m.metrics.Inc(metrics.MirrorFailures)
	logger.WithFields(logrus.Fields{
		"seq":     r.Seq,
		"channel": m.channel,
	}).WithError(apperrors.Wrap(apperrors.ErrMirrorPublishFailed, "镜像发布失败", err)).Warn("镜像发布失败")
}
