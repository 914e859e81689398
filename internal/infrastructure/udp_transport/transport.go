package udp_transport

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/bujia-iot/card-sensor-client/internal/infrastructure/config"
	"github.com/bujia-iot/card-sensor-client/internal/infrastructure/logger"
	apperrors "github.com/bujia-iot/card-sensor-client/pkg/errors"
	"github.com/sirupsen/logrus"
)

// 单个数据报读取上限
const readBufferSize = 512

// 读循环检查 ctx 的间隔
const readPollInterval = 500 * time.Millisecond

// Transport UDP 数据报传输：上报发往固定采集端，命令从本地端口接收
type Transport struct {
	conn      *net.UDPConn
	server    *net.UDPAddr
	closeOnce sync.Once
}

// Open 绑定本地端口并解析采集端地址，任一失败都属于传输层不可用
func Open(cfg config.ReportConfig) (*Transport, error) {
	server, err := net.ResolveUDPAddr("udp", cfg.ServerEndpoint)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrTransportUnavailable, "解析采集端地址失败", err)
	}

	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: cfg.ClientPort})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrTransportUnavailable, "绑定本地UDP端口失败", err)
	}

	logger.WithFields(logrus.Fields{
		"local":  conn.LocalAddr().String(),
		"server": server.String(),
	}).Info("UDP传输已就绪")

	return &Transport{conn: conn, server: server}, nil
}

// Send 发送一个数据报到采集端
func (t *Transport) Send(payload []byte) error {
	_, err := t.conn.WriteToUDP(payload, t.server)
	return err
}

// LocalAddr 本地绑定地址
func (t *Transport) LocalAddr() *net.UDPAddr {
	return t.conn.LocalAddr().(*net.UDPAddr)
}

// ReadLoop 接收任意来源的数据报并投递到 out，ctx 取消或连接关闭时返回
// 来源不做校验
func (t *Transport) ReadLoop(ctx context.Context, out chan<- []byte) error {
	buf := make([]byte, readBufferSize)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		_ = t.conn.SetReadDeadline(time.Now().Add(readPollInterval))

		n, from, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			logger.WithError(err).Warn("UDP读取失败")
			return err
		}

		data := make([]byte, n)
		copy(data, buf[:n])
		logger.WithFields(logrus.Fields{
			"from":   from.String(),
			"length": n,
		}).Debug("收到数据报")

		select {
		case out <- data:
		case <-ctx.Done():
			return nil
		}
	}
}

// Close 关闭连接
func (t *Transport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		err = t.conn.Close()
	})
	return err
}
