package serial_port

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bujia-iot/card-sensor-client/internal/infrastructure/config"
	"github.com/bujia-iot/card-sensor-client/internal/infrastructure/logger"
	apperrors "github.com/bujia-iot/card-sensor-client/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

// 读超时，决定 ctx 取消后多久退出
const readTimeout = 500 * time.Millisecond

const chunkSize = 64

// Port Reader 用到的串口能力，serial.Port 满足该接口
type Port interface {
	Read(p []byte) (int, error)
	SetReadTimeout(t time.Duration) error
	Close() error
}

// Opener 打开串口
type Opener func(device string, mode *serial.Mode) (Port, error)

// OpenSerial 使用 go.bug.st/serial 打开真实串口
func OpenSerial(device string, mode *serial.Mode) (Port, error) {
	return serial.Open(device, mode)
}

// Reader 读卡器串口字节源，8N1
type Reader struct {
	device    string
	port      Port
	closeOnce sync.Once
}

// Open 按配置打开串口
func Open(cfg config.SerialConfig, opener Opener) (*Reader, error) {
	if opener == nil {
		opener = OpenSerial
	}
	port, err := opener(cfg.Device, &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrSerialUnavailable, "打开串口失败", err)
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		_ = port.Close()
		return nil, apperrors.Wrap(apperrors.ErrSerialUnavailable, "设置串口读超时失败", err)
	}

	logger.WithFields(logrus.Fields{
		"device":   cfg.Device,
		"baudRate": cfg.BaudRate,
	}).Info("串口已打开")
	return &Reader{device: cfg.Device, port: port}, nil
}

// ReadLoop 把串口读到的字节块投递到 out，ctx 取消或设备断开时返回
// 超时返回 0 字节，不视为错误
func (r *Reader) ReadLoop(ctx context.Context, out chan<- []byte) error {
	buf := make([]byte, chunkSize)
	for {
		if ctx.Err() != nil {
			return nil
		}

		n, err := r.port.Read(buf)
		if err != nil {
			if ctx.Err() != nil || isClosed(err) {
				return nil
			}
			logger.WithError(err).WithField("device", r.device).Error("串口读取失败")
			return apperrors.Wrap(apperrors.ErrSerialUnavailable, "串口读取失败", err)
		}
		if n == 0 {
			continue
		}

		chunk := make([]byte, n)
		copy(chunk, buf[:n])
		select {
		case out <- chunk:
		case <-ctx.Done():
			return nil
		}
	}
}

// Close 关闭串口
func (r *Reader) Close() error {
	var err error
	r.closeOnce.Do(func() {
		err = r.port.Close()
	})
	return err
}

func isClosed(err error) bool {
	var portErr *serial.PortError
	if errors.As(err, &portErr) {
		return portErr.Code() == serial.PortClosed
	}
	var valueErr serial.PortError
	if errors.As(err, &valueErr) {
		return valueErr.Code() == serial.PortClosed
	}
	return false
}
