package indicator

import (
	"fmt"
	"os"

	"github.com/bujia-iot/card-sensor-client/internal/domain/card_protocol"
	"github.com/bujia-iot/card-sensor-client/internal/infrastructure/config"
	"github.com/bujia-iot/card-sensor-client/internal/infrastructure/logger"
	"github.com/sirupsen/logrus"
)

// 驱动名称
const (
	DriverLog   = "log"
	DriverSysfs = "sysfs"
)

// Output 指示灯输出
type Output interface {
	Apply(state card_protocol.IndicatorState) error
}

// New 按配置创建指示灯输出
func New(cfg config.IndicatorConfig) (Output, error) {
	switch cfg.Driver {
	case "", DriverLog:
		return &LogOutput{}, nil
	case DriverSysfs:
		return NewSysfsOutput(cfg.GreenPath, cfg.BluePath), nil
	default:
		return nil, fmt.Errorf("unknown indicator driver: %s", cfg.Driver)
	}
}

// LogOutput 只记录电平，没有指示灯硬件时使用
type LogOutput struct{}

// Apply 记录绿灯、蓝灯电平
func (LogOutput) Apply(state card_protocol.IndicatorState) error {
	logger.WithFields(logrus.Fields{
		"state": state.String(),
		"green": state.Green(),
		"blue":  state.Blue(),
	}).Info("指示灯")
	return nil
}

// SysfsOutput 写 LED 类设备的 brightness 文件
type SysfsOutput struct {
	greenPath string
	bluePath  string
}

// NewSysfsOutput 创建 sysfs 指示灯输出
func NewSysfsOutput(greenPath, bluePath string) *SysfsOutput {
	return &SysfsOutput{greenPath: greenPath, bluePath: bluePath}
}

// Apply 两路分别写入 1/0；绿灯写失败时仍尝试蓝灯
func (s *SysfsOutput) Apply(state card_protocol.IndicatorState) error {
	greenErr := writeLevel(s.greenPath, state.Green())
	blueErr := writeLevel(s.bluePath, state.Blue())
	if greenErr != nil {
		return greenErr
	}
	return blueErr
}

func writeLevel(path string, on bool) error {
	level := []byte("0")
	if on {
		level = []byte("1")
	}
	if err := os.WriteFile(path, level, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
