package config

import (
	"fmt"
	"net"

	"github.com/bujia-iot/card-sensor-client/pkg/constants"
)

// Validate 只做声明式校验，不修改配置
func Validate(cfg *Config) error {
	r := cfg.Report
	if r.Period <= 0 {
		return fmt.Errorf("report.period must be > 0, got %s", r.Period)
	}
	if r.Period >= constants.MaxReportPeriod {
		return fmt.Errorf("report.period must be < %s, got %s", constants.MaxReportPeriod, r.Period)
	}
	if r.ServerEndpoint == "" {
		return fmt.Errorf("report.serverEndpoint is required")
	}
	if _, _, err := net.SplitHostPort(r.ServerEndpoint); err != nil {
		return fmt.Errorf("report.serverEndpoint %q: %w", r.ServerEndpoint, err)
	}
	if r.ClientPort < 0 || r.ClientPort > 65535 {
		return fmt.Errorf("report.clientPort %d out of range [0, 65535]", r.ClientPort)
	}
	if r.MaxPayloadLen < constants.ReportPayloadSize {
		return fmt.Errorf("report.maxPayloadLen %d smaller than report size %d",
			r.MaxPayloadLen, constants.ReportPayloadSize)
	}

	if cfg.Room.Offset < 0 {
		return fmt.Errorf("room.offset must be >= 0, got %d", cfg.Room.Offset)
	}
	if cfg.Room.PollInterval <= 0 {
		return fmt.Errorf("room.pollInterval must be > 0, got %s", cfg.Room.PollInterval)
	}
	if _, err := cfg.Room.PrefixNet(); err != nil {
		return fmt.Errorf("room.prefix %q: %w", cfg.Room.Prefix, err)
	}

	if cfg.Serial.Enabled {
		if cfg.Serial.Device == "" {
			return fmt.Errorf("serial.device is required when serial is enabled")
		}
		if cfg.Serial.BaudRate <= 0 {
			return fmt.Errorf("serial.baudRate must be > 0, got %d", cfg.Serial.BaudRate)
		}
	}

	switch cfg.Indicator.Driver {
	case "log":
	case "sysfs":
		if cfg.Indicator.GreenPath == "" || cfg.Indicator.BluePath == "" {
			return fmt.Errorf("indicator.greenPath and indicator.bluePath are required for sysfs driver")
		}
	default:
		return fmt.Errorf("indicator.driver %q not supported (log, sysfs)", cfg.Indicator.Driver)
	}

	if cfg.HTTPAPIServer.Enabled && (cfg.HTTPAPIServer.Port <= 0 || cfg.HTTPAPIServer.Port > 65535) {
		return fmt.Errorf("httpApiServer.port %d out of range", cfg.HTTPAPIServer.Port)
	}

	if cfg.Redis.Enabled && cfg.Redis.Address == "" {
		return fmt.Errorf("redis.address is required when redis mirror is enabled")
	}

	return nil
}
