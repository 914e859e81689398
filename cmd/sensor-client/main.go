package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bujia-iot/card-sensor-client/internal/apis"
	"github.com/bujia-iot/card-sensor-client/internal/app"
	"github.com/bujia-iot/card-sensor-client/internal/infrastructure/config"
	"github.com/bujia-iot/card-sensor-client/internal/infrastructure/indicator"
	"github.com/bujia-iot/card-sensor-client/internal/infrastructure/logger"
	"github.com/bujia-iot/card-sensor-client/internal/infrastructure/redis"
	"github.com/bujia-iot/card-sensor-client/internal/infrastructure/serial_port"
	"github.com/bujia-iot/card-sensor-client/internal/infrastructure/timer"
	"github.com/bujia-iot/card-sensor-client/internal/infrastructure/udp_transport"
	"github.com/bujia-iot/card-sensor-client/pkg/metrics"
	"github.com/bujia-iot/card-sensor-client/pkg/network"
	"github.com/google/uuid"
)

var configFile = flag.String("config", "configs/sensor-client.yaml", "配置文件路径")

func main() {
	// 解析命令行参数
	flag.Parse()

	// 加载配置文件
	if err := config.Load(*configFile); err != nil {
		fmt.Printf("加载配置文件失败: %v\n", err)
		os.Exit(1)
	}
	cfg := config.GetConfig()
	if err := config.Validate(cfg); err != nil {
		fmt.Printf("配置校验失败: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	if err := logger.Init(&cfg.Logger); err != nil {
		fmt.Printf("初始化日志系统失败: %v\n", err)
		os.Exit(1)
	}
	os.Exit(run(cfg))
}

func run(cfg *config.Config) int {
	defer logger.Close()

	session := uuid.New().String()
	reportMetrics := metrics.New()
	services := app.NewServiceManager()
	defer func() {
		if err := services.Shutdown(); err != nil {
			logger.Errorf("关闭服务失败: %v", err)
		}
	}()

	logger.WithField("session", session).Info("刷卡节点客户端启动中...")

	// 传输层不可用时不能继续运行
	transport, err := udp_transport.Open(cfg.Report)
	if err != nil {
		logger.Errorf("初始化UDP传输失败: %v", err)
		return 1
	}
	services.Register("udp_transport", transport.Close)

	timers := timer.NewZinxTimers(16)
	services.Register("timer", func() error {
		timers.Close()
		return nil
	})

	indicatorOut, err := indicator.New(cfg.Indicator)
	if err != nil {
		logger.Errorf("初始化指示灯失败: %v", err)
		return 1
	}

	prefix, err := cfg.Room.PrefixNet()
	if err != nil {
		logger.Errorf("解析地址前缀失败: %v", err)
		return 1
	}

	// Redis 镜像失败不影响上报
	var mirror app.ReportMirror
	if cfg.Redis.Enabled {
		client, err := redis.NewClient(cfg.Redis)
		if err != nil {
			logger.Warnf("初始化Redis连接失败，上报镜像已禁用: %v", err)
		} else {
			reportMirror := redis.NewReportMirror(client, cfg.Redis.Channel, session, reportMetrics)
			services.Register("redis_mirror", reportMirror.Close)
			mirror = reportMirror
		}
	}

	client, err := app.NewSensorClient(app.Options{
		Session:       session,
		Interval:      cfg.Report.Period,
		MaxPayloadLen: cfg.Report.MaxPayloadLen,
		RoomOffset:    cfg.Room.Offset,
		PollInterval:  cfg.Room.PollInterval,
		AddressFilter: network.AddressFilter{Prefix: prefix, IPv6Only: cfg.Room.IPv6Only},
		Addresses: func() ([]net.Addr, error) {
			return network.InterfaceAddrs(cfg.Room.Interface)
		},
		Transport:  transport,
		Timers:     timers,
		Indicator:  indicatorOut,
		Mirror:     mirror,
		Metrics:    reportMetrics,
		Jitter:     app.BoundedJitter(timer.Resolution),
		LogHexDump: cfg.Logger.LogHexDump,
	})
	if err != nil {
		logger.Errorf("创建客户端失败: %v", err)
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	datagrams := make(chan []byte, 16)
	go func() {
		if err := transport.ReadLoop(ctx, datagrams); err != nil {
			logger.Errorf("UDP接收循环退出: %v", err)
		}
	}()

	var serialIn chan []byte
	if cfg.Serial.Enabled {
		reader, err := serial_port.Open(cfg.Serial, nil)
		if err != nil {
			logger.Errorf("初始化串口失败: %v", err)
			return 1
		}
		services.Register("serial_port", reader.Close)

		serialIn = make(chan []byte, 16)
		go func() {
			if err := reader.ReadLoop(ctx, serialIn); err != nil {
				logger.Errorf("串口读取循环退出: %v", err)
			}
		}()
	}

	if cfg.HTTPAPIServer.Enabled {
		server := apis.NewStatusServer(cfg.FormatHTTPAddress(), client)
		services.Register("http_server", func() error {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer stopCancel()
			return server.Stop(stopCtx)
		})
		go func() {
			if err := server.Start(); err != nil {
				logger.Errorf("启动诊断HTTP服务失败: %v", err)
			}
		}()
	}

	if err := client.Run(ctx, serialIn, datagrams); err != nil {
		logger.Errorf("客户端异常退出: %v", err)
		return 1
	}

	logger.Info("刷卡节点客户端已安全关闭")
	return 0
}
