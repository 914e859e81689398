package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/bujia-iot/card-sensor-client/pkg/constants"
	"github.com/spf13/viper"
)

// Config 是应用程序配置的结构体
type Config struct {
	Report        ReportConfig        `mapstructure:"report"`
	Room          RoomConfig          `mapstructure:"room"`
	Serial        SerialConfig        `mapstructure:"serial"`
	Indicator     IndicatorConfig     `mapstructure:"indicator"`
	Logger        LoggerConfig        `mapstructure:"logger"`
	HTTPAPIServer HTTPAPIServerConfig `mapstructure:"httpApiServer"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

// ReportConfig 上报配置
type ReportConfig struct {
	Period         time.Duration `mapstructure:"period"`         // 上报周期 SEND_INTERVAL
	ServerEndpoint string        `mapstructure:"serverEndpoint"` // 采集端地址+端口
	ClientPort     int           `mapstructure:"clientPort"`     // 本地绑定端口
	MaxPayloadLen  int           `mapstructure:"maxPayloadLen"`  // 单个数据报最大负载
}

// RoomConfig 房间号推导配置
type RoomConfig struct {
	Offset       int           `mapstructure:"offset"`       // 地址末字节偏移
	Interface    string        `mapstructure:"interface"`    // 为空时枚举全部接口
	Prefix       string        `mapstructure:"prefix"`       // 地址必须落在的前缀，如 aaaa::/64
	IPv6Only     bool          `mapstructure:"ipv6Only"`     // 只接受IPv6地址
	PollInterval time.Duration `mapstructure:"pollInterval"` // 等待全局地址的轮询间隔
}

// SerialConfig 串口配置
type SerialConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Device   string `mapstructure:"device"`
	BaudRate int    `mapstructure:"baudRate"`
}

// IndicatorConfig 指示灯配置
type IndicatorConfig struct {
	Driver    string `mapstructure:"driver"`    // log | sysfs
	GreenPath string `mapstructure:"greenPath"` // sysfs brightness 文件
	BluePath  string `mapstructure:"bluePath"`
}

// LoggerConfig 日志配置
type LoggerConfig struct {
	Level         string `mapstructure:"level"`
	Format        string `mapstructure:"format"`
	EnableConsole bool   `mapstructure:"enableConsole"`
	EnableFile    bool   `mapstructure:"enableFile"`
	FileDir       string `mapstructure:"fileDir"`
	FilePrefix    string `mapstructure:"filePrefix"`
	MaxSizeMB     int    `mapstructure:"maxSizeMB"`
	MaxBackups    int    `mapstructure:"maxBackups"`
	MaxAgeDays    int    `mapstructure:"maxAgeDays"`
	Compress      bool   `mapstructure:"compress"`
	LogHexDump    bool   `mapstructure:"logHexDump"`
}

// HTTPAPIServerConfig 诊断HTTP服务配置
type HTTPAPIServerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
}

// RedisConfig 上报镜像配置
type RedisConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Address     string `mapstructure:"address"`
	Password    string `mapstructure:"password"`
	DB          int    `mapstructure:"db"`
	Channel     string `mapstructure:"channel"`
	DialTimeout int    `mapstructure:"dialTimeout"` // 秒
}

// 全局配置实例
var GlobalConfig Config

// Load 加载配置文件；configPath 为空时只使用默认值和环境变量
func Load(configPath string) error {
	cfg, err := Read(configPath)
	if err != nil {
		return err
	}
	GlobalConfig = *cfg
	return nil
}

// Read 读取并校验配置，不修改全局实例
func Read(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SENSOR")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// GetConfig 获取全局配置
func GetConfig() *Config {
	return &GlobalConfig
}

// FormatHTTPAddress 格式化HTTP服务器地址为host:port格式
func (c *Config) FormatHTTPAddress() string {
	return net.JoinHostPort(c.HTTPAPIServer.Host, fmt.Sprintf("%d", c.HTTPAPIServer.Port))
}

// PrefixNet 解析房间号地址前缀，未配置时返回nil
func (c *RoomConfig) PrefixNet() (*net.IPNet, error) {
	if c.Prefix == "" {
		return nil, nil
	}
	_, n, err := net.ParseCIDR(c.Prefix)
	return n, err
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("report.period", constants.DefaultReportPeriod)
	v.SetDefault("report.serverEndpoint", constants.DefaultServerEndpoint)
	v.SetDefault("report.clientPort", constants.DefaultClientPort)
	v.SetDefault("report.maxPayloadLen", constants.MaxPayloadLen)

	v.SetDefault("room.offset", constants.RoomIDOffset)
	v.SetDefault("room.ipv6Only", true)
	v.SetDefault("room.pollInterval", constants.DefaultStartInterval)
	v.SetDefault("room.interface", "")
	v.SetDefault("room.prefix", "")

	v.SetDefault("serial.enabled", true)
	v.SetDefault("serial.device", constants.DefaultSerialDevice)
	v.SetDefault("serial.baudRate", constants.DefaultBaudRate)

	v.SetDefault("indicator.driver", "log")
	v.SetDefault("indicator.greenPath", "")
	v.SetDefault("indicator.bluePath", "")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "text")
	v.SetDefault("logger.enableConsole", true)
	v.SetDefault("logger.enableFile", false)
	v.SetDefault("logger.compress", false)
	v.SetDefault("logger.logHexDump", false)
	v.SetDefault("logger.fileDir", "./logs")
	v.SetDefault("logger.filePrefix", "sensor-client")
	v.SetDefault("logger.maxSizeMB", 10)
	v.SetDefault("logger.maxBackups", 5)
	v.SetDefault("logger.maxAgeDays", 7)

	v.SetDefault("httpApiServer.enabled", false)
	v.SetDefault("httpApiServer.host", "127.0.0.1")
	v.SetDefault("httpApiServer.port", constants.DefaultHTTPPort)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.channel", constants.DefaultRedisChannel)
	v.SetDefault("redis.dialTimeout", 5)
}
