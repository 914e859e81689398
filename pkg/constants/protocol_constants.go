package constants

import "time"

// 刷卡上报协议常量定义
// 节点 -> 采集端：6字节房间号 + 8字节卡号，无包头、无分隔符、无长度前缀
// 采集端 -> 节点：首字节为命令字，其余字节忽略

// ============================================================================
// 协议基础常量
// ============================================================================

const (
	// 字段宽度（字节）
	CardIDSize = 8 // 卡号长度
	RoomIDSize = 6 // 房间号长度

	// 上报负载长度
	ReportPayloadSize = RoomIDSize + CardIDSize // 14字节
	MaxPayloadLen     = 30                      // 单个数据报最大负载

	// 串口行缓冲区
	SerialBufSize  = 128 // 行缓冲区容量
	LineTerminator = 10  // 行结束符 '\n'

	// 房间号推导
	RoomIDOffset = 98 // 地址末字节 + 98

	// 无卡标识
	NoCardPattern = "00000000"
)

// ============================================================================
// 远程命令字
// ============================================================================

const (
	CommandEntryOK     byte = '1' // 绿灯亮，蓝灯灭
	CommandExitPending byte = 'e' // 蓝灯亮，绿灯灭
	CommandOff         byte = '0' // 全部熄灭
)

// ============================================================================
// 默认配置
// ============================================================================

const (
	DefaultClientPort     = 8765
	DefaultServerEndpoint = "[aaaa::ff:fe00:1]:5678"

	DefaultReportPeriod  = 60 * time.Second // SEND_INTERVAL
	DefaultStartInterval = 15 * time.Second // 地址轮询间隔
	MaxReportPeriod      = 12 * time.Hour   // 时间轮最高一级为12小时

	DefaultSerialDevice = "/dev/ttyUSB0"
	DefaultBaudRate     = 115200

	DefaultHTTPPort     = 7055
	DefaultRedisChannel = "card-sensor:reports"

	// 时间格式
	TimeFormatDefault = "2006-01-02 15:04:05"
)
