package card_protocol

import (
	"bytes"
	"time"

	"github.com/bujia-iot/card-sensor-client/pkg/constants"
)

// CardID 定长8字节卡号
type CardID [constants.CardIDSize]byte

// NoCard 全零卡号，表示当前无卡
var NoCard = func() CardID {
	var id CardID
	copy(id[:], constants.NoCardPattern)
	return id
}()

// ParseCardID 从定长字节构造卡号，长度不是8时返回false
func ParseCardID(b []byte) (CardID, bool) {
	var id CardID
	if len(b) != constants.CardIDSize {
		return id, false
	}
	copy(id[:], b)
	return id, true
}

// IsNoCard 是否为无卡标识
func (c CardID) IsNoCard() bool {
	return bytes.Equal(c[:], NoCard[:])
}

func (c CardID) String() string {
	return string(c[:])
}

// RoomID 定长6字节房间号：数字左对齐，剩余位置补空格
type RoomID [constants.RoomIDSize]byte

// BlankRoom 未推导的房间号（全空格）
var BlankRoom = RoomID{' ', ' ', ' ', ' ', ' ', ' '}

// IsBlank 是否全为空格
func (r RoomID) IsBlank() bool {
	return r == BlankRoom
}

func (r RoomID) String() string {
	return string(r[:])
}

// IndicatorState 指示灯状态
type IndicatorState uint8

const (
	IndicatorOff         IndicatorState = iota // 绿灯、蓝灯全灭
	IndicatorEntryOK                           // 绿灯亮，蓝灯灭
	IndicatorExitPending                       // 蓝灯亮，绿灯灭
)

// Green 绿灯电平
func (s IndicatorState) Green() bool {
	return s == IndicatorEntryOK
}

// Blue 蓝灯电平
func (s IndicatorState) Blue() bool {
	return s == IndicatorExitPending
}

func (s IndicatorState) String() string {
	switch s {
	case IndicatorOff:
		return "OFF"
	case IndicatorEntryOK:
		return "ENTRY_OK"
	case IndicatorExitPending:
		return "EXIT_PENDING"
	default:
		return "UNKNOWN"
	}
}

// CardEventKind 刷卡事件类型
type CardEventKind uint8

const (
	CardInserted CardEventKind = iota + 1 // 插卡
	CardRemoved                           // 拔卡
	CardInvalid                           // 行长度不符
)

func (k CardEventKind) String() string {
	switch k {
	case CardInserted:
		return "inserted"
	case CardRemoved:
		return "removed"
	case CardInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// CardEvent 一行串口输入的解析结果
type CardEvent struct {
	Kind   CardEventKind
	Card   CardID // Inserted 时为新卡号，Removed 时为 NoCard
	Length int    // Invalid 时为实际行长度
}

// TriggersSend 插卡与拔卡需要立即上报
func (e CardEvent) TriggersSend() bool {
	return e.Kind == CardInserted || e.Kind == CardRemoved
}

// Report 一次已交给传输层的上报记录（诊断用途，不上网）
type Report struct {
	Room RoomID
	Card CardID
	Seq  uint32
	At   time.Time
}
