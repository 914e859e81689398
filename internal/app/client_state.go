package app

import (
	"github.com/bujia-iot/card-sensor-client/internal/domain/card_protocol"
)

// ClientState 节点运行期共享状态
// 只由事件循环所在的单一控制流读写，不加锁
type ClientState struct {
	Card      card_protocol.CardID
	Room      card_protocol.RoomID
	Indicator card_protocol.IndicatorState
	roomSet   bool
}

// NewClientState 启动时默认无卡、指示灯熄灭、房间号空白
func NewClientState() *ClientState {
	return &ClientState{
		Card:      card_protocol.NoCard,
		Room:      card_protocol.BlankRoom,
		Indicator: card_protocol.IndicatorOff,
	}
}

// ApplyCardEvent 应用串口事件；Invalid 不修改任何状态
// 拔卡同时强制熄灭指示灯，返回指示灯是否被改写
func (s *ClientState) ApplyCardEvent(ev card_protocol.CardEvent) (indicatorChanged bool) {
	switch ev.Kind {
	case card_protocol.CardInserted:
		s.Card = ev.Card
	case card_protocol.CardRemoved:
		s.Card = card_protocol.NoCard
		indicatorChanged = s.Indicator != card_protocol.IndicatorOff
		s.Indicator = card_protocol.IndicatorOff
	}
	return indicatorChanged
}

// ApplyCommand 应用远程命令
func (s *ClientState) ApplyCommand(state card_protocol.IndicatorState) {
	s.Indicator = state
}

// SetRoom 房间号只允许设置一次
func (s *ClientState) SetRoom(room card_protocol.RoomID) bool {
	if s.roomSet {
		return false
	}
	s.Room = room
	s.roomSet = true
	return true
}

// RoomDerived 房间号是否已推导
func (s *ClientState) RoomDerived() bool {
	return s.roomSet
}
