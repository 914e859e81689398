package card_protocol

import (
	"bytes"

	"github.com/bujia-iot/card-sensor-client/pkg/constants"
	"github.com/bujia-iot/card-sensor-client/pkg/errors"
)

// ErrLineOverflow 行超出缓冲区容量，当前行直到行结束符都被丢弃
var ErrLineOverflow = errors.New(errors.ErrLineOverflow, "串口行超出缓冲区容量")

// LineAssembler 串口行组装器
// 逐字节累积到定长缓冲区，遇到行结束符后分类并产生 CardEvent
type LineAssembler struct {
	buf        [constants.SerialBufSize]byte
	cursor     int
	discarding bool // 溢出后丢弃到下一个行结束符
}

// NewLineAssembler 创建行组装器
func NewLineAssembler() *LineAssembler {
	return &LineAssembler{}
}

// Pending 当前未完成行的字节数
func (a *LineAssembler) Pending() int {
	return a.cursor
}

// Feed 输入一个字节
// 返回 nil 表示本字节未结束一行；缓冲区溢出时返回 ErrLineOverflow，
// 该行剩余字节连同行结束符一并丢弃，不产生事件
func (a *LineAssembler) Feed(b byte) (*CardEvent, error) {
	if a.discarding {
		if b == constants.LineTerminator {
			a.discarding = false
		}
		return nil, nil
	}

	if b != constants.LineTerminator {
		if a.cursor >= len(a.buf) {
			a.cursor = 0
			a.discarding = true
			return nil, ErrLineOverflow
		}
		a.buf[a.cursor] = b
		a.cursor++
		return nil, nil
	}

	// 连续的行结束符
	if a.cursor == 0 {
		return nil, nil
	}

	line := a.buf[:a.cursor]
	ev := classify(line)
	a.cursor = 0
	return &ev, nil
}

func classify(line []byte) CardEvent {
	if len(line) != constants.CardIDSize {
		return CardEvent{Kind: CardInvalid, Length: len(line)}
	}
	if bytes.Equal(line, NoCard[:]) {
		return CardEvent{Kind: CardRemoved, Card: NoCard, Length: len(line)}
	}
	id, _ := ParseCardID(line)
	return CardEvent{Kind: CardInserted, Card: id, Length: len(line)}
}
