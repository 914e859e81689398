package card_protocol

import "github.com/bujia-iot/card-sensor-client/pkg/constants"

// DecodeCommand 解析远程命令数据报
// 只看首字节：'1' 入场确认，'e' 待离场，'0' 熄灭；空负载或其他字节返回 false
func DecodeCommand(data []byte) (IndicatorState, bool) {
	if len(data) == 0 {
		return IndicatorOff, false
	}

	switch data[0] {
	case constants.CommandEntryOK:
		return IndicatorEntryOK, true
	case constants.CommandExitPending:
		return IndicatorExitPending, true
	case constants.CommandOff:
		return IndicatorOff, true
	default:
		return IndicatorOff, false
	}
}
