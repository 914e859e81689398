package card_protocol

import (
	"github.com/bujia-iot/card-sensor-client/pkg/constants"
	"github.com/bujia-iot/card-sensor-client/pkg/errors"
)

// BuildPayload 组装上报负载：房间号紧接卡号，无分隔符、无长度前缀
// maxLen <= 0 时使用默认上限 MaxPayloadLen
func BuildPayload(room RoomID, card CardID, maxLen int) ([]byte, error) {
	if maxLen <= 0 {
		maxLen = constants.MaxPayloadLen
	}
	if constants.ReportPayloadSize > maxLen {
		return nil, errors.Newf(errors.ErrPayloadTooLarge,
			"上报负载 %d 字节超过上限 %d", constants.ReportPayloadSize, maxLen)
	}

	payload := make([]byte, 0, constants.ReportPayloadSize)
	payload = append(payload, room[:]...)
	payload = append(payload, card[:]...)
	return payload, nil
}
