package card_protocol

import (
	"strconv"

	"github.com/bujia-iot/card-sensor-client/pkg/constants"
	"github.com/bujia-iot/card-sensor-client/pkg/errors"
)

// DeriveRoomID 由全局地址末字节推导房间号：末字节 + 98
func DeriveRoomID(lastOctet uint8) (RoomID, error) {
	return DeriveRoomIDWithOffset(lastOctet, constants.RoomIDOffset)
}

// DeriveRoomIDWithOffset 使用自定义偏移推导房间号
// 按普通整数相加，不做模256回绕
func DeriveRoomIDWithOffset(lastOctet uint8, offset int) (RoomID, error) {
	return FormatRoomID(int(lastOctet) + offset)
}

// FormatRoomID 十进制左对齐并以空格补齐到6位
// 0 渲染为 "0     "；超过6位数字时返回 ErrRoomIDOverflow，不截断
func FormatRoomID(value int) (RoomID, error) {
	room := BlankRoom
	if value < 0 {
		return room, errors.Newf(errors.ErrInvalidParameter, "房间号数值不能为负: %d", value)
	}

	digits := strconv.Itoa(value)
	if len(digits) > constants.RoomIDSize {
		return room, errors.Newf(errors.ErrRoomIDOverflow, "房间号 %s 超过%d位", digits, constants.RoomIDSize)
	}

	copy(room[:], digits)
	return room, nil
}
