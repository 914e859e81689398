package app

import (
	"testing"

	"github.com/bujia-iot/card-sensor-client/internal/domain/card_protocol"
	"github.com/stretchr/testify/assert"
)

func TestClientState_Defaults(t *testing.T) {
	s := NewClientState()
	assert.True(t, s.Card.IsNoCard())
	assert.True(t, s.Room.IsBlank())
	assert.Equal(t, card_protocol.IndicatorOff, s.Indicator)
	assert.False(t, s.RoomDerived())
}

func TestClientState_ApplyCardEvent(t *testing.T) {
	s := NewClientState()
	s.ApplyCommand(card_protocol.IndicatorEntryOK)

	changed := s.ApplyCardEvent(card_protocol.CardEvent{Kind: card_protocol.CardInserted, Card: cardOf("ABCDEFGH")})
	assert.False(t, changed)
	assert.Equal(t, "ABCDEFGH", s.Card.String())
	assert.Equal(t, card_protocol.IndicatorEntryOK, s.Indicator, "插卡不改变指示灯")

	changed = s.ApplyCardEvent(card_protocol.CardEvent{Kind: card_protocol.CardInvalid, Length: 5})
	assert.False(t, changed)
	assert.Equal(t, "ABCDEFGH", s.Card.String())

	changed = s.ApplyCardEvent(card_protocol.CardEvent{Kind: card_protocol.CardRemoved, Card: card_protocol.NoCard})
	assert.True(t, changed)
	assert.True(t, s.Card.IsNoCard())
	assert.Equal(t, card_protocol.IndicatorOff, s.Indicator)

	changed = s.ApplyCardEvent(card_protocol.CardEvent{Kind: card_protocol.CardRemoved, Card: card_protocol.NoCard})
	assert.False(t, changed)
}

func TestClientState_SetRoomOnce(t *testing.T) {
	s := NewClientState()
	assert.True(t, s.SetRoom(roomOf(t, 255)))
	assert.False(t, s.SetRoom(roomOf(t, 98)))
	assert.Equal(t, "255   ", s.Room.String())
	assert.True(t, s.RoomDerived())
}
