package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageSubtype_Family(t *testing.T) {
	tests := []struct {
		subtype MessageSubtype
		want    MessageFamily
	}{
		{SubtypeStandard, FamilyText},
		{SubtypeChannelJoin, FamilyChannelEvent},
		{SubtypeChannelTopic, FamilyChannelEvent},
		{SubtypeGroupLeave, FamilyChannelEvent},
		{"bot_message", FamilyUnrecognised},
		{"some_unlisted_subtype", FamilyUnrecognised},
	}

	for _, tt := range tests {
		t.Run(tt.subtype.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.subtype.Family())
		})
	}
}

func TestMessageSubtype_String(t *testing.T) {
	assert.Equal(t, "standard", SubtypeStandard.String())
	assert.Equal(t, "channel_join", SubtypeChannelJoin.String())
}

func TestMessageHeader_SetSubtype(t *testing.T) {
	msg := &ChannelMessage{MessageHeader: MessageHeader{TS: "1.0"}}
	msg.SetSubtype(SubtypeChannelJoin)

	var m Message = msg
	assert.Equal(t, SubtypeChannelJoin, m.Subtype())
	assert.Equal(t, "1.0", m.Timestamp())
}

func TestCompareTimestamps(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1355517523.000005", "1355517523.000005", 0},
		{"1355517523.000005", "1355517523.000006", -1},
		{"1355517524.000000", "1355517523.999999", 1},
		{"999.5", "1000.0", -1},
		{"1.5", "1.500000", 0},
		{"1", "1.000001", -1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, CompareTimestamps(tt.a, tt.b))
		})
	}
}

func TestSortMessages(t *testing.T) {
	messages := []Message{
		&TextMessage{MessageHeader: MessageHeader{TS: "3.000001"}},
		&ChannelMessage{MessageHeader: MessageHeader{TS: "1.000000"}},
		&TextMessage{MessageHeader: MessageHeader{TS: "2.500000"}},
	}

	SortMessages(messages)

	assert.Equal(t, "1.000000", messages[0].Timestamp())
	assert.Equal(t, "2.500000", messages[1].Timestamp())
	assert.Equal(t, "3.000001", messages[2].Timestamp())
}

func TestParseTimestamp(t *testing.T) {
	ts, err := ParseTimestamp("1355517523.000005")
	require.NoError(t, err)
	assert.Equal(t, int64(1355517523), ts.Unix())
	assert.Equal(t, 5000, ts.Nanosecond())

	ts, err = ParseTimestamp("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), ts.Unix())

	_, err = ParseTimestamp("abc.1")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = ParseTimestamp("1.x")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
