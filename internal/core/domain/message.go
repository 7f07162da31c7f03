package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// MessageSubtype is the "subtype" discriminant of a message payload.
// Standard messages carry no subtype.
type MessageSubtype string

// Recognised message subtypes.
const (
	SubtypeStandard MessageSubtype = ""

	SubtypeChannelJoin      MessageSubtype = "channel_join"
	SubtypeChannelLeave     MessageSubtype = "channel_leave"
	SubtypeChannelTopic     MessageSubtype = "channel_topic"
	SubtypeChannelPurpose   MessageSubtype = "channel_purpose"
	SubtypeChannelName      MessageSubtype = "channel_name"
	SubtypeChannelArchive   MessageSubtype = "channel_archive"
	SubtypeChannelUnarchive MessageSubtype = "channel_unarchive"

	SubtypeGroupJoin      MessageSubtype = "group_join"
	SubtypeGroupLeave     MessageSubtype = "group_leave"
	SubtypeGroupTopic     MessageSubtype = "group_topic"
	SubtypeGroupPurpose   MessageSubtype = "group_purpose"
	SubtypeGroupName      MessageSubtype = "group_name"
	SubtypeGroupArchive   MessageSubtype = "group_archive"
	SubtypeGroupUnarchive MessageSubtype = "group_unarchive"
)

// MessageFamily groups subtypes that share one payload shape.
type MessageFamily int

const (
	// FamilyUnrecognised marks subtypes we do not decode.
	FamilyUnrecognised MessageFamily = iota
	// FamilyText is the standard user text message.
	FamilyText
	// FamilyChannelEvent covers join, leave, topic, rename and archive events.
	FamilyChannelEvent
)

var subtypeFamilies = map[MessageSubtype]MessageFamily{
	SubtypeStandard: FamilyText,

	SubtypeChannelJoin:      FamilyChannelEvent,
	SubtypeChannelLeave:     FamilyChannelEvent,
	SubtypeChannelTopic:     FamilyChannelEvent,
	SubtypeChannelPurpose:   FamilyChannelEvent,
	SubtypeChannelName:      FamilyChannelEvent,
	SubtypeChannelArchive:   FamilyChannelEvent,
	SubtypeChannelUnarchive: FamilyChannelEvent,

	SubtypeGroupJoin:      FamilyChannelEvent,
	SubtypeGroupLeave:     FamilyChannelEvent,
	SubtypeGroupTopic:     FamilyChannelEvent,
	SubtypeGroupPurpose:   FamilyChannelEvent,
	SubtypeGroupName:      FamilyChannelEvent,
	SubtypeGroupArchive:   FamilyChannelEvent,
	SubtypeGroupUnarchive: FamilyChannelEvent,
}

// Family returns the payload family of the subtype.
func (s MessageSubtype) Family() MessageFamily {
	return subtypeFamilies[s]
}

// String returns the subtype name, "standard" for plain messages.
func (s MessageSubtype) String() string {
	if s == SubtypeStandard {
		return "standard"
	}
	return string(s)
}

// Message is a decoded message variant.
// The concrete types are TextMessage and ChannelMessage.
type Message interface {
	// Timestamp returns the message ts, which is also its ID within a conversation.
	Timestamp() string

	// Subtype returns the resolved subtype.
	Subtype() MessageSubtype

	// SetSubtype attaches the resolved subtype after decoding.
	SetSubtype(MessageSubtype)
}

// MessageHeader holds the fields every message variant shares.
type MessageHeader struct {
	TS      string
	subtype MessageSubtype
}

// Timestamp implements Message.
func (h *MessageHeader) Timestamp() string { return h.TS }

// Subtype implements Message.
func (h *MessageHeader) Subtype() MessageSubtype { return h.subtype }

// SetSubtype implements Message.
func (h *MessageHeader) SetSubtype(s MessageSubtype) { h.subtype = s }

// TextMessage is a standard message posted by a user.
type TextMessage struct {
	MessageHeader

	User     string
	Text     string
	ThreadTS string
	FileIDs  []string
}

// ChannelMessage is a channel or group event such as a join or topic change.
type ChannelMessage struct {
	MessageHeader

	User    string
	Text    string
	Name    string
	OldName string
	Topic   string
	Purpose string
}

var (
	_ Message = (*TextMessage)(nil)
	_ Message = (*ChannelMessage)(nil)
)

// CompareTimestamps orders two Slack timestamps ("1355517523.000005").
// It avoids float parsing so microsecond precision is kept.
func CompareTimestamps(a, b string) int {
	aSec, aFrac, _ := strings.Cut(a, ".")
	bSec, bFrac, _ := strings.Cut(b, ".")

	if c := compareDigits(aSec, bSec); c != 0 {
		return c
	}
	// Right-pad fractions so "1.5" and "1.500000" compare equal.
	for len(aFrac) < len(bFrac) {
		aFrac += "0"
	}
	for len(bFrac) < len(aFrac) {
		bFrac += "0"
	}
	return strings.Compare(aFrac, bFrac)
}

func compareDigits(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

// SortMessages orders messages by timestamp, oldest first.
func SortMessages(messages []Message) {
	sort.SliceStable(messages, func(i, j int) bool {
		return CompareTimestamps(messages[i].Timestamp(), messages[j].Timestamp()) < 0
	})
}

// ParseTimestamp converts a Slack timestamp to a time with microsecond precision.
func ParseTimestamp(ts string) (time.Time, error) {
	secPart, fracPart, _ := strings.Cut(ts, ".")
	sec, err := strconv.ParseInt(secPart, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: timestamp %q", ErrInvalidInput, ts)
	}
	if len(fracPart) > 9 {
		fracPart = fracPart[:9]
	}
	var nsec int64
	if fracPart != "" {
		nsec, err = strconv.ParseInt(fracPart+strings.Repeat("0", 9-len(fracPart)), 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: timestamp %q", ErrInvalidInput, ts)
		}
	}
	return time.Unix(sec, nsec).UTC(), nil
}
