package slackjson

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/custodia-labs/slack-archive/internal/core/domain"
	"github.com/custodia-labs/slack-archive/internal/logger"
)

// MessageType is the only envelope type accepted by DecodeMessage.
const MessageType = "message"

// Envelope is the discriminant pair of a message payload.
type Envelope struct {
	Type    string
	Subtype domain.MessageSubtype
}

// PeekEnvelope reads the type and subtype of raw without decoding the rest.
// Field order does not matter. A missing type is reported as "null".
func PeekEnvelope(raw []byte) (Envelope, error) {
	if !gjson.ValidBytes(raw) {
		return Envelope{}, fmt.Errorf("%w: malformed message payload", domain.ErrInvalidEnvelopeType)
	}
	if !gjson.ParseBytes(raw).IsObject() {
		return Envelope{}, fmt.Errorf("%w: message payload is not an object", domain.ErrInvalidEnvelopeType)
	}

	fields := gjson.GetManyBytes(raw, "type", "subtype")

	env := Envelope{Type: "null"}
	if fields[0].Exists() && fields[0].Type != gjson.Null {
		env.Type = fields[0].String()
	}
	if fields[1].Type == gjson.String {
		env.Subtype = domain.MessageSubtype(fields[1].Str)
	}
	return env, nil
}

type familyDecoder func(raw []byte) (domain.Message, error)

// families maps each payload family to its decoder. Families missing here,
// including FamilyUnrecognised, are skipped.
var families = map[domain.MessageFamily]familyDecoder{
	domain.FamilyText:         decodeText,
	domain.FamilyChannelEvent: decodeChannelEvent,
}

// DecodeMessage decodes one message payload.
//
// It returns domain.ErrInvalidEnvelopeType when the payload is not a
// message, and (nil, nil) when the subtype is not one we decode.
func DecodeMessage(raw []byte) (domain.Message, error) {
	env, err := PeekEnvelope(raw)
	if err != nil {
		return nil, err
	}
	if env.Type != MessageType {
		return nil, fmt.Errorf("%w: message type was not '%s', but was '%s'",
			domain.ErrInvalidEnvelopeType, MessageType, env.Type)
	}

	decode, ok := families[env.Subtype.Family()]
	if !ok {
		logger.Debug("Cannot process message subtype '%s', skipping", env.Subtype)
		return nil, nil
	}

	msg, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s message: %w", env.Subtype, err)
	}
	msg.SetSubtype(env.Subtype)
	return msg, nil
}

// timestamp accepts a Slack ts encoded as either a string or a number.
type timestamp string

func (t *timestamp) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = timestamp(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("ts: %w", err)
	}
	*t = timestamp(n.String())
	return nil
}

type textMessageJSON struct {
	TS       timestamp `json:"ts"`
	User     string    `json:"user"`
	Text     string    `json:"text"`
	ThreadTS timestamp `json:"thread_ts"`
	Files    []struct {
		ID string `json:"id"`
	} `json:"files"`
}

func decodeText(raw []byte) (domain.Message, error) {
	var m textMessageJSON
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}

	msg := &domain.TextMessage{
		MessageHeader: domain.MessageHeader{TS: string(m.TS)},
		User:          m.User,
		Text:          m.Text,
		ThreadTS:      string(m.ThreadTS),
	}
	for _, f := range m.Files {
		msg.FileIDs = append(msg.FileIDs, f.ID)
	}
	return msg, nil
}

type channelMessageJSON struct {
	TS      timestamp `json:"ts"`
	User    string    `json:"user"`
	Text    string    `json:"text"`
	Name    string    `json:"name"`
	OldName string    `json:"old_name"`
	Topic   string    `json:"topic"`
	Purpose string    `json:"purpose"`
}

func decodeChannelEvent(raw []byte) (domain.Message, error) {
	var m channelMessageJSON
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}

	return &domain.ChannelMessage{
		MessageHeader: domain.MessageHeader{TS: string(m.TS)},
		User:          m.User,
		Text:          m.Text,
		Name:          m.Name,
		OldName:       m.OldName,
		Topic:         m.Topic,
		Purpose:       m.Purpose,
	}, nil
}
