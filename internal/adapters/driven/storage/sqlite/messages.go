package sqlite

import (
	"encoding/json"
	"fmt"

	"github.com/custodia-labs/slack-archive/internal/core/domain"
)

// Message kinds stored in the kind column.
const (
	kindText    = "text"
	kindChannel = "channel"
)

type textPayload struct {
	User     string   `json:"user,omitempty"`
	Text     string   `json:"text,omitempty"`
	ThreadTS string   `json:"thread_ts,omitempty"`
	FileIDs  []string `json:"file_ids,omitempty"`
}

type channelPayload struct {
	User    string `json:"user,omitempty"`
	Text    string `json:"text,omitempty"`
	Name    string `json:"name,omitempty"`
	OldName string `json:"old_name,omitempty"`
	Topic   string `json:"topic,omitempty"`
	Purpose string `json:"purpose,omitempty"`
}

// encodeMessage returns the kind and JSON payload of a message variant.
func encodeMessage(m domain.Message) (string, string, error) {
	var (
		kind string
		v    any
	)
	switch msg := m.(type) {
	case *domain.TextMessage:
		kind = kindText
		v = textPayload{User: msg.User, Text: msg.Text, ThreadTS: msg.ThreadTS, FileIDs: msg.FileIDs}
	case *domain.ChannelMessage:
		kind = kindChannel
		v = channelPayload{
			User:    msg.User,
			Text:    msg.Text,
			Name:    msg.Name,
			OldName: msg.OldName,
			Topic:   msg.Topic,
			Purpose: msg.Purpose,
		}
	default:
		return "", "", fmt.Errorf("%w: message type %T", domain.ErrInvalidInput, m)
	}

	b, err := json.Marshal(v)
	if err != nil {
		return "", "", fmt.Errorf("encoding message %s: %w", m.Timestamp(), err)
	}
	return kind, string(b), nil
}

// decodeMessage rebuilds a message variant from its stored form.
// The caller sets the subtype.
func decodeMessage(ts, kind, payload string) (domain.Message, error) {
	switch kind {
	case kindText:
		var p textPayload
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			return nil, fmt.Errorf("decoding message %s: %w", ts, err)
		}
		return &domain.TextMessage{
			MessageHeader: domain.MessageHeader{TS: ts},
			User:          p.User,
			Text:          p.Text,
			ThreadTS:      p.ThreadTS,
			FileIDs:       p.FileIDs,
		}, nil
	case kindChannel:
		var p channelPayload
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			return nil, fmt.Errorf("decoding message %s: %w", ts, err)
		}
		return &domain.ChannelMessage{
			MessageHeader: domain.MessageHeader{TS: ts},
			User:          p.User,
			Text:          p.Text,
			Name:          p.Name,
			OldName:       p.OldName,
			Topic:         p.Topic,
			Purpose:       p.Purpose,
		}, nil
	default:
		return nil, fmt.Errorf("message %s has unknown kind %q", ts, kind)
	}
}
