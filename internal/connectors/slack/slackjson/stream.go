package slackjson

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/custodia-labs/slack-archive/internal/core/domain"
)

// Stream decodes a JSON array of messages one element at a time.
type Stream struct {
	dec     *json.Decoder
	started bool
}

// NewStream creates a Stream reading a JSON array from r.
func NewStream(r io.Reader) *Stream {
	return &Stream{dec: json.NewDecoder(r)}
}

// More reports whether another element remains in the array.
// It consumes the opening bracket on first use.
func (s *Stream) More() (bool, error) {
	if !s.started {
		if err := s.expectDelim('['); err != nil {
			return false, err
		}
		s.started = true
	}
	if s.dec.More() {
		return true, nil
	}
	return false, s.expectDelim(']')
}

// Next decodes the next element. The element is always consumed in full,
// so after a skipped subtype (nil, nil) the stream is at the next sibling.
func (s *Stream) Next() (domain.Message, error) {
	var raw json.RawMessage
	if err := s.dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("read message: %w", err)
	}
	return DecodeMessage(raw)
}

func (s *Stream) expectDelim(want json.Delim) error {
	tok, err := s.dec.Token()
	if err != nil {
		return fmt.Errorf("read messages: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("read messages: expected %q, got %v", want, tok)
	}
	return nil
}

// DecodeAll decodes a whole JSON array, dropping skipped subtypes.
// Any invalid element fails the whole array.
func DecodeAll(r io.Reader) ([]domain.Message, error) {
	s := NewStream(r)
	var messages []domain.Message
	for {
		more, err := s.More()
		if err != nil {
			return nil, err
		}
		if !more {
			return messages, nil
		}
		msg, err := s.Next()
		if err != nil {
			return nil, err
		}
		if msg != nil {
			messages = append(messages, msg)
		}
	}
}

// Messages is a decode-only list of messages for use in response structs.
type Messages []domain.Message

// UnmarshalJSON implements json.Unmarshaler.
func (m *Messages) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*m = nil
		return nil
	}
	messages, err := DecodeAll(bytes.NewReader(data))
	if err != nil {
		return err
	}
	*m = messages
	return nil
}

// MarshalJSON always fails; messages are never written back to Slack.
func (m Messages) MarshalJSON() ([]byte, error) {
	return nil, fmt.Errorf("messages: %w", domain.ErrEncodingUnsupported)
}
