// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package apiai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// MessageType is the numeric discriminant carried in the "type" key of a
// fulfillment message.
type MessageType int

const (
	MessageTypeText  MessageType = 0
	MessageTypeImage MessageType = 3
)

func (t MessageType) String() string {
	switch t {
	case MessageTypeText:
		return "text"
	case MessageTypeImage:
		return "image"
	default:
		return "type(" + strconv.Itoa(int(t)) + ")"
	}
}

// Message is a rich fulfillment message. The set of implementations is closed:
// TextMessage and ImageMessage.
type Message interface {
	Type() MessageType
	wireValue() any
}

// TextMessage is plain speech.
type TextMessage struct {
	Speech string
}

func (TextMessage) Type() MessageType { return MessageTypeText }
func (m TextMessage) wireValue() any { return m.Speech }
func (m TextMessage) String() string { return m.Speech }
func (m TextMessage) MarshalJSON() ([]byte, error) {
	return marshalMessage(m)
}

// ImageMessage points at an image to display.
type ImageMessage struct {
	ImageURL string
}

func (ImageMessage) Type() MessageType { return MessageTypeImage }
func (m ImageMessage) wireValue() any { return m.ImageURL }
func (m ImageMessage) String() string { return m.ImageURL }
func (m ImageMessage) MarshalJSON() ([]byte, error) {
	return marshalMessage(m)
}

// messageVariant binds a discriminant to the key holding the variant's value.
type messageVariant struct {
	key    string
	decode func(json.RawMessage) (Message, error)
}

var messageVariants = map[MessageType]messageVariant{
	MessageTypeText: {
		key: "speech",
		decode: stringVariant(func(s string) Message {
			return TextMessage{Speech: s}
		}),
	},
	MessageTypeImage: {
		key: "imageUrl",
		decode: stringVariant(func(s string) Message {
			return ImageMessage{ImageURL: s}
		}),
	},
}

func stringVariant(build func(string) Message) func(json.RawMessage) (Message, error) {
	return func(raw json.RawMessage) (Message, error) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return build(s), nil
	}
}

// marshalMessage writes {"<key>":<value>,"type":<n>}.
func marshalMessage(m Message) ([]byte, error) {
	variant, ok := messageVariants[m.Type()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMessage, m.Type())
	}
	value, err := json.Marshal(m.wireValue())
	if err != nil {
		return nil, err
	}
	key, _ := json.Marshal(variant.key)

	var buf bytes.Buffer
	buf.Grow(len(key) + len(value) + 16)
	buf.WriteByte('{')
	buf.Write(key)
	buf.WriteByte(':')
	buf.Write(value)
	buf.WriteString(`,"type":`)
	buf.WriteString(strconv.Itoa(int(m.Type())))
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalMessage encodes m in its flat wire form.
func MarshalMessage(m Message) ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil message", ErrUnsupportedMessage)
	}
	return marshalMessage(m)
}

// UnmarshalMessage decodes a flat message object. Keys may appear in any order.
func UnmarshalMessage(data []byte) (Message, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: null message", ErrUnsupportedMessage)
	}

	rawType, ok := fields["type"]
	if !ok || isJSONNull(rawType) {
		return nil, fmt.Errorf("%w: missing type", ErrUnsupportedMessage)
	}
	var t MessageType
	if err := json.Unmarshal(rawType, &t); err != nil {
		return nil, fmt.Errorf("%w: type %s", ErrUnsupportedMessage, rawType)
	}

	variant, ok := messageVariants[t]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedMessage, int(t))
	}
	raw, ok := fields[variant.key]
	if !ok || isJSONNull(raw) {
		return nil, fmt.Errorf("%w: %s message without %q", ErrUnsupportedMessage, t, variant.key)
	}
	m, err := variant.decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%s message: %w", t, err)
	}
	return m, nil
}

// Messages is an ordered list of fulfillment messages.
type Messages []Message

// MarshalJSON implements json.Marshaler.
func (ms Messages) MarshalJSON() ([]byte, error) {
	if ms == nil {
		return []byte("null"), nil
	}
	out := make([]json.RawMessage, 0, len(ms))
	for i, m := range ms {
		b, err := MarshalMessage(m)
		if err != nil {
			return nil, fmt.Errorf("messages[%d]: %w", i, err)
		}
		out = append(out, b)
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (ms *Messages) UnmarshalJSON(data []byte) error {
	if isJSONNull(data) {
		*ms = nil
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Messages, 0, len(raw))
	for i, r := range raw {
		m, err := UnmarshalMessage(r)
		if err != nil {
			return fmt.Errorf("messages[%d]: %w", i, err)
		}
		out = append(out, m)
	}
	*ms = out
	return nil
}

func isJSONNull(b []byte) bool {
	return bytes.Equal(bytes.TrimSpace(b), []byte("null"))
}
