package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

// Message types on the wire
const (
	TypeText    = "text"
	TypeImage   = "image"
	TypeClients = "clients"
)

// DefaultTTLMs applies when a text or image frame carries no ttl_ms.
const DefaultTTLMs int64 = 5000

// MaxTTLMs is the longest ttl that still fits a time.Duration. Larger
// values saturate to it.
const MaxTTLMs = math.MaxInt64 / int64(time.Millisecond)

var (
	ErrMalformed   = errors.New("malformed message")
	ErrUnknownType = errors.New("unknown message type")
)

// TextMessage: server tells displays to show a string.
type TextMessage struct {
	Type    string `json:"type"`    // "text"
	Message string `json:"message"` // UTF-8 text to show
	TTLMs   int64  `json:"ttl_ms"`  // Time-to-live in milliseconds
}

// ImageMessage: server tells displays to show an encoded image.
type ImageMessage struct {
	Type  string `json:"type"`   // "image"
	Name  string `json:"name"`   // Display name, usually the file name
	B64   string `json:"b64"`    // Base64 of the PNG/JPEG bytes
	TTLMs int64  `json:"ttl_ms"` // Time-to-live in milliseconds
}

// ClientsMessage: server tells every display who is connected and who it is.
type ClientsMessage struct {
	Type string   `json:"type"` // "clients"
	ID   string   `json:"id"`   // Recipient's own assigned name
	List []string `json:"list"` // Roster in join order
}

// inboundMessage is the union of every field a frame may carry, used to
// peek at "type" and read the rest in one pass.
type inboundMessage struct {
	Type    string          `json:"type"`
	Message string          `json:"message"`
	Name    string          `json:"name"`
	B64     string          `json:"b64"`
	TTLMs   json.RawMessage `json:"ttl_ms"`
	ID      string          `json:"id"`
	List    []string        `json:"list"`
}

// Kind tags a decoded DisplayMessage.
type Kind int

const (
	KindText Kind = iota + 1
	KindImage
	KindRoster
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return TypeText
	case KindImage:
		return TypeImage
	case KindRoster:
		return TypeClients
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// DisplayMessage is one decoded frame. Only the fields of its Kind are set.
type DisplayMessage struct {
	Kind  Kind
	TTLMs int64

	Text string // KindText

	Name string // KindImage
	B64  string // KindImage, still encoded; see ImageBytes

	Self   string   // KindRoster
	Roster []string // KindRoster
}

// NewText builds a text message, clamping ttl into [1, MaxTTLMs].
func NewText(message string, ttlMs int64) DisplayMessage {
	return DisplayMessage{Kind: KindText, Text: message, TTLMs: clampTTL(ttlMs)}
}

// NewImage builds an image message from raw encoded bytes.
func NewImage(name string, data []byte, ttlMs int64) DisplayMessage {
	return DisplayMessage{
		Kind:  KindImage,
		Name:  name,
		B64:   base64.StdEncoding.EncodeToString(data),
		TTLMs: clampTTL(ttlMs),
	}
}

// NewRoster builds the roster push for one recipient.
func NewRoster(self string, list []string) DisplayMessage {
	return DisplayMessage{Kind: KindRoster, Self: self, Roster: append([]string(nil), list...)}
}

// ImageBytes decodes the base64 payload. An empty payload is an error.
func (m DisplayMessage) ImageBytes() ([]byte, error) {
	if m.B64 == "" {
		return nil, errors.New("empty image payload")
	}
	data, err := base64.StdEncoding.DecodeString(m.B64)
	if err != nil {
		return nil, fmt.Errorf("image payload: %w", err)
	}
	return data, nil
}

// Encode renders the message as one JSON text frame.
func (m DisplayMessage) Encode() ([]byte, error) {
	switch m.Kind {
	case KindText:
		return json.Marshal(TextMessage{Type: TypeText, Message: m.Text, TTLMs: clampTTL(m.TTLMs)})
	case KindImage:
		return json.Marshal(ImageMessage{Type: TypeImage, Name: m.Name, B64: m.B64, TTLMs: clampTTL(m.TTLMs)})
	case KindRoster:
		list := m.Roster
		if list == nil {
			list = []string{}
		}
		return json.Marshal(ClientsMessage{Type: TypeClients, ID: m.Self, List: list})
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, m.Kind)
	}
}

// Decode parses one frame. Callers discard anything that returns an error:
// ErrMalformed for non-objects and bad field types, ErrUnknownType for a
// missing or unrecognised "type". A ttl_ms that is not a number falls back
// to DefaultTTLMs.
func Decode(data []byte) (DisplayMessage, error) {
	var in inboundMessage
	if err := json.Unmarshal(data, &in); err != nil {
		return DisplayMessage{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch in.Type {
	case TypeText:
		return DisplayMessage{Kind: KindText, Text: in.Message, TTLMs: ttlOrDefault(in.TTLMs)}, nil
	case TypeImage:
		return DisplayMessage{Kind: KindImage, Name: in.Name, B64: in.B64, TTLMs: ttlOrDefault(in.TTLMs)}, nil
	case TypeClients:
		return NewRoster(in.ID, in.List), nil
	default:
		return DisplayMessage{}, fmt.Errorf("%w: %q", ErrUnknownType, in.Type)
	}
}

func ttlOrDefault(raw json.RawMessage) int64 {
	var v float64
	if len(raw) == 0 || string(raw) == "null" || json.Unmarshal(raw, &v) != nil {
		return DefaultTTLMs
	}
	if math.IsNaN(v) || v < 1 {
		return 1
	}
	if v >= float64(MaxTTLMs) {
		return MaxTTLMs
	}
	return clampTTL(int64(v))
}

func clampTTL(ttl int64) int64 {
	return max(1, min(ttl, MaxTTLMs))
}
