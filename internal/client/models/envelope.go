// Package models defines the CoEvo client data types: REST resources and
// push event envelopes.
package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// EventType classifies a push envelope.
type EventType string

const (
	EventNotify        EventType = "notify"
	EventPostCreated   EventType = "post_created"
	EventPostHidden    EventType = "post_hidden"
	EventBountyCreated EventType = "bounty_created"
	EventThreadCreated EventType = "thread_created"
	EventKeepalive     EventType = "keepalive"

	// EventResync is synthesized locally after the event stream reconnects.
	// Consumers treat it as "state may have drifted, re-fetch".
	EventResync EventType = "resync"
)

var (
	ErrMalformedEnvelope = errors.New("malformed envelope")
	ErrWrongEventType    = errors.New("wrong event type")
)

// Envelope is one push message. Raw holds the whole JSON object, including
// the type field, so payloads can be decoded lazily by the consumer that
// handles them.
type Envelope struct {
	Type     EventType
	ThreadID int64
	Raw      json.RawMessage
}

type envelopeHeader struct {
	Type     EventType `json:"type"`
	ThreadID *int64    `json:"thread_id"`
}

// ParseEnvelope decodes the discriminator of a push message. The message
// must be a JSON object with a non-empty "type".
func ParseEnvelope(data []byte) (Envelope, error) {
	var h envelopeHeader
	if err := json.Unmarshal(data, &h); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if h.Type == "" {
		return Envelope{}, fmt.Errorf("%w: missing type", ErrMalformedEnvelope)
	}

	env := Envelope{Type: h.Type, Raw: append(json.RawMessage(nil), data...)}
	if h.ThreadID != nil {
		env.ThreadID = *h.ThreadID
	}
	return env, nil
}

// Wrap builds an envelope of type t from a payload struct. The payload's
// fields are flattened next to "type".
func Wrap[T any](t EventType, v T) (Envelope, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return Envelope{}, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return Envelope{}, err
	}
	if fields == nil {
		fields = map[string]json.RawMessage{}
	}
	fields["type"], _ = json.Marshal(t)

	raw, err := json.Marshal(fields)
	if err != nil {
		return Envelope{}, err
	}
	return ParseEnvelope(raw)
}

// NewResync returns the synthetic envelope emitted after a reconnect.
func NewResync() Envelope {
	return Envelope{Type: EventResync, Raw: json.RawMessage(`{"type":"resync"}`)}
}

func decodeAs[T any](e Envelope, want EventType) (T, error) {
	var v T
	if e.Type != want {
		return v, fmt.Errorf("%w: have %s, want %s", ErrWrongEventType, e.Type, want)
	}
	if err := json.Unmarshal(e.Raw, &v); err != nil {
		return v, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	return v, nil
}

// Unwrap decodes the payload into its typed form. Unknown types are
// returned as a generic map.
func (e Envelope) Unwrap() (any, error) {
	switch e.Type {
	case EventNotify:
		return e.Notify()
	case EventPostCreated:
		return e.PostCreated()
	case EventPostHidden:
		return e.PostHidden()
	case EventBountyCreated:
		return e.BountyCreated()
	case EventThreadCreated:
		return e.ThreadCreated()
	default:
		var m map[string]any
		if err := json.Unmarshal(e.Raw, &m); err != nil {
			return nil, err
		}
		return m, nil
	}
}

func (e Envelope) Notify() (NotifyEvent, error) {
	return decodeAs[NotifyEvent](e, EventNotify)
}

func (e Envelope) PostCreated() (PostCreatedEvent, error) {
	return decodeAs[PostCreatedEvent](e, EventPostCreated)
}

func (e Envelope) PostHidden() (PostHiddenEvent, error) {
	return decodeAs[PostHiddenEvent](e, EventPostHidden)
}

func (e Envelope) BountyCreated() (BountyCreatedEvent, error) {
	return decodeAs[BountyCreatedEvent](e, EventBountyCreated)
}

func (e Envelope) ThreadCreated() (ThreadCreatedEvent, error) {
	return decodeAs[ThreadCreatedEvent](e, EventThreadCreated)
}

// NotifyEvent targets one user; every client receives it and filters.
type NotifyEvent struct {
	UserID       int64        `json:"user_id"`
	Notification Notification `json:"notification"`
}

type PostCreatedEvent struct {
	ThreadID int64 `json:"thread_id"`
	Post     Post  `json:"post"`
}

type PostHiddenEvent struct {
	ThreadID int64 `json:"thread_id"`
	PostID   int64 `json:"post_id"`
	Hide     bool  `json:"hide"`
}

// BountyAnnouncement is the abbreviated bounty carried by bounty_created.
type BountyAnnouncement struct {
	ID             int64  `json:"id"`
	Title          string `json:"title"`
	Amount         int64  `json:"amount"`
	RequirementsMD string `json:"requirements_md"`
	CreatorHandle  string `json:"creator_handle"`
}

type BountyCreatedEvent struct {
	ThreadID int64              `json:"thread_id"`
	Bounty   BountyAnnouncement `json:"bounty"`
}

type ThreadCreatedEvent struct {
	BoardID  int64  `json:"board_id"`
	ThreadID int64  `json:"thread_id"`
	Title    string `json:"title"`
}
