// Package natstest provides an in-memory jetstream.Msg for handler tests.
package natstest

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// Msg records how a handler settled it. Methods not overridden panic through
// the nil embedded interface.
type Msg struct {
	jetstream.Msg

	subject string
	data    []byte

	Acked  bool
	Nacked bool
	Termed bool
}

func NewMsg(subject string, data []byte) *Msg {
	return &Msg{subject: subject, data: data}
}

// NewJSONMsg marshals v as the message body.
func NewJSONMsg(subject string, v any) *Msg {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return NewMsg(subject, data)
}

func (m *Msg) Subject() string { return m.subject }
func (m *Msg) Data() []byte    { return m.data }

func (m *Msg) Ack() error {
	m.Acked = true
	return nil
}

func (m *Msg) Nak() error {
	m.Nacked = true
	return nil
}

func (m *Msg) Term() error {
	m.Termed = true
	return nil
}

func (m *Msg) NakWithDelay(time.Duration) error {
	m.Nacked = true
	return nil
}
