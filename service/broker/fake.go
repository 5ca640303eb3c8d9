package broker

import (
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// Message is a payload captured by the fake broker.
type Message struct {
	Topic   string
	Payload []byte
}

type Fake struct {
	mu       sync.Mutex
	messages []Message
}

// NewFake encodes like the MQTT broker but keeps messages in memory.
func NewFake() *Fake {
	return &Fake{}
}

func (svc *Fake) Publish(topic string, v interface{}) error {
	payload, err := msgpack.Marshal(v)
	if err != nil {
		return err
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.messages = append(svc.messages, Message{Topic: topic, Payload: payload})
	return nil
}

func (svc *Fake) Messages() []Message {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return append([]Message{}, svc.messages...)
}

func (svc *Fake) Close() error {
	return nil
}
