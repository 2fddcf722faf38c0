package bus

import (
	"encoding/json"
	"testing"

	"sudooom.social.realtime/internal/registry"
	"sudooom.social.realtime/internal/wire"
)

func TestHandleEnvelope(t *testing.T) {
	reg := registry.New()
	d := NewNATSDispatcher(nil, reg, SubscriberConfig{})

	sender := &fakeSession{id: 1, userID: 100}
	other := &fakeSession{id: 2, userID: 200}
	reg.Subscribe("chat:1", sender)
	reg.Subscribe("chat:1", other)

	data, err := json.Marshal(wire.Envelope{
		Channel:       "chat:1",
		ExcludeUserID: 100,
		Payload:       []byte(`{"type":"typing"}`),
	})
	if err != nil {
		t.Fatalf("Failed to marshal envelope: %v", err)
	}

	d.handleEnvelope(data)

	if len(sender.received()) != 0 {
		t.Error("Excluded identity should not receive")
	}
	got := other.received()
	if len(got) != 1 {
		t.Fatalf("Expected 1 delivery, got %d", len(got))
	}
	if string(got[0]) != `{"type":"typing"}` {
		t.Errorf("Payload should be delivered verbatim, got %s", got[0])
	}
}

func TestHandleEnvelopeBadPayload(t *testing.T) {
	reg := registry.New()
	d := NewNATSDispatcher(nil, reg, SubscriberConfig{})

	s := &fakeSession{id: 1, userID: 100}
	reg.Subscribe("chat:1", s)

	// 解码失败只记录日志，不 panic 也不投递
	d.handleEnvelope([]byte("not json"))

	if len(s.received()) != 0 {
		t.Error("Malformed envelope should not be delivered")
	}
}
