package flush

import (
	"log/slog"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.Default()
}

func TestPresenceLatchStartsAbsent(t *testing.T) {
	latch := NewPresenceLatch(testLogger())

	if latch.Presence(time.Now()) {
		t.Error("expected a fresh latch to report absence")
	}
	if _, reported := latch.LastReport(); !reported.IsZero() {
		t.Error("expected no report time before the first message")
	}
}

func TestPresenceLatchFollowsMessages(t *testing.T) {
	latch := NewPresenceLatch(testLogger())
	topic := "automation/raw/presence/restroom"

	latch.HandleMessage(&fakeMessage{topic: topic, payload: []byte(`{"state":"on","collectedAt":1740000000000}`)})
	if !latch.Presence(time.Now()) {
		t.Error("expected presence after an on message")
	}
	present, reported := latch.LastReport()
	if !present {
		t.Error("expected latched value to be on")
	}
	if !reported.Equal(time.UnixMilli(1740000000000)) {
		t.Errorf("expected report time from collectedAt, got %v", reported)
	}

	latch.HandleMessage(&fakeMessage{topic: topic, payload: []byte(`{"state":"off"}`)})
	if latch.Presence(time.Now()) {
		t.Error("expected absence after an off message")
	}
}

func TestPresenceLatchKeepsValueOnBadPayload(t *testing.T) {
	latch := NewPresenceLatch(testLogger())
	topic := "automation/raw/presence/restroom"

	latch.HandleMessage(&fakeMessage{topic: topic, payload: []byte(`{"state":"on"}`)})

	// Neither malformed JSON nor an unknown state disturbs the latch
	latch.HandleMessage(&fakeMessage{topic: topic, payload: []byte(`{not json`)})
	latch.HandleMessage(&fakeMessage{topic: topic, payload: []byte(`{"state":"maybe"}`)})

	if !latch.Presence(time.Now()) {
		t.Error("expected the last good value to survive bad payloads")
	}
}

func TestPresenceLatchIsIdempotentPerTimestamp(t *testing.T) {
	latch := NewPresenceLatch(testLogger())
	latch.HandleMessage(&fakeMessage{topic: "automation/raw/presence/restroom", payload: []byte(`{"state":"on"}`)})

	now := time.Now()
	for i := 0; i < 5; i++ {
		if !latch.Presence(now) {
			t.Fatal("expected repeated reads for the same timestamp to agree")
		}
	}
}
