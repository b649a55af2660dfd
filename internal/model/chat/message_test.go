package chat

import (
	"encoding/json"
	"testing"
	"time"
)

func testMessage(id, content string, at time.Time) Message {
	return Message{
		ID:        id,
		Content:   content,
		Author:    Author{Name: "CiviBot"},
		CreatedAt: Timestamp{at},
	}
}

func TestMergeOrdersByTimestampThenID(t *testing.T) {
	base := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

	merged := Merge(
		[]Message{testMessage("b", "second", base.Add(time.Second))},
		[]Message{
			testMessage("z", "tie-late", base),
			testMessage("a", "tie-early", base),
		},
	)

	if len(merged) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(merged))
	}
	if merged[0].ID != "a" || merged[1].ID != "z" || merged[2].ID != "b" {
		t.Fatalf("unexpected order: %s, %s, %s", merged[0].ID, merged[1].ID, merged[2].ID)
	}
}

func TestMergeDedupKeepsFirstSeen(t *testing.T) {
	at := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

	merged := Merge(
		[]Message{testMessage("m1", "original", at)},
		[]Message{testMessage("m1", "replayed", at)},
	)

	if len(merged) != 1 {
		t.Fatalf("expected 1 message after dedup, got %d", len(merged))
	}
	if merged[0].Content != "original" {
		t.Fatalf("expected first-seen content to win, got %q", merged[0].Content)
	}
}

func TestMergeIdempotent(t *testing.T) {
	base := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	sources := [][]Message{
		{testMessage("c", "three", base.Add(2 * time.Second))},
		{testMessage("a", "one", base), testMessage("b", "two", base.Add(time.Second))},
	}

	once := Merge(sources...)
	twice := Merge(once)

	if len(once) != len(twice) {
		t.Fatalf("length changed on re-merge: %d vs %d", len(once), len(twice))
	}
	for i := range once {
		if once[i].ID != twice[i].ID {
			t.Fatalf("order changed on re-merge at %d: %s vs %s", i, once[i].ID, twice[i].ID)
		}
	}
}

func TestMergeZeroTimestampSortsFirst(t *testing.T) {
	merged := Merge([]Message{
		testMessage("late", "dated", time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)),
		testMessage("undated", "no timestamp", time.Time{}),
	})

	if merged[0].ID != "undated" {
		t.Fatalf("expected zero-timestamp message first, got %s", merged[0].ID)
	}
}

func TestTimestampUnmarshalKeepsMalformedMessages(t *testing.T) {
	raw := `{"id":"m1","content":"hola","author":{"name":"CiviBot"},"createdAt":"not-a-date"}`

	var msg Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("unmarshal err: %v", err)
	}

	if msg.ID != "m1" {
		t.Fatalf("message dropped: %+v", msg)
	}
	if !msg.CreatedAt.IsZero() {
		t.Fatalf("expected zero instant for malformed timestamp, got %v", msg.CreatedAt)
	}
}

func TestTimestampRoundTrip(t *testing.T) {
	at := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	data, err := json.Marshal(testMessage("m1", "hola", at))
	if err != nil {
		t.Fatalf("marshal err: %v", err)
	}

	var decoded Message
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal err: %v", err)
	}
	if !decoded.CreatedAt.Equal(at) {
		t.Fatalf("timestamp changed in round trip: %v", decoded.CreatedAt)
	}
}
