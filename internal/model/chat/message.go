package chat

import (
	"encoding/json"
	"sort"
	"time"
)

// Author identifies who produced a message.
type Author struct {
	Name string `json:"name"`
}

// Button is a quick-reply option attached to a bot message. The payload is
// forwarded verbatim to the conversational backend when pressed.
type Button struct {
	Title   string `json:"title"`
	Payload string `json:"payload"`
}

// Message is a single chat turn. Messages are immutable once created; ID is
// the deduplication key when lists from several sources are merged.
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Author    Author    `json:"author"`
	CreatedAt Timestamp `json:"createdAt"`
	Buttons   []Button  `json:"buttons,omitempty"`
}

// Timestamp tolerates malformed wire values: anything that fails RFC 3339
// parsing decodes to the zero instant so the message still sorts (first)
// instead of being dropped.
type Timestamp struct {
	time.Time
}

// Now returns the current instant as a message timestamp. Ordering in the
// merged list is decided by this construction-time value, never by append
// order.
func Now() Timestamp {
	return Timestamp{time.Now().UTC()}
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		t.Time = time.Time{}
		return nil
	}
	t.Time = parsed
	return nil
}

// Merge combines message lists from several sources into the canonical
// ordered view: duplicates collapse to the first occurrence by ID, the
// result is sorted by CreatedAt with ties broken by ascending ID. Merge is
// a pure function of its inputs and idempotent, so concurrent appenders can
// always rebuild the list from the latest snapshots instead of patching a
// shared structure.
func Merge(sources ...[]Message) []Message {
	total := 0
	for _, source := range sources {
		total += len(source)
	}

	seen := make(map[string]struct{}, total)
	merged := make([]Message, 0, total)
	for _, source := range sources {
		for _, msg := range source {
			if _, ok := seen[msg.ID]; ok {
				continue
			}
			seen[msg.ID] = struct{}{}
			merged = append(merged, msg)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if !merged[i].CreatedAt.Equal(merged[j].CreatedAt.Time) {
			return merged[i].CreatedAt.Before(merged[j].CreatedAt.Time)
		}
		return merged[i].ID < merged[j].ID
	})

	return merged
}
