package kafka

import "encoding/json"

// MustMarshal panics on a marshal failure. Event payloads and envelopes are
// plain structs; a failure here is a programming error, not a runtime one.
func MustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
