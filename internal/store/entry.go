// AngelaMos | 2026
// entry.go

package store

import (
	"encoding/json"
	"iter"
)

// Entry is a key/value pair. It marshals to JSON as a two-element array.
type Entry[K, V any] struct {
	Key   K
	Value V
}

func (e Entry[K, V]) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{e.Key, e.Value})
}

// Collect drains seq into a slice of entries, keeping only those for
// which keep returns true. A nil keep keeps everything.
func Collect[K, V any](seq iter.Seq2[K, V], keep func(K, V) bool) []Entry[K, V] {
	out := []Entry[K, V]{}
	for k, v := range seq {
		if keep == nil || keep(k, v) {
			out = append(out, Entry[K, V]{Key: k, Value: v})
		}
	}
	return out
}
