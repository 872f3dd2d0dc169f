package types

import (
	"iter"
	"slices"
)

// Tags holds raw, format-native tag values in insertion order.
//
// Keys are whatever the container calls them: "TIT2" for ID3v2.3/2.4,
// "TT2" for ID3v2.2, "INAM" for RIFF INFO, "©nam" for MP4 and "TITLE"
// for Vorbis comments. No attempt is made to map keys between formats.
//
// The zero value is an empty, ready to use Tags.
type Tags struct {
	values map[string][]string
	order  []string
}

// All returns an iterator over all tags in insertion order.
//
// Example:
//
//	for key, values := range file.Tags.All() {
//		fmt.Printf("%s: %v\n", key, values)
//	}
//
// The returned iterator is read-only. Do not modify the returned slices.
func (t *Tags) All() iter.Seq2[string, []string] {
	return func(yield func(string, []string) bool) {
		for _, key := range t.order {
			if !yield(key, t.values[key]) {
				return
			}
		}
	}
}

// Keys returns the tag keys in insertion order.
func (t *Tags) Keys() []string {
	return slices.Clone(t.order)
}

// Len returns the number of distinct keys.
func (t *Tags) Len() int {
	return len(t.order)
}

// Has reports whether key is present.
func (t *Tags) Has(key string) bool {
	_, ok := t.values[key]
	return ok
}

// Get retrieves all values for a tag key.
//
// Returns nil if the key doesn't exist. The returned slice is a copy.
func (t *Tags) Get(key string) []string {
	values, ok := t.values[key]
	if !ok {
		return nil
	}
	return slices.Clone(values)
}

// GetFirst retrieves the first value for a tag key.
//
// Returns empty string if the key doesn't exist or has no values.
func (t *Tags) GetFirst(key string) string {
	values := t.values[key]
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// Set replaces the values for key. If values is empty, the tag is removed.
//
// Example:
//
//	tags.Set("TIT2", "Remastered")
//	tags.Set("GENRE", "Rock", "Alternative") // Multi-value
func (t *Tags) Set(key string, values ...string) {
	if len(values) == 0 {
		t.Delete(key)
		return
	}
	if t.values == nil {
		t.values = make(map[string][]string)
	}
	if _, ok := t.values[key]; !ok {
		t.order = append(t.order, key)
	}
	t.values[key] = slices.Clone(values)
}

// Add appends a value to key, creating it if needed.
func (t *Tags) Add(key, value string) {
	if t.values == nil {
		t.values = make(map[string][]string)
	}
	if _, ok := t.values[key]; !ok {
		t.order = append(t.order, key)
	}
	t.values[key] = append(t.values[key], value)
}

// Delete removes key.
func (t *Tags) Delete(key string) {
	if _, ok := t.values[key]; !ok {
		return
	}
	delete(t.values, key)
	t.order = slices.DeleteFunc(t.order, func(k string) bool { return k == key })
}

// Clone returns a deep copy.
func (t *Tags) Clone() Tags {
	var c Tags
	for key, values := range t.All() {
		c.Set(key, values...)
	}
	return c
}

// Equal reports whether both hold the same keys with the same values.
// Key order is ignored.
func (t *Tags) Equal(other *Tags) bool {
	if t.Len() != other.Len() {
		return false
	}
	for key, values := range t.values {
		ov, ok := other.values[key]
		if !ok || !slices.Equal(values, ov) {
			return false
		}
	}
	return true
}
