package client

import (
	"encoding/json"
	"strconv"

	"github.com/tidwall/gjson"
)

// Item is one JSON value produced by an iterator: a tweet, an API error, a
// trend, a stream message or whatever else the endpoint returns.
type Item struct {
	value gjson.Result
}

func newItem(value gjson.Result) Item {
	return Item{value: value}
}

// Raw returns the item's JSON encoding.
func (i Item) Raw() json.RawMessage {
	return json.RawMessage(i.value.Raw)
}

// String returns the item's JSON encoding.
func (i Item) String() string {
	return i.value.Raw
}

// Get returns the value at a gjson path, e.g. "user.screen_name".
func (i Item) Get(path string) gjson.Result {
	return i.value.Get(path)
}

// Has reports whether the item is an object with the given top-level field.
func (i Item) Has(field string) bool {
	return i.value.IsObject() && i.value.Get(escapePath(field)).Exists()
}

// ID returns the integer "id" field. It reports false when the item has no
// id or the id is not an integer.
func (i Item) ID() (int64, bool) {
	if !i.value.IsObject() {
		return 0, false
	}
	id := i.value.Get("id")
	switch id.Type {
	case gjson.Number:
		n, err := strconv.ParseInt(id.Raw, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	case gjson.String:
		n, err := strconv.ParseInt(id.Str, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// Decode unmarshals the item into v.
func (i Item) Decode(v any) error {
	return json.Unmarshal([]byte(i.value.Raw), v)
}

// MarshalJSON implements json.Marshaler.
func (i Item) MarshalJSON() ([]byte, error) {
	if i.value.Raw == "" {
		return []byte("null"), nil
	}
	return []byte(i.value.Raw), nil
}

// escapePath makes a plain field name safe to use as a gjson path.
func escapePath(field string) string {
	var buf []byte
	for j := 0; j < len(field); j++ {
		switch field[j] {
		case '.', '*', '?', '|', '#', '@', '\\', '!', '=', '<', '>', '%', ':':
			if buf == nil {
				buf = append(buf, field[:j]...)
			}
			buf = append(buf, '\\')
		}
		if buf != nil {
			buf = append(buf, field[j])
		}
	}
	if buf == nil {
		return field
	}
	return string(buf)
}
