package jsonrpc

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// ID correlates a Request with its Response. The protocol allows either an
// integer or a string; the two representations are distinct on the wire and
// must survive a round trip unchanged (the number 1 is not the string "1").
//
// The zero value is the number 0, which is the default ID used by the
// Request constructors when the caller does not need correlation.
//
// ID is comparable; equality is structural.
type ID struct {
	str   string
	num   int64
	isStr bool
}

// NewNumberID returns an integer ID.
func NewNumberID(n int64) ID {
	return ID{num: n}
}

// NewStringID returns a string ID.
func NewStringID(s string) ID {
	return ID{str: s, isStr: true}
}

// NewRandomStringID returns a UUID-backed string ID. It is intended for
// callers that issue concurrent requests over a shared transport and need
// collision-free correlation without coordinating a counter.
func NewRandomStringID() ID {
	return NewStringID(uuid.NewString())
}

// IsString reports whether the ID carries the string representation.
func (id ID) IsString() bool {
	return id.isStr
}

// Value returns the underlying value, either an int64 or a string.
func (id ID) Value() any {
	if id.isStr {
		return id.str
	}
	return id.num
}

// String renders the ID for logging. String IDs are quoted so that the
// number 1 and the string "1" remain distinguishable.
func (id ID) String() string {
	if id.isStr {
		return strconv.Quote(id.str)
	}
	return strconv.FormatInt(id.num, 10)
}

// MarshalJSON encodes the ID in its native representation.
func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.Value())
}

// UnmarshalJSON decodes an ID using two-pass decoding: an integer is tried
// first, then a string. Any other shape (float, bool, object, null) is
// rejected.
func (id *ID) UnmarshalJSON(data []byte) error {
	// encoding/json treats null as a no-op for scalar targets, so the
	// integer pass would silently accept it.
	if string(data) == "null" {
		return fmt.Errorf("invalid id: expected integer or string, got null")
	}

	var num int64
	if err := json.Unmarshal(data, &num); err == nil {
		*id = NewNumberID(num)
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*id = NewStringID(str)
		return nil
	}

	return fmt.Errorf("invalid id: expected integer or string, got %s", data)
}
