package gift

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ValueKind tags the shape a loosely typed upstream field arrived in.
type ValueKind int

const (
	KindAbsent ValueKind = iota
	KindNull
	KindText
	KindNumber
	KindList
)

// RawValue is a field that upstream sometimes sends as a string, sometimes as
// a number, sometimes as an array and sometimes as malformed text. It is
// decoded as-is and interpreted later by Normalize.
type RawValue struct {
	Kind   ValueKind
	Text   string
	Number float64
	List   []string
}

func TextValue(s string) RawValue { return RawValue{Kind: KindText, Text: s} }
func NumberValue(n float64) RawValue { return RawValue{Kind: KindNumber, Number: n} }
func ListValue(items ...string) RawValue { return RawValue{Kind: KindList, List: items} }
func NullValue() RawValue { return RawValue{Kind: KindNull} }

// IsEmpty reports whether the value carries nothing usable.
func (v RawValue) IsEmpty() bool {
	switch v.Kind {
	case KindText:
		return strings.TrimSpace(v.Text) == ""
	case KindNumber:
		return false
	case KindList:
		return len(v.List) == 0
	default:
		return true
	}
}

// String renders the value for use as an identifier or display text.
func (v RawValue) String() string {
	switch v.Kind {
	case KindText:
		return strings.TrimSpace(v.Text)
	case KindNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case KindList:
		return strings.Join(v.List, ",")
	default:
		return ""
	}
}

// Float returns the numeric reading of the value, accepting numeric text.
func (v RawValue) Float() (float64, bool) {
	switch v.Kind {
	case KindNumber:
		return v.Number, true
	case KindText:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Text), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func (v *RawValue) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*v = NullValue()
		return nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*v = TextValue(s)
	case '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(trimmed, &elems); err != nil {
			return err
		}
		out := make([]string, 0, len(elems))
		for _, e := range elems {
			var s string
			if err := json.Unmarshal(e, &s); err != nil {
				continue
			}
			out = append(out, s)
		}
		*v = ListValue(out...)
	case '{', 't', 'f':
		*v = TextValue(string(trimmed))
	default:
		n, err := strconv.ParseFloat(string(trimmed), 64)
		if err != nil {
			return fmt.Errorf("raw value %q: %w", trimmed, err)
		}
		*v = NumberValue(n)
	}
	return nil
}

func (v RawValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindText:
		return json.Marshal(v.Text)
	case KindNumber:
		return json.Marshal(v.Number)
	case KindList:
		return json.Marshal(v.List)
	default:
		return []byte("null"), nil
	}
}

// Scan implements sql.Scanner.
func (v *RawValue) Scan(src any) error {
	switch s := src.(type) {
	case nil:
		*v = NullValue()
	case string:
		*v = TextValue(s)
	case []byte:
		*v = TextValue(string(s))
	case int:
		*v = NumberValue(float64(s))
	case int32:
		*v = NumberValue(float64(s))
	case int64:
		*v = NumberValue(float64(s))
	case float32:
		*v = NumberValue(float64(s))
	case float64:
		*v = NumberValue(s)
	case bool:
		*v = TextValue(strconv.FormatBool(s))
	case time.Time:
		*v = TextValue(s.UTC().Format(time.RFC3339Nano))
	default:
		*v = TextValue(fmt.Sprint(s))
	}
	return nil
}
