package table

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind is the type of a cell value.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindTime:
		return "time"
	default:
		return "null"
	}
}

// Value is a single typed cell. The zero Value is null.
type Value struct {
	kind Kind
	str  string
	num  float64
	ts   time.Time
}

// Null returns the missing value.
func Null() Value { return Value{} }

// Str wraps a string.
func Str(s string) Value { return Value{kind: KindString, str: s} }

// Num wraps a number. NaN and infinities become null.
func Num(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}
	}
	return Value{kind: KindNumber, num: f}
}

// Int wraps an integer as a number.
func Int(n int) Value { return Value{kind: KindNumber, num: float64(n)} }

// Time wraps a timestamp in UTC. The zero time becomes null.
func Time(t time.Time) Value {
	if t.IsZero() {
		return Value{}
	}
	return Value{kind: KindTime, ts: t.UTC()}
}

// Kind reports the value kind.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is missing.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Float returns the numeric value. Numeric strings are accepted.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Time returns the timestamp value.
func (v Value) Time() (time.Time, bool) {
	if v.kind != KindTime {
		return time.Time{}, false
	}
	return v.ts, true
}

// Text renders the value the way it is written to cache files.
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindTime:
		if v.ts.Hour() == 0 && v.ts.Minute() == 0 && v.ts.Second() == 0 && v.ts.Nanosecond() == 0 {
			return v.ts.Format(dateLayout)
		}
		return v.ts.Format(time.RFC3339)
	default:
		return ""
	}
}

// Interface returns a plain Go value suitable for spreadsheet cells.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindTime:
		return v.ts
	default:
		return nil
	}
}

// Equal compares kind and content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num
	case KindTime:
		return v.ts.Equal(o.ts)
	default:
		return true
	}
}

// Compare orders values of the same kind naturally. Nulls sort last and
// mixed kinds sort by kind.
func (v Value) Compare(o Value) int {
	if v.kind == KindNull || o.kind == KindNull {
		switch {
		case v.kind == o.kind:
			return 0
		case v.kind == KindNull:
			return 1
		default:
			return -1
		}
	}
	if v.kind != o.kind {
		if v.kind < o.kind {
			return -1
		}
		return 1
	}
	switch v.kind {
	case KindNumber:
		switch {
		case v.num < o.num:
			return -1
		case v.num > o.num:
			return 1
		}
		return 0
	case KindTime:
		return v.ts.Compare(o.ts)
	default:
		return strings.Compare(v.str, o.str)
	}
}

// Key is the grouping key of the value. Values with equal keys are Equal.
func (v Value) Key() string {
	return string(rune('0'+v.kind)) + v.Text()
}

const dateLayout = "2006-01-02"

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	dateLayout,
	"02/01/2006 15:04",
	"02/01/2006",
}

// ParseTime parses the timestamp layouts seen in cache files and warehouse exports.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// Parse converts text into a value of the given kind. Empty text is null.
func Parse(s string, kind Kind) (Value, error) {
	if s == "" {
		return Null(), nil
	}
	switch kind {
	case KindString:
		return Str(s), nil
	case KindNumber:
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return Null(), &ParseError{Text: s, Kind: kind}
		}
		return Num(f), nil
	case KindTime:
		t, ok := ParseTime(s)
		if !ok {
			return Null(), &ParseError{Text: s, Kind: kind}
		}
		return Time(t), nil
	default:
		return Infer(s), nil
	}
}

// Infer guesses the kind of untyped text: numbers first, then timestamps.
func Infer(s string) Value {
	if s == "" {
		return Null()
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return Num(f)
	}
	if t, ok := ParseTime(s); ok {
		return Time(t)
	}
	return Str(s)
}

// ParseError reports text that does not match the requested kind.
type ParseError struct {
	Text string
	Kind Kind
}

func (e *ParseError) Error() string {
	return "table: cannot parse " + strconv.Quote(e.Text) + " as " + e.Kind.String()
}
