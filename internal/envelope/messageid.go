// Package envelope implements the JSON-RPC 2.0 message model and its JSON
// codec (spec.md S3, S4.1): the Request/Notification/Response variants, the
// MessageId closed sum type, and the Error object.
// file: internal/envelope/messageid.go
package envelope

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/cockroachdb/errors"
)

// IDKind discriminates the three MessageId variants (spec.md S3).
type IDKind uint8

// MessageId variants.
const (
	IDKindNull IDKind = iota
	IDKindInteger
	IDKindString
)

// MessageId is the closed sum type { Null, Integer (i64), String }. It is a
// plain comparable struct (no pointers or slices) so it can be used directly
// as a map key by the active-request and outstanding-request tables
// (spec.md S3).
type MessageId struct {
	Kind     IDKind
	IntValue int64
	StrValue string
}

// NullID returns the Null variant, used e.g. as the id of an error response
// emitted on parse failure (spec.md S4.1).
func NullID() MessageId { return MessageId{Kind: IDKindNull} }

// NewIntegerID returns the Integer variant for v. Values within the range
// of a signed 32-bit int are logically the "compact" representation spec.md
// S3 describes; IsInt32 reports whether v falls in that range, but the
// stored value and its equality are unaffected either way.
func NewIntegerID(v int64) MessageId { return MessageId{Kind: IDKindInteger, IntValue: v} }

// NewStringID returns the String variant for v.
func NewStringID(v string) MessageId { return MessageId{Kind: IDKindString, StrValue: v} }

// IsInt32 reports whether an Integer-kind id's value fits in a signed
// 32-bit int (spec.md S3's "stored as i32 for compact representation").
func (m MessageId) IsInt32() bool {
	return m.Kind == IDKindInteger && m.IntValue >= math.MinInt32 && m.IntValue <= math.MaxInt32
}

// IsNull reports whether m is the Null variant.
func (m MessageId) IsNull() bool { return m.Kind == IDKindNull }

// String renders the id for logging.
func (m MessageId) String() string {
	switch m.Kind {
	case IDKindInteger:
		return strconv.FormatInt(m.IntValue, 10)
	case IDKindString:
		return m.StrValue
	default:
		return "null"
	}
}

// MarshalJSON encodes the id per its variant: integer token, string token,
// or the JSON null literal.
func (m MessageId) MarshalJSON() ([]byte, error) {
	switch m.Kind {
	case IDKindInteger:
		return []byte(strconv.FormatInt(m.IntValue, 10)), nil
	case IDKindString:
		return json.Marshal(m.StrValue)
	case IDKindNull:
		return []byte("null"), nil
	default:
		return nil, errors.Newf("messageid: unknown id kind %d", m.Kind)
	}
}

// UnmarshalJSON classifies the token kind and decodes accordingly
// (spec.md S4.1): integer token decodes to Integer; string token to String;
// null to Null; any other token kind (object, array, bool) is a parse
// error.
func (m *MessageId) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return errors.New("messageid: empty token")
	}

	switch trimmed[0] {
	case 'n':
		if !bytes.Equal(trimmed, []byte("null")) {
			return errors.Newf("messageid: invalid token %q", trimmed)
		}
		*m = NullID()
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return errors.Wrap(err, "messageid: invalid string id")
		}
		*m = NewStringID(s)
		return nil
	case '{', '[', 't', 'f':
		return errors.Newf("messageid: id must be string, number, or null, got %q", trimmed)
	default:
		i, err := strconv.ParseInt(string(trimmed), 10, 64)
		if err != nil {
			return errors.Wrapf(err, "messageid: id token %q is not an integer", trimmed)
		}
		*m = NewIntegerID(i)
		return nil
	}
}

// GoString supports %#v-style debugging output.
func (m MessageId) GoString() string {
	return fmt.Sprintf("envelope.MessageId{Kind:%d, IntValue:%d, StrValue:%q}", m.Kind, m.IntValue, m.StrValue)
}
