package redisrec

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

const timeLayout = time.RFC3339Nano

// codec converts records to and from the string hashes the store keeps.
type codec struct {
	pk         string
	kinds      map[string]Kind
	canon      map[string]string // lower-cased name => declared name
	structured []string
}

func newCodec(cls Classifier) (*codec, error) {
	c := &codec{
		pk:    cls.PrimaryKey(),
		kinds: make(map[string]Kind),
		canon: make(map[string]string),
	}
	for _, attr := range cls.Attributes() {
		c.kinds[attr.Name] = attr.Kind
		lower := strings.ToLower(attr.Name)
		if _, dup := c.canon[lower]; !dup {
			c.canon[lower] = attr.Name
		}
		if attr.Kind.RequiresEncoding() {
			c.structured = append(c.structured, attr.Name)
		}
	}
	slices.Sort(c.structured)

	if c.pk == "" {
		return nil, ErrNoPrimaryKey
	}
	pkKind, ok := c.kinds[c.pk]
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a declared attribute", ErrNoPrimaryKey, c.pk)
	}
	if pkKind != Integer {
		return nil, fmt.Errorf("%w: %q is %v", ErrUnsupportedKey, c.pk, pkKind)
	}
	return c, nil
}

func (c *codec) canonicalName(name string) string {
	if _, ok := c.kinds[name]; ok {
		return name
	}
	if decl, ok := c.canon[strings.ToLower(name)]; ok {
		return decl
	}
	return name
}

// canonical returns a shallow copy of rec with attribute names normalized.
// Two names that normalize to the same attribute (id and ID) are an
// ErrInvalidValue.
func (c *codec) canonical(rec Record) (Record, error) {
	out := make(Record, len(rec)+1)
	seen := make(map[string]string, len(rec))
	for _, name := range slices.Sorted(maps.Keys(rec)) {
		canon := c.canonicalName(name)
		if prev, dup := seen[canon]; dup {
			return nil, fmt.Errorf("%w: %q and %q both name attribute %s", ErrInvalidValue, prev, name, canon)
		}
		seen[canon] = name
		out[canon] = rec[name]
	}
	return out, nil
}

func (c *codec) encode(rec Record) (map[string]string, error) {
	fields := make(map[string]string, len(rec))
	for _, name := range slices.Sorted(maps.Keys(rec)) {
		kind, ok := c.kinds[name]
		if !ok {
			kind = String
		}
		s, err := encodeValue(kind, rec[name])
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidValue, name, err)
		}
		fields[name] = s
	}
	return fields, nil
}

func (c *codec) decode(key string, raw map[string]string) (Record, error) {
	rec := make(Record, len(raw))
	for field, s := range raw {
		name := c.canonicalName(field)
		if _, exact := raw[name]; exact && name != field {
			continue
		}
		kind, ok := c.kinds[name]
		if !ok {
			rec[name] = s
			continue
		}
		v, err := decodeValue(kind, s)
		if err != nil {
			return nil, dataErrf(key, field, s, err, "cannot decode %v attribute", kind)
		}
		rec[name] = v
	}
	return rec, nil
}

func encodeValue(kind Kind, v any) (string, error) {
	if kind == Structured {
		raw, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}
	if v == nil {
		return "", nil
	}
	switch kind {
	case String:
		switch v := v.(type) {
		case string:
			return v, nil
		case []byte:
			return string(v), nil
		case fmt.Stringer:
			return v.String(), nil
		default:
			return fmt.Sprint(v), nil
		}
	case Integer:
		n, err := toInt64(v)
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(n, 10), nil
	case Float:
		f, err := toFloat64(v)
		if err != nil {
			return "", err
		}
		return strconv.FormatFloat(f, 'g', -1, 64), nil
	case Boolean:
		switch v := v.(type) {
		case bool:
			return strconv.FormatBool(v), nil
		case string:
			b, err := strconv.ParseBool(v)
			if err != nil {
				return "", err
			}
			return strconv.FormatBool(b), nil
		}
	case Time:
		switch v := v.(type) {
		case time.Time:
			return v.Format(timeLayout), nil
		case *time.Time:
			if v == nil {
				return "", nil
			}
			return v.Format(timeLayout), nil
		case string:
			tm, err := time.Parse(timeLayout, v)
			if err != nil {
				return "", err
			}
			return tm.Format(timeLayout), nil
		}
	}
	return "", fmt.Errorf("cannot store %T as %v", v, kind)
}

func decodeValue(kind Kind, s string) (any, error) {
	if kind == String {
		return s, nil
	}
	if kind == Structured {
		return decodeJSON(s)
	}
	if s == "" {
		return nil, nil
	}
	switch kind {
	case Integer:
		return strconv.ParseInt(s, 10, 64)
	case Float:
		return strconv.ParseFloat(s, 64)
	case Boolean:
		return strconv.ParseBool(s)
	case Time:
		return time.Parse(timeLayout, s)
	default:
		return nil, fmt.Errorf("unknown kind %v", kind)
	}
}

// decodeJSON parses a structured attribute, keeping integral numbers as int64
// and the rest as float64.
func decodeJSON(s string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after JSON value")
	}
	return fromJSONNumbers(v)
}

func fromJSONNumbers(v any) (any, error) {
	switch v := v.(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, nil
		}
		return v.Float64()
	case map[string]any:
		for k, elem := range v {
			conv, err := fromJSONNumbers(elem)
			if err != nil {
				return nil, err
			}
			v[k] = conv
		}
		return v, nil
	case []any:
		for i, elem := range v {
			conv, err := fromJSONNumbers(elem)
			if err != nil {
				return nil, err
			}
			v[i] = conv
		}
		return v, nil
	default:
		return v, nil
	}
}

func toInt64(v any) (int64, error) {
	switch v := v.(type) {
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return uintToInt64(uint64(v))
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		return uintToInt64(v)
	case float32:
		return floatToInt64(float64(v))
	case float64:
		return floatToInt64(v)
	case json.Number:
		return strconv.ParseInt(string(v), 10, 64)
	case string:
		return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	default:
		return 0, fmt.Errorf("%T is not an integer", v)
	}
}

func uintToInt64(v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, fmt.Errorf("%d overflows int64", v)
	}
	return int64(v), nil
}

func floatToInt64(f float64) (int64, error) {
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("%v is not an integer", f)
	}
	return int64(f), nil
}

func toFloat64(v any) (float64, error) {
	switch v := v.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		n, err := toInt64(v)
		if err != nil {
			return 0, fmt.Errorf("%T is not a number", v)
		}
		return float64(n), nil
	}
}

// MaxID is the largest id a caller may supply. Redis keeps sorted set scores
// as float64, which represents every integer up to 2^53 exactly.
const MaxID = 1 << 53

// toID normalizes a primary key value supplied by a caller.
func toID(v any) (int64, error) {
	id, err := toInt64(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidID, err)
	}
	if id < 0 {
		return 0, fmt.Errorf("%w: %d is negative", ErrInvalidID, id)
	}
	if id > MaxID {
		return 0, fmt.Errorf("%w: %d exceeds %d", ErrInvalidID, id, int64(MaxID))
	}
	return id, nil
}
