package intent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Well-known criteria keys. Any other key is passed through untouched.
const (
	CriterionQuality  = "quality"
	CriterionLanguage = "language"
	CriterionYear     = "year"
)

// Criterion is a single key/value modifier.
type Criterion struct {
	Key   string
	Value string
}

// Criteria is an ordered bag of string modifiers ("quality" -> "4K"). Keys
// are case-insensitive and unique; insertion order is preserved so logs and
// rendered results are stable. The meaning of a key is backend specific.
type Criteria []Criterion

// Get returns the value stored for key.
func (c Criteria) Get(key string) (string, bool) {
	key = normalizeKey(key)
	for _, kv := range c {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

// Set stores value under key, replacing an existing entry in place.
func (c Criteria) Set(key, value string) Criteria {
	key = normalizeKey(key)
	for i := range c {
		if c[i].Key == key {
			c[i].Value = value
			return c
		}
	}
	return append(c, Criterion{Key: key, Value: value})
}

// Year returns the year criterion when present and numeric.
func (c Criteria) Year() (int, bool) {
	v, ok := c.Get(CriterionYear)
	if !ok {
		return 0, false
	}
	year, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, false
	}
	return year, true
}

// Map returns the criteria as a plain map.
func (c Criteria) Map() map[string]string {
	if len(c) == 0 {
		return nil
	}
	m := make(map[string]string, len(c))
	for _, kv := range c {
		m[kv.Key] = kv.Value
	}
	return m
}

// Clone returns an independent copy.
func (c Criteria) Clone() Criteria {
	if c == nil {
		return nil
	}
	out := make(Criteria, len(c))
	copy(out, c)
	return out
}

// String renders the criteria as key=value pairs in insertion order.
func (c Criteria) String() string {
	parts := make([]string, 0, len(c))
	for _, kv := range c {
		parts = append(parts, kv.Key+"="+kv.Value)
	}
	return strings.Join(parts, ", ")
}

// MarshalJSON encodes the criteria as a JSON object keeping insertion order.
func (c Criteria) MarshalJSON() ([]byte, error) {
	if c == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, kv := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(kv.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(kv.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object. Scalar values of any JSON type are
// accepted and stored in their textual form (models often emit year as a
// number); nested objects and arrays are rejected.
func (c *Criteria) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*c = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("criteria must be an object")
	}

	out := Criteria{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)

		valTok, err := dec.Token()
		if err != nil {
			return err
		}
		switch v := valTok.(type) {
		case string:
			out = out.Set(key, v)
		case json.Number:
			out = out.Set(key, v.String())
		case bool:
			out = out.Set(key, strconv.FormatBool(v))
		case nil:
			// null values carry no information
		default:
			return fmt.Errorf("criteria value for %q must be a scalar", key)
		}
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*c = out
	return nil
}

// MarshalYAML renders the criteria as a mapping.
func (c Criteria) MarshalYAML() (interface{}, error) {
	return c.Map(), nil
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
