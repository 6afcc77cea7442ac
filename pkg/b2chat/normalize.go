package b2chat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// The export endpoints are loose about scalar types: ids arrive as strings
// or numbers, timestamps in several formats, nested parties as plain names
// or objects. The Flex* types absorb that on decode and marshal back to one
// canonical form, so the JSON staged for the transform is always uniform.

// FlexString decodes from a JSON string, number or null and always marshals
// as a string.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = FlexString(strings.TrimSpace(v))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	if i, err := n.Int64(); err == nil {
		*s = FlexString(strconv.FormatInt(i, 10))
		return nil
	}
	*s = FlexString(n.String())
	return nil
}

// MarshalJSON implements json.Marshaler.
func (s FlexString) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// String returns the value as a plain string.
func (s FlexString) String() string { return string(s) }

// flexTimeFormats are tried in order on string timestamps without a zone
// suffix; zoneless values are taken as UTC.
var flexTimeFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// canonicalTimeFormat is the single format FlexTime marshals to. Millisecond
// precision: anything finer is noise the change detector ignores anyway.
const canonicalTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// FlexTime decodes from RFC3339 strings, zoneless datetime strings, date-only
// strings or epoch numbers (seconds or milliseconds), and marshals to UTC
// RFC3339 with millisecond precision. The zero value marshals as null.
type FlexTime struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *FlexTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		v = strings.TrimSpace(v)
		if v == "" {
			t.Time = time.Time{}
			return nil
		}
		for _, layout := range flexTimeFormats {
			if parsed, err := time.Parse(layout, v); err == nil {
				t.Time = parsed.UTC()
				return nil
			}
		}
		return fmt.Errorf("unrecognized timestamp %q", v)
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected timestamp string or epoch number, got %s", data)
	}
	epoch, err := n.Int64()
	if err != nil {
		f, ferr := n.Float64()
		if ferr != nil {
			return fmt.Errorf("unrecognized epoch %q", n.String())
		}
		epoch = int64(f)
	}
	// Values this large can only be milliseconds (Nov 2286 in seconds).
	if epoch >= 1e12 {
		t.Time = time.UnixMilli(epoch).UTC()
	} else {
		t.Time = time.Unix(epoch, 0).UTC()
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (t FlexTime) MarshalJSON() ([]byte, error) {
	if t.Time.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.UTC().Format(canonicalTimeFormat))
}

// Ptr returns the time as *time.Time, nil for the zero value.
func (t FlexTime) Ptr() *time.Time {
	if t.Time.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}

// FlexDuration decodes a chat duration given either as numeric seconds or as
// an "H:M:S" / "H:M:S:ms" string. Valid is false when the field was null,
// empty or unparsable.
type FlexDuration struct {
	Seconds int64
	Valid   bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *FlexDuration) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	d.Seconds, d.Valid = 0, false
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		seconds, ok := parseClockDuration(v)
		if ok {
			d.Seconds, d.Valid = seconds, true
		}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected duration string or number, got %s", data)
	}
	if i, err := n.Int64(); err == nil {
		d.Seconds, d.Valid = i, true
		return nil
	}
	if f, err := n.Float64(); err == nil {
		d.Seconds, d.Valid = int64(f), true
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d FlexDuration) MarshalJSON() ([]byte, error) {
	if !d.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(d.Seconds)
}

// Ptr returns the duration in seconds as *int64, nil when not set.
func (d FlexDuration) Ptr() *int64 {
	if !d.Valid {
		return nil
	}
	v := d.Seconds
	return &v
}

// parseClockDuration parses "H:M:S" with an optional ":ms" part.
func parseClockDuration(v string) (int64, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	parts := strings.Split(v, ":")
	if len(parts) < 3 || len(parts) > 4 {
		return 0, false
	}
	nums := make([]int64, len(parts))
	for i, p := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil || n < 0 {
			return 0, false
		}
		nums[i] = n
	}
	seconds := nums[0]*3600 + nums[1]*60 + nums[2]
	if len(nums) == 4 && nums[3] >= 500 {
		seconds++
	}
	return seconds, true
}

// FlexStringList decodes a JSON array whose elements are strings or objects
// carrying a "name" field, and a bare string as a one-element list.
type FlexStringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *FlexStringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*l = nil
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		if v = strings.TrimSpace(v); v != "" {
			*l = FlexStringList{v}
		}
		return nil
	}
	var elements []json.RawMessage
	if err := json.Unmarshal(data, &elements); err != nil {
		return fmt.Errorf("expected string list, got %s", data)
	}
	out := make(FlexStringList, 0, len(elements))
	for _, el := range elements {
		el = bytes.TrimSpace(el)
		if len(el) == 0 || bytes.Equal(el, []byte("null")) {
			continue
		}
		if el[0] == '"' {
			var v string
			if err := json.Unmarshal(el, &v); err != nil {
				return err
			}
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
			continue
		}
		var named struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(el, &named); err != nil {
			return fmt.Errorf("expected tag string or object, got %s", el)
		}
		if v := strings.TrimSpace(named.Name); v != "" {
			out = append(out, v)
		}
	}
	*l = out
	return nil
}
