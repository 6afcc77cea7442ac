// Package changeset implements pure field-level change detection between an
// existing normalized row and its incoming upstream version. The transform
// engine uses it to suppress no-op writes and to record what changed.
package changeset

import (
	"encoding/json"
	"fmt"
	"time"
)

// timeFormat is how timestamps are rendered into old/new value maps.
// Comparison truncates to milliseconds first; anything finer is formatting
// noise from the upstream.
const timeFormat = "2006-01-02T15:04:05.000Z07:00"

// Diff is the result of change detection on one entity.
type Diff struct {
	HasChanges    bool
	ChangedFields []string
	OldValues     map[string]any
	NewValues     map[string]any
}

// builder accumulates field comparisons into a Diff.
type builder struct {
	diff Diff
}

func newBuilder() *builder {
	return &builder{diff: Diff{
		OldValues: make(map[string]any),
		NewValues: make(map[string]any),
	}}
}

func (b *builder) record(field string, oldValue, newValue any) {
	b.diff.HasChanges = true
	b.diff.ChangedFields = append(b.diff.ChangedFields, field)
	b.diff.OldValues[field] = oldValue
	b.diff.NewValues[field] = newValue
}

// compareString treats nil and "" as the same value.
func (b *builder) compareString(field string, oldValue, newValue *string) {
	o := derefString(oldValue)
	n := derefString(newValue)
	if o != n {
		b.record(field, o, n)
	}
}

func (b *builder) compareText(field string, oldValue, newValue string) {
	if oldValue != newValue {
		b.record(field, oldValue, newValue)
	}
}

func (b *builder) compareBool(field string, oldValue, newValue bool) {
	if oldValue != newValue {
		b.record(field, oldValue, newValue)
	}
}

func (b *builder) compareInt64Ptr(field string, oldValue, newValue *int64) {
	if derefInt64(oldValue) != derefInt64(newValue) {
		b.record(field, derefAny(oldValue), derefAny(newValue))
	}
}

// compareTime compares with millisecond precision; nil equals nil only.
func (b *builder) compareTime(field string, oldValue, newValue *time.Time) {
	if timeEqual(oldValue, newValue) {
		return
	}
	b.record(field, formatTime(oldValue), formatTime(newValue))
}

// compareJSON compares opaque documents by canonical stringification, with
// null, empty object and empty array all treated as absent.
func (b *builder) compareJSON(field string, oldValue, newValue any) {
	o := canonicalJSON(oldValue)
	n := canonicalJSON(newValue)
	if o != n {
		b.record(field, o, n)
	}
}

func (b *builder) build() Diff {
	if !b.diff.HasChanges {
		return Diff{}
	}
	return b.diff
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func derefInt64(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

func derefAny(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func timeEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Truncate(time.Millisecond).Equal(b.Truncate(time.Millisecond))
}

func formatTime(v *time.Time) any {
	if v == nil {
		return nil
	}
	return v.UTC().Format(timeFormat)
}

// canonicalJSON renders a value as minified JSON with sorted object keys, so
// two documents that differ only in formatting or key order compare equal.
// Null, "", {} and [] all canonicalize to the empty string.
func canonicalJSON(v any) string {
	if v == nil {
		return ""
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return string(raw)
	}
	if decoded == nil {
		return ""
	}
	out, err := json.Marshal(decoded)
	if err != nil {
		return string(raw)
	}
	switch s := string(out); s {
	case "null", "{}", "[]", `""`:
		return ""
	default:
		return s
	}
}
