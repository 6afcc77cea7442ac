package extract

import (
	"time"

	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/models"
)

// Window is the resolved date filter for one extract run. A window with
// neither bound means a full export.
type Window struct {
	From *time.Time
	To   *time.Time
}

// IsFull reports whether the window places no date bounds on the export.
func (w Window) IsFull() bool {
	return w.From == nil && w.To == nil
}

// Metadata renders the window for run metadata.
func (w Window) Metadata() map[string]any {
	meta := map[string]any{"full": w.IsFull()}
	if w.From != nil {
		meta["from"] = w.From.UTC().Format(time.RFC3339)
	}
	if w.To != nil {
		meta["to"] = w.To.UTC().Format(time.RFC3339)
	}
	return meta
}

// ResolveWindow picks the date bounds for a run. The preset takes precedence
// over the explicit range, full disables filtering entirely, and a run with
// neither preset nor range falls back to the entity's last successful sync
// time. From is floored to the start of its day: the export endpoints accept
// day granularity only, and over-selecting is harmless because staging dedup
// and change detection absorb re-fetched records.
func ResolveWindow(preset models.TimeRangePreset, from, to, lastSync *time.Time, now time.Time) Window {
	if preset == models.TimeRangeFull {
		return Window{}
	}
	if days := preset.Days(); days > 0 {
		start := dayStart(now.AddDate(0, 0, -days))
		end := now
		return Window{From: &start, To: &end}
	}

	// Custom, or no preset at all: use the explicit range when given.
	if from != nil || to != nil {
		w := Window{To: to}
		if from != nil {
			start := dayStart(*from)
			w.From = &start
		}
		return w
	}
	if lastSync != nil {
		start := dayStart(*lastSync)
		return Window{From: &start}
	}
	return Window{}
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
