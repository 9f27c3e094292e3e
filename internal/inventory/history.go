package inventory

import (
	"fmt"
	"sort"
	"strconv"
)

// fieldLabels names history fields for display.
var fieldLabels = map[string]string{
	"category":      "Category",
	"make":          "Make",
	"model":         "Model",
	"service_tag":   "Service tag",
	"quantity":      "Quantity",
	"row":           "Row",
	"note":          "Note",
	"status":        "Status",
	"assigned_user": "Assigned user",
}

// HistoryEntry is a history event prepared for display.
type HistoryEntry struct {
	HistoryEvent
	ChangeLines        []string `json:"changeLines"`
	HasNoteFieldChange bool     `json:"hasNoteFieldChange"`
	PrettyTimestamp    string   `json:"prettyTimestamp"`
}

// FormatHistory turns raw events into display entries sorted by timestamp
// in direction ("desc" newest first, anything else oldest first).
//
// For cables the model is shown as "Length (ft)" with normalized lengths
// and assigned_user changes are omitted. Changes whose old and new values
// render the same are dropped.
func FormatHistory(events []HistoryEvent, cable bool, direction string) []HistoryEntry {
	entries := make([]HistoryEntry, 0, len(events))
	for _, ev := range events {
		_, hasNote := ev.Changes["note"]
		entries = append(entries, HistoryEntry{
			HistoryEvent:       ev,
			ChangeLines:        changeLines(ev.Changes, cable),
			HasNoteFieldChange: hasNote,
			PrettyTimestamp:    FormatDate(ev.Timestamp),
		})
	}

	desc := direction == SortDesc
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := SortableTime(entries[i].Timestamp), SortableTime(entries[j].Timestamp)
		if desc {
			return a > b
		}
		return a < b
	})
	return entries
}

func changeLines(changes map[string]FieldChange, cable bool) []string {
	keys := make([]string, 0, len(changes))
	for k := range changes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, key := range keys {
		if cable && key == "assigned_user" {
			continue
		}
		oldValue := historyValue(changes[key].Old)
		newValue := historyValue(changes[key].New)
		if key == "model" && cable {
			oldValue = NormalizeCableLength(oldValue)
			newValue = NormalizeCableLength(newValue)
		}
		if oldValue == newValue {
			continue
		}

		label, ok := fieldLabels[key]
		if !ok {
			label = key
		}
		if key == "model" && cable {
			label = "Length (ft)"
		}
		lines = append(lines, fmt.Sprintf("%s: %s -> %s", label, dash(oldValue), dash(newValue)))
	}
	return lines
}

// historyValue renders a recorded JSON scalar; null becomes "".
func historyValue(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprint(s)
	}
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
