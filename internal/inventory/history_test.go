package inventory

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFormatHistory(t *testing.T) {
	events := []HistoryEvent{
		{
			ID:        1,
			Timestamp: "2026-02-01T09:00:00",
			Changes: map[string]FieldChange{
				"status":        {Old: StatusInStock, New: StatusDeployed},
				"assigned_user": {Old: nil, New: "Jane Doe"},
				"row":           {Old: "A1", New: "A1"},
			},
		},
		{
			ID:        2,
			Timestamp: "2026-02-03T09:00:00",
			Changes: map[string]FieldChange{
				"note":     {Old: "", New: "dented"},
				"quantity": {Old: float64(3), New: float64(5)},
			},
		},
	}

	got := FormatHistory(events, false, SortDesc)
	if len(got) != 2 || got[0].ID != 2 || got[1].ID != 1 {
		t.Fatalf("FormatHistory() order = %v, want [2 1]", []int64{got[0].ID, got[1].ID})
	}
	if diff := cmp.Diff([]string{"Note: - -> dented", "Quantity: 3 -> 5"}, got[0].ChangeLines); diff != "" {
		t.Errorf("event 2 lines mismatch (-want +got):\n%s", diff)
	}
	if !got[0].HasNoteFieldChange || got[1].HasNoteFieldChange {
		t.Error("HasNoteFieldChange wrong")
	}
	if diff := cmp.Diff([]string{"Assigned user: - -> Jane Doe", "Status: in_stock -> deployed"}, got[1].ChangeLines); diff != "" {
		t.Errorf("event 1 lines mismatch (-want +got):\n%s", diff)
	}

	asc := FormatHistory(events, false, SortAsc)
	if asc[0].ID != 1 {
		t.Errorf("ascending first = %d, want 1", asc[0].ID)
	}
}

func TestFormatHistory_Cable(t *testing.T) {
	events := []HistoryEvent{{
		ID:        1,
		Timestamp: "2026-02-01T09:00:00Z",
		Changes: map[string]FieldChange{
			"model":         {Old: "6", New: "6 ft"},
			"assigned_user": {Old: nil, New: "Bob"},
			"make":          {Old: "HDMI-USB", New: "HDMI-VGA"},
		},
	}}

	got := FormatHistory(events, true, SortDesc)
	if diff := cmp.Diff([]string{"Make: HDMI-USB -> HDMI-VGA"}, got[0].ChangeLines); diff != "" {
		t.Errorf("cable lines mismatch (-want +got):\n%s", diff)
	}

	events[0].Changes["model"] = FieldChange{Old: "6", New: "10"}
	got = FormatHistory(events, true, SortDesc)
	want := []string{"Make: HDMI-USB -> HDMI-VGA", "Length (ft): 6 ft -> 10 ft"}
	if diff := cmp.Diff(want, got[0].ChangeLines); diff != "" {
		t.Errorf("cable length lines mismatch (-want +got):\n%s", diff)
	}
}
