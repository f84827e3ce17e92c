package timetablestore

import (
	"testing"

	"github.com/dalemusser/schoolhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func entry(day, start, end, class, section, teacher, room string) models.TimetableEntry {
	return models.TimetableEntry{
		ID:        primitive.NewObjectID(),
		Day:       day,
		Start:     start,
		End:       end,
		ClassID:   class,
		SectionID: section,
		TeacherID: teacher,
		Room:      room,
	}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b models.TimetableEntry
		want bool
	}{
		{"same slot", entry("mon", "09:00", "10:00", "", "", "", ""), entry("mon", "09:00", "10:00", "", "", "", ""), true},
		{"partial", entry("mon", "09:00", "10:00", "", "", "", ""), entry("mon", "09:30", "10:30", "", "", "", ""), true},
		{"back to back", entry("mon", "09:00", "10:00", "", "", "", ""), entry("mon", "10:00", "11:00", "", "", "", ""), false},
		{"different day", entry("mon", "09:00", "10:00", "", "", "", ""), entry("tue", "09:00", "10:00", "", "", "", ""), false},
		{"contained", entry("fri", "08:00", "12:00", "", "", "", ""), entry("fri", "09:00", "09:45", "", "", "", ""), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Overlaps(tt.a, tt.b); got != tt.want {
				t.Errorf("Overlaps = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFindConflicts(t *testing.T) {
	entries := []models.TimetableEntry{
		entry("mon", "09:00", "10:00", "c1", "A", "T1", "R1"),
		entry("mon", "09:30", "10:30", "c2", "A", "T1", "R2"), // teacher clash with 0
		entry("mon", "09:00", "10:00", "c1", "B", "T2", "R1"), // room clash with 0
		entry("mon", "09:15", "09:45", "c1", "", "T3", "R3"),  // whole class c1 clashes with 0 and 2
		entry("tue", "09:00", "10:00", "c1", "A", "T1", "R1"), // different day
	}
	got := FindConflicts(entries)

	count := map[string]int{}
	for _, c := range got {
		count[c.Reason]++
	}
	if count[ReasonTeacher] != 1 {
		t.Errorf("teacher conflicts = %d, want 1", count[ReasonTeacher])
	}
	if count[ReasonRoom] != 1 {
		t.Errorf("room conflicts = %d, want 1", count[ReasonRoom])
	}
	if count[ReasonClass] != 2 {
		t.Errorf("class conflicts = %d, want 2", count[ReasonClass])
	}
}

func TestConflictsWith_IgnoresSelf(t *testing.T) {
	e := entry("wed", "11:00", "12:00", "c1", "A", "T1", "R1")
	if got := ConflictsWith(e, []models.TimetableEntry{e}); len(got) != 0 {
		t.Errorf("expected no self conflicts, got %d", len(got))
	}

	candidate := entry("wed", "11:30", "12:30", "c9", "A", "T1", "")
	got := ConflictsWith(candidate, []models.TimetableEntry{e})
	if len(got) != 1 || got[0].Reason != ReasonTeacher {
		t.Errorf("conflicts = %+v", got)
	}
}

func TestSortByWeek(t *testing.T) {
	entries := []models.TimetableEntry{
		entry("wed", "09:00", "10:00", "", "", "", ""),
		entry("mon", "11:00", "12:00", "", "", "", ""),
		entry("mon", "08:00", "09:00", "", "", "", ""),
	}
	SortByWeek(entries)
	if entries[0].Day != "mon" || entries[0].Start != "08:00" || entries[2].Day != "wed" {
		t.Errorf("order = %v %v %v", entries[0], entries[1], entries[2])
	}
}
