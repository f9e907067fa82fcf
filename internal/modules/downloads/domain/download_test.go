package domain

import (
	"testing"
	"time"
)

func TestNewID(t *testing.T) {
	at := time.UnixMilli(1767225600123)

	tests := []struct {
		name    string
		movieID string
		season  int
		episode int
		want    string
	}{
		{"movie", "m1", 0, 0, "m1_0_0_1767225600123"},
		{"episode", "s1", 2, 7, "s1_2_7_1767225600123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewID(tt.movieID, tt.season, tt.episode, at); got != tt.want {
				t.Errorf("NewID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCloneIsIndependent(t *testing.T) {
	d := &Download{ID: "a", Progress: 10}
	c := d.Clone()
	c.Progress = 90
	if d.Progress != 10 {
		t.Errorf("original progress = %d, want 10", d.Progress)
	}
}

func TestFinished(t *testing.T) {
	for status, want := range map[Status]bool{
		StatusPending:     false,
		StatusDownloading: false,
		StatusCompleted:   true,
		StatusFailed:      true,
	} {
		if got := (&Download{Status: status}).Finished(); got != want {
			t.Errorf("Finished(%s) = %v, want %v", status, got, want)
		}
	}
}
