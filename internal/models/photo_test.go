package models

import (
	"testing"
	"time"
)

func TestNewPhotoID_OrderedAcrossMilliseconds(t *testing.T) {
	prev := NewPhotoID()
	for i := 0; i < 10; i++ {
		time.Sleep(2 * time.Millisecond)
		id := NewPhotoID()
		if id <= prev {
			t.Errorf("Expected ids to increase across milliseconds: %d then %d", prev, id)
		}
		prev = id
	}
}

func TestNewPhotoDate_RoundTrips(t *testing.T) {
	date := NewPhotoDate()
	parsed, err := time.Parse(time.RFC3339Nano, date)
	if err != nil {
		t.Fatalf("Photo date %q is not RFC3339: %v", date, err)
	}
	if parsed.Location() != time.UTC {
		t.Errorf("Expected UTC timestamp, got %v", parsed.Location())
	}
}
