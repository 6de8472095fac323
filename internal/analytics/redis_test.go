package analytics

import (
	"testing"
	"time"
)

func TestBuildKey_HourBuckets(t *testing.T) {
	at := time.Date(2024, 3, 1, 15, 42, 10, 0, time.UTC)

	got := buildKey("dest-1", "success", at)
	want := "dest:dest-1:success:2024030115"
	if got != want {
		t.Errorf("buildKey = %q, want %q", got, want)
	}

	// Same hour, different minute: same bucket.
	later := at.Add(10 * time.Minute)
	if buildKey("dest-1", "success", later) != want {
		t.Error("keys within the same hour should share a bucket")
	}

	// Next hour: new bucket.
	next := at.Add(time.Hour)
	if buildKey("dest-1", "success", next) == want {
		t.Error("keys in different hours should not share a bucket")
	}
}

func TestBuildKey_NormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	local := time.Date(2024, 3, 1, 17, 0, 0, 0, loc) // 15:00 UTC

	if got := buildKey("d", "failed", local); got != "dest:d:failed:2024030115" {
		t.Errorf("buildKey = %q, want UTC bucket", got)
	}
}
