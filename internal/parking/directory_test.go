package parking

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	testclock "k8s.io/utils/clock/testing"
)

func TestDirectoryAddLevel(t *testing.T) {
	ctx := context.Background()
	dir := NewDirectory(testclock.NewFakeClock(testEpoch))

	level, err := dir.AddLevel(ctx, "Boston", "BackBay", 1, 2, 2, 1)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, err := dir.AddLevel(ctx, "Boston", "BackBay", 1, 2, 2, 1); !errors.Is(err, ErrDuplicateLevel) {
		t.Errorf("Expected ErrDuplicateLevel, got %v", err)
	}

	got, err := dir.Level("Boston", "BackBay", 1)
	if err != nil || got != level {
		t.Errorf("Expected to resolve the created level, got %v (%v)", got, err)
	}

	owner, err := dir.LevelForCharger("BosBa1001")
	if err != nil || owner != level {
		t.Errorf("Expected charger to resolve to its level, got %v (%v)", owner, err)
	}
	if _, err := dir.LevelForCharger("nope"); !errors.Is(err, ErrChargerNotFound) {
		t.Errorf("Expected ErrChargerNotFound, got %v", err)
	}
}

func TestDirectoryLevelNotFound(t *testing.T) {
	ctx := context.Background()
	dir := NewDirectory(nil)
	dir.AddLevel(ctx, "Boston", "BackBay", 1, 1, 0, 0)

	lookups := []struct {
		city, site string
		level      int
	}{
		{"Chicago", "BackBay", 1},
		{"Boston", "Fenway", 1},
		{"Boston", "BackBay", 2},
	}
	for _, l := range lookups {
		if _, err := dir.Level(l.city, l.site, l.level); !errors.Is(err, ErrTopologyNotFound) {
			t.Errorf("%v: expected ErrTopologyNotFound, got %v", l, err)
		}
	}
}

func TestDirectoryChargerCollisionKeepsFirstOwner(t *testing.T) {
	ctx := context.Background()
	dir := NewDirectory(nil)

	first, _ := dir.AddLevel(ctx, "Boston", "BackBay", 1, 0, 1, 1)
	second, err := dir.AddLevel(ctx, "Bostonia", "Backyard", 1, 0, 1, 1)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if second.ChargerIDs()[0] != first.ChargerIDs()[0] {
		t.Fatalf("Expected colliding ids, got %v and %v", first.ChargerIDs(), second.ChargerIDs())
	}

	owner, _ := dir.LevelForCharger("BosBa1001")
	if owner != first {
		t.Error("Expected the first level to keep the charger id")
	}
}

func TestDirectoryListings(t *testing.T) {
	ctx := context.Background()
	dir := NewDirectory(nil)
	dir.AddLevel(ctx, "New York", "Midtown", 2, 1, 0, 0)
	dir.AddLevel(ctx, "Boston", "Fenway", 1, 1, 0, 0)
	dir.AddLevel(ctx, "Boston", "BackBay", 1, 1, 0, 0)
	dir.AddLevel(ctx, "New York", "Midtown", 1, 1, 0, 0)

	if diff := cmp.Diff([]string{"Boston", "New York"}, dir.CityNames()); diff != "" {
		t.Errorf("cities mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"BackBay", "Fenway"}, dir.SiteNames("Boston")); diff != "" {
		t.Errorf("sites mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{1, 2}, dir.LevelNumbers("New York", "Midtown")); diff != "" {
		t.Errorf("levels mismatch (-want +got):\n%s", diff)
	}

	var order []string
	for _, lv := range dir.Levels() {
		order = append(order, lv.Site)
	}
	if diff := cmp.Diff([]string{"BackBay", "Fenway", "Midtown", "Midtown"}, order); diff != "" {
		t.Errorf("level order mismatch (-want +got):\n%s", diff)
	}
}
