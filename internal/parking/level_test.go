package parking

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	testclock "k8s.io/utils/clock/testing"
)

func newTestLevel(regular, ev, chargers int) (*Level, *testclock.FakeClock) {
	clk := testclock.NewFakeClock(testEpoch)
	return NewLevel("Boston", "BackBay", 1, regular, ev, chargers, clk), clk
}

func TestChargerIDFormat(t *testing.T) {
	tests := []struct {
		city, site string
		level, seq int
		want       string
	}{
		{"Boston", "BackBay", 1, 1, "BosBa1001"},
		{"New York", "Midtown", 2, 12, "NewMi2012"},
		{"Philadelphia", "X", 3, 7, "PhiX3007"},
	}
	for _, tt := range tests {
		if got := ChargerID(tt.city, tt.site, tt.level, tt.seq); got != tt.want {
			t.Errorf("ChargerID(%q, %q, %d, %d) = %q, want %q", tt.city, tt.site, tt.level, tt.seq, got, tt.want)
		}
	}
}

func TestLevelBindsChargersRoundRobin(t *testing.T) {
	level, _ := newTestLevel(0, 5, 2)

	want := []string{"BosBa1001", "BosBa1002", "BosBa1001", "BosBa1002", "BosBa1001"}
	for i, id := range want {
		got, ok := level.ChargerForSlot(i + 1)
		if !ok || got != id {
			t.Errorf("slot %d: expected charger %s, got %s (ok=%v)", i+1, id, got, ok)
		}
	}
	if _, ok := level.ChargerForSlot(6); ok {
		t.Error("Expected no charger beyond the EV slots")
	}

	bare, _ := newTestLevel(0, 3, 0)
	if _, ok := bare.ChargerForSlot(1); ok {
		t.Error("Expected no charger bindings on a level without chargers")
	}
}

func TestLevelParkNumbersArraysIndependently(t *testing.T) {
	level, _ := newTestLevel(2, 2, 1)

	regular, err := level.Park(NewVehicle("R1", "Red"))
	if err != nil || regular != 1 {
		t.Fatalf("Expected regular slot 1, got %d (%v)", regular, err)
	}
	ev, err := level.Park(NewElectricVehicle("E1", "Red", 60))
	if err != nil || ev != 1 {
		t.Fatalf("Expected EV slot 1, got %d (%v)", ev, err)
	}

	keys := level.RecordKeys()
	want := map[RecordKey]bool{{1, false}: true, {1, true}: true}
	if len(keys) != 2 || !want[keys[0]] || !want[keys[1]] {
		t.Errorf("Unexpected record keys %v", keys)
	}
}

func TestLevelParkFullArray(t *testing.T) {
	level, _ := newTestLevel(1, 0, 0)

	if _, err := level.Park(NewVehicle("R1", "Red")); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, err := level.Park(NewVehicle("R2", "Red")); !errors.Is(err, ErrNoSlotAvailable) {
		t.Errorf("Expected ErrNoSlotAvailable, got %v", err)
	}
	if _, err := level.Park(NewElectricVehicle("E1", "Red", 60)); !errors.Is(err, ErrNoSlotAvailable) {
		t.Errorf("Expected ErrNoSlotAvailable for a level without EV slots, got %v", err)
	}
}

func TestLevelRemove(t *testing.T) {
	level, clk := newTestLevel(2, 0, 0)
	vehicle := NewVehicle("R1", "Red")
	level.Park(vehicle)

	clk.Step(90 * time.Minute)
	info, err := level.Remove(1, false)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	want := RemovalInfo{
		Vehicle:    vehicle,
		StartTime:  testEpoch,
		EndTime:    testEpoch.Add(90 * time.Minute),
		SlotNumber: 1,
	}
	if diff := cmp.Diff(want, info); diff != "" {
		t.Errorf("RemovalInfo mismatch (-want +got):\n%s", diff)
	}
	if len(level.RecordKeys()) != 0 {
		t.Error("Expected record to be deleted with the vehicle")
	}

	for _, slot := range []int{0, 1, 3} {
		if _, err := level.Remove(slot, false); !errors.Is(err, ErrInvalidSlot) {
			t.Errorf("slot %d: expected ErrInvalidSlot, got %v", slot, err)
		}
	}
	if _, err := level.Remove(1, true); !errors.Is(err, ErrInvalidSlot) {
		t.Errorf("Expected ErrInvalidSlot for an EV slot on a level without EV slots, got %v", err)
	}
}

func TestLevelRemoveWithoutRecord(t *testing.T) {
	level, _ := newTestLevel(1, 0, 0)
	level.Park(NewVehicle("R1", "Red"))
	delete(level.records, RecordKey{SlotNumber: 1})

	if _, err := level.Remove(1, false); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("Expected ErrRecordNotFound, got %v", err)
	}
	if level.VehicleAt(1, false) == nil {
		t.Error("Expected the slot to stay occupied when the record is missing")
	}
}

func TestLevelFindSlots(t *testing.T) {
	level, _ := newTestLevel(3, 2, 1)
	level.Park(VehicleFromAttributes(VehicleAttributes{RegistrationNumber: "R1", Make: "Ford", Color: "White"}))
	level.Park(VehicleFromAttributes(VehicleAttributes{RegistrationNumber: "R2", Make: "Honda", Color: "Black"}))
	level.Park(VehicleFromAttributes(VehicleAttributes{RegistrationNumber: "R3", Make: "Ford", Color: "white"}))
	level.Park(VehicleFromAttributes(VehicleAttributes{RegistrationNumber: "E1", Make: "Tesla", Color: "White", EV: true}))

	regular, ev := level.FindSlots(SearchByColor, "WHITE")
	if diff := cmp.Diff([]int{1, 3}, regular); diff != "" {
		t.Errorf("regular mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{1}, ev); diff != "" {
		t.Errorf("ev mismatch (-want +got):\n%s", diff)
	}

	regular, ev = level.FindSlots(SearchByMake, "Audi")
	if regular == nil || ev == nil || len(regular)+len(ev) != 0 {
		t.Errorf("Expected empty non-nil results, got %v %v", regular, ev)
	}
}

func TestParseSearchField(t *testing.T) {
	if f, err := ParseSearchField("model"); err != nil || f != SearchByModel {
		t.Errorf("Expected model field, got %q (%v)", f, err)
	}
	if _, err := ParseSearchField("owner"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument, got %v", err)
	}
}

func TestLevelRemoveRegularKeepsEVRecord(t *testing.T) {
	level, _ := newTestLevel(2, 2, 1)
	level.Park(NewVehicle("R1", "Red"))
	ev := NewElectricVehicle("E1", "Red", 60)
	level.Park(ev)

	if _, err := level.Remove(1, false); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	record, ok := level.Record(1, true)
	if !ok || record.Vehicle != ev {
		t.Error("Expected EV slot 1 record to survive removal of regular slot 1")
	}
}

func TestLevelReusesLowestFreedSlot(t *testing.T) {
	level, _ := newTestLevel(3, 0, 0)
	for _, reg := range []string{"R1", "R2", "R3"} {
		level.Park(NewVehicle(reg, "Red"))
	}
	level.Remove(2, false)

	slot, err := level.Park(NewVehicle("R4", "Red"))
	if err != nil || slot != 2 {
		t.Errorf("Expected freed slot 2 to be reused, got %d (%v)", slot, err)
	}
}
