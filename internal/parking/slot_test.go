package parking

import "testing"

func TestNewSlot(t *testing.T) {
	slotNumber := 1
	slot := NewSlot(slotNumber)

	if slot.Number != slotNumber {
		t.Errorf("Expected slot number %d, got %d", slotNumber, slot.Number)
	}

	if slot.IsOccupied {
		t.Error("Expected new slot to be unoccupied")
	}

	if slot.Vehicle != nil {
		t.Error("Expected new slot to have no vehicle")
	}
}

func TestSlotParkAndLeave(t *testing.T) {
	slot := NewSlot(1)
	vehicle := NewVehicle("KA01HH1234", "White")

	slot.Park(vehicle)
	if !slot.IsOccupied || slot.Vehicle != vehicle {
		t.Fatal("Expected slot to hold the parked vehicle")
	}

	leaving := slot.Leave()
	if slot.IsOccupied || slot.Vehicle != nil {
		t.Error("Expected slot to be empty after leaving")
	}
	if leaving != vehicle {
		t.Error("Expected leaving vehicle to be the same as parked vehicle")
	}
}

func TestSlotArrayFirstFit(t *testing.T) {
	slots := newSlotArray(3)

	for i := 1; i <= 3; i++ {
		free := slots.firstFree()
		if free == nil || free.Number != i {
			t.Fatalf("Expected first free slot %d, got %v", i, free)
		}
		free.Park(NewVehicle("REG", "Red"))
	}
	if slots.firstFree() != nil {
		t.Error("Expected no free slot in a full array")
	}

	slots.get(2).Leave()
	if free := slots.firstFree(); free == nil || free.Number != 2 {
		t.Errorf("Expected freed slot 2 to be reused, got %v", free)
	}
	if got := len(slots.occupied()); got != 2 {
		t.Errorf("Expected 2 occupied slots, got %d", got)
	}
}

func TestSlotArrayGetOutOfRange(t *testing.T) {
	slots := newSlotArray(2)
	for _, n := range []int{0, -1, 3} {
		if slots.get(n) != nil {
			t.Errorf("Expected nil for slot %d", n)
		}
	}
}
