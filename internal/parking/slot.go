package parking

type Slot struct {
	Number     int
	IsOccupied bool
	Vehicle    *Vehicle
}

func NewSlot(number int) *Slot {
	return &Slot{
		Number:     number,
		IsOccupied: false,
		Vehicle:    nil,
	}
}

func (s *Slot) Park(vehicle *Vehicle) {
	s.Vehicle = vehicle
	s.IsOccupied = true
}

func (s *Slot) Leave() *Vehicle {
	vehicle := s.Vehicle
	s.Vehicle = nil
	s.IsOccupied = false
	return vehicle
}

// slotArray is a fixed-size, 1-based run of slots allocated first-fit.
type slotArray []*Slot

func newSlotArray(capacity int) slotArray {
	slots := make(slotArray, capacity)
	for i := 0; i < capacity; i++ {
		slots[i] = NewSlot(i + 1)
	}
	return slots
}

func (a slotArray) firstFree() *Slot {
	for _, slot := range a {
		if !slot.IsOccupied {
			return slot
		}
	}
	return nil
}

func (a slotArray) get(number int) *Slot {
	if number < 1 || number > len(a) {
		return nil
	}
	return a[number-1]
}

func (a slotArray) occupied() []*Slot {
	var out []*Slot
	for _, slot := range a {
		if slot.IsOccupied {
			out = append(out, slot)
		}
	}
	return out
}
