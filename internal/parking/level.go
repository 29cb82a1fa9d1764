package parking

import (
	"fmt"
	"sync"
	"time"

	"k8s.io/utils/clock"
)

// RecordKey identifies a parked vehicle. Regular and EV slots are numbered
// independently, so the slot number alone is ambiguous.
type RecordKey struct {
	SlotNumber int
	IsEV       bool
}

type ParkedVehicleRecord struct {
	Vehicle    *Vehicle
	StartTime  time.Time
	SlotNumber int
}

type RemovalInfo struct {
	Vehicle    *Vehicle
	StartTime  time.Time
	EndTime    time.Time
	SlotNumber int
	IsEV       bool
}

type SearchField string

const (
	SearchByRegistration SearchField = "registration"
	SearchByColor        SearchField = "color"
	SearchByModel        SearchField = "model"
	SearchByMake         SearchField = "make"
)

func ParseSearchField(s string) (SearchField, error) {
	switch f := SearchField(s); f {
	case SearchByRegistration, SearchByColor, SearchByModel, SearchByMake:
		return f, nil
	default:
		return "", fmt.Errorf("%w: unknown search field %q", ErrInvalidArgument, s)
	}
}

// Level is one floor of a site: fixed regular and EV slot arrays, a fixed set
// of chargers bound round-robin to the EV slots, and the waiting queues for
// those chargers. A Level is not safe for concurrent use on its own; the
// Service holds mu for the duration of every compound operation.
type Level struct {
	mu sync.Mutex

	City   string
	Site   string
	Number int

	regular      slotArray
	ev           slotArray
	chargerIDs   []string
	slotChargers map[int]string
	chargers     *ChargerEngine
	queues       *WaitingQueues
	records      map[RecordKey]*ParkedVehicleRecord
	clock        clock.PassiveClock
}

// ChargerID renders the external charger identifier: first three characters
// of the city, first two of the site, the level number and a zero-padded
// sequence.
func ChargerID(city, site string, level, seq int) string {
	return fmt.Sprintf("%s%s%d%03d", prefix(city, 3), prefix(site, 2), level, seq)
}

func prefix(s string, n int) string {
	r := []rune(s)
	if len(r) < n {
		return s
	}
	return string(r[:n])
}

func NewLevel(city, site string, number, regularSlots, evSlots, chargers int, clk clock.PassiveClock) *Level {
	chargerIDs := make([]string, 0, chargers)
	for seq := 1; seq <= chargers; seq++ {
		chargerIDs = append(chargerIDs, ChargerID(city, site, number, seq))
	}

	slotChargers := make(map[int]string, evSlots)
	if len(chargerIDs) > 0 {
		for i := 0; i < evSlots; i++ {
			slotChargers[i] = chargerIDs[i%len(chargerIDs)]
		}
	}

	return &Level{
		City:         city,
		Site:         site,
		Number:       number,
		regular:      newSlotArray(regularSlots),
		ev:           newSlotArray(evSlots),
		chargerIDs:   chargerIDs,
		slotChargers: slotChargers,
		chargers:     NewChargerEngine(clk, chargerIDs),
		queues:       NewWaitingQueues(chargerIDs),
		records:      make(map[RecordKey]*ParkedVehicleRecord),
		clock:        clk,
	}
}

func (l *Level) slots(isEV bool) slotArray {
	if isEV {
		return l.ev
	}
	return l.regular
}

// Park places the vehicle in the lowest free slot of the matching array.
func (l *Level) Park(vehicle *Vehicle) (int, error) {
	isEV := vehicle.IsEV()
	slot := l.slots(isEV).firstFree()
	if slot == nil {
		if isEV {
			return 0, fmt.Errorf("%w: no EV slots available", ErrNoSlotAvailable)
		}
		return 0, fmt.Errorf("%w: no regular slots available", ErrNoSlotAvailable)
	}

	slot.Park(vehicle)
	l.records[RecordKey{SlotNumber: slot.Number, IsEV: isEV}] = &ParkedVehicleRecord{
		Vehicle:    vehicle,
		StartTime:  l.clock.Now(),
		SlotNumber: slot.Number,
	}
	return slot.Number, nil
}

func (l *Level) Remove(slotNumber int, isEV bool) (RemovalInfo, error) {
	kind := "regular"
	if isEV {
		kind = "EV"
	}
	slot := l.slots(isEV).get(slotNumber)
	if slot == nil || !slot.IsOccupied {
		return RemovalInfo{}, fmt.Errorf("%w: %s slot %d is out of range or empty", ErrInvalidSlot, kind, slotNumber)
	}

	key := RecordKey{SlotNumber: slotNumber, IsEV: isEV}
	record, ok := l.records[key]
	if !ok {
		return RemovalInfo{}, fmt.Errorf("%w: %s slot %d", ErrRecordNotFound, kind, slotNumber)
	}

	vehicle := slot.Leave()
	delete(l.records, key)

	return RemovalInfo{
		Vehicle:    vehicle,
		StartTime:  record.StartTime,
		EndTime:    l.clock.Now(),
		SlotNumber: slotNumber,
		IsEV:       isEV,
	}, nil
}

// VehicleAt returns the vehicle in the slot, or nil when empty or out of range.
func (l *Level) VehicleAt(slotNumber int, isEV bool) *Vehicle {
	slot := l.slots(isEV).get(slotNumber)
	if slot == nil {
		return nil
	}
	return slot.Vehicle
}

func (l *Level) Record(slotNumber int, isEV bool) (*ParkedVehicleRecord, bool) {
	r, ok := l.records[RecordKey{SlotNumber: slotNumber, IsEV: isEV}]
	return r, ok
}

func (l *Level) RecordKeys() []RecordKey {
	keys := make([]RecordKey, 0, len(l.records))
	for k := range l.records {
		keys = append(keys, k)
	}
	return keys
}

// ChargerForSlot returns the charger statically bound to a 1-based EV slot.
func (l *Level) ChargerForSlot(slotNumber int) (string, bool) {
	id, ok := l.slotChargers[slotNumber-1]
	return id, ok
}

func (l *Level) ChargerIDs() []string {
	out := make([]string, len(l.chargerIDs))
	copy(out, l.chargerIDs)
	return out
}

func (l *Level) Capacity(isEV bool) int {
	return len(l.slots(isEV))
}

func (l *Level) OccupiedSlots(isEV bool) []*Slot {
	return l.slots(isEV).occupied()
}

func (l *Level) FindSlots(field SearchField, value string) (regular, ev []int) {
	regular = []int{}
	ev = []int{}
	for _, slot := range l.regular.occupied() {
		if slot.Vehicle.matches(field, value) {
			regular = append(regular, slot.Number)
		}
	}
	for _, slot := range l.ev.occupied() {
		if slot.Vehicle.matches(field, value) {
			ev = append(ev, slot.Number)
		}
	}
	return regular, ev
}

func (l *Level) Chargers() *ChargerEngine {
	return l.chargers
}

func (l *Level) Queues() *WaitingQueues {
	return l.queues
}
