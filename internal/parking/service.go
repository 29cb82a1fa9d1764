package parking

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/tiendc/go-deepcopy"

	"ev-parking/internal/logging"
)

type Options struct {
	Rates        Rates
	ChargeRateKW float64
}

type FacilitySpec struct {
	City         string `json:"city" yaml:"city"`
	Site         string `json:"site" yaml:"site"`
	Levels       int    `json:"levels" yaml:"levels"`
	RegularSlots int    `json:"regular_slots" yaml:"regular_slots"`
	EVSlots      int    `json:"ev_slots" yaml:"ev_slots"`
	Chargers     int    `json:"chargers" yaml:"chargers"`
}

type FacilityResult struct {
	City          string `json:"city"`
	Site          string `json:"site"`
	AddedLevels   []int  `json:"added_levels"`
	SkippedLevels []int  `json:"skipped_levels,omitempty"`
}

type Admission string

const (
	AdmissionCharging  Admission = "charging"
	AdmissionQueued    Admission = "queued"
	AdmissionNoCharger Admission = "no_charger"
)

type ParkResult struct {
	SlotNumber int       `json:"slot_number"`
	IsEV       bool      `json:"is_ev"`
	ChargerID  string    `json:"charger_id,omitempty"`
	Admission  Admission `json:"admission,omitempty"`
}

type Receipt struct {
	RemovalInfo
	City      string
	Site      string
	Level     int
	ChargerID string
	Bill      Bill
}

type SessionView struct {
	ID           string       `json:"id"`
	Registration string       `json:"registration"`
	SlotNumber   int          `json:"slot_number"`
	State        SessionState `json:"state"`
	KWhDelivered float64      `json:"kwh_delivered"`
	StartTime    time.Time    `json:"start_time"`
	LastUpdate   time.Time    `json:"last_update"`
}

type ChargerInfo struct {
	ChargerID string        `json:"charger_id"`
	Status    ChargerStatus `json:"status"`
	Session   *SessionView  `json:"session,omitempty"`
	Waiting   []int         `json:"waiting"`
}

type ReportStatus string

const (
	ReportCharging  ReportStatus = "charging"
	ReportFull      ReportStatus = "full"
	ReportStopped   ReportStatus = "stopped"
	ReportWaiting   ReportStatus = "waiting"
	ReportNoCharger ReportStatus = "no_charger"
)

type ChargeReportRow struct {
	SlotNumber    int          `json:"slot"`
	Registration  string       `json:"registration"`
	Status        ReportStatus `json:"status"`
	ChargerID     string       `json:"charger_id,omitempty"`
	KWhDelivered  float64      `json:"kwh_delivered"`
	ChargePercent float64      `json:"charge_percent"`
	StartTime     *time.Time   `json:"start_time,omitempty"`
}

type SlotView struct {
	SlotNumber int       `json:"slot"`
	Vehicle    Vehicle   `json:"vehicle"`
	Type       string    `json:"type"`
	StartTime  time.Time `json:"start_time"`
}

type LevelStatus struct {
	City            string     `json:"city"`
	Site            string     `json:"site"`
	Level           int        `json:"level"`
	RegularCapacity int        `json:"regular_capacity"`
	EVCapacity      int        `json:"ev_capacity"`
	ChargerIDs      []string   `json:"charger_ids"`
	Regular         []SlotView `json:"regular"`
	EV              []SlotView `json:"ev"`
}

type TopologyEntry struct {
	City       string   `json:"city"`
	Site       string   `json:"site"`
	Level      int      `json:"level"`
	ChargerIDs []string `json:"charger_ids"`
}

// Service coordinates slot allocation, charger sessions, waiting queues and
// billing. Every operation on a level runs under that level's lock.
type Service struct {
	directory    *Directory
	billing      BillingEngine
	chargeRateKW float64
}

func NewService(directory *Directory, opts Options) *Service {
	rate := opts.ChargeRateKW
	if rate <= 0 {
		rate = DefaultChargeRateKW
	}
	return &Service{
		directory:    directory,
		billing:      NewBillingEngine(opts.Rates),
		chargeRateKW: rate,
	}
}

func (s *Service) Directory() *Directory {
	return s.directory
}

func (s *Service) CreateFacility(ctx context.Context, spec FacilitySpec) (FacilityResult, error) {
	if spec.City == "" || spec.Site == "" {
		return FacilityResult{}, fmt.Errorf("%w: city and site are required", ErrInvalidArgument)
	}
	if spec.Levels < 0 || spec.RegularSlots < 0 || spec.EVSlots < 0 || spec.Chargers < 0 {
		return FacilityResult{}, fmt.Errorf("%w: facility counts must not be negative", ErrInvalidArgument)
	}

	s.directory.GetOrCreateCity(spec.City)
	result := FacilityResult{City: spec.City, Site: spec.Site, AddedLevels: []int{}}
	for n := 1; n <= spec.Levels; n++ {
		_, err := s.directory.AddLevel(ctx, spec.City, spec.Site, n, spec.RegularSlots, spec.EVSlots, spec.Chargers)
		if errors.Is(err, ErrDuplicateLevel) {
			logging.Warn(ctx, "level already exists, skipping", "city", spec.City, "site", spec.Site, "level", n)
			result.SkippedLevels = append(result.SkippedLevels, n)
			continue
		}
		if err != nil {
			return result, err
		}
		result.AddedLevels = append(result.AddedLevels, n)
	}
	return result, nil
}

func (s *Service) ParkVehicle(ctx context.Context, city, site string, level int, attrs VehicleAttributes) (ParkResult, error) {
	lv, err := s.directory.Level(city, site, level)
	if err != nil {
		return ParkResult{}, err
	}
	lv.mu.Lock()
	defer lv.mu.Unlock()

	vehicle := VehicleFromAttributes(attrs)
	slot, err := lv.Park(vehicle)
	if err != nil {
		return ParkResult{}, err
	}

	result := ParkResult{SlotNumber: slot, IsEV: vehicle.IsEV()}
	if vehicle.IsEV() {
		result.ChargerID, result.Admission = s.admit(ctx, lv, slot, vehicle)
	}
	return result, nil
}

// admit starts charging on the slot's charger when it is free and queues the
// slot otherwise. It is also the re-entry point for auto-assignment.
func (s *Service) admit(ctx context.Context, lv *Level, slot int, vehicle *Vehicle) (string, Admission) {
	chargerID, ok := lv.ChargerForSlot(slot)
	if !ok {
		logging.Debug(ctx, "no charger bound to EV slot", "slot", slot, "registration", vehicle.RegistrationNumber)
		return "", AdmissionNoCharger
	}

	if lv.chargers.Available(chargerID) {
		_, err := lv.chargers.Start(chargerID, vehicle, slot)
		if err == nil {
			logging.Debug(ctx, "charging started", "charger_id", chargerID, "slot", slot)
			return chargerID, AdmissionCharging
		}
		logging.Error(ctx, "failed to start available charger", "charger_id", chargerID, "error", err)
	}

	lv.queues.Enqueue(chargerID, slot)
	logging.Debug(ctx, "charger busy, slot queued", "charger_id", chargerID, "slot", slot)
	return chargerID, AdmissionQueued
}

// autoAssign hands a newly available charger to the first queued slot that
// is still occupied. Entries whose vehicle already left are dropped.
func (s *Service) autoAssign(ctx context.Context, lv *Level, chargerID string) {
	if !lv.chargers.Available(chargerID) {
		return
	}
	for {
		slot, ok := lv.queues.Pop(chargerID)
		if !ok {
			return
		}
		vehicle := lv.VehicleAt(slot, true)
		if vehicle == nil {
			logging.Debug(ctx, "dropping stale queue entry", "charger_id", chargerID, "slot", slot)
			continue
		}
		s.admit(ctx, lv, slot, vehicle)
		return
	}
}

// refresh accrues energy on the charger and reassigns it if the session just
// completed.
func (s *Service) refresh(ctx context.Context, lv *Level, chargerID string) Accrual {
	acc := lv.chargers.Accrue(chargerID, s.chargeRateKW)
	if acc.ReachedFull {
		logging.Info(ctx, "charging complete, charger released", "charger_id", chargerID)
		s.autoAssign(ctx, lv, chargerID)
	}
	return acc
}

func (s *Service) RemoveVehicle(ctx context.Context, city, site string, level, slot int, isEV bool) (Receipt, error) {
	lv, err := s.directory.Level(city, site, level)
	if err != nil {
		return Receipt{}, err
	}
	lv.mu.Lock()
	defer lv.mu.Unlock()

	info, err := lv.Remove(slot, isEV)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			logging.Error(ctx, "invariant violation: occupied slot without record",
				"city", city, "site", site, "level", level, "slot", slot, "is_ev", isEV)
		}
		return Receipt{}, err
	}

	receipt := Receipt{RemovalInfo: info, City: city, Site: site, Level: level}
	var kwh float64
	if info.IsEV && info.Vehicle.IsEV() {
		receipt.ChargerID, kwh = s.settleCharging(ctx, lv, slot, info.Vehicle)
	}
	receipt.Bill = s.billing.Calculate(info.Vehicle, info.StartTime, info.EndTime, kwh)
	return receipt, nil
}

// settleCharging reads the energy owed by a departing EV, then frees its
// charger for the next waiting slot.
func (s *Service) settleCharging(ctx context.Context, lv *Level, slot int, vehicle *Vehicle) (string, float64) {
	battery := vehicle.Battery
	chargerID, ok := lv.ChargerForSlot(slot)
	if !ok {
		if battery.IsFull() {
			return "", battery.CapacityKWh
		}
		return "", battery.DeliveredThisSessionKWh
	}

	lv.queues.Remove(chargerID, slot)

	session := lv.chargers.Session(chargerID)
	owned := session != nil && session.Vehicle == vehicle && session.SlotNumber == slot
	if owned {
		s.refresh(ctx, lv, chargerID)
	}

	var kwh float64
	switch {
	case battery.IsFull():
		kwh = battery.CapacityKWh
	case owned:
		kwh = session.KWhDelivered
	default:
		kwh = battery.DeliveredThisSessionKWh
	}

	if owned && lv.chargers.Session(chargerID) == session {
		lv.chargers.Stop(chargerID)
		lv.chargers.Release(chargerID)
		s.autoAssign(ctx, lv, chargerID)
	}
	return chargerID, kwh
}

func (s *Service) ChargerStatus(ctx context.Context, chargerID string) (ChargerInfo, error) {
	lv, err := s.directory.LevelForCharger(chargerID)
	if err != nil {
		return ChargerInfo{}, err
	}
	lv.mu.Lock()
	defer lv.mu.Unlock()

	s.refresh(ctx, lv, chargerID)
	return s.chargerInfo(lv, chargerID)
}

// Tick advances the charger's session to now and reports what was accepted.
func (s *Service) Tick(ctx context.Context, chargerID string) (Accrual, error) {
	lv, err := s.directory.LevelForCharger(chargerID)
	if err != nil {
		return Accrual{}, err
	}
	lv.mu.Lock()
	defer lv.mu.Unlock()

	return s.refresh(ctx, lv, chargerID), nil
}

func (s *Service) chargerInfo(lv *Level, chargerID string) (ChargerInfo, error) {
	status, err := lv.chargers.Status(chargerID)
	if err != nil {
		return ChargerInfo{}, err
	}
	info := ChargerInfo{
		ChargerID: chargerID,
		Status:    status,
		Waiting:   lv.queues.Snapshot(chargerID),
	}
	if session := lv.chargers.Session(chargerID); session != nil {
		info.Session = &SessionView{
			ID:           session.ID,
			Registration: session.Vehicle.RegistrationNumber,
			SlotNumber:   session.SlotNumber,
			State:        session.State,
			KWhDelivered: session.KWhDelivered,
			StartTime:    session.StartTime,
			LastUpdate:   session.LastUpdate,
		}
	}
	return info, nil
}

func (s *Service) EVChargeReport(ctx context.Context, city, site string, level int) ([]ChargeReportRow, error) {
	lv, err := s.directory.Level(city, site, level)
	if err != nil {
		return nil, err
	}
	lv.mu.Lock()
	defer lv.mu.Unlock()

	for _, chargerID := range lv.ChargerIDs() {
		s.refresh(ctx, lv, chargerID)
	}

	rows := []ChargeReportRow{}
	for _, slot := range lv.OccupiedSlots(true) {
		vehicle := slot.Vehicle
		if !vehicle.IsEV() {
			continue
		}
		row := ChargeReportRow{
			SlotNumber:   slot.Number,
			Registration: vehicle.RegistrationNumber,
		}

		chargerID, bound := lv.ChargerForSlot(slot.Number)
		row.ChargerID = chargerID
		session := lv.chargers.Session(chargerID)

		switch {
		case bound && session != nil && session.Vehicle == vehicle:
			row.Status = ReportStatus(session.State)
			row.KWhDelivered = session.KWhDelivered
			start := session.StartTime
			row.StartTime = &start
		case vehicle.Battery.IsFull():
			row.Status = ReportFull
			row.KWhDelivered = vehicle.Battery.ChargeKWh
		case !bound:
			row.Status = ReportNoCharger
		default:
			row.Status = ReportWaiting
		}

		row.ChargePercent = chargePercent(row.KWhDelivered, vehicle.Battery.CapacityKWh)
		rows = append(rows, row)
	}
	return rows, nil
}

func chargePercent(kwh, capacity float64) float64 {
	if capacity <= 0 {
		return 0
	}
	return math.Min(100, roundTo(kwh/capacity*100, 2))
}

func (s *Service) FindSlots(ctx context.Context, city, site string, level int, field SearchField, value string) ([]int, []int, error) {
	lv, err := s.directory.Level(city, site, level)
	if err != nil {
		return nil, nil, err
	}
	lv.mu.Lock()
	defer lv.mu.Unlock()

	regular, ev := lv.FindSlots(field, value)
	return regular, ev, nil
}

// LevelStatus lists every occupied slot. Vehicles are detached copies so
// callers never observe later battery updates.
func (s *Service) LevelStatus(ctx context.Context, city, site string, level int) (LevelStatus, error) {
	lv, err := s.directory.Level(city, site, level)
	if err != nil {
		return LevelStatus{}, err
	}
	lv.mu.Lock()
	defer lv.mu.Unlock()

	status := LevelStatus{
		City:            lv.City,
		Site:            lv.Site,
		Level:           lv.Number,
		RegularCapacity: lv.Capacity(false),
		EVCapacity:      lv.Capacity(true),
		ChargerIDs:      lv.ChargerIDs(),
	}
	if status.Regular, err = slotViews(lv, false); err != nil {
		return LevelStatus{}, err
	}
	if status.EV, err = slotViews(lv, true); err != nil {
		return LevelStatus{}, err
	}
	return status, nil
}

func slotViews(lv *Level, isEV bool) ([]SlotView, error) {
	views := []SlotView{}
	for _, slot := range lv.OccupiedSlots(isEV) {
		view := SlotView{SlotNumber: slot.Number, Type: slot.Vehicle.TypeName()}
		if err := deepcopy.Copy(&view.Vehicle, slot.Vehicle); err != nil {
			return nil, fmt.Errorf("snapshot slot %d: %w", slot.Number, err)
		}
		if record, ok := lv.Record(slot.Number, isEV); ok {
			view.StartTime = record.StartTime
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *Service) Topology() []TopologyEntry {
	entries := []TopologyEntry{}
	for _, lv := range s.directory.Levels() {
		entries = append(entries, TopologyEntry{
			City:       lv.City,
			Site:       lv.Site,
			Level:      lv.Number,
			ChargerIDs: lv.ChargerIDs(),
		})
	}
	return entries
}
