package parking

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"k8s.io/utils/clock"
)

const DefaultChargeRateKW = 7.0

type ChargerStatus string

const (
	ChargerAvailable ChargerStatus = "available"
	ChargerCharging  ChargerStatus = "charging"
	ChargerOccupied  ChargerStatus = "occupied"
)

type SessionState string

const (
	SessionCharging SessionState = "charging"
	SessionFull     SessionState = "full"
	SessionStopped  SessionState = "stopped"
)

type ChargerSession struct {
	ID           string
	ChargerID    string
	Vehicle      *Vehicle
	SlotNumber   int
	StartTime    time.Time
	LastUpdate   time.Time
	EndTime      time.Time
	KWhDelivered float64
	State        SessionState
}

// Accrual describes the outcome of one lazy energy integration step.
type Accrual struct {
	AcceptedKWh float64
	ReachedFull bool
}

// ChargerEngine owns the session state machine of every charger on a level.
// Energy is only integrated when Accrue is called; nothing ticks in the
// background.
type ChargerEngine struct {
	clock    clock.PassiveClock
	chargers map[string]struct{}
	sessions map[string]*ChargerSession
}

func NewChargerEngine(clk clock.PassiveClock, chargerIDs []string) *ChargerEngine {
	chargers := make(map[string]struct{}, len(chargerIDs))
	for _, id := range chargerIDs {
		chargers[id] = struct{}{}
	}
	return &ChargerEngine{
		clock:    clk,
		chargers: chargers,
		sessions: make(map[string]*ChargerSession),
	}
}

func (e *ChargerEngine) Has(chargerID string) bool {
	_, ok := e.chargers[chargerID]
	return ok
}

func (e *ChargerEngine) Status(chargerID string) (ChargerStatus, error) {
	if !e.Has(chargerID) {
		return "", fmt.Errorf("%w: %s", ErrChargerNotFound, chargerID)
	}
	session, ok := e.sessions[chargerID]
	if !ok {
		return ChargerAvailable, nil
	}
	if session.State == SessionCharging {
		return ChargerCharging, nil
	}
	// full or stopped: still plugged in but not drawing power
	return ChargerOccupied, nil
}

func (e *ChargerEngine) Available(chargerID string) bool {
	status, err := e.Status(chargerID)
	return err == nil && status == ChargerAvailable
}

func (e *ChargerEngine) Session(chargerID string) *ChargerSession {
	return e.sessions[chargerID]
}

func (e *ChargerEngine) Start(chargerID string, vehicle *Vehicle, slotNumber int) (*ChargerSession, error) {
	if !e.Has(chargerID) {
		return nil, fmt.Errorf("%w: %s", ErrChargerNotFound, chargerID)
	}
	if _, busy := e.sessions[chargerID]; busy {
		return nil, fmt.Errorf("%w: charger %s already in use", ErrChargerBusy, chargerID)
	}
	if !vehicle.IsEV() {
		return nil, fmt.Errorf("%w: vehicle %s is not electric", ErrInvalidArgument, vehicle.RegistrationNumber)
	}

	now := e.clock.Now()
	vehicle.Battery.DeliveredThisSessionKWh = 0
	session := &ChargerSession{
		ID:         uuid.NewString(),
		ChargerID:  chargerID,
		Vehicle:    vehicle,
		SlotNumber: slotNumber,
		StartTime:  now,
		LastUpdate: now,
		State:      SessionCharging,
	}
	e.sessions[chargerID] = session
	return session, nil
}

// Accrue integrates the energy delivered since the session's last update at
// rateKW. A session that fills the battery is marked full and released.
func (e *ChargerEngine) Accrue(chargerID string, rateKW float64) Accrual {
	session, ok := e.sessions[chargerID]
	if !ok || session.State != SessionCharging {
		return Accrual{}
	}

	now := e.clock.Now()
	elapsedHours := now.Sub(session.LastUpdate).Hours()
	if elapsedHours <= 0 {
		return Accrual{}
	}

	battery := session.Vehicle.Battery
	accepted := battery.AddCharge(elapsedHours * rateKW)
	session.KWhDelivered = roundTo(session.KWhDelivered+accepted, 3)
	session.LastUpdate = now

	if !battery.IsFull() {
		return Accrual{AcceptedKWh: accepted}
	}

	session.State = SessionFull
	session.EndTime = now
	e.Release(chargerID)
	return Accrual{AcceptedKWh: accepted, ReachedFull: true}
}

func (e *ChargerEngine) Stop(chargerID string) {
	session, ok := e.sessions[chargerID]
	if !ok || session.State != SessionCharging {
		return
	}
	session.State = SessionStopped
	session.EndTime = e.clock.Now()
}

// Release drops the charger's session, if any, and returns it. Billing must
// have read the session before this is called.
func (e *ChargerEngine) Release(chargerID string) *ChargerSession {
	session := e.sessions[chargerID]
	delete(e.sessions, chargerID)
	return session
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
