package parking

import "strings"

const (
	DefaultCarCapacityKWh        = 60.0
	DefaultMotorcycleCapacityKWh = 15.0
)

type VehicleKind string

const (
	KindCar        VehicleKind = "car"
	KindMotorcycle VehicleKind = "motorcycle"
)

// Battery is the charge state carried by electric vehicles only.
type Battery struct {
	CapacityKWh             float64 `json:"capacity_kwh"`
	ChargeKWh               float64 `json:"charge_kwh"`
	DeliveredThisSessionKWh float64 `json:"delivered_this_session_kwh"`
}

// AddCharge stores up to kwh in the battery and returns the amount accepted.
func (b *Battery) AddCharge(kwh float64) float64 {
	if kwh <= 0 {
		return 0
	}
	headroom := b.CapacityKWh - b.ChargeKWh
	if headroom <= 0 {
		return 0
	}
	accepted := kwh
	if accepted >= headroom {
		accepted = headroom
		b.ChargeKWh = b.CapacityKWh
	} else {
		b.ChargeKWh += accepted
	}
	b.DeliveredThisSessionKWh += accepted
	return accepted
}

func (b *Battery) IsFull() bool {
	return b.ChargeKWh >= b.CapacityKWh
}

type Vehicle struct {
	RegistrationNumber string      `json:"registration"`
	Make               string      `json:"make,omitempty"`
	Model              string      `json:"model,omitempty"`
	Color              string      `json:"color"`
	Kind               VehicleKind `json:"kind"`
	Battery            *Battery    `json:"battery,omitempty"`
}

// VehicleAttributes is the caller-supplied description of a vehicle to park.
type VehicleAttributes struct {
	RegistrationNumber string  `json:"registration" yaml:"registration"`
	Make               string  `json:"make" yaml:"make"`
	Model              string  `json:"model" yaml:"model"`
	Color              string  `json:"color" yaml:"color"`
	EV                 bool    `json:"ev" yaml:"ev"`
	Motorcycle         bool    `json:"motorcycle" yaml:"motorcycle"`
	BatteryCapacityKWh float64 `json:"battery_capacity_kwh,omitempty" yaml:"battery_capacity_kwh,omitempty"`
}

func NewVehicle(registrationNumber, color string) *Vehicle {
	return &Vehicle{
		RegistrationNumber: registrationNumber,
		Color:              color,
		Kind:               KindCar,
	}
}

func NewElectricVehicle(registrationNumber, color string, capacityKWh float64) *Vehicle {
	v := NewVehicle(registrationNumber, color)
	v.Battery = &Battery{CapacityKWh: capacityKWh}
	return v
}

// VehicleFromAttributes builds a regular or electric vehicle. Electric
// vehicles without an explicit capacity get the default for their kind.
func VehicleFromAttributes(attrs VehicleAttributes) *Vehicle {
	v := &Vehicle{
		RegistrationNumber: attrs.RegistrationNumber,
		Make:               attrs.Make,
		Model:              attrs.Model,
		Color:              attrs.Color,
		Kind:               KindCar,
	}
	if attrs.Motorcycle {
		v.Kind = KindMotorcycle
	}
	if !attrs.EV {
		return v
	}

	capacity := attrs.BatteryCapacityKWh
	if capacity <= 0 {
		capacity = DefaultCarCapacityKWh
		if attrs.Motorcycle {
			capacity = DefaultMotorcycleCapacityKWh
		}
	}
	v.Battery = &Battery{CapacityKWh: capacity}
	return v
}

func (v *Vehicle) IsEV() bool {
	return v.Battery != nil
}

// TypeName mirrors the display names used by the status views.
func (v *Vehicle) TypeName() string {
	switch {
	case v.IsEV() && v.Kind == KindMotorcycle:
		return "ElectricBike"
	case v.IsEV():
		return "ElectricCar"
	case v.Kind == KindMotorcycle:
		return "Motorcycle"
	default:
		return "Car"
	}
}

func (v *Vehicle) matches(field SearchField, value string) bool {
	switch field {
	case SearchByRegistration:
		return strings.EqualFold(v.RegistrationNumber, value)
	case SearchByColor:
		return strings.EqualFold(v.Color, value)
	case SearchByModel:
		return strings.EqualFold(v.Model, value)
	case SearchByMake:
		return strings.EqualFold(v.Make, value)
	default:
		return false
	}
}
