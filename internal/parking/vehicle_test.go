package parking

import "testing"

func TestNewVehicle(t *testing.T) {
	regNumber := "KA01HH1234"
	color := "White"

	vehicle := NewVehicle(regNumber, color)

	if vehicle.RegistrationNumber != regNumber {
		t.Errorf("Expected registration number %s, got %s", regNumber, vehicle.RegistrationNumber)
	}
	if vehicle.Color != color {
		t.Errorf("Expected color %s, got %s", color, vehicle.Color)
	}
	if vehicle.IsEV() {
		t.Error("Expected a regular vehicle to have no battery")
	}
}

func TestVehicleFromAttributesCapacityDefaults(t *testing.T) {
	tests := []struct {
		name     string
		attrs    VehicleAttributes
		wantEV   bool
		capacity float64
		typeName string
	}{
		{"car", VehicleAttributes{RegistrationNumber: "A1"}, false, 0, "Car"},
		{"motorcycle", VehicleAttributes{RegistrationNumber: "A2", Motorcycle: true}, false, 0, "Motorcycle"},
		{"electric car", VehicleAttributes{RegistrationNumber: "A3", EV: true}, true, DefaultCarCapacityKWh, "ElectricCar"},
		{"electric bike", VehicleAttributes{RegistrationNumber: "A4", EV: true, Motorcycle: true}, true, DefaultMotorcycleCapacityKWh, "ElectricBike"},
		{"explicit capacity", VehicleAttributes{RegistrationNumber: "A5", EV: true, BatteryCapacityKWh: 75}, true, 75, "ElectricCar"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := VehicleFromAttributes(tt.attrs)
			if v.IsEV() != tt.wantEV {
				t.Fatalf("Expected IsEV %v, got %v", tt.wantEV, v.IsEV())
			}
			if tt.wantEV {
				if v.Battery.CapacityKWh != tt.capacity {
					t.Errorf("Expected capacity %v, got %v", tt.capacity, v.Battery.CapacityKWh)
				}
				if v.Battery.ChargeKWh != 0 {
					t.Errorf("Expected empty battery on arrival, got %v", v.Battery.ChargeKWh)
				}
			}
			if v.TypeName() != tt.typeName {
				t.Errorf("Expected type %s, got %s", tt.typeName, v.TypeName())
			}
		})
	}
}

func TestBatteryAddChargeCapsAtCapacity(t *testing.T) {
	b := &Battery{CapacityKWh: 10}

	if got := b.AddCharge(4); got != 4 {
		t.Errorf("Expected 4 kWh accepted, got %v", got)
	}
	if got := b.AddCharge(10); got != 6 {
		t.Errorf("Expected 6 kWh accepted at the cap, got %v", got)
	}
	if !b.IsFull() || b.ChargeKWh != b.CapacityKWh {
		t.Errorf("Expected full battery, got %v/%v", b.ChargeKWh, b.CapacityKWh)
	}
	if got := b.AddCharge(1); got != 0 {
		t.Errorf("Expected nothing accepted by a full battery, got %v", got)
	}
	if b.DeliveredThisSessionKWh != 10 {
		t.Errorf("Expected 10 kWh delivered this session, got %v", b.DeliveredThisSessionKWh)
	}
	if got := b.AddCharge(-1); got != 0 {
		t.Errorf("Expected negative energy to be ignored, got %v", got)
	}
}

func TestVehicleMatchesIgnoresCase(t *testing.T) {
	v := VehicleFromAttributes(VehicleAttributes{
		RegistrationNumber: "MA-123", Make: "Tesla", Model: "Model 3", Color: "Red", EV: true,
	})

	cases := map[SearchField]string{
		SearchByRegistration: "ma-123",
		SearchByMake:         "TESLA",
		SearchByModel:        "model 3",
		SearchByColor:        "red",
	}
	for field, value := range cases {
		if !v.matches(field, value) {
			t.Errorf("Expected %s=%q to match", field, value)
		}
	}
	if v.matches(SearchByColor, "Blue") {
		t.Error("Expected Blue not to match a red vehicle")
	}
}
