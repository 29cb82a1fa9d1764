package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ev-parking/internal/parking"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{KeyParkingRatePerHour, KeyChargingRatePerKWh, KeyChargeRateKW, KeyCityList, KeyPort} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg := Load()

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, 5.0, cfg.Rates.HourlyRate)
	assert.Equal(t, 0.3, cfg.Rates.PerKWhRate)
	assert.Equal(t, parking.DefaultChargeRateKW, cfg.ChargeRateKW)
	assert.Equal(t, []string{"Boston", "New York", "Philadelphia"}, cfg.Cities)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv(KeyParkingRatePerHour, "4.5")
	t.Setenv(KeyChargingRatePerKWh, "0.25")
	t.Setenv(KeyChargeRateKW, "11")
	t.Setenv(KeyCityList, " Boston , Chicago ,,")
	t.Setenv(KeyPort, "9090")
	t.Setenv(KeyEnvironment, "production")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, parking.Options{
		Rates:        parking.Rates{HourlyRate: 4.5, PerKWhRate: 0.25},
		ChargeRateKW: 11,
	}, cfg.ServiceOptions())
	assert.Equal(t, []string{"Boston", "Chicago"}, cfg.Cities)
}

func TestLoadInvalidNumbersFallBack(t *testing.T) {
	t.Setenv(KeyParkingRatePerHour, "five")
	t.Setenv(KeyChargingRatePerKWh, "-1")
	t.Setenv(KeyChargeRateKW, "0")

	cfg := Load()

	assert.Equal(t, DefaultParkingRatePerHour, cfg.Rates.HourlyRate)
	assert.Equal(t, DefaultChargingRatePerKWh, cfg.Rates.PerKWhRate)
	assert.Equal(t, parking.DefaultChargeRateKW, cfg.ChargeRateKW)
}

func TestParseFacilities(t *testing.T) {
	data := []byte(`
facilities:
  - city: Boston
    site: BackBay
    levels: 2
    regular_slots: 10
    ev_slots: 4
    chargers: 2
  - city: Chicago
    site: Loop
    levels: 1
  - city: Boston
    levels: 1
`)

	specs, err := ParseFacilities(context.Background(), data, DefaultCities)
	require.NoError(t, err)
	assert.Equal(t, []parking.FacilitySpec{{
		City: "Boston", Site: "BackBay", Levels: 2, RegularSlots: 10, EVSlots: 4, Chargers: 2,
	}}, specs)
}

func TestLoadFacilitiesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facilities.yaml")
	require.NoError(t, os.WriteFile(path, []byte("facilities:\n  - {city: New York, site: Midtown, levels: 1, ev_slots: 2, chargers: 1}\n"), 0o600))

	specs, err := LoadFacilities(context.Background(), path, DefaultCities)
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, "New York", specs[0].City)

	_, err = LoadFacilities(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)

	_, err = ParseFacilities(context.Background(), []byte("facilities: [oops"), nil)
	assert.Error(t, err)
}
