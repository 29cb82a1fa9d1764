package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"ev-parking/internal/logging"
	"ev-parking/internal/parking"
)

const (
	KeyParkingRatePerHour = "PARKING_RATE_PER_HOUR"
	KeyChargingRatePerKWh = "CHARGING_RATE_PER_KWH"
	KeyChargeRateKW       = "CHARGE_RATE_KW"
	KeyCityList           = "CITY_LIST"
	KeyPort               = "APP_PORT"
	KeyServiceName        = "OTEL_SERVICE_NAME"
	KeyOTLPEndpoint       = "OTEL_EXPORTER_OTLP_ENDPOINT"
	KeyEnvironment        = "ENVIRONMENT"
	KeyFacilitiesFile     = "FACILITIES_FILE"
)

const (
	DefaultParkingRatePerHour = 5.0
	DefaultChargingRatePerKWh = 0.3
	DefaultPort               = "8080"
	DefaultEnvironment        = "development"
)

var DefaultCities = []string{"Boston", "New York", "Philadelphia"}

type Config struct {
	Port           string
	ServiceName    string
	OTLPEndpoint   string
	Environment    string
	FacilitiesFile string
	Rates          parking.Rates
	ChargeRateKW   float64
	Cities         []string
}

func (c *Config) ServiceOptions() parking.Options {
	return parking.Options{Rates: c.Rates, ChargeRateKW: c.ChargeRateKW}
}

func (c *Config) TelemetryConfig() parking.TelemetryConfig {
	return parking.TelemetryConfig{
		ServiceName: c.ServiceName,
		Endpoint:    c.OTLPEndpoint,
		Environment: c.Environment,
	}
}

// Load reads configuration from the environment. Numeric settings that are
// missing, malformed or not positive keep their defaults.
func Load() *Config {
	v := viper.New()
	v.SetDefault(KeyParkingRatePerHour, DefaultParkingRatePerHour)
	v.SetDefault(KeyChargingRatePerKWh, DefaultChargingRatePerKWh)
	v.SetDefault(KeyChargeRateKW, parking.DefaultChargeRateKW)
	v.SetDefault(KeyCityList, strings.Join(DefaultCities, ","))
	v.SetDefault(KeyPort, DefaultPort)
	v.SetDefault(KeyServiceName, parking.DefaultServiceName)
	v.SetDefault(KeyOTLPEndpoint, parking.DefaultOTLPEndpoint)
	v.SetDefault(KeyEnvironment, DefaultEnvironment)
	v.SetDefault(KeyFacilitiesFile, "")
	v.AutomaticEnv()

	return &Config{
		Port:           v.GetString(KeyPort),
		ServiceName:    v.GetString(KeyServiceName),
		OTLPEndpoint:   v.GetString(KeyOTLPEndpoint),
		Environment:    v.GetString(KeyEnvironment),
		FacilitiesFile: v.GetString(KeyFacilitiesFile),
		Rates: parking.Rates{
			HourlyRate: positiveFloat(v, KeyParkingRatePerHour, DefaultParkingRatePerHour),
			PerKWhRate: positiveFloat(v, KeyChargingRatePerKWh, DefaultChargingRatePerKWh),
		},
		ChargeRateKW: positiveFloat(v, KeyChargeRateKW, parking.DefaultChargeRateKW),
		Cities:       parseCities(v.GetString(KeyCityList)),
	}
}

func positiveFloat(v *viper.Viper, key string, fallback float64) float64 {
	raw := strings.TrimSpace(v.GetString(key))
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func parseCities(raw string) []string {
	var cities []string
	for _, c := range strings.Split(raw, ",") {
		if c = strings.TrimSpace(c); c != "" {
			cities = append(cities, c)
		}
	}
	if len(cities) == 0 {
		return append([]string(nil), DefaultCities...)
	}
	return cities
}

type facilitiesFile struct {
	Facilities []parking.FacilitySpec `yaml:"facilities"`
}

// LoadFacilities reads the bootstrap file. Entries that are incomplete or
// name an unrecognized city are skipped with a warning.
func LoadFacilities(ctx context.Context, path string, cities []string) ([]parking.FacilitySpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read facilities file: %w", err)
	}
	return ParseFacilities(ctx, data, cities)
}

func ParseFacilities(ctx context.Context, data []byte, cities []string) ([]parking.FacilitySpec, error) {
	var file facilitiesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse facilities file: %w", err)
	}

	specs := make([]parking.FacilitySpec, 0, len(file.Facilities))
	for i, spec := range file.Facilities {
		if spec.City == "" || spec.Site == "" || spec.Levels <= 0 {
			logging.Warn(ctx, "incomplete facility entry, skipping", "index", i)
			continue
		}
		if !parking.RecognizedCity(cities, spec.City) {
			logging.Warn(ctx, "facility in unrecognized city, skipping", "index", i, "city", spec.City)
			continue
		}
		specs = append(specs, spec)
	}
	return specs, nil
}
