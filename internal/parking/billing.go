package parking

import (
	"math"
	"time"
)

type Rates struct {
	HourlyRate float64
	PerKWhRate float64
}

type Bill struct {
	ParkingHours int     `json:"parking_hours"`
	ParkingFee   float64 `json:"parking_fee"`
	KWhDelivered float64 `json:"kwh_delivered"`
	ChargingFee  float64 `json:"charging_fee"`
	Total        float64 `json:"total"`
}

type BillingEngine struct {
	rates Rates
}

func NewBillingEngine(rates Rates) BillingEngine {
	return BillingEngine{rates: rates}
}

// ParkingFee charges whole started hours.
func (b BillingEngine) ParkingFee(start, end time.Time) (int, float64) {
	seconds := end.Sub(start).Seconds()
	if seconds <= 0 {
		return 0, 0
	}
	hours := int(math.Ceil(seconds / 3600))
	return hours, float64(hours) * b.rates.HourlyRate
}

func (b BillingEngine) ChargingFee(kwh float64) float64 {
	return roundTo(kwh*b.rates.PerKWhRate, 2)
}

func (b BillingEngine) Calculate(vehicle *Vehicle, start, end time.Time, kwhDelivered float64) Bill {
	hours, parkingFee := b.ParkingFee(start, end)
	bill := Bill{
		ParkingHours: hours,
		ParkingFee:   parkingFee,
	}
	if vehicle.IsEV() {
		bill.KWhDelivered = kwhDelivered
		bill.ChargingFee = b.ChargingFee(kwhDelivered)
	}
	bill.Total = roundTo(bill.ParkingFee+bill.ChargingFee, 2)
	return bill
}
