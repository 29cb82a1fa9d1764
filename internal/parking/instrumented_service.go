package parking

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type InstrumentedService struct {
	*Service
	telemetry *TelemetryProvider

	// Metrics
	parkingOperations metric.Int64Counter
	removalOperations metric.Int64Counter
	admissions        metric.Int64Counter
	occupancyGauge    metric.Int64UpDownCounter
	operationDuration metric.Float64Histogram
	revenue           metric.Float64Counter
	energyBilled      metric.Float64Counter
}

func NewInstrumentedService(service *Service, telemetry *TelemetryProvider) (*InstrumentedService, error) {
	meter := telemetry.Meter()

	parkingOperations, err := meter.Int64Counter("parking_operations_total",
		metric.WithDescription("Total number of parking operations"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	removalOperations, err := meter.Int64Counter("removal_operations_total",
		metric.WithDescription("Total number of vehicle removal operations"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	admissions, err := meter.Int64Counter("charger_admissions_total",
		metric.WithDescription("EV admissions by outcome: charging, queued or no_charger"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	occupancyGauge, err := meter.Int64UpDownCounter("parking_lot_occupancy",
		metric.WithDescription("Current number of occupied parking slots"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	operationDuration, err := meter.Float64Histogram("operation_duration_seconds",
		metric.WithDescription("Duration of parking service operations"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	revenue, err := meter.Float64Counter("billing_revenue_total",
		metric.WithDescription("Total amount billed on vehicle removal"),
		metric.WithUnit("{currency}"))
	if err != nil {
		return nil, err
	}

	energyBilled, err := meter.Float64Counter("charging_energy_billed_kwh_total",
		metric.WithDescription("Total charging energy billed on vehicle removal"),
		metric.WithUnit("kWh"))
	if err != nil {
		return nil, err
	}

	return &InstrumentedService{
		Service:           service,
		telemetry:         telemetry,
		parkingOperations: parkingOperations,
		removalOperations: removalOperations,
		admissions:        admissions,
		occupancyGauge:    occupancyGauge,
		operationDuration: operationDuration,
		revenue:           revenue,
		energyBilled:      energyBilled,
	}, nil
}

func slotKind(isEV bool) string {
	if isEV {
		return "ev"
	}
	return "regular"
}

func levelAttributes(city, site string, level int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("facility.city", city),
		attribute.String("facility.site", site),
		attribute.Int("facility.level", level),
	}
}

// finish records the error on the span and the duration of the operation.
func (is *InstrumentedService) finish(ctx context.Context, span trace.Span, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		status = "failed"
	}
	is.operationDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("status", status),
	))
}

func (is *InstrumentedService) CreateFacility(ctx context.Context, spec FacilitySpec) (FacilityResult, error) {
	ctx, span := is.telemetry.Tracer().Start(ctx, "parking.create_facility",
		trace.WithAttributes(
			attribute.String("facility.city", spec.City),
			attribute.String("facility.site", spec.Site),
			attribute.Int("facility.levels", spec.Levels),
			attribute.Int("facility.regular_slots", spec.RegularSlots),
			attribute.Int("facility.ev_slots", spec.EVSlots),
			attribute.Int("facility.chargers", spec.Chargers),
		))
	defer span.End()

	start := time.Now()
	result, err := is.Service.CreateFacility(ctx, spec)
	is.finish(ctx, span, "create_facility", start, err)

	if err == nil {
		span.SetAttributes(
			attribute.IntSlice("facility.added_levels", result.AddedLevels),
			attribute.IntSlice("facility.skipped_levels", result.SkippedLevels),
		)
	}
	return result, err
}

func (is *InstrumentedService) ParkVehicle(ctx context.Context, city, site string, level int, attrs VehicleAttributes) (ParkResult, error) {
	spanAttrs := append(levelAttributes(city, site, level),
		attribute.String("vehicle.registration_number", attrs.RegistrationNumber),
		attribute.String("vehicle.color", attrs.Color),
		attribute.Bool("vehicle.ev", attrs.EV),
	)
	ctx, span := is.telemetry.Tracer().Start(ctx, "parking.park", trace.WithAttributes(spanAttrs...))
	defer span.End()

	start := time.Now()
	span.AddEvent("finding_available_slot")

	result, err := is.Service.ParkVehicle(ctx, city, site, level, attrs)
	is.finish(ctx, span, "park", start, err)

	labels := []attribute.KeyValue{
		attribute.String("operation", "park"),
		attribute.String("slot_kind", slotKind(attrs.EV)),
	}
	if err != nil {
		labels = append(labels, attribute.String("status", "failed"))
		is.parkingOperations.Add(ctx, 1, metric.WithAttributes(labels...))
		return result, err
	}

	labels = append(labels, attribute.String("status", "success"))
	is.parkingOperations.Add(ctx, 1, metric.WithAttributes(labels...))
	is.occupancyGauge.Add(ctx, 1, metric.WithAttributes(attribute.String("slot_kind", slotKind(result.IsEV))))

	span.SetAttributes(attribute.Int("allocated_slot_number", result.SlotNumber))
	span.AddEvent("slot_allocated", trace.WithAttributes(attribute.Int("slot_number", result.SlotNumber)))

	if result.IsEV {
		span.SetAttributes(
			attribute.String("charger.id", result.ChargerID),
			attribute.String("charger.admission", string(result.Admission)),
		)
		is.admissions.Add(ctx, 1, metric.WithAttributes(attribute.String("admission", string(result.Admission))))
	}
	return result, nil
}

func (is *InstrumentedService) RemoveVehicle(ctx context.Context, city, site string, level, slot int, isEV bool) (Receipt, error) {
	spanAttrs := append(levelAttributes(city, site, level),
		attribute.Int("slot_number", slot),
		attribute.Bool("slot.ev", isEV),
	)
	ctx, span := is.telemetry.Tracer().Start(ctx, "parking.remove", trace.WithAttributes(spanAttrs...))
	defer span.End()

	start := time.Now()
	span.AddEvent("releasing_slot")

	receipt, err := is.Service.RemoveVehicle(ctx, city, site, level, slot, isEV)
	is.finish(ctx, span, "remove", start, err)

	labels := []attribute.KeyValue{
		attribute.String("operation", "remove"),
		attribute.String("slot_kind", slotKind(isEV)),
	}
	if err != nil {
		labels = append(labels, attribute.String("status", "failed"))
		is.removalOperations.Add(ctx, 1, metric.WithAttributes(labels...))
		return receipt, err
	}

	labels = append(labels, attribute.String("status", "success"))
	is.removalOperations.Add(ctx, 1, metric.WithAttributes(labels...))
	is.occupancyGauge.Add(ctx, -1, metric.WithAttributes(attribute.String("slot_kind", slotKind(isEV))))
	is.revenue.Add(ctx, receipt.Bill.Total)
	if receipt.Bill.KWhDelivered > 0 {
		is.energyBilled.Add(ctx, receipt.Bill.KWhDelivered)
	}

	span.SetAttributes(
		attribute.String("vehicle.registration_number", receipt.Vehicle.RegistrationNumber),
		attribute.Float64("bill.parking_fee", receipt.Bill.ParkingFee),
		attribute.Float64("bill.charging_fee", receipt.Bill.ChargingFee),
		attribute.Float64("bill.total", receipt.Bill.Total),
	)
	span.AddEvent("slot_released")
	return receipt, nil
}

func (is *InstrumentedService) ChargerStatus(ctx context.Context, chargerID string) (ChargerInfo, error) {
	ctx, span := is.telemetry.Tracer().Start(ctx, "parking.charger_status",
		trace.WithAttributes(attribute.String("charger.id", chargerID)))
	defer span.End()

	start := time.Now()
	info, err := is.Service.ChargerStatus(ctx, chargerID)
	is.finish(ctx, span, "charger_status", start, err)

	if err == nil {
		span.SetAttributes(
			attribute.String("charger.status", string(info.Status)),
			attribute.Int("charger.waiting", len(info.Waiting)),
		)
	}
	return info, err
}

func (is *InstrumentedService) Tick(ctx context.Context, chargerID string) (Accrual, error) {
	ctx, span := is.telemetry.Tracer().Start(ctx, "parking.charge_tick",
		trace.WithAttributes(attribute.String("charger.id", chargerID)))
	defer span.End()

	start := time.Now()
	acc, err := is.Service.Tick(ctx, chargerID)
	is.finish(ctx, span, "charge_tick", start, err)

	if err == nil {
		span.SetAttributes(
			attribute.Float64("charger.accepted_kwh", acc.AcceptedKWh),
			attribute.Bool("charger.reached_full", acc.ReachedFull),
		)
		if acc.ReachedFull {
			span.AddEvent("charging_complete")
		}
	}
	return acc, err
}

func (is *InstrumentedService) EVChargeReport(ctx context.Context, city, site string, level int) ([]ChargeReportRow, error) {
	ctx, span := is.telemetry.Tracer().Start(ctx, "parking.ev_charge_report",
		trace.WithAttributes(levelAttributes(city, site, level)...))
	defer span.End()

	start := time.Now()
	rows, err := is.Service.EVChargeReport(ctx, city, site, level)
	is.finish(ctx, span, "ev_charge_report", start, err)

	span.SetAttributes(attribute.Int("report.rows", len(rows)))
	return rows, err
}

func (is *InstrumentedService) FindSlots(ctx context.Context, city, site string, level int, field SearchField, value string) ([]int, []int, error) {
	spanAttrs := append(levelAttributes(city, site, level),
		attribute.String("search.field", string(field)),
		attribute.String("search.value", value),
	)
	ctx, span := is.telemetry.Tracer().Start(ctx, "parking.find_slots", trace.WithAttributes(spanAttrs...))
	defer span.End()

	start := time.Now()
	regular, ev, err := is.Service.FindSlots(ctx, city, site, level, field, value)
	is.finish(ctx, span, "find_slots", start, err)

	if err == nil {
		if len(regular)+len(ev) == 0 {
			span.AddEvent("vehicle_not_found")
		} else {
			span.AddEvent("vehicle_found", trace.WithAttributes(
				attribute.IntSlice("regular_slots", regular),
				attribute.IntSlice("ev_slots", ev),
			))
		}
	}
	return regular, ev, err
}

func (is *InstrumentedService) LevelStatus(ctx context.Context, city, site string, level int) (LevelStatus, error) {
	ctx, span := is.telemetry.Tracer().Start(ctx, "parking.level_status",
		trace.WithAttributes(levelAttributes(city, site, level)...))
	defer span.End()

	start := time.Now()
	status, err := is.Service.LevelStatus(ctx, city, site, level)
	is.finish(ctx, span, "level_status", start, err)

	if err == nil {
		span.SetAttributes(
			attribute.Int("occupied_regular", len(status.Regular)),
			attribute.Int("occupied_ev", len(status.EV)),
		)
	}
	return status, err
}
