package parking

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/shlex"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// RecognizedCity reports whether name is in the configured city list. An
// empty list accepts every city.
func RecognizedCity(cities []string, name string) bool {
	if len(cities) == 0 {
		return true
	}
	for _, c := range cities {
		if c == name {
			return true
		}
	}
	return false
}

type InstrumentedShell struct {
	service   *InstrumentedService
	cities    []string
	scanner   *bufio.Scanner
	out       io.Writer
	telemetry *TelemetryProvider
}

func NewInstrumentedShell(service *InstrumentedService, telemetry *TelemetryProvider, cities []string, in io.Reader, out io.Writer) *InstrumentedShell {
	return &InstrumentedShell{
		service:   service,
		cities:    cities,
		scanner:   bufio.NewScanner(in),
		out:       out,
		telemetry: telemetry,
	}
}

func (s *InstrumentedShell) Run(ctx context.Context) {
	tracer := s.telemetry.Tracer()
	ctx, span := tracer.Start(ctx, "shell.run")
	defer span.End()

	span.AddEvent("shell_started")

	for {
		if ctx.Err() != nil || !s.scanner.Scan() {
			break
		}

		input := strings.TrimSpace(s.scanner.Text())
		if input == "" {
			continue
		}

		// Create a new span for each command
		cmdCtx, cmdSpan := tracer.Start(ctx, "shell.process_command",
			trace.WithAttributes(attribute.String("command.input", input)))

		s.processCommand(cmdCtx, input)
		cmdSpan.End()
	}

	span.AddEvent("shell_ended")
}

func (s *InstrumentedShell) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

func (s *InstrumentedShell) println(args ...any) {
	fmt.Fprintln(s.out, args...)
}

func (s *InstrumentedShell) processCommand(ctx context.Context, input string) {
	tracer := s.telemetry.Tracer()
	_, span := tracer.Start(ctx, "shell.parse_command")
	defer span.End()

	// quoted runs stay together so names like "New York" survive
	parts, err := shlex.Split(input)
	if err != nil {
		s.printf("Error: %s\n", err)
		return
	}
	if len(parts) == 0 {
		return
	}

	command := parts[0]
	span.SetAttributes(attribute.String("command.name", command))

	switch command {
	case "create_facility":
		s.handleCreateFacility(ctx, parts)
	case "park":
		s.handlePark(ctx, parts, false)
	case "park_ev":
		s.handlePark(ctx, parts, true)
	case "remove":
		s.handleRemove(ctx, parts)
	case "status":
		s.handleStatus(ctx, parts)
	case "charge_report":
		s.handleChargeReport(ctx, parts)
	case "charger_status":
		s.handleChargerStatus(ctx, parts)
	case "tick":
		s.handleTick(ctx, parts)
	case "find":
		s.handleFind(ctx, parts)
	case "topology":
		s.handleTopology()
	default:
		span.AddEvent("unknown_command", trace.WithAttributes(
			attribute.String("unknown_command", command),
		))
		s.printf("Unknown command: %s\n", command)
	}
}

// levelArgs parses "<city> <site> <level>" starting at parts[1].
func levelArgs(parts []string) (string, string, int, error) {
	level, err := strconv.Atoi(parts[3])
	if err != nil || level <= 0 {
		return "", "", 0, fmt.Errorf("invalid level: %s", parts[3])
	}
	return parts[1], parts[2], level, nil
}

func (s *InstrumentedShell) handleCreateFacility(ctx context.Context, parts []string) {
	_, span := s.telemetry.Tracer().Start(ctx, "shell.create_facility")
	defer span.End()

	if len(parts) != 7 {
		span.AddEvent("invalid_arguments")
		s.println("Usage: create_facility <city> <site> <levels> <regular_slots> <ev_slots> <chargers>")
		return
	}

	counts := make([]int, 4)
	for i, raw := range parts[3:] {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			span.RecordError(fmt.Errorf("invalid count: %s", raw))
			s.println("Invalid count:", raw)
			return
		}
		counts[i] = n
	}

	city := parts[1]
	if !RecognizedCity(s.cities, city) {
		span.RecordError(ErrUnknownCity)
		s.printf("Error: %s: %s\n", ErrUnknownCity.Error(), city)
		return
	}

	result, err := s.service.CreateFacility(ctx, FacilitySpec{
		City:         city,
		Site:         parts[2],
		Levels:       counts[0],
		RegularSlots: counts[1],
		EVSlots:      counts[2],
		Chargers:     counts[3],
	})
	if err != nil {
		span.RecordError(err)
		s.printf("Error: %s\n", err.Error())
		return
	}

	span.AddEvent("facility_created")
	s.printf("Created facility %s/%s, levels added: %v\n", result.City, result.Site, result.AddedLevels)
	if len(result.SkippedLevels) > 0 {
		s.printf("Levels already present: %v\n", result.SkippedLevels)
	}
}

func (s *InstrumentedShell) handlePark(ctx context.Context, parts []string, ev bool) {
	_, span := s.telemetry.Tracer().Start(ctx, "shell.park_command")
	defer span.End()

	if len(parts) < 8 || len(parts) > 9 || (!ev && len(parts) != 8) {
		span.AddEvent("invalid_arguments")
		if ev {
			s.println("Usage: park_ev <city> <site> <level> <registration> <make> <model> <color> [capacity_kwh]")
		} else {
			s.println("Usage: park <city> <site> <level> <registration> <make> <model> <color>")
		}
		return
	}

	city, site, level, err := levelArgs(parts)
	if err != nil {
		span.RecordError(err)
		s.println(err.Error())
		return
	}

	attrs := VehicleAttributes{
		RegistrationNumber: parts[4],
		Make:               parts[5],
		Model:              parts[6],
		Color:              parts[7],
		EV:                 ev,
	}
	if len(parts) == 9 {
		capacity, err := strconv.ParseFloat(parts[8], 64)
		if err != nil || capacity <= 0 {
			s.println("Invalid battery capacity:", parts[8])
			return
		}
		attrs.BatteryCapacityKWh = capacity
	}

	span.SetAttributes(
		attribute.String("vehicle.registration_number", attrs.RegistrationNumber),
		attribute.Bool("vehicle.ev", ev),
	)

	result, err := s.service.ParkVehicle(ctx, city, site, level, attrs)
	if err != nil {
		span.AddEvent("parking_failed")
		s.printf("Error: %s\n", err.Error())
		return
	}

	span.AddEvent("parking_successful", trace.WithAttributes(
		attribute.Int("allocated_slot", result.SlotNumber),
	))
	s.printf("Allocated slot number: %d\n", result.SlotNumber)
	switch result.Admission {
	case AdmissionCharging:
		s.printf("Charging started on %s\n", result.ChargerID)
	case AdmissionQueued:
		s.printf("Charger %s busy, waiting in queue\n", result.ChargerID)
	case AdmissionNoCharger:
		s.println("No charger available")
	}
}

func (s *InstrumentedShell) handleRemove(ctx context.Context, parts []string) {
	_, span := s.telemetry.Tracer().Start(ctx, "shell.remove_command")
	defer span.End()

	if len(parts) != 6 || (parts[5] != "ev" && parts[5] != "regular") {
		span.AddEvent("invalid_arguments")
		s.println("Usage: remove <city> <site> <level> <slot_number> <regular|ev>")
		return
	}

	city, site, level, err := levelArgs(parts)
	if err != nil {
		span.RecordError(err)
		s.println(err.Error())
		return
	}

	slotNumber, err := strconv.Atoi(parts[4])
	if err != nil {
		span.RecordError(fmt.Errorf("invalid slot number: %s", parts[4]))
		s.println("Invalid slot number")
		return
	}

	receipt, err := s.service.RemoveVehicle(ctx, city, site, level, slotNumber, parts[5] == "ev")
	if err != nil {
		span.AddEvent("remove_failed")
		s.printf("Error: %s\n", err.Error())
		return
	}

	span.AddEvent("remove_successful")
	bill := receipt.Bill
	s.printf("Slot number %d is free\n", slotNumber)
	s.printf("Parking fee: %.2f (%d h)\n", bill.ParkingFee, bill.ParkingHours)
	if receipt.IsEV {
		s.printf("Charging fee: %.2f (%.3f kWh)\n", bill.ChargingFee, bill.KWhDelivered)
	}
	s.printf("Total: %.2f\n", bill.Total)
}

func (s *InstrumentedShell) handleStatus(ctx context.Context, parts []string) {
	_, span := s.telemetry.Tracer().Start(ctx, "shell.status_command")
	defer span.End()

	if len(parts) != 4 {
		span.AddEvent("invalid_arguments")
		s.println("Usage: status <city> <site> <level>")
		return
	}

	city, site, level, err := levelArgs(parts)
	if err != nil {
		s.println(err.Error())
		return
	}

	status, err := s.service.LevelStatus(ctx, city, site, level)
	if err != nil {
		span.RecordError(err)
		s.printf("Error: %s\n", err.Error())
		return
	}

	if len(status.Regular)+len(status.EV) == 0 {
		span.AddEvent("level_empty")
		s.println("Level is empty")
		return
	}

	span.AddEvent("status_retrieved")
	s.println("Slot No.\tKind\tRegistration No\tMake\tModel\tColour\tType")
	for _, group := range []struct {
		kind  string
		views []SlotView
	}{{"regular", status.Regular}, {"ev", status.EV}} {
		for _, v := range group.views {
			s.printf("%d\t\t%s\t%s\t%s\t%s\t%s\t%s\n", v.SlotNumber, group.kind,
				v.Vehicle.RegistrationNumber, v.Vehicle.Make, v.Vehicle.Model, v.Vehicle.Color, v.Type)
		}
	}
}

func (s *InstrumentedShell) handleChargeReport(ctx context.Context, parts []string) {
	_, span := s.telemetry.Tracer().Start(ctx, "shell.charge_report_command")
	defer span.End()

	if len(parts) != 4 {
		span.AddEvent("invalid_arguments")
		s.println("Usage: charge_report <city> <site> <level>")
		return
	}

	city, site, level, err := levelArgs(parts)
	if err != nil {
		s.println(err.Error())
		return
	}

	rows, err := s.service.EVChargeReport(ctx, city, site, level)
	if err != nil {
		span.RecordError(err)
		s.printf("Error: %s\n", err.Error())
		return
	}
	if len(rows) == 0 {
		s.println("No EVs parked")
		return
	}

	s.println("Slot\tRegistration\tStatus\tCharger\tkWh\tCharge %")
	for _, r := range rows {
		s.printf("%d\t%s\t%s\t%s\t%.3f\t%.2f\n", r.SlotNumber, r.Registration, r.Status, r.ChargerID, r.KWhDelivered, r.ChargePercent)
	}
}

func (s *InstrumentedShell) handleChargerStatus(ctx context.Context, parts []string) {
	_, span := s.telemetry.Tracer().Start(ctx, "shell.charger_status_command")
	defer span.End()

	if len(parts) != 2 {
		span.AddEvent("invalid_arguments")
		s.println("Usage: charger_status <charger_id>")
		return
	}

	info, err := s.service.ChargerStatus(ctx, parts[1])
	if err != nil {
		span.RecordError(err)
		s.printf("Error: %s\n", err.Error())
		return
	}

	s.printf("%s: %s\n", info.ChargerID, info.Status)
	if info.Session != nil {
		s.printf("Session %s: slot %d, %s, %.3f kWh\n", info.Session.Registration, info.Session.SlotNumber, info.Session.State, info.Session.KWhDelivered)
	}
	if len(info.Waiting) > 0 {
		s.printf("Waiting slots: %v\n", info.Waiting)
	}
}

func (s *InstrumentedShell) handleTick(ctx context.Context, parts []string) {
	_, span := s.telemetry.Tracer().Start(ctx, "shell.tick_command")
	defer span.End()

	if len(parts) != 2 {
		span.AddEvent("invalid_arguments")
		s.println("Usage: tick <charger_id>")
		return
	}

	acc, err := s.service.Tick(ctx, parts[1])
	if err != nil {
		span.RecordError(err)
		s.printf("Error: %s\n", err.Error())
		return
	}

	s.printf("Accepted %.3f kWh\n", acc.AcceptedKWh)
	if acc.ReachedFull {
		s.println("Charging complete")
	}
}

func (s *InstrumentedShell) handleFind(ctx context.Context, parts []string) {
	_, span := s.telemetry.Tracer().Start(ctx, "shell.find_command")
	defer span.End()

	if len(parts) != 6 {
		span.AddEvent("invalid_arguments")
		s.println("Usage: find <city> <site> <level> <registration|color|model|make> <value>")
		return
	}

	city, site, level, err := levelArgs(parts)
	if err != nil {
		s.println(err.Error())
		return
	}

	field, err := ParseSearchField(parts[4])
	if err != nil {
		s.printf("Error: %s\n", err.Error())
		return
	}

	regular, ev, err := s.service.FindSlots(ctx, city, site, level, field, parts[5])
	if err != nil {
		span.RecordError(err)
		s.printf("Error: %s\n", err.Error())
		return
	}

	if len(regular)+len(ev) == 0 {
		span.AddEvent("vehicle_not_found")
		s.println("Not found")
		return
	}

	span.AddEvent("vehicle_found")
	s.printf("Regular slots: %v\n", regular)
	s.printf("EV slots: %v\n", ev)
}

func (s *InstrumentedShell) handleTopology() {
	entries := s.service.Topology()
	if len(entries) == 0 {
		s.println("No facilities")
		return
	}
	for _, e := range entries {
		s.printf("%s\t%s\t%d\t%s\n", e.City, e.Site, e.Level, strings.Join(e.ChargerIDs, ","))
	}
}
