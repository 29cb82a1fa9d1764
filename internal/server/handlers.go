package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"ev-parking/internal/logging"
	"ev-parking/internal/parking"
)

type Handler struct {
	service     *parking.InstrumentedService
	serviceName string
	cities      []string
}

func NewHandler(service *parking.InstrumentedService, serviceName string, cities []string) *Handler {
	if serviceName == "" {
		serviceName = parking.DefaultServiceName
	}
	return &Handler{service: service, serviceName: serviceName, cities: cities}
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, parking.ErrTopologyNotFound),
		errors.Is(err, parking.ErrChargerNotFound),
		errors.Is(err, parking.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, parking.ErrNoSlotAvailable),
		errors.Is(err, parking.ErrChargerBusy),
		errors.Is(err, parking.ErrDuplicateLevel):
		return http.StatusConflict
	case errors.Is(err, parking.ErrInvalidSlot),
		errors.Is(err, parking.ErrInvalidArgument),
		errors.Is(err, parking.ErrUnknownCity):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logging.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	WriteError(r.Context(), w, status, err.Error())
}

// levelQuery reads the city, site and level query parameters.
func levelQuery(r *http.Request) (string, string, int, error) {
	q := r.URL.Query()
	city, site := q.Get("city"), q.Get("site")
	if city == "" || site == "" {
		return "", "", 0, fmt.Errorf("%w: city and site are required", parking.ErrInvalidArgument)
	}
	level, err := strconv.Atoi(q.Get("level"))
	if err != nil || level <= 0 {
		return "", "", 0, fmt.Errorf("%w: level must be a positive integer", parking.ErrInvalidArgument)
	}
	return city, site, level, nil
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"service": h.serviceName,
		"meta":    extractMeta(r.Context()),
	})
}

func (h *Handler) CreateFacility(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req parking.FacilitySpec
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if !parking.RecognizedCity(h.cities, req.City) {
		h.writeDomainError(w, r, fmt.Errorf("%w: %s", parking.ErrUnknownCity, req.City))
		return
	}

	result, err := h.service.CreateFacility(ctx, req)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	WriteSuccess(ctx, w, "Facility created successfully", result)
}

func (h *Handler) GetTopology(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(r.Context(), w, "Topology retrieved successfully", h.service.Topology())
}

func (h *Handler) ParkVehicle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req ParkVehicleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.RegistrationNumber == "" || req.Color == "" {
		WriteError(ctx, w, http.StatusBadRequest, "Registration and color are required")
		return
	}
	if req.BatteryCapacityKWh < 0 {
		WriteError(ctx, w, http.StatusBadRequest, "Battery capacity must not be negative")
		return
	}

	result, err := h.service.ParkVehicle(ctx, req.City, req.Site, req.Level, req.VehicleAttributes)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	WriteSuccess(ctx, w, "Vehicle parked successfully", result)
}

func (h *Handler) RemoveVehicle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req RemoveVehicleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.SlotNumber <= 0 {
		WriteError(ctx, w, http.StatusBadRequest, "Slot number must be greater than 0")
		return
	}

	receipt, err := h.service.RemoveVehicle(ctx, req.City, req.Site, req.Level, req.SlotNumber, req.EV)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	WriteSuccess(ctx, w, "Slot vacated successfully", ReceiptResponse{
		City:         receipt.City,
		Site:         receipt.Site,
		Level:        receipt.Level,
		SlotNumber:   receipt.SlotNumber,
		EV:           receipt.IsEV,
		Registration: receipt.Vehicle.RegistrationNumber,
		ChargerID:    receipt.ChargerID,
		StartTime:    receipt.StartTime,
		EndTime:      receipt.EndTime,
		Bill:         receipt.Bill,
	})
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	city, site, level, err := levelQuery(r)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	status, err := h.service.LevelStatus(ctx, city, site, level)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	WriteSuccess(ctx, w, "Status retrieved successfully", status)
}

func (h *Handler) GetChargeReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	city, site, level, err := levelQuery(r)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	rows, err := h.service.EVChargeReport(ctx, city, site, level)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	WriteSuccess(ctx, w, "Charge report retrieved successfully", rows)
}

func (h *Handler) FindSlots(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	city, site, level, err := levelQuery(r)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	q := r.URL.Query()
	field, err := parking.ParseSearchField(strings.ToLower(q.Get("field")))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	value := q.Get("value")
	if value == "" {
		WriteError(ctx, w, http.StatusBadRequest, "Search value is required")
		return
	}

	regular, ev, err := h.service.FindSlots(ctx, city, site, level, field, value)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	WriteSuccess(ctx, w, "Search completed", FindSlotsResponse{Regular: regular, EV: ev})
}

func (h *Handler) GetCharger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	info, err := h.service.ChargerStatus(ctx, chi.URLParam(r, "chargerID"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	WriteSuccess(ctx, w, "Charger status retrieved successfully", info)
}

func (h *Handler) TickCharger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	chargerID := chi.URLParam(r, "chargerID")
	acc, err := h.service.Tick(ctx, chargerID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	WriteSuccess(ctx, w, "Charger ticked", TickResponse{
		ChargerID:   chargerID,
		AcceptedKWh: acc.AcceptedKWh,
		ReachedFull: acc.ReachedFull,
	})
}
