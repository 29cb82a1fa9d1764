package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"

	"ev-parking/internal/parking"
)

type Meta struct {
	TraceID   string `json:"trace_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Meta    *Meta  `json:"meta,omitempty"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

type ParkVehicleRequest struct {
	City  string `json:"city"`
	Site  string `json:"site"`
	Level int    `json:"level"`
	parking.VehicleAttributes
}

type RemoveVehicleRequest struct {
	City       string `json:"city"`
	Site       string `json:"site"`
	Level      int    `json:"level"`
	SlotNumber int    `json:"slot_number"`
	EV         bool   `json:"ev"`
}

type ReceiptResponse struct {
	City         string       `json:"city"`
	Site         string       `json:"site"`
	Level        int          `json:"level"`
	SlotNumber   int          `json:"slot_number"`
	EV           bool         `json:"ev"`
	Registration string       `json:"registration"`
	ChargerID    string       `json:"charger_id,omitempty"`
	StartTime    time.Time    `json:"start_time"`
	EndTime      time.Time    `json:"end_time"`
	Bill         parking.Bill `json:"bill"`
}

type FindSlotsResponse struct {
	Regular []int `json:"regular"`
	EV      []int `json:"ev"`
}

type TickResponse struct {
	ChargerID   string  `json:"charger_id"`
	AcceptedKWh float64 `json:"accepted_kwh"`
	ReachedFull bool    `json:"reached_full"`
}

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func extractMeta(ctx context.Context) *Meta {
	meta := &Meta{}

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().HasTraceID() {
		meta.TraceID = span.SpanContext().TraceID().String()
	}

	if reqID, ok := ctx.Value(RequestIDKey).(string); ok {
		meta.RequestID = reqID
	}

	return meta
}

func WriteSuccess(ctx context.Context, w http.ResponseWriter, message string, data any) {
	WriteJSON(w, http.StatusOK, Response{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    extractMeta(ctx),
	})
}

func WriteError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, Response{
		Success: false,
		Error:   message,
		Meta:    extractMeta(ctx),
	})
}
