package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"presence.service/internal/api/middleware"
	"presence.service/internal/core"
	"presence.service/internal/core/model"
)

// AttendanceCommands is the write side the handler drives.
type AttendanceCommands interface {
	ManualCheckIn(ctx context.Context, caller model.Caller, employeeKey string) (*model.AttendanceRecord, error)
	ManualCheckOut(ctx context.Context, caller model.Caller, employeeKey string) (*model.AttendanceRecord, error)
	AutoGeoCheckIn(ctx context.Context, caller model.Caller, lat, lng *float64, now time.Time) (core.CheckInResult, error)
	AutoGeoCheckOut(ctx context.Context, caller model.Caller, lat, lng *float64, now time.Time) (*model.AttendanceRecord, error)
	CreateAttendance(ctx context.Context, caller model.Caller, input core.CreateAttendanceInput) (*model.AttendanceRecord, error)
	UpdateAttendance(ctx context.Context, caller model.Caller, id string, patch model.RecordPatch) (*model.AttendanceRecord, error)
	DeleteAttendance(ctx context.Context, caller model.Caller, id string) error
	Now() time.Time
}

// AttendanceQueries is the read side the handler drives.
type AttendanceQueries interface {
	GetAllAttendance(ctx context.Context, caller model.Caller) ([]model.AttendanceView, error)
	GetAttendanceByID(ctx context.Context, caller model.Caller, id string) (*model.AttendanceView, error)
	GetAttendanceByEmployee(ctx context.Context, caller model.Caller, employeeKey string) ([]model.AttendanceView, error)
}

type AttendanceHandler struct {
	Service AttendanceCommands
	Query   AttendanceQueries
}

type EmployeeRequest struct {
	EmployeeID string `json:"employeeId"`
}

// LocationRequest carries the device position. Pointers distinguish a
// missing coordinate from zero.
type LocationRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type CheckInResponse struct {
	Record        *model.AttendanceRecord `json:"record"`
	AlreadyMarked bool                    `json:"alreadyMarked"`
}

// CreateAttendanceRequest accepts the day as YYYY-MM-DD or RFC 3339.
type CreateAttendanceRequest struct {
	EmployeeID string                 `json:"employeeId"`
	Day        string                 `json:"day"`
	CheckInAt  *time.Time             `json:"checkInAt"`
	CheckOutAt *time.Time             `json:"checkOutAt"`
	Status     model.AttendanceStatus `json:"status"`
}

type UpdateAttendanceRequest struct {
	Day           *string                 `json:"day"`
	CheckInAt     *time.Time              `json:"checkInAt"`
	CheckOutAt    *time.Time              `json:"checkOutAt"`
	Status        *model.AttendanceStatus `json:"status"`
	ClearCheckIn  bool                    `json:"clearCheckIn"`
	ClearCheckOut bool                    `json:"clearCheckOut"`
}

func (h *AttendanceHandler) ManualCheckIn(w http.ResponseWriter, r *http.Request) {
	caller, req, ok := decodeWithCaller[EmployeeRequest](w, r, true)
	if !ok {
		return
	}
	rec, err := h.Service.ManualCheckIn(r.Context(), caller, req.EmployeeID)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *AttendanceHandler) ManualCheckOut(w http.ResponseWriter, r *http.Request) {
	caller, req, ok := decodeWithCaller[EmployeeRequest](w, r, true)
	if !ok {
		return
	}
	rec, err := h.Service.ManualCheckOut(r.Context(), caller, req.EmployeeID)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *AttendanceHandler) GeoCheckIn(w http.ResponseWriter, r *http.Request) {
	caller, req, ok := decodeWithCaller[LocationRequest](w, r, false)
	if !ok {
		return
	}
	result, err := h.Service.AutoGeoCheckIn(r.Context(), caller, req.Latitude, req.Longitude, h.Service.Now())
	if err != nil {
		// Past the hard cutoff the absent record is written and returned
		// with the rejection.
		if result.Record != nil {
			writeError(w, r, err, result.Record)
			return
		}
		writeError(w, r, err, nil)
		return
	}

	status := http.StatusCreated
	if result.AlreadyMarked {
		status = http.StatusOK
	}
	writeJSON(w, status, CheckInResponse{Record: result.Record, AlreadyMarked: result.AlreadyMarked})
}

func (h *AttendanceHandler) GeoCheckOut(w http.ResponseWriter, r *http.Request) {
	caller, req, ok := decodeWithCaller[LocationRequest](w, r, false)
	if !ok {
		return
	}
	rec, err := h.Service.AutoGeoCheckOut(r.Context(), caller, req.Latitude, req.Longitude, h.Service.Now())
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *AttendanceHandler) CreateAttendance(w http.ResponseWriter, r *http.Request) {
	caller, req, ok := decodeWithCaller[CreateAttendanceRequest](w, r, false)
	if !ok {
		return
	}
	day, err := parseDay(req.Day)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	rec, err := h.Service.CreateAttendance(r.Context(), caller, core.CreateAttendanceInput{
		EmployeeID: req.EmployeeID,
		Day:        day,
		CheckInAt:  req.CheckInAt,
		CheckOutAt: req.CheckOutAt,
		Status:     req.Status,
	})
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *AttendanceHandler) UpdateAttendance(w http.ResponseWriter, r *http.Request) {
	caller, req, ok := decodeWithCaller[UpdateAttendanceRequest](w, r, false)
	if !ok {
		return
	}

	patch := model.RecordPatch{
		CheckInAt:     req.CheckInAt,
		CheckOutAt:    req.CheckOutAt,
		Status:        req.Status,
		ClearCheckIn:  req.ClearCheckIn,
		ClearCheckOut: req.ClearCheckOut,
	}
	if req.Day != nil {
		day, err := parseDay(*req.Day)
		if err != nil || day.IsZero() {
			writeBadRequest(w, "day must be YYYY-MM-DD or RFC 3339")
			return
		}
		patch.Day = &day
	}

	rec, err := h.Service.UpdateAttendance(r.Context(), caller, mux.Vars(r)["id"], patch)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *AttendanceHandler) DeleteAttendance(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrReject(w, r)
	if !ok {
		return
	}
	if err := h.Service.DeleteAttendance(r.Context(), caller, mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AttendanceHandler) ListAttendance(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrReject(w, r)
	if !ok {
		return
	}
	views, err := h.Query.GetAllAttendance(r.Context(), caller)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *AttendanceHandler) GetAttendance(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrReject(w, r)
	if !ok {
		return
	}
	view, err := h.Query.GetAttendanceByID(r.Context(), caller, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *AttendanceHandler) EmployeeAttendance(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrReject(w, r)
	if !ok {
		return
	}
	views, err := h.Query.GetAttendanceByEmployee(r.Context(), caller, mux.Vars(r)["employeeId"])
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func callerOrReject(w http.ResponseWriter, r *http.Request) (model.Caller, bool) {
	caller, ok := middleware.CallerFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "caller identity missing"})
	}
	return caller, ok
}

// decodeWithCaller reads the caller and the JSON body. With allowEmpty an
// empty body decodes to the zero request.
func decodeWithCaller[T any](w http.ResponseWriter, r *http.Request, allowEmpty bool) (model.Caller, T, bool) {
	var req T
	caller, ok := callerOrReject(w, r)
	if !ok {
		return caller, req, false
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return caller, req, true
		}
		writeBadRequest(w, "Invalid request body")
		return caller, req, false
	}
	return caller, req, true
}

func parseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, errors.New("day must be YYYY-MM-DD or RFC 3339")
	}
	return t, nil
}
