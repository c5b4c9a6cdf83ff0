package main

import (
	"encoding/json"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"presence.service/internal/ports/messaging"
	"presence.service/pkg/logger"
)

// seen keeps the idempotency keys already recorded.
var seen sync.Map

func eventHandler(w http.ResponseWriter, r *http.Request) {
	var event messaging.AttendanceEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	if event.EventID == "" || event.EmployeeID == "" {
		http.Error(w, "eventId and employeeId are required", http.StatusUnprocessableEntity)
		return
	}

	key := r.Header.Get("Idempotency-Key")
	if key == "" {
		key = event.EventID
	}
	if _, dup := seen.LoadOrStore(key, struct{}{}); dup {
		log.Info().Str("event_id", event.EventID).Msg("Duplicate delivery, already recorded")
		w.WriteHeader(http.StatusOK)
		return
	}

	log.Info().
		Str("event_type", string(event.Type)).
		Str("employee_id", event.EmployeeID).
		Str("day", event.Day).
		Float64("hours_worked", event.HoursWorked).
		Msg("Recorded attendance event")
	w.WriteHeader(http.StatusOK)
}

func main() {
	logger.Setup(true)

	addr := ":8081"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           http.HandlerFunc(eventHandler),
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Info().Str("addr", addr).Msg("Reporting API mock server starting")
	log.Fatal().Err(srv.ListenAndServe()).Msg("Reporting API mock stopped")
}
