/*
handlers.go - HTTP API handlers for the booking and payroll engine

PURPOSE:

	Exposes the engine via REST API. Handles HTTP request/response, JSON
	serialization, and delegates to domain components. No business logic
	lives here.

REQUEST FLOW:
 1. Parse HTTP request + actor headers
 2. Structural validation (dates, required fields)
 3. Call domain component (calendar, slots, booking, payroll)
 4. Serialize response
 5. Map typed errors to status codes

ERROR HANDLING:

	Errors are returned as JSON with the status writeDomainError derives
	from the typed error:
	- 400: validation, invalid transition
	- 404: not found
	- 409: slot/block conflict, duplicate entry, already finalized
	- 423: pay period locked
	- 500: infrastructure

SECURITY NOTE:

	Authentication is an upstream collaborator. The caller identity
	arrives as X-Actor-ID / X-Actor-Role headers and is trusted as-is.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/warp/booking-engine/booking"
	"github.com/warp/booking-engine/calendar"
	"github.com/warp/booking-engine/commission"
	"github.com/warp/booking-engine/engine"
	"github.com/warp/booking-engine/payroll"
	"github.com/warp/booking-engine/slots"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    engine.Store
	Config   engine.Config
	Calendar *calendar.Service
	Slots    *slots.Generator
	Bookings *booking.Manager
	Ledger   *commission.Ledger
	Payroll  *payroll.Processor
	NewID    engine.IDGenerator
	Now      engine.Clock
}

// NewHandler wires the handler onto already-constructed components.
func NewHandler(store engine.Store, cfg engine.Config, cal *calendar.Service, gen *slots.Generator, mgr *booking.Manager, ledger *commission.Ledger, proc *payroll.Processor) *Handler {
	return &Handler{
		Store:    store,
		Config:   cfg,
		Calendar: cal,
		Slots:    gen,
		Bookings: mgr,
		Ledger:   ledger,
		Payroll:  proc,
		NewID:    engine.NewID,
		Now:      time.Now,
	}
}

// actor extracts the caller identity the upstream auth layer attached.
func actor(r *http.Request) engine.Actor {
	a := engine.Actor{
		ID:   r.Header.Get("X-Actor-ID"),
		Role: r.Header.Get("X-Actor-Role"),
	}
	if a.ID == "" {
		a = engine.SystemActor
	}
	return a
}

// =============================================================================
// SALESMAN HANDLERS
// =============================================================================

// ListSalesmen returns all salesmen; ?active=true filters.
func (h *Handler) ListSalesmen(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	salesmen, err := h.Store.ListSalesmen(r.Context(), activeOnly)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list salesmen", err)
		return
	}

	dtos := make([]SalesmanDTO, len(salesmen))
	for i := range salesmen {
		dtos[i] = toSalesmanDTO(&salesmen[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetSalesman returns a single salesman.
func (h *Handler) GetSalesman(w http.ResponseWriter, r *http.Request) {
	id := engine.SalesmanID(chi.URLParam(r, "id"))

	sm, err := h.Store.GetSalesman(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get salesman", err)
		return
	}
	if sm == nil {
		writeError(w, http.StatusNotFound, "Salesman not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toSalesmanDTO(sm))
}

// CreateSalesman provisions a new salesman.
func (h *Handler) CreateSalesman(w http.ResponseWriter, r *http.Request) {
	var req CreateSalesmanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" || req.Email == "" {
		writeError(w, http.StatusBadRequest, "Name and email are required", nil)
		return
	}

	var hireDate time.Time
	if req.HireDate != "" {
		var err error
		hireDate, err = time.ParseInLocation("2006-01-02", req.HireDate, h.Config.Timezone)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid hire_date format (use YYYY-MM-DD)", err)
			return
		}
	}

	sm := &engine.Salesman{
		ID:            engine.SalesmanID(h.NewID()),
		Name:          req.Name,
		Email:         req.Email,
		Phone:         req.Phone,
		Template:      toTemplate(req.Template),
		BufferMinutes: req.BufferMinutes,
		Active:        true,
		HireDate:      hireDate,
		CreatedAt:     h.Now(),
	}
	if err := h.Store.CreateSalesman(r.Context(), sm); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create salesman", err)
		return
	}
	writeJSON(w, http.StatusCreated, toSalesmanDTO(sm))
}

// DeactivateSalesman soft-deactivates. Salesmen with bookings are never
// deleted; their history must stay recomputable.
func (h *Handler) DeactivateSalesman(w http.ResponseWriter, r *http.Request) {
	id := engine.SalesmanID(chi.URLParam(r, "id"))

	sm, err := h.Store.GetSalesman(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get salesman", err)
		return
	}
	if sm == nil {
		writeError(w, http.StatusNotFound, "Salesman not found", nil)
		return
	}

	sm.Active = false
	if err := h.Store.UpdateSalesman(r.Context(), sm); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to deactivate salesman", err)
		return
	}
	writeJSON(w, http.StatusOK, toSalesmanDTO(sm))
}

// ReplaceHours replaces the weekly working-hours template.
func (h *Handler) ReplaceHours(w http.ResponseWriter, r *http.Request) {
	id := engine.SalesmanID(chi.URLParam(r, "id"))

	var req ReplaceHoursRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	for _, win := range req.Template {
		if win.StartMin < 0 || win.EndMin > 24*60 || win.StartMin >= win.EndMin {
			writeError(w, http.StatusBadRequest, "Invalid window: start_min/end_min out of range", nil)
			return
		}
		if !engine.BookingKind(win.Kind).Valid() {
			writeError(w, http.StatusBadRequest, "Invalid window kind", nil)
			return
		}
	}

	sm, err := h.Store.GetSalesman(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get salesman", err)
		return
	}
	if sm == nil {
		writeError(w, http.StatusNotFound, "Salesman not found", nil)
		return
	}

	sm.Template = toTemplate(req.Template)
	if err := h.Store.UpdateSalesman(r.Context(), sm); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update hours", err)
		return
	}
	writeJSON(w, http.StatusOK, toSalesmanDTO(sm))
}

// =============================================================================
// SLOT HANDLERS
// =============================================================================

// GetSlots computes bookable slots for one salesman.
// GET /api/salesmen/{id}/slots?from=...&to=...&kind=zoom
func (h *Handler) GetSlots(w http.ResponseWriter, r *http.Request) {
	id := engine.SalesmanID(chi.URLParam(r, "id"))

	from, to, err := parseRange(r, h.Config.Timezone)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from/to range", err)
		return
	}
	kind := engine.BookingKind(r.URL.Query().Get("kind"))
	if kind != "" && !kind.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid kind", nil)
		return
	}

	generated, err := h.Slots.Generate(r.Context(), id, from, to, kind)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSlotDTOs(generated))
}

// BulkSlots runs the asynchronous multi-salesman computation and
// collects the results for the response. Bounded by the request
// context, so a client timeout cancels the remaining workers.
func (h *Handler) BulkSlots(w http.ResponseWriter, r *http.Request) {
	var req BulkSlotsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if len(req.SalesmanIDs) == 0 {
		writeError(w, http.StatusBadRequest, "salesman_ids is required", nil)
		return
	}
	from, err := time.Parse(time.RFC3339, req.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from", err)
		return
	}
	to, err := time.Parse(time.RFC3339, req.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to", err)
		return
	}

	ids := make([]engine.SalesmanID, len(req.SalesmanIDs))
	for i, s := range req.SalesmanIDs {
		ids[i] = engine.SalesmanID(s)
	}

	job := &slots.BulkJob{Generator: h.Slots}
	results, err := slots.Collect(r.Context(), job.Run(r.Context(), ids, from, to, engine.BookingKind(req.Kind)))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make(map[string][]SlotDTO, len(results))
	for id, sl := range results {
		out[string(id)] = toSlotDTOs(sl)
	}
	writeJSON(w, http.StatusOK, out)
}

// =============================================================================
// BLOCK HANDLERS
// =============================================================================

// ListBlocks returns unavailability blocks for a salesman.
func (h *Handler) ListBlocks(w http.ResponseWriter, r *http.Request) {
	id := engine.SalesmanID(chi.URLParam(r, "id"))

	from, to, err := parseRange(r, h.Config.Timezone)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from/to range", err)
		return
	}

	blocks, err := h.Store.ListBlocks(r.Context(), id, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list blocks", err)
		return
	}

	dtos := make([]BlockDTO, len(blocks))
	for i, b := range blocks {
		dtos[i] = BlockDTO{
			ID:         string(b.ID),
			SalesmanID: string(b.SalesmanID),
			Start:      b.Start.Format(time.RFC3339),
			End:        b.End.Format(time.RFC3339),
			Reason:     b.Reason,
			CreatedBy:  b.CreatedBy,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateBlock adds an unavailability block. 409 on overlap.
func (h *Handler) CreateBlock(w http.ResponseWriter, r *http.Request) {
	id := engine.SalesmanID(chi.URLParam(r, "id"))

	var req CreateBlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	start, err := time.Parse(time.RFC3339, req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start", err)
		return
	}
	end, err := time.Parse(time.RFC3339, req.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end", err)
		return
	}

	block, err := h.Calendar.AddBlock(r.Context(), id, start, end, req.Reason, actor(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, BlockDTO{
		ID:         string(block.ID),
		SalesmanID: string(block.SalesmanID),
		Start:      block.Start.Format(time.RFC3339),
		End:        block.End.Format(time.RFC3339),
		Reason:     block.Reason,
		CreatedBy:  block.CreatedBy,
	})
}

// DeleteBlock removes a block.
func (h *Handler) DeleteBlock(w http.ResponseWriter, r *http.Request) {
	id := engine.BlockID(chi.URLParam(r, "id"))
	if err := h.Calendar.RemoveBlock(r.Context(), id, actor(r)); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// =============================================================================
// BOOKING HANDLERS
// =============================================================================

// CreateBooking validates and inserts a pending booking. A duplicate
// client match is surfaced as a warning alongside the created booking.
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	start, err := time.Parse(time.RFC3339, req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start", err)
		return
	}
	end, err := time.Parse(time.RFC3339, req.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end", err)
		return
	}

	b, warning, err := h.Bookings.Create(r.Context(), booking.CreateParams{
		SalesmanID: engine.SalesmanID(req.SalesmanID),
		Start:      start,
		End:        end,
		Kind:       engine.BookingKind(req.Kind),
		ZoomLink:   req.ZoomLink,
		Notes:      req.Notes,
		Client:     toClientParams(req.Client),
	}, actor(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := CreateBookingResponse{Booking: toBookingDTO(b)}
	if warning != nil {
		resp.Warning = &DuplicateWarningDTO{
			ClientID:  string(warning.ClientID),
			MatchedOn: warning.MatchedOn,
		}
	}
	writeJSON(w, http.StatusCreated, resp)
}

// GetBooking returns a booking.
func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	id := engine.BookingID(chi.URLParam(r, "id"))
	b, err := h.Bookings.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingDTO(b))
}

// ListBookings filters by salesman, range, and status.
func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	var f engine.BookingFilter
	if s := r.URL.Query().Get("salesman_id"); s != "" {
		id := engine.SalesmanID(s)
		f.SalesmanID = &id
	}
	if s := r.URL.Query().Get("from"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid from", err)
			return
		}
		f.From = &t
	}
	if s := r.URL.Query().Get("to"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid to", err)
			return
		}
		f.To = &t
	}
	if s := r.URL.Query().Get("status"); s != "" {
		f.Statuses = []engine.BookingStatus{engine.BookingStatus(s)}
	}

	bookings, err := h.Bookings.List(r.Context(), f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list bookings", err)
		return
	}
	dtos := make([]BookingDTO, len(bookings))
	for i := range bookings {
		dtos[i] = toBookingDTO(&bookings[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ConfirmBooking transitions pending -> confirmed.
func (h *Handler) ConfirmBooking(w http.ResponseWriter, r *http.Request) {
	id := engine.BookingID(chi.URLParam(r, "id"))
	b, err := h.Bookings.Confirm(r.Context(), id, actor(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingDTO(b))
}

// CancelBooking transitions pending|confirmed -> cancelled.
func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	id := engine.BookingID(chi.URLParam(r, "id"))

	var req CancelBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	b, err := h.Bookings.Cancel(r.Context(), booking.CancelParams{
		BookingID: id,
		Reason:    engine.CancellationReason(req.Reason),
		Notes:     req.Notes,
		Force:     req.Force,
	}, actor(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingDTO(b))
}

// CompleteBooking transitions confirmed -> completed.
func (h *Handler) CompleteBooking(w http.ResponseWriter, r *http.Request) {
	id := engine.BookingID(chi.URLParam(r, "id"))
	b, err := h.Bookings.Complete(r.Context(), id, actor(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingDTO(b))
}

// =============================================================================
// PAYROLL HANDLERS
// =============================================================================

// GetPayroll computes the period containing ?week_start (default: now).
func (h *Handler) GetPayroll(w http.ResponseWriter, r *http.Request) {
	at := h.Now()
	if s := r.URL.Query().Get("week_start"); s != "" {
		t, err := time.ParseInLocation("2006-01-02", s, h.Config.Timezone)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid week_start (use YYYY-MM-DD)", err)
			return
		}
		at = t
	}

	summary, err := h.Payroll.ComputePeriod(r.Context(), at)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPayrollSummaryDTO(summary))
}

// FinalizePayroll locks a period. One-way; 409 if already finalized.
func (h *Handler) FinalizePayroll(w http.ResponseWriter, r *http.Request) {
	var req FinalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	weekStart, err := time.ParseInLocation("2006-01-02", req.WeekStart, h.Config.Timezone)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid week_start (use YYYY-MM-DD)", err)
		return
	}

	summary, err := h.Payroll.Finalize(r.Context(), weekStart, actor(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPayrollSummaryDTO(summary))
}

// CreateAdjustment records a manual adjustment against an open period.
func (h *Handler) CreateAdjustment(w http.ResponseWriter, r *http.Request) {
	var req CreateAdjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	periodStart, err := time.ParseInLocation("2006-01-02", req.PeriodStart, h.Config.Timezone)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period_start (use YYYY-MM-DD)", err)
		return
	}
	amount := engine.MustParseMoney(req.Amount)
	if amount.IsZero() {
		writeError(w, http.StatusBadRequest, "Amount must be a non-zero decimal", nil)
		return
	}

	adj, err := h.Payroll.AddAdjustment(r.Context(), payroll.AdjustmentParams{
		PeriodStart: periodStart,
		SalesmanID:  engine.SalesmanID(req.SalesmanID),
		BookingID:   engine.BookingID(req.BookingID),
		Type:        engine.AdjustmentType(req.Type),
		Amount:      amount,
		Reason:      req.Reason,
	}, actor(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, AdjustmentDTO{
		ID:          string(adj.ID),
		PeriodStart: adj.PeriodStart.Format("2006-01-02"),
		SalesmanID:  string(adj.SalesmanID),
		BookingID:   string(adj.BookingID),
		Type:        string(adj.Type),
		Amount:      adj.Amount.String(),
		Reason:      adj.Reason,
		CreatedBy:   adj.CreatedBy,
	})
}

// =============================================================================
// RATE HANDLERS
// =============================================================================

// ListRates returns the full rate history.
func (h *Handler) ListRates(w http.ResponseWriter, r *http.Request) {
	records, err := h.Store.ListRates(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list rates", err)
		return
	}

	dtos := make([]RateRecordDTO, 0, len(records))
	for _, rec := range records {
		dto := RateRecordDTO{
			Rate:          rec.Rate.String(),
			EffectiveFrom: rec.EffectiveFrom.Format(time.RFC3339),
		}
		if rec.SalesmanID != nil {
			dto.SalesmanID = string(*rec.SalesmanID)
		}
		if rec.Kind != nil {
			dto.Kind = string(*rec.Kind)
		}
		dtos = append(dtos, dto)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// AppendRate adds a rate record. History is append-only; existing
// commission entries keep their snapshot.
func (h *Handler) AppendRate(w http.ResponseWriter, r *http.Request) {
	var req AppendRateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	rate := engine.MustParseMoney(req.Rate)
	if rate.IsZero() || rate.IsNegative() {
		writeError(w, http.StatusBadRequest, "Rate must be a positive decimal", nil)
		return
	}

	record := engine.RateRecord{
		Rate:          rate,
		EffectiveFrom: h.Now(),
	}
	if req.EffectiveFrom != "" {
		t, err := time.Parse(time.RFC3339, req.EffectiveFrom)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid effective_from", err)
			return
		}
		record.EffectiveFrom = t
	}
	if req.SalesmanID != "" {
		id := engine.SalesmanID(req.SalesmanID)
		record.SalesmanID = &id
	}
	if req.Kind != "" {
		k := engine.BookingKind(req.Kind)
		if !k.Valid() {
			writeError(w, http.StatusBadRequest, "Invalid kind", nil)
			return
		}
		record.Kind = &k
	}

	if err := h.Store.AppendRate(r.Context(), record); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to append rate", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "created"})
}

// =============================================================================
// HOLIDAY HANDLERS
// =============================================================================

// ListHolidays returns all holidays.
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	holidays, err := h.Store.ListHolidays(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list holidays", err)
		return
	}

	dtos := make([]HolidayDTO, len(holidays))
	for i, hol := range holidays {
		dtos[i] = HolidayDTO{
			ID:        hol.ID,
			Name:      hol.Name,
			Date:      hol.Date.Format("2006-01-02"),
			Recurring: hol.Recurring,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateHoliday adds a holiday.
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req CreateHolidayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	date, err := time.ParseInLocation("2006-01-02", req.Date, h.Config.Timezone)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	hol, err := h.Calendar.AddHoliday(r.Context(), req.Name, date, req.Recurring, actor(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, HolidayDTO{
		ID:        hol.ID,
		Name:      hol.Name,
		Date:      hol.Date.Format("2006-01-02"),
		Recurring: hol.Recurring,
	})
}

// DeleteHoliday removes a holiday.
func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Calendar.RemoveHoliday(r.Context(), id, actor(r)); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// =============================================================================
// HELPERS
// =============================================================================

func parseRange(r *http.Request, loc *time.Location) (time.Time, time.Time, error) {
	from, err := time.Parse(time.RFC3339, r.URL.Query().Get("from"))
	if err != nil {
		// Fall back to date-only.
		from, err = time.ParseInLocation("2006-01-02", r.URL.Query().Get("from"), loc)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	to, err := time.Parse(time.RFC3339, r.URL.Query().Get("to"))
	if err != nil {
		to, err = time.ParseInLocation("2006-01-02", r.URL.Query().Get("to"), loc)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to = to.AddDate(0, 0, 1) // date-only "to" is inclusive
	}
	return from, to, nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps typed engine errors to HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrValidation):
		writeError(w, http.StatusBadRequest, "Validation failed", err)
	case errors.Is(err, engine.ErrInvalidTransition):
		writeError(w, http.StatusBadRequest, "Invalid status transition", err)
	case errors.Is(err, engine.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found", err)
	case errors.Is(err, engine.ErrSlotConflict):
		writeError(w, http.StatusConflict, "Slot conflict", err)
	case errors.Is(err, engine.ErrDuplicateEntry):
		writeError(w, http.StatusConflict, "Duplicate commission entry", err)
	case errors.Is(err, engine.ErrAlreadyFinalized):
		writeError(w, http.StatusConflict, "Period already finalized", err)
	case errors.Is(err, engine.ErrPeriodLocked):
		writeError(w, http.StatusLocked, "Pay period locked", err)
	case engine.IsClientError(err):
		// Typed client errors without a more specific mapping above.
		writeError(w, http.StatusBadRequest, "Invalid request", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}
