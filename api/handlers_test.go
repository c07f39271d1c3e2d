package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/booking-engine/api"
	"github.com/warp/booking-engine/booking"
	"github.com/warp/booking-engine/calendar"
	"github.com/warp/booking-engine/commission"
	"github.com/warp/booking-engine/engine"
	memstore "github.com/warp/booking-engine/engine/store"
	"github.com/warp/booking-engine/payroll"
	"github.com/warp/booking-engine/slots"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// Clock pinned to Monday 2024-06-03 08:00 UTC; bookings target the
// following Monday.
var (
	now       = time.Date(2024, time.June, 3, 8, 0, 0, 0, time.UTC)
	slotStart = time.Date(2024, time.June, 10, 9, 0, 0, 0, time.UTC)
)

type testAPI struct {
	router http.Handler
	store  *memstore.Memory
	proc   *payroll.Processor
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	store := memstore.NewMemory()
	cfg := engine.DefaultConfig()
	clock := func() time.Time { return now }

	cal := calendar.NewService(store, cfg, nil)
	cal.Now = clock
	gen := slots.NewGenerator(cal, store, cfg)
	proc := payroll.NewProcessor(store, cfg, nil)
	proc.Now = clock
	ledger := commission.NewLedger(store, cfg, proc, nil)
	ledger.Now = clock
	mgr := booking.NewManager(store, cfg, gen, ledger, proc, nil)
	mgr.Now = clock

	h := api.NewHandler(store, cfg, cal, gen, mgr, ledger, proc)
	h.Now = clock

	return &testAPI{router: api.NewRouter(h), store: store, proc: proc}
}

// do issues a request as the given actor and returns the recorder.
func (a *testAPI) do(t *testing.T, method, path string, body any, actor engine.Actor) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if actor.ID != "" {
		req.Header.Set("X-Actor-ID", actor.ID)
		req.Header.Set("X-Actor-Role", actor.Role)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out), "body: %s", rec.Body.String())
	return out
}

var adminActor = engine.Actor{ID: "admin-1", Role: "admin"}

// seedSalesman provisions a salesman over the API: Mondays 09:00-17:00, zoom.
func (a *testAPI) seedSalesman(t *testing.T) string {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/salesmen", api.CreateSalesmanRequest{
		Name:  "Test Salesman",
		Email: "sales@example.com",
		Template: []api.WorkingWindowDTO{
			{Weekday: int(time.Monday), StartMin: 9 * 60, EndMin: 17 * 60, Kind: "zoom"},
		},
	}, adminActor)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[api.SalesmanDTO](t, rec).ID
}

func (a *testAPI) createBooking(t *testing.T, salesmanID string, start time.Time, email string) api.CreateBookingResponse {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/bookings", api.CreateBookingRequest{
		SalesmanID: salesmanID,
		Start:      start.Format(time.RFC3339),
		End:        start.Add(30 * time.Minute).Format(time.RFC3339),
		Kind:       "zoom",
		ZoomLink:   "https://zoom.example.com/j/123",
		Client:     api.ClientRequest{FirstName: "Ada", LastName: "Lovelace", Email: email},
	}, adminActor)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[api.CreateBookingResponse](t, rec)
}

// =============================================================================
// SALESMAN ROUTES
// =============================================================================

func TestAPI_SalesmanLifecycle(t *testing.T) {
	a := newTestAPI(t)
	id := a.seedSalesman(t)

	rec := a.do(t, http.MethodGet, "/api/salesmen/"+id, nil, adminActor)
	require.Equal(t, http.StatusOK, rec.Code)
	sm := decode[api.SalesmanDTO](t, rec)
	assert.True(t, sm.Active)
	assert.Len(t, sm.Template, 1)

	rec = a.do(t, http.MethodPost, "/api/salesmen/"+id+"/deactivate", nil, adminActor)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[api.SalesmanDTO](t, rec).Active)

	rec = a.do(t, http.MethodGet, "/api/salesmen?active=true", nil, adminActor)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]api.SalesmanDTO](t, rec))
}

func TestAPI_CreateSalesman_MissingFields(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodPost, "/api/salesmen", api.CreateSalesmanRequest{Name: "No Email"}, adminActor)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_ReplaceHours_Validation(t *testing.T) {
	a := newTestAPI(t)
	id := a.seedSalesman(t)

	rec := a.do(t, http.MethodPut, "/api/salesmen/"+id+"/hours", api.ReplaceHoursRequest{
		Template: []api.WorkingWindowDTO{{Weekday: 1, StartMin: 600, EndMin: 540, Kind: "zoom"}},
	}, adminActor)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "start after end")

	rec = a.do(t, http.MethodPut, "/api/salesmen/"+id+"/hours", api.ReplaceHoursRequest{
		Template: []api.WorkingWindowDTO{{Weekday: 1, StartMin: 540, EndMin: 720, Kind: "telepathy"}},
	}, adminActor)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "bad kind")

	rec = a.do(t, http.MethodPut, "/api/salesmen/"+id+"/hours", api.ReplaceHoursRequest{
		Template: []api.WorkingWindowDTO{{Weekday: 1, StartMin: 540, EndMin: 720, Kind: "zoom"}},
	}, adminActor)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 720, decode[api.SalesmanDTO](t, rec).Template[0].EndMin)
}

// =============================================================================
// SLOT ROUTES
// =============================================================================

func TestAPI_GetSlots(t *testing.T) {
	a := newTestAPI(t)
	id := a.seedSalesman(t)

	rec := a.do(t, http.MethodGet, "/api/salesmen/"+id+"/slots?from=2024-06-10&to=2024-06-10&kind=zoom", nil, adminActor)
	require.Equal(t, http.StatusOK, rec.Code)
	generated := decode[[]api.SlotDTO](t, rec)
	assert.Len(t, generated, 16)
	assert.Equal(t, slotStart.Format(time.RFC3339), generated[0].Start)
}

func TestAPI_GetSlots_BadRange(t *testing.T) {
	a := newTestAPI(t)
	id := a.seedSalesman(t)

	rec := a.do(t, http.MethodGet, "/api/salesmen/"+id+"/slots?from=whenever&to=2024-06-10", nil, adminActor)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_BulkSlots(t *testing.T) {
	a := newTestAPI(t)
	id1 := a.seedSalesman(t)
	id2 := a.seedSalesman(t)

	rec := a.do(t, http.MethodPost, "/api/slots/bulk", api.BulkSlotsRequest{
		SalesmanIDs: []string{id1, id2},
		From:        slotStart.Add(-9 * time.Hour).Format(time.RFC3339),
		To:          slotStart.Add(15 * time.Hour).Format(time.RFC3339),
		Kind:        "zoom",
	}, adminActor)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode[map[string][]api.SlotDTO](t, rec)
	require.Len(t, out, 2)
	assert.Len(t, out[id1], 16)
	assert.Len(t, out[id2], 16)
}

// =============================================================================
// BLOCK ROUTES
// =============================================================================

func TestAPI_Blocks(t *testing.T) {
	a := newTestAPI(t)
	id := a.seedSalesman(t)

	create := api.CreateBlockRequest{
		Start:  slotStart.Add(3 * time.Hour).Format(time.RFC3339),
		End:    slotStart.Add(5 * time.Hour).Format(time.RFC3339),
		Reason: "training",
	}
	rec := a.do(t, http.MethodPost, "/api/salesmen/"+id+"/blocks", create, adminActor)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	block := decode[api.BlockDTO](t, rec)

	rec = a.do(t, http.MethodPost, "/api/salesmen/"+id+"/blocks", create, adminActor)
	assert.Equal(t, http.StatusConflict, rec.Code, "overlapping block")

	rec = a.do(t, http.MethodGet, "/api/salesmen/"+id+"/blocks?from=2024-06-10&to=2024-06-10", nil, adminActor)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]api.BlockDTO](t, rec), 1)

	rec = a.do(t, http.MethodDelete, "/api/blocks/"+block.ID, nil, adminActor)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// =============================================================================
// BOOKING ROUTES
// =============================================================================

func TestAPI_BookingFlow(t *testing.T) {
	// GIVEN: A salesman with Monday hours
	// WHEN: Creating, confirming, and completing a booking over the API
	// THEN: Statuses progress and payroll shows the commission

	a := newTestAPI(t)
	id := a.seedSalesman(t)

	created := a.createBooking(t, id, slotStart, "ada@example.com")
	assert.Equal(t, "pending", created.Booking.Status)
	assert.Nil(t, created.Warning)

	rec := a.do(t, http.MethodPost, "/api/bookings/"+created.Booking.ID+"/confirm", nil, adminActor)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "confirmed", decode[api.BookingDTO](t, rec).Status)

	// Commission lands in the period containing the confirmation instant.
	rec = a.do(t, http.MethodGet, "/api/payroll?week_start=2024-05-31", nil, adminActor)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decode[api.PayrollSummaryDTO](t, rec)
	require.Len(t, summary.Totals, 1)
	assert.Equal(t, "50.00", summary.Totals[0].Commission)
	assert.Equal(t, "50.00", summary.GrandTotal)

	rec = a.do(t, http.MethodPost, "/api/bookings/"+created.Booking.ID+"/complete", nil, adminActor)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "completed", decode[api.BookingDTO](t, rec).Status)
}

func TestAPI_CreateBooking_DuplicateClientWarning(t *testing.T) {
	a := newTestAPI(t)
	id := a.seedSalesman(t)

	a.createBooking(t, id, slotStart, "ada@example.com")
	second := a.createBooking(t, id, slotStart.Add(2*time.Hour), "ADA@example.com")

	require.NotNil(t, second.Warning)
	assert.Equal(t, "email", second.Warning.MatchedOn)
	assert.Equal(t, second.Booking.ClientID, second.Warning.ClientID)
}

func TestAPI_CreateBooking_ConflictMaps409(t *testing.T) {
	a := newTestAPI(t)
	id := a.seedSalesman(t)
	a.createBooking(t, id, slotStart, "ada@example.com")

	rec := a.do(t, http.MethodPost, "/api/bookings", api.CreateBookingRequest{
		SalesmanID: id,
		Start:      slotStart.Format(time.RFC3339),
		End:        slotStart.Add(30 * time.Minute).Format(time.RFC3339),
		Kind:       "zoom",
		ZoomLink:   "https://zoom.example.com/j/456",
		Client:     api.ClientRequest{Email: "other@example.com"},
	}, adminActor)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAPI_CreateBooking_ValidationMaps400(t *testing.T) {
	a := newTestAPI(t)
	id := a.seedSalesman(t)

	rec := a.do(t, http.MethodPost, "/api/bookings", api.CreateBookingRequest{
		SalesmanID: id,
		Start:      slotStart.Format(time.RFC3339),
		End:        slotStart.Add(30 * time.Minute).Format(time.RFC3339),
		Kind:       "carrier_pigeon",
		Client:     api.ClientRequest{Email: "ada@example.com"},
	}, adminActor)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_GetBooking_NotFoundMaps404(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodGet, "/api/bookings/ghost", nil, adminActor)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_CancelBooking_LockedPeriodMaps423(t *testing.T) {
	// GIVEN: A confirmed booking whose confirmation period is finalized
	// WHEN: Cancelling without force
	// THEN: 423 Locked

	a := newTestAPI(t)
	id := a.seedSalesman(t)
	created := a.createBooking(t, id, slotStart, "ada@example.com")

	rec := a.do(t, http.MethodPost, "/api/bookings/"+created.Booking.ID+"/confirm", nil, adminActor)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/payroll/finalize", api.FinalizeRequest{WeekStart: "2024-05-31"}, adminActor)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodPost, "/api/bookings/"+created.Booking.ID+"/cancel", api.CancelBookingRequest{
		Reason: "client_request",
	}, adminActor)
	assert.Equal(t, http.StatusLocked, rec.Code)

	// Admin force-cancel takes the adjustment path instead.
	rec = a.do(t, http.MethodPost, "/api/bookings/"+created.Booking.ID+"/cancel", api.CancelBookingRequest{
		Reason: "client_request",
		Force:  true,
	}, adminActor)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

// =============================================================================
// PAYROLL ROUTES
// =============================================================================

func TestAPI_FinalizeTwiceMaps409(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodPost, "/api/payroll/finalize", api.FinalizeRequest{WeekStart: "2024-05-31"}, adminActor)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "finalized", decode[api.PayrollSummaryDTO](t, rec).Status)

	rec = a.do(t, http.MethodPost, "/api/payroll/finalize", api.FinalizeRequest{WeekStart: "2024-05-31"}, adminActor)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAPI_CreateAdjustment(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodPost, "/api/payroll/adjustments", api.CreateAdjustmentRequest{
		PeriodStart: "2024-05-31",
		SalesmanID:  "sm-1",
		Type:        "bonus",
		Amount:      "10.00",
		Reason:      "quarterly spiff",
	}, adminActor)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	adj := decode[api.AdjustmentDTO](t, rec)
	assert.Equal(t, "2024-05-31", adj.PeriodStart)
	assert.Equal(t, "admin-1", adj.CreatedBy)

	rec = a.do(t, http.MethodPost, "/api/payroll/adjustments", api.CreateAdjustmentRequest{
		PeriodStart: "2024-05-31",
		SalesmanID:  "sm-1",
		Type:        "bonus",
		Amount:      "0",
		Reason:      "zero",
	}, adminActor)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "zero amount rejected")
}

func TestAPI_AdjustmentAgainstFinalizedMaps423(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodPost, "/api/payroll/finalize", api.FinalizeRequest{WeekStart: "2024-05-31"}, adminActor)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/payroll/adjustments", api.CreateAdjustmentRequest{
		PeriodStart: "2024-05-31",
		SalesmanID:  "sm-1",
		Type:        "bonus",
		Amount:      "10.00",
		Reason:      "too late",
	}, adminActor)
	assert.Equal(t, http.StatusLocked, rec.Code)
}

// =============================================================================
// RATE ROUTES
// =============================================================================

func TestAPI_Rates(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodPost, "/api/rates", api.AppendRateRequest{
		Rate:          "65.00",
		EffectiveFrom: now.Format(time.RFC3339),
	}, adminActor)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodPost, "/api/rates", api.AppendRateRequest{Rate: "-5.00"}, adminActor)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "negative rate rejected")

	rec = a.do(t, http.MethodGet, "/api/rates", nil, adminActor)
	require.Equal(t, http.StatusOK, rec.Code)
	records := decode[[]api.RateRecordDTO](t, rec)
	require.Len(t, records, 1)
	assert.Equal(t, "65.00", records[0].Rate)
}

// =============================================================================
// HOLIDAY ROUTES
// =============================================================================

func TestAPI_Holidays(t *testing.T) {
	a := newTestAPI(t)
	id := a.seedSalesman(t)

	rec := a.do(t, http.MethodPost, "/api/holidays", api.CreateHolidayRequest{
		Name: "Company Day",
		Date: "2024-06-10",
	}, adminActor)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	holiday := decode[api.HolidayDTO](t, rec)

	// The holiday suppresses that Monday's slots.
	rec = a.do(t, http.MethodGet, "/api/salesmen/"+id+"/slots?from=2024-06-10&to=2024-06-10&kind=zoom", nil, adminActor)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]api.SlotDTO](t, rec))

	rec = a.do(t, http.MethodDelete, "/api/holidays/"+holiday.ID, nil, adminActor)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/holidays", nil, adminActor)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]api.HolidayDTO](t, rec))
}
