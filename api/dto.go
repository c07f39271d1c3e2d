/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:

	Defines the JSON structures for API communication. These types decouple
	the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:

	Structural validation (required fields, date formats) happens in
	handlers; business validation lives in the domain components and
	surfaces as typed errors mapped by writeDomainError.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/warp/booking-engine/booking"
	"github.com/warp/booking-engine/engine"
	"github.com/warp/booking-engine/payroll"
)

// =============================================================================
// SALESMEN
// =============================================================================

// WorkingWindowDTO is one template window, minutes from midnight in the
// business timezone.
type WorkingWindowDTO struct {
	Weekday  int    `json:"weekday"` // 0 = Sunday
	StartMin int    `json:"start_min"`
	EndMin   int    `json:"end_min"`
	Kind     string `json:"kind"`
}

type SalesmanDTO struct {
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	Email         string             `json:"email"`
	Phone         string             `json:"phone,omitempty"`
	Template      []WorkingWindowDTO `json:"template"`
	BufferMinutes int                `json:"buffer_minutes"`
	Active        bool               `json:"active"`
	HireDate      string             `json:"hire_date,omitempty"`
	CreatedAt     string             `json:"created_at,omitempty"`
}

type CreateSalesmanRequest struct {
	Name          string             `json:"name"`
	Email         string             `json:"email"`
	Phone         string             `json:"phone"`
	Template      []WorkingWindowDTO `json:"template"`
	BufferMinutes int                `json:"buffer_minutes"`
	HireDate      string             `json:"hire_date"`
}

type ReplaceHoursRequest struct {
	Template []WorkingWindowDTO `json:"template"`
}

// =============================================================================
// SLOTS
// =============================================================================

type SlotDTO struct {
	SalesmanID string `json:"salesman_id"`
	Start      string `json:"start"`
	End        string `json:"end"`
	Kind       string `json:"kind"`
}

// BulkSlotsRequest asks for slots across many salesmen at once.
type BulkSlotsRequest struct {
	SalesmanIDs []string `json:"salesman_ids"`
	From        string   `json:"from"`
	To          string   `json:"to"`
	Kind        string   `json:"kind,omitempty"`
}

// =============================================================================
// BLOCKS
// =============================================================================

type BlockDTO struct {
	ID         string `json:"id"`
	SalesmanID string `json:"salesman_id"`
	Start      string `json:"start"`
	End        string `json:"end"`
	Reason     string `json:"reason"`
	CreatedBy  string `json:"created_by,omitempty"`
}

type CreateBlockRequest struct {
	Start  string `json:"start"`
	End    string `json:"end"`
	Reason string `json:"reason"`
}

// =============================================================================
// BOOKINGS
// =============================================================================

type ClientRequest struct {
	ClientID     string `json:"client_id,omitempty"`
	FirstName    string `json:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
	BusinessName string `json:"business_name,omitempty"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

type CreateBookingRequest struct {
	SalesmanID string        `json:"salesman_id"`
	Start      string        `json:"start"`
	End        string        `json:"end"`
	Kind       string        `json:"kind"`
	ZoomLink   string        `json:"zoom_link,omitempty"`
	Notes      string        `json:"notes,omitempty"`
	Client     ClientRequest `json:"client"`
}

type BookingDTO struct {
	ID          string `json:"id"`
	SalesmanID  string `json:"salesman_id"`
	ClientID    string `json:"client_id"`
	Start       string `json:"start"`
	End         string `json:"end"`
	Kind        string `json:"kind"`
	Status      string `json:"status"`
	ZoomLink    string `json:"zoom_link,omitempty"`
	Notes       string `json:"notes,omitempty"`
	CreatedBy   string `json:"created_by,omitempty"`
	ConfirmedAt string `json:"confirmed_at,omitempty"`
	CancelledAt string `json:"cancelled_at,omitempty"`

	CancellationReason string `json:"cancellation_reason,omitempty"`
}

// CreateBookingResponse wraps the booking with the advisory duplicate
// warning when one was raised.
type CreateBookingResponse struct {
	Booking BookingDTO           `json:"booking"`
	Warning *DuplicateWarningDTO `json:"warning,omitempty"`
}

type DuplicateWarningDTO struct {
	ClientID  string `json:"client_id"`
	MatchedOn string `json:"matched_on"`
}

type CancelBookingRequest struct {
	Reason string `json:"reason"`
	Notes  string `json:"notes,omitempty"`
	Force  bool   `json:"force,omitempty"`
}

// =============================================================================
// PAYROLL
// =============================================================================

type SalesmanTotalDTO struct {
	SalesmanID   string `json:"salesman_id"`
	Commission   string `json:"commission"`
	Adjustments  string `json:"adjustments"`
	Total        string `json:"total"`
	BookingCount int    `json:"booking_count"`
}

type PayrollSummaryDTO struct {
	PeriodStart string             `json:"period_start"`
	PeriodEnd   string             `json:"period_end"`
	Label       string             `json:"label"`
	Status      string             `json:"status"`
	Totals      []SalesmanTotalDTO `json:"totals"`
	GrandTotal  string             `json:"grand_total"`
	FinalizedAt string             `json:"finalized_at,omitempty"`
	FinalizedBy string             `json:"finalized_by,omitempty"`
}

type FinalizeRequest struct {
	WeekStart string `json:"week_start"` // YYYY-MM-DD, any day in the period
}

type CreateAdjustmentRequest struct {
	PeriodStart string `json:"period_start"`
	SalesmanID  string `json:"salesman_id"`
	BookingID   string `json:"booking_id,omitempty"`
	Type        string `json:"type"`
	Amount      string `json:"amount"` // decimal string, signed
	Reason      string `json:"reason"`
}

type AdjustmentDTO struct {
	ID          string `json:"id"`
	PeriodStart string `json:"period_start"`
	SalesmanID  string `json:"salesman_id"`
	BookingID   string `json:"booking_id,omitempty"`
	Type        string `json:"type"`
	Amount      string `json:"amount"`
	Reason      string `json:"reason"`
	CreatedBy   string `json:"created_by"`
}

// =============================================================================
// RATES
// =============================================================================

type RateRecordDTO struct {
	SalesmanID    string `json:"salesman_id,omitempty"`
	Kind          string `json:"kind,omitempty"`
	Rate          string `json:"rate"`
	EffectiveFrom string `json:"effective_from"`
}

type AppendRateRequest struct {
	SalesmanID    string `json:"salesman_id,omitempty"`
	Kind          string `json:"kind,omitempty"`
	Rate          string `json:"rate"`
	EffectiveFrom string `json:"effective_from,omitempty"` // default now
}

// =============================================================================
// HOLIDAYS
// =============================================================================

type HolidayDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Date      string `json:"date"`
	Recurring bool   `json:"recurring"`
}

type CreateHolidayRequest struct {
	Name      string `json:"name"`
	Date      string `json:"date"`
	Recurring bool   `json:"recurring"`
}

// =============================================================================
// ERRORS
// =============================================================================

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toSalesmanDTO(s *engine.Salesman) SalesmanDTO {
	dto := SalesmanDTO{
		ID:            string(s.ID),
		Name:          s.Name,
		Email:         s.Email,
		Phone:         s.Phone,
		BufferMinutes: s.BufferMinutes,
		Active:        s.Active,
	}
	if !s.HireDate.IsZero() {
		dto.HireDate = s.HireDate.Format("2006-01-02")
	}
	if !s.CreatedAt.IsZero() {
		dto.CreatedAt = s.CreatedAt.Format(time.RFC3339)
	}
	for _, w := range s.Template {
		dto.Template = append(dto.Template, WorkingWindowDTO{
			Weekday:  int(w.Weekday),
			StartMin: w.StartMin,
			EndMin:   w.EndMin,
			Kind:     string(w.Kind),
		})
	}
	return dto
}

func toTemplate(windows []WorkingWindowDTO) []engine.WorkingWindow {
	out := make([]engine.WorkingWindow, 0, len(windows))
	for _, w := range windows {
		out = append(out, engine.WorkingWindow{
			Weekday:  time.Weekday(w.Weekday),
			StartMin: w.StartMin,
			EndMin:   w.EndMin,
			Kind:     engine.BookingKind(w.Kind),
		})
	}
	return out
}

func toSlotDTOs(slots []engine.Slot) []SlotDTO {
	dtos := make([]SlotDTO, 0, len(slots))
	for _, s := range slots {
		dtos = append(dtos, SlotDTO{
			SalesmanID: string(s.SalesmanID),
			Start:      s.Start.Format(time.RFC3339),
			End:        s.End.Format(time.RFC3339),
			Kind:       string(s.Kind),
		})
	}
	return dtos
}

func toBookingDTO(b *engine.Booking) BookingDTO {
	dto := BookingDTO{
		ID:                 string(b.ID),
		SalesmanID:         string(b.SalesmanID),
		ClientID:           string(b.ClientID),
		Start:              b.Start.Format(time.RFC3339),
		End:                b.End.Format(time.RFC3339),
		Kind:               string(b.Kind),
		Status:             string(b.Status),
		ZoomLink:           b.ZoomLink,
		Notes:              b.Notes,
		CreatedBy:          b.CreatedBy,
		CancellationReason: string(b.CancellationReason),
	}
	if b.ConfirmedAt != nil {
		dto.ConfirmedAt = b.ConfirmedAt.Format(time.RFC3339)
	}
	if b.CancelledAt != nil {
		dto.CancelledAt = b.CancelledAt.Format(time.RFC3339)
	}
	return dto
}

func toClientParams(c ClientRequest) booking.ClientParams {
	return booking.ClientParams{
		ClientID:     engine.ClientID(c.ClientID),
		FirstName:    c.FirstName,
		LastName:     c.LastName,
		BusinessName: c.BusinessName,
		Email:        c.Email,
		Phone:        c.Phone,
		Notes:        c.Notes,
	}
}

func toPayrollSummaryDTO(s *payroll.Summary) PayrollSummaryDTO {
	dto := PayrollSummaryDTO{
		PeriodStart: s.Period.Start.Format("2006-01-02"),
		PeriodEnd:   s.Period.End.Format("2006-01-02"),
		Label:       s.Period.Label(),
		Status:      string(s.Period.Status),
		GrandTotal:  s.GrandTotal.String(),
		FinalizedBy: s.Period.FinalizedBy,
	}
	if s.Period.FinalizedAt != nil {
		dto.FinalizedAt = s.Period.FinalizedAt.Format(time.RFC3339)
	}
	for _, t := range s.Totals {
		dto.Totals = append(dto.Totals, SalesmanTotalDTO{
			SalesmanID:   string(t.SalesmanID),
			Commission:   t.Commission.String(),
			Adjustments:  t.Adjustments.String(),
			Total:        t.Total.String(),
			BookingCount: t.BookingCount,
		})
	}
	return dto
}
