package booking

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/lodgekeep/lodgekeep/engine"
	"github.com/lodgekeep/lodgekeep/money"
	"github.com/lodgekeep/lodgekeep/payment"
	"github.com/lodgekeep/lodgekeep/pricing"
	"github.com/lodgekeep/lodgekeep/room"
)

// Handler exposes the booking engine over JSON. Transport concerns stop here;
// everything below it speaks domain types.
type Handler struct {
	svc      *Service
	repo     *Repository
	ledger   *room.Ledger
	pricer   *pricing.Calculator
	payments *payment.Ledger
	validate *validator.Validate
}

func NewHandler(svc *Service, repo *Repository, ledger *room.Ledger, pricer *pricing.Calculator, payments *payment.Ledger, validate *validator.Validate) *Handler {
	return &Handler{
		svc:      svc,
		repo:     repo,
		ledger:   ledger,
		pricer:   pricer,
		payments: payments,
		validate: validate,
	}
}

type availabilityRequest struct {
	RoomTypeID   uint   `json:"roomTypeId" validate:"required"`
	CheckInDate  string `json:"checkInDate" validate:"required"`
	CheckOutDate string `json:"checkOutDate" validate:"required"`
}

// CheckAvailability is the read path: no side effects, and its answer can go
// stale; creation re-checks under its own lock.
func (h *Handler) CheckAvailability(c fiber.Ctx) error {
	var req availabilityRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}

	checkIn, checkOut, err := parseStayDates(req.CheckInDate, req.CheckOutDate)
	if err != nil {
		return err
	}

	avail, err := h.ledger.CheckAvailability(c.Context(), req.RoomTypeID, checkIn, checkOut)
	if err != nil {
		return err
	}

	return c.Status(http.StatusOK).JSON(avail)
}

type priceRequest struct {
	RoomTypeID    uint   `json:"roomTypeId" validate:"required"`
	CheckInDate   string `json:"checkInDate" validate:"required"`
	CheckOutDate  string `json:"checkOutDate" validate:"required"`
	AdultsCount   int    `json:"adultsCount" validate:"required,min=1"`
	ChildrenCount int    `json:"childrenCount" validate:"min=0"`
	CouponCode    string `json:"couponCode"`
}

func (h *Handler) CalculatePrice(c fiber.Ctx) error {
	var req priceRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}

	checkIn, checkOut, err := parseStayDates(req.CheckInDate, req.CheckOutDate)
	if err != nil {
		return err
	}

	breakdown, err := h.pricer.Quote(c.Context(), pricing.QuoteInput{
		RoomTypeID: req.RoomTypeID,
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		Adults:     req.AdultsCount,
		Children:   req.ChildrenCount,
		CouponCode: req.CouponCode,
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusOK).JSON(breakdown)
}

type guestRequest struct {
	FullName string `json:"fullName" validate:"required"`
	Email    string `json:"email" validate:"omitempty,email"`
	Phone    string `json:"phone"`
}

type createRequest struct {
	RoomTypeID      uint           `json:"roomTypeId" validate:"required"`
	CheckInDate     string         `json:"checkInDate" validate:"required"`
	CheckOutDate    string         `json:"checkOutDate" validate:"required"`
	AdultsCount     int            `json:"adultsCount" validate:"required,min=1"`
	ChildrenCount   int            `json:"childrenCount" validate:"min=0"`
	CouponCode      string         `json:"couponCode"`
	Source          string         `json:"source" validate:"required,oneof=ONLINE FRONT_DESK PHONE"`
	Guests          []guestRequest `json:"guests" validate:"required,min=1,dive"`
	BookingCurrency string         `json:"bookingCurrency"`
	ConversionRate  string         `json:"conversionRate"`
}

func (h *Handler) Create(c fiber.Ctx) error {
	var req createRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}

	checkIn, checkOut, err := parseStayDates(req.CheckInDate, req.CheckOutDate)
	if err != nil {
		return err
	}

	in := CreateInput{
		RoomTypeID:      req.RoomTypeID,
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		Adults:          req.AdultsCount,
		Children:        req.ChildrenCount,
		CouponCode:      req.CouponCode,
		Source:          Source(req.Source),
		BookingCurrency: req.BookingCurrency,
	}
	for _, g := range req.Guests {
		in.Guests = append(in.Guests, GuestInput{FullName: g.FullName, Email: g.Email, Phone: g.Phone})
	}
	if req.ConversionRate != "" {
		rate, err := money.Parse(req.ConversionRate)
		if err != nil {
			return engine.Invalidf("conversionRate", "must be a decimal number")
		}
		in.ConversionRate = rate
	}

	b, err := h.svc.Create(c.Context(), in)
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(b)
}

type guestDocumentRequest struct {
	ID       uint   `json:"id" validate:"required"`
	IDType   string `json:"idType" validate:"required"`
	IDNumber string `json:"idNumber" validate:"required"`
	IDImage  string `json:"idImage"`
}

type paymentBody struct {
	Amount    string `json:"amount" validate:"required"`
	Method    string `json:"method" validate:"required,oneof=CASH CARD TRANSFER GATEWAY"`
	Notes     string `json:"notes"`
	Reference string `json:"reference"`
}

type checkInRequest struct {
	Guests  []guestDocumentRequest `json:"guests" validate:"omitempty,dive"`
	Payment *paymentBody           `json:"payment"`
}

func (h *Handler) CheckIn(c fiber.Ctx) error {
	id, err := bookingID(c)
	if err != nil {
		return err
	}

	var req checkInRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}

	in := CheckInInput{}
	for _, g := range req.Guests {
		in.Documents = append(in.Documents, GuestDocument{
			GuestID:  g.ID,
			IDType:   g.IDType,
			IDNumber: g.IDNumber,
			IDImage:  g.IDImage,
		})
	}
	if req.Payment != nil {
		pi, err := paymentInput(*req.Payment)
		if err != nil {
			return err
		}
		in.Payment = &pi
	}

	b, err := h.svc.CheckIn(c.Context(), id, in)
	if err != nil {
		return err
	}

	return c.Status(http.StatusOK).JSON(b)
}

func (h *Handler) CheckOut(c fiber.Ctx) error {
	id, err := bookingID(c)
	if err != nil {
		return err
	}

	b, err := h.svc.CheckOut(c.Context(), id)
	if err != nil {
		return err
	}

	return c.Status(http.StatusOK).JSON(b)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) Cancel(c fiber.Ctx) error {
	id, err := bookingID(c)
	if err != nil {
		return err
	}

	var req cancelRequest
	if len(c.Body()) > 0 {
		if err := h.bind(c, &req); err != nil {
			return err
		}
	}

	b, err := h.svc.Cancel(c.Context(), id, req.Reason)
	if err != nil {
		return err
	}

	return c.Status(http.StatusOK).JSON(b)
}

type manualPaymentRequest struct {
	BookingID uint   `json:"bookingId" validate:"required"`
	Amount    string `json:"amount" validate:"required"`
	Method    string `json:"method" validate:"required,oneof=CASH CARD TRANSFER GATEWAY"`
	Notes     string `json:"notes"`
	Reference string `json:"reference"`
}

func (h *Handler) ManualPayment(c fiber.Ctx) error {
	var req manualPaymentRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}

	pi, err := paymentInput(paymentBody{
		Amount:    req.Amount,
		Method:    req.Method,
		Notes:     req.Notes,
		Reference: req.Reference,
	})
	if err != nil {
		return err
	}

	p, err := h.svc.RecordPayment(c.Context(), req.BookingID, pi)
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(p)
}

func (h *Handler) GetByID(c fiber.Ctx) error {
	id, err := bookingID(c)
	if err != nil {
		return err
	}

	b, err := h.repo.ByID(c.Context(), id)
	if err != nil {
		return err
	}

	return c.Status(http.StatusOK).JSON(b)
}

func (h *Handler) List(c fiber.Ctx) error {
	var f ListFilter

	if from := c.Query("from"); from != "" {
		t, err := time.Parse(time.DateOnly, from)
		if err != nil {
			return engine.Invalidf("from", "must be a YYYY-MM-DD date")
		}
		f.From = &t
	}
	if to := c.Query("to"); to != "" {
		t, err := time.Parse(time.DateOnly, to)
		if err != nil {
			return engine.Invalidf("to", "must be a YYYY-MM-DD date")
		}
		f.To = &t
	}
	f.Status = Status(c.Query("status"))

	bookings, err := h.repo.List(c.Context(), f)
	if err != nil {
		return err
	}

	return c.Status(http.StatusOK).JSON(bookings)
}

func (h *Handler) ListPayments(c fiber.Ctx) error {
	id, err := bookingID(c)
	if err != nil {
		return err
	}

	entries, err := h.payments.ForBooking(c.Context(), id)
	if err != nil {
		return err
	}

	return c.Status(http.StatusOK).JSON(entries)
}

// bind decodes the JSON body and runs struct validation, folding validator
// failures into the engine's error taxonomy.
func (h *Handler) bind(c fiber.Ctx, dst any) error {
	if err := c.Bind().JSON(dst); err != nil {
		return engine.Invalidf("body", "malformed JSON body")
	}

	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			ve := engine.NewValidationError()
			for _, fe := range verrs {
				ve.Add(fe.Field(), "failed "+fe.Tag()+" validation")
			}
			return ve
		}
		return err
	}

	return nil
}

func bookingID(c fiber.Ctx) (uint, error) {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id <= 0 {
		return 0, fiber.NewError(http.StatusBadRequest, "invalid booking id")
	}
	return uint(id), nil
}

func parseStayDates(checkIn, checkOut string) (time.Time, time.Time, error) {
	ve := engine.NewValidationError()

	in, err := time.Parse(time.DateOnly, checkIn)
	if err != nil {
		ve.Add("checkInDate", "must be a YYYY-MM-DD date")
	}
	out, err := time.Parse(time.DateOnly, checkOut)
	if err != nil {
		ve.Add("checkOutDate", "must be a YYYY-MM-DD date")
	}
	if ve.HasErrors() {
		return time.Time{}, time.Time{}, ve
	}
	if !out.After(in) {
		return time.Time{}, time.Time{}, engine.Invalidf("checkOutDate", "must be after check-in date")
	}

	return in, out, nil
}

func paymentInput(body paymentBody) (PaymentInput, error) {
	amount, err := money.Parse(body.Amount)
	if err != nil {
		return PaymentInput{}, engine.Invalidf("amount", "must be a decimal number")
	}
	if !amount.IsPositive() {
		return PaymentInput{}, engine.Invalidf("amount", "must be positive")
	}
	return PaymentInput{
		Amount:    amount,
		Method:    payment.Method(body.Method),
		Notes:     body.Notes,
		Reference: body.Reference,
	}, nil
}
