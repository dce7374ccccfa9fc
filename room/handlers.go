package room

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v3"
)

type Handler struct {
	ledger *Ledger
}

func NewHandler(ledger *Ledger) *Handler {
	return &Handler{ledger: ledger}
}

// BookedDates returns the nights currently consumed on a room.
func (h *Handler) BookedDates(c fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).SendString("invalid room id")
	}

	dates, err := h.ledger.BookedDates(c.Context(), uint(id))
	if err != nil {
		return err
	}

	return c.Status(http.StatusOK).JSON(dates)
}
