package main

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lodgekeep/lodgekeep/booking"
	"github.com/lodgekeep/lodgekeep/room"
)

func registerRoutes(app *fiber.App, bookings *booking.Handler, rooms *room.Handler) {
	api := app.Group("/api/v1")

	b := api.Group("/bookings")
	b.Post("/check-availability", bookings.CheckAvailability)
	b.Post("/calculate-price", bookings.CalculatePrice)
	b.Post("", bookings.Create)
	b.Get("", bookings.List)
	b.Get("/:id", bookings.GetByID)
	b.Get("/:id/payments", bookings.ListPayments)
	b.Post("/:id/check-in", bookings.CheckIn)
	b.Post("/:id/check-out", bookings.CheckOut)
	b.Post("/:id/cancel", bookings.Cancel)

	api.Post("/payments/manual", bookings.ManualPayment)

	api.Get("/rooms/:id/booked-dates", rooms.BookedDates)

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
}
