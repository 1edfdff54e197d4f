package main

import (
	"net/http"

	"github.com/bmizerany/pat"
	"github.com/justinas/alice"

	"marketBack/internal/metrics"
	"marketBack/internal/models"
)

func (app *application) JWTMiddlewareWithRole(requiredRole string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return app.JWTMiddleware(next, requiredRole)
	}
}

func (app *application) routes() http.Handler {
	standardMiddleware := alice.New(app.recoverPanic, metrics.InstrumentHandler, app.logRequest, app.rateLimit, secureHeaders)
	jsonMiddleware := standardMiddleware.Append(makeResponseJSON)
	authMiddleware := jsonMiddleware.Append(app.JWTMiddlewareWithRole(""))
	customerMiddleware := jsonMiddleware.Append(app.JWTMiddlewareWithRole(models.RoleCustomer))
	providerMiddleware := jsonMiddleware.Append(app.JWTMiddlewareWithRole(models.RoleProvider))

	mux := pat.New()

	// Users
	mux.Post("/user/sign_up", jsonMiddleware.ThenFunc(app.userHandler.SignUp))
	mux.Post("/user/sign_in", jsonMiddleware.ThenFunc(app.userHandler.SignIn))
	mux.Post("/user/refresh", jsonMiddleware.ThenFunc(app.userHandler.Refresh))
	mux.Post("/user/sign_out", authMiddleware.ThenFunc(app.userHandler.SignOut))
	mux.Get("/user/me", authMiddleware.ThenFunc(app.userHandler.Me))
	mux.Put("/user/me", authMiddleware.ThenFunc(app.userHandler.UpdateMe))
	mux.Put("/user/device_token", authMiddleware.ThenFunc(app.userHandler.UpdateDeviceToken))

	// Catalog
	mux.Get("/categories", jsonMiddleware.ThenFunc(app.serviceHandler.Categories))
	mux.Get("/services", jsonMiddleware.ThenFunc(app.serviceHandler.Browse))
	mux.Get("/services/:id/reviews", jsonMiddleware.ThenFunc(app.serviceHandler.ListReviews))
	mux.Get("/services/:id", jsonMiddleware.ThenFunc(app.serviceHandler.Get))
	mux.Post("/services/:id/images", providerMiddleware.ThenFunc(app.serviceHandler.UploadImage))
	mux.Post("/services", providerMiddleware.ThenFunc(app.serviceHandler.Create))
	mux.Put("/services/:id", providerMiddleware.ThenFunc(app.serviceHandler.Update))
	mux.Del("/services/:id", providerMiddleware.ThenFunc(app.serviceHandler.Deactivate))

	// Provider
	mux.Get("/provider/services", providerMiddleware.ThenFunc(app.serviceHandler.Mine))
	mux.Get("/provider/bookings", providerMiddleware.ThenFunc(app.bookingHandler.ForProvider))
	mux.Get("/provider/dashboard", providerMiddleware.ThenFunc(app.dashboardHandler.Provider))

	// Bookings
	mux.Post("/bookings", customerMiddleware.ThenFunc(app.bookingHandler.Create))
	mux.Get("/bookings/my", customerMiddleware.ThenFunc(app.bookingHandler.Mine))
	mux.Get("/bookings/:id/tracking", providerMiddleware.ThenFunc(app.bookingHandler.Tracking))
	mux.Get("/bookings/:id", authMiddleware.ThenFunc(app.bookingHandler.Get))
	mux.Post("/bookings/:id/location", customerMiddleware.ThenFunc(app.bookingHandler.CaptureLocation))
	mux.Post("/bookings/:id/accept", providerMiddleware.ThenFunc(app.bookingHandler.Accept))
	mux.Post("/bookings/:id/decline", providerMiddleware.ThenFunc(app.bookingHandler.Decline))

	// Payments
	mux.Post("/payments/order", customerMiddleware.ThenFunc(app.paymentHandler.CreateOrder))
	mux.Post("/payments/verify", jsonMiddleware.ThenFunc(app.paymentHandler.Verify))

	// Reviews
	mux.Post("/reviews", customerMiddleware.ThenFunc(app.reviewHandler.Create))

	// Notifications
	mux.Get("/ws/notifications", standardMiddleware.Append(app.JWTMiddlewareWithRole("")).ThenFunc(app.notificationsWS))

	mux.Get("/metrics", metrics.Handler())
	mux.Get("/healthz", http.HandlerFunc(app.healthz))

	return mux
}
