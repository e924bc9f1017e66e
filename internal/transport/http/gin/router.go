package httpgin

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/nordscene/boxoffice/internal/domain"
	"github.com/nordscene/boxoffice/internal/payment"
	redisrepo "github.com/nordscene/boxoffice/internal/repository/redis"
	"github.com/nordscene/boxoffice/internal/service"
	"github.com/nordscene/boxoffice/internal/service/admin"
	"github.com/nordscene/boxoffice/internal/service/booking"
	"github.com/nordscene/boxoffice/internal/service/checkout"
	"github.com/nordscene/boxoffice/internal/service/contacts"
	"github.com/nordscene/boxoffice/internal/service/content"
	"github.com/nordscene/boxoffice/internal/service/reconcile"
	"github.com/nordscene/boxoffice/internal/service/scan"
	"github.com/nordscene/boxoffice/internal/service/waitlist"
)

// WebhookParser verifies a processor notification and extracts the
// session it concerns.
type WebhookParser interface {
	ParseWebhook(payload []byte, sigHeader string) (*payment.WebhookEvent, error)
}

func NewRouter(
	svcs *service.Services,
	webhooks WebhookParser,
	idem *redisrepo.IdempotencyStore,
	limiter *redisrepo.SlidingWindowLimiter,
	adminSecret string,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), LoggingMiddleware(logger), RequestIDMiddleware(), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// health
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public content
	r.GET("/content/shows", handleListShows(svcs))
	r.GET("/content/shows/:slug", handleGetShow(svcs))
	r.GET("/content/courses", handleListCourses(svcs))
	r.GET("/content/courses/:slug", handleGetCourse(svcs))

	// Booking and checkout
	r.GET("/courses/:id/availability", handleAvailability(svcs))
	r.POST("/courses/:id/bookings",
		RateLimitMiddleware(limiter, "booking", logger),
		handleSubmitBooking(svcs))
	r.POST("/shows/:id/checkout", handleShowCheckout(svcs))
	r.POST("/checkout/confirm", handleConfirm(svcs))
	r.POST("/webhooks/stripe", handleWebhook(svcs, webhooks, idem, logger))

	// Tickets
	r.GET("/tickets/:code/qr", handleTicketQR(svcs))

	// Newsletter
	r.POST("/newsletter/subscribe",
		RateLimitMiddleware(limiter, "subscribe", logger),
		handleSubscribe(svcs))

	// Admin API
	adm := r.Group("/admin", AdminAuth(adminSecret))
	{
		adm.GET("/courses", handleAdminListCourses(svcs))
		adm.POST("/courses", handleAdminCreateCourse(svcs))
		adm.PUT("/courses/:id", handleAdminUpdateCourse(svcs))

		adm.GET("/shows", handleAdminListShows(svcs))
		adm.POST("/shows", handleAdminCreateShow(svcs))
		adm.PUT("/shows/:id", handleAdminUpdateShow(svcs))

		adm.POST("/codes", handleAdminCreateCode(svcs))
		adm.DELETE("/codes/:code", handleAdminDeactivateCode(svcs))

		adm.GET("/courses/:id/participants", handleAdminListParticipants(svcs))
		adm.POST("/courses/:id/participants", handleAdminAddParticipant(svcs))
		adm.DELETE("/courses/:id/participants/:email", handleAdminRemoveParticipant(svcs))
		adm.POST("/courses/:id/participants/:email/move", handleAdminMoveParticipant(svcs))
		adm.POST("/courses/:id/participants/:email/resend", handleAdminResendConfirmation(svcs))

		adm.GET("/courses/:id/waitlist", handleAdminListWaitlist(svcs))
		adm.DELETE("/courses/:id/waitlist/:email", handleAdminRemoveFromWaitlist(svcs))
		adm.POST("/courses/:id/waitlist/:email/promote", handleAdminPromote(svcs))

		adm.GET("/purchases", handleAdminListPurchases(svcs))

		adm.GET("/contacts", handleAdminListContacts(svcs))
		adm.DELETE("/contacts/:email", handleAdminRemoveContact(svcs))

		adm.POST("/scans", handleScan(svcs))
	}

	return r
}

// --- Public handlers ---

// @Summary  List show pages
// @Success  200  {array}  content.ShowPage
// @Router   /content/shows [get]
func handleListShows(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		pages, err := svcs.Content.ListShows(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, pages, "public, max-age=300")
	}
}

// @Summary  Get show page
// @Param    slug  path  string  true  "Show slug"
// @Success  200  {object}  content.ShowPage
// @Failure  404  {object}  ErrorResponse
// @Router   /content/shows/{slug} [get]
func handleGetShow(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := svcs.Content.GetShow(c.Request.Context(), c.Param("slug"))
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, page, "public, max-age=300")
	}
}

// @Summary  List course pages
// @Success  200  {array}  content.CoursePage
// @Router   /content/courses [get]
func handleListCourses(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		pages, err := svcs.Content.ListCourses(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, pages, "public, max-age=300")
	}
}

// @Summary  Get course page
// @Param    slug  path  string  true  "Course slug"
// @Success  200  {object}  content.CoursePage
// @Failure  404  {object}  ErrorResponse
// @Router   /content/courses/{slug} [get]
func handleGetCourse(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := svcs.Content.GetCourse(c.Request.Context(), c.Param("slug"))
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, page, "public, max-age=300")
	}
}

// @Summary  Course availability
// @Param    id  path  int  true  "Course ID"
// @Success  200  {object}  booking.Availability
// @Router   /courses/{id}/availability [get]
func handleAvailability(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		courseID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		av, err := svcs.Booking.Availability(c.Request.Context(), courseID)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, av, "public, max-age=15")
	}
}

// @Summary  Submit course booking
// @Param    id   path  int             true  "Course ID"
// @Param    req  body  BookingRequest  true  "payload"
// @Success  201  {object}  BookingResponse
// @Failure  409  {object}  ErrorResponse "duplicate / already waiting"
// @Failure  429  {object}  ErrorResponse "rate limited"
// @Router   /courses/{id}/bookings [post]
func handleSubmitBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		courseID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req BookingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		buyer := domain.Buyer{
			Name:       req.Name,
			Email:      req.Email,
			Phone:      req.Phone,
			Street:     req.Street,
			PostalCode: req.PostalCode,
			City:       req.City,
			Message:    req.Message,
		}

		out, err := svcs.Booking.SubmitCourseBooking(c.Request.Context(), courseID, buyer, req.DiscountTier)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, bookingResponseFrom(out))
	}
}

func bookingResponseFrom(out *booking.Outcome) BookingResponse {
	switch {
	case out.Waitlisted:
		return BookingResponse{Status: "waitlisted", WaitlistPosition: out.WaitlistPosition}
	case out.RequiresPayment:
		return BookingResponse{
			Status:      "payment_required",
			SessionID:   out.SessionID,
			RedirectURL: out.RedirectURL,
		}
	default:
		return BookingResponse{Status: "confirmed"}
	}
}

// @Summary  Start show ticket checkout
// @Param    id   path  int                  true  "Show ID"
// @Param    req  body  ShowCheckoutRequest  true  "payload"
// @Success  201  {object}  CheckoutResponse
// @Failure  422  {object}  ErrorResponse "invalid promo code"
// @Router   /shows/{id}/checkout [post]
func handleShowCheckout(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		showID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req ShowCheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		buyer := domain.Buyer{Name: req.Name, Email: req.Email}

		res, err := svcs.Checkout.CreateShowCheckout(
			c.Request.Context(),
			showID,
			buyer,
			req.Quantity,
			req.DiscountTier,
			req.PromoCode,
		)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, CheckoutResponse{
			SessionID:   res.SessionID,
			RedirectURL: res.RedirectURL,
		})
	}
}

// @Summary  Confirm a checkout session (fallback verify)
// @Param    req  body  ConfirmRequest  true  "payload"
// @Success  200  {object}  ConfirmResponse
// @Failure  404  {object}  ErrorResponse "unknown session"
// @Failure  502  {object}  ErrorResponse "processor unavailable"
// @Router   /checkout/confirm [post]
func handleConfirm(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ConfirmRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		sum, err := svcs.Reconcile.Reconcile(c.Request.Context(), req.SessionID)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, ConfirmResponse{
			Paid:             sum.Confirmed,
			AlreadyProcessed: sum.AlreadyProcessed,
			TicketCode:       sum.TicketCode,
		})
	}
}

// @Summary  Processor webhook
// @Success  200
// @Failure  400  {object}  ErrorResponse "bad signature"
// @Router   /webhooks/stripe [post]
func handleWebhook(
	svcs *service.Services,
	webhooks WebhookParser,
	idem *redisrepo.IdempotencyStore,
	logger *slog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload, err := c.GetRawData()
		if err != nil {
			badRequest(c, "unreadable body")
			return
		}

		ev, err := webhooks.ParseWebhook(payload, c.GetHeader("Stripe-Signature"))
		if err != nil {
			badRequest(c, "invalid signature")
			return
		}

		if ev.SessionID == "" {
			// Event types we do not act on. Acknowledge so the processor
			// stops redelivering.
			c.Status(http.StatusOK)
			return
		}

		var eventKey string
		if idem != nil {
			eventKey = redisrepo.KeyIdemWebhookEvent(ev.ID)
			fresh, lockErr := idem.AcquireLock(c.Request.Context(), eventKey)
			if lockErr != nil {
				// Dedupe store down: reconcile anyway, it is idempotent.
				logger.Warn("webhook dedupe unavailable", "event_id", ev.ID, "error", lockErr)
			} else if !fresh {
				c.Status(http.StatusOK)
				return
			}
		}

		if _, err := svcs.Reconcile.Reconcile(c.Request.Context(), ev.SessionID); err != nil {
			if eventKey != "" {
				_ = idem.Release(c.Request.Context(), eventKey)
			}
			// Non-2xx makes the processor redeliver later.
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "reconcile failed"})
			return
		}

		c.Status(http.StatusOK)
	}
}

// @Summary  Ticket QR code
// @Param    code  path  string  true  "Ticket code"
// @Produce  png
// @Success  200
// @Failure  404  {object}  ErrorResponse
// @Router   /tickets/{code}/qr [get]
func handleTicketQR(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		png, err := svcs.Scan.TicketQR(c.Request.Context(), c.Param("code"))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.Header("Cache-Control", "private, max-age=3600")
		c.Data(http.StatusOK, "image/png", png)
	}
}

// @Summary  Subscribe to the newsletter
// @Param    req  body  SubscribeRequest  true  "payload"
// @Success  202
// @Failure  429  {object}  ErrorResponse "rate limited"
// @Router   /newsletter/subscribe [post]
func handleSubscribe(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SubscribeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		if err := svcs.Contacts.Subscribe(c.Request.Context(), req.Email, req.Name); err != nil {
			respondErr(c, err)
			return
		}

		c.Status(http.StatusAccepted)
	}
}

// --- Admin handlers ---

func handleAdminListCourses(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		courses, err := svcs.Admin.ListCourses(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, courses)
	}
}

func handleAdminCreateCourse(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CourseRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		course := courseFrom(req)
		if err := svcs.Admin.CreateCourse(c.Request.Context(), &course); err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, course)
	}
}

func handleAdminUpdateCourse(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req CourseRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		course := courseFrom(req)
		course.ID = id
		if err := svcs.Admin.UpdateCourse(c.Request.Context(), &course); err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, course)
	}
}

func handleAdminListShows(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		shows, err := svcs.Admin.ListShows(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, shows)
	}
}

func handleAdminCreateShow(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ShowRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		show := showFrom(req)
		if err := svcs.Admin.CreateShow(c.Request.Context(), &show); err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, show)
	}
}

func handleAdminUpdateShow(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req ShowRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		show := showFrom(req)
		show.ID = id
		if err := svcs.Admin.UpdateShow(c.Request.Context(), &show); err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, show)
	}
}

func handleAdminCreateCode(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req DiscountCodeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		code := domain.DiscountCode{
			Code:    req.Code,
			Type:    domain.DiscountType(req.Type),
			Amount:  req.Amount,
			MaxUses: req.MaxUses,
			Active:  true,
		}
		if req.ValidFrom != "" {
			t, err := time.Parse(time.RFC3339, req.ValidFrom)
			if err != nil {
				badRequest(c, "invalid valid_from (RFC3339)")
				return
			}
			code.ValidFrom = &t
		}
		if req.ValidUntil != "" {
			t, err := time.Parse(time.RFC3339, req.ValidUntil)
			if err != nil {
				badRequest(c, "invalid valid_until (RFC3339)")
				return
			}
			code.ValidUntil = &t
		}

		if err := svcs.Admin.CreateDiscountCode(c.Request.Context(), &code); err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, code)
	}
}

func handleAdminDeactivateCode(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svcs.Admin.DeactivateDiscountCode(c.Request.Context(), c.Param("code")); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func handleAdminListParticipants(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		courseID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		list, err := svcs.Admin.ListParticipants(c.Request.Context(), courseID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func handleAdminAddParticipant(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		courseID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req ParticipantRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		p := domain.Participant{
			Name:       req.Name,
			Email:      req.Email,
			Phone:      req.Phone,
			Street:     req.Street,
			PostalCode: req.PostalCode,
			City:       req.City,
			Message:    req.Message,
		}
		if err := svcs.Admin.AddParticipant(c.Request.Context(), courseID, p); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusCreated)
	}
}

func handleAdminRemoveParticipant(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		courseID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		if err := svcs.Admin.RemoveParticipant(c.Request.Context(), courseID, c.Param("email")); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func handleAdminMoveParticipant(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		courseID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req MoveParticipantRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		if err := svcs.Admin.MoveParticipant(
			c.Request.Context(),
			courseID,
			req.ToCourseID,
			c.Param("email"),
		); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func handleAdminResendConfirmation(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		courseID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		count, err := svcs.Admin.ResendConfirmation(c.Request.Context(), courseID, c.Param("email"))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, ResendResponse{Resends: count})
	}
}

func handleAdminListWaitlist(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		courseID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		entries, err := svcs.Admin.ListWaitlist(c.Request.Context(), courseID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, entries)
	}
}

func handleAdminRemoveFromWaitlist(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		courseID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		if err := svcs.Admin.RemoveFromWaitlist(c.Request.Context(), courseID, c.Param("email")); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func handleAdminPromote(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		courseID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req PromotionRequest
		if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
			badRequest(c, err.Error())
			return
		}

		res, err := svcs.Waitlist.Promote(c.Request.Context(), courseID, c.Param("email"), req.DiscountTier)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, PromotionResponse{
			Promoted:        true,
			RequiresPayment: res.RequiresPayment,
			SessionID:       res.SessionID,
			RedirectURL:     res.RedirectURL,
		})
	}
}

func handleAdminListPurchases(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := domain.PaymentStatus(c.DefaultQuery("status", string(domain.PaymentPaid)))
		limit := parseIntDefault(c.Query("limit"), 50)
		offset := parseIntDefault(c.Query("offset"), 0)

		list, err := svcs.Admin.ListPurchases(c.Request.Context(), status, limit, offset)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func handleAdminListContacts(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := parseIntDefault(c.Query("limit"), 100)
		offset := parseIntDefault(c.Query("offset"), 0)

		list, err := svcs.Admin.ListContacts(c.Request.Context(), limit, offset)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func handleAdminRemoveContact(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svcs.Admin.RemoveContact(c.Request.Context(), c.Param("email")); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// @Summary  Scan a ticket at the door
// @Param    req  body  ScanRequest  true  "payload"
// @Success  200  {object}  ScanResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /admin/scans [post]
func handleScan(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ScanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		res, err := svcs.Scan.ScanTicket(c.Request.Context(), req.TicketCode)
		if err != nil {
			respondErr(c, err)
			return
		}

		resp := ScanResponse{
			Admitted:    res.Admitted,
			AlreadyUsed: res.AlreadyUsed,
			HolderName:  res.HolderName,
			Quantity:    res.Quantity,
			ShowID:      res.ShowID,
		}
		if res.FirstScanned != nil {
			resp.FirstScanned = res.FirstScanned.Format(time.RFC3339)
		}
		c.JSON(http.StatusOK, resp)
	}
}

// --- Helpers ---

func courseFrom(req CourseRequest) domain.CourseInstance {
	return domain.CourseInstance{
		Slug:               req.Slug,
		Title:              req.Title,
		ParticipantTable:   req.ParticipantTable,
		MaxParticipants:    req.MaxParticipants,
		PriceCents:         req.PriceCents,
		DiscountPriceCents: req.DiscountPriceCents,
		Active:             req.Active,
	}
}

func showFrom(req ShowRequest) domain.Show {
	return domain.Show{
		Slug:               req.Slug,
		Title:              req.Title,
		MaxTickets:         req.MaxTickets,
		PriceCents:         req.PriceCents,
		DiscountPriceCents: req.DiscountPriceCents,
		Active:             req.Active,
	}
}

func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	s := c.Param(name)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	switch {
	// booking service
	case errors.Is(err, booking.ErrCourseNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "course not found"})
	case errors.Is(err, booking.ErrCourseInactive):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "course not open for booking"})
	case errors.Is(err, booking.ErrDuplicateBooking):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "email already registered"})
	case errors.Is(err, booking.ErrAlreadyWaiting):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "email already on waitlist"})
	case errors.Is(err, booking.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing or invalid contact fields"})

	// checkout service
	case errors.Is(err, checkout.ErrShowNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "show not found"})
	case errors.Is(err, checkout.ErrShowInactive):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "show not on sale"})
	case errors.Is(err, checkout.ErrInvalidQuantity):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid quantity"})
	case errors.Is(err, checkout.ErrInvalidCode):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "invalid promo code"})
	case errors.Is(err, checkout.ErrProcessor):
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "payment processor unavailable"})

	// reconcile service
	case errors.Is(err, reconcile.ErrUnknownSession):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "unknown session"})
	case errors.Is(err, reconcile.ErrUpstream):
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "payment processor unavailable"})

	// waitlist service
	case errors.Is(err, waitlist.ErrCourseNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "course not found"})
	case errors.Is(err, waitlist.ErrNotOnWaitlist):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not on waitlist"})

	// content service
	case errors.Is(err, content.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found"})

	// scan service
	case errors.Is(err, scan.ErrTicketNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "ticket not found"})
	case errors.Is(err, scan.ErrTicketUnpaid):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "ticket not paid"})

	// contacts service
	case errors.Is(err, contacts.ErrInvalidEmail):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid email"})

	// admin service
	case errors.Is(err, admin.ErrCourseNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "course not found"})
	case errors.Is(err, admin.ErrShowNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "show not found"})
	case errors.Is(err, admin.ErrParticipantNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "participant not found"})
	case errors.Is(err, admin.ErrParticipantExists):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "participant already registered"})
	case errors.Is(err, admin.ErrCodeNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "discount code not found"})
	case errors.Is(err, admin.ErrCodeExists):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "discount code already exists"})
	case errors.Is(err, admin.ErrContactNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "contact not found"})
	case errors.Is(err, admin.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid input"})

	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
