package marketplace

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/timerenting/internal/auth"
	"github.com/sudo-init-do/timerenting/internal/models"
	"github.com/sudo-init-do/timerenting/internal/utils"
)

type Handler struct {
	mk *Marketplace
}

func NewHandler(mk *Marketplace) *Handler {
	return &Handler{mk: mk}
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}

// GET /marketplace/services
func (h *Handler) ListServices(c echo.Context) error {
	services, err := h.mk.ListOpenServices(c.Request().Context())
	if err != nil {
		return utils.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"services": services})
}

// POST /marketplace/services
func (h *Handler) PostService(c echo.Context) error {
	sess, ok := auth.FromContext(c)
	if !ok {
		return unauthorized(c)
	}
	req := new(PostServiceRequest)
	if err := c.Bind(req); err != nil {
		return utils.BadRequest(c, "invalid payload")
	}
	svc, err := h.mk.PostService(c.Request().Context(), sess, *req)
	if err != nil {
		return utils.Error(c, err)
	}
	return c.JSON(http.StatusCreated, svc)
}

// GET /marketplace/services/me
func (h *Handler) MyServices(c echo.Context) error {
	sess, ok := auth.FromContext(c)
	if !ok {
		return unauthorized(c)
	}
	services, err := h.mk.ListPostedServices(c.Request().Context(), sess)
	if err != nil {
		return utils.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"services": services})
}

// GET /marketplace/services/:id
func (h *Handler) GetService(c echo.Context) error {
	details, err := h.mk.GetService(c.Request().Context(), c.Param("id"))
	if err != nil {
		return utils.Error(c, err)
	}
	return c.JSON(http.StatusOK, details)
}

// PATCH /marketplace/services/:id
func (h *Handler) EditService(c echo.Context) error {
	sess, ok := auth.FromContext(c)
	if !ok {
		return unauthorized(c)
	}
	patch := new(models.ServicePatch)
	if err := c.Bind(patch); err != nil {
		return utils.BadRequest(c, "invalid payload")
	}
	svc, err := h.mk.EditService(c.Request().Context(), sess, c.Param("id"), *patch)
	if err != nil {
		return utils.Error(c, err)
	}
	return c.JSON(http.StatusOK, svc)
}

// DELETE /marketplace/services/:id
func (h *Handler) DeleteService(c echo.Context) error {
	sess, ok := auth.FromContext(c)
	if !ok {
		return unauthorized(c)
	}
	if err := h.mk.DeleteService(c.Request().Context(), sess, c.Param("id")); err != nil {
		return utils.Error(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// POST /marketplace/services/:id/finish
func (h *Handler) FinishService(c echo.Context) error {
	sess, ok := auth.FromContext(c)
	if !ok {
		return unauthorized(c)
	}
	b, err := h.mk.MarkServiceFinished(c.Request().Context(), sess, c.Param("id"))
	if err != nil {
		return utils.Error(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// POST /marketplace/services/:id/reviews
func (h *Handler) SubmitReview(c echo.Context) error {
	sess, ok := auth.FromContext(c)
	if !ok {
		return unauthorized(c)
	}
	req := new(ReviewRequest)
	if err := c.Bind(req); err != nil {
		return utils.BadRequest(c, "invalid payload")
	}
	r, err := h.mk.SubmitReview(c.Request().Context(), sess, c.Param("id"), *req)
	if err != nil {
		return utils.Error(c, err)
	}
	return c.JSON(http.StatusCreated, r)
}

// GET /marketplace/services/:id/reviews
func (h *Handler) ServiceReviews(c echo.Context) error {
	list, err := h.mk.ServiceReviews(c.Request().Context(), c.Param("id"))
	if err != nil {
		return utils.Error(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// GET /users/:username/reviews
func (h *Handler) UserReviews(c echo.Context) error {
	list, err := h.mk.UserReviews(c.Request().Context(), c.Param("username"))
	if err != nil {
		return utils.Error(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// POST /marketplace/bookings
func (h *Handler) CreateBooking(c echo.Context) error {
	sess, ok := auth.FromContext(c)
	if !ok {
		return unauthorized(c)
	}
	var body struct {
		ServiceID string `json:"service_id"`
	}
	if err := c.Bind(&body); err != nil || body.ServiceID == "" {
		return utils.BadRequest(c, "service_id is required")
	}
	b, err := h.mk.CreateBooking(c.Request().Context(), sess, body.ServiceID)
	if err != nil {
		return utils.Error(c, err)
	}
	return c.JSON(http.StatusCreated, b)
}

// GET /marketplace/bookings/me
func (h *Handler) MyBookings(c echo.Context) error {
	sess, ok := auth.FromContext(c)
	if !ok {
		return unauthorized(c)
	}
	bookings, err := h.mk.ListBookedServices(c.Request().Context(), sess)
	if err != nil {
		return utils.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": bookings})
}

// GET /marketplace/bookings/incoming
func (h *Handler) IncomingBookings(c echo.Context) error {
	sess, ok := auth.FromContext(c)
	if !ok {
		return unauthorized(c)
	}
	bookings, err := h.mk.ListIncomingBookings(c.Request().Context(), sess)
	if err != nil {
		return utils.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": bookings})
}

// GET /marketplace/bookings/:id
func (h *Handler) GetBooking(c echo.Context) error {
	sess, ok := auth.FromContext(c)
	if !ok {
		return unauthorized(c)
	}
	b, err := h.mk.GetBooking(c.Request().Context(), sess, c.Param("id"))
	if err != nil {
		return utils.Error(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// GET /marketplace/cancellations
func (h *Handler) CancellationRequests(c echo.Context) error {
	sess, ok := auth.FromContext(c)
	if !ok {
		return unauthorized(c)
	}
	bookings, err := h.mk.ListCancellationRequests(c.Request().Context(), sess)
	if err != nil {
		return utils.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": bookings})
}

// POST /marketplace/bookings/:id/cancel
func (h *Handler) RequestCancellation(c echo.Context) error {
	return h.transition(c, h.mk.RequestCancellation)
}

// POST /marketplace/bookings/:id/approve-cancellation
func (h *Handler) ApproveCancellation(c echo.Context) error {
	return h.transition(c, h.mk.ApproveCancellation)
}

// POST /marketplace/bookings/:id/reject-cancellation
func (h *Handler) RejectCancellation(c echo.Context) error {
	return h.transition(c, h.mk.RejectCancellation)
}

// POST /marketplace/bookings/:id/finish
func (h *Handler) FinishBooking(c echo.Context) error {
	return h.transition(c, h.mk.MarkFinished)
}

type bookingOp func(ctx context.Context, sess auth.Session, bookingID string) (*models.Booking, error)

func (h *Handler) transition(c echo.Context, op bookingOp) error {
	sess, ok := auth.FromContext(c)
	if !ok {
		return unauthorized(c)
	}
	b, err := op(c.Request().Context(), sess, c.Param("id"))
	if err != nil {
		return utils.Error(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// Register mounts the marketplace routes on g, which must already carry
// the JWT middleware.
func (h *Handler) Register(g *echo.Group) {
	g.GET("/services", h.ListServices)
	g.POST("/services", h.PostService)
	g.GET("/services/me", h.MyServices)
	g.GET("/services/:id", h.GetService)
	g.PATCH("/services/:id", h.EditService)
	g.DELETE("/services/:id", h.DeleteService)
	g.POST("/services/:id/finish", h.FinishService)
	g.POST("/services/:id/reviews", h.SubmitReview)
	g.GET("/services/:id/reviews", h.ServiceReviews)

	g.POST("/bookings", h.CreateBooking)
	g.GET("/bookings/me", h.MyBookings)
	g.GET("/bookings/incoming", h.IncomingBookings)
	g.GET("/bookings/:id", h.GetBooking)
	g.POST("/bookings/:id/cancel", h.RequestCancellation)
	g.POST("/bookings/:id/approve-cancellation", h.ApproveCancellation)
	g.POST("/bookings/:id/reject-cancellation", h.RejectCancellation)
	g.POST("/bookings/:id/finish", h.FinishBooking)
	g.GET("/cancellations", h.CancellationRequests)
}
