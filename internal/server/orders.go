package server

import (
	"net/http"
	"strconv"
	"time"

	"farmcart-backend/internal/domain"
	"farmcart-backend/internal/receipt"
	"farmcart-backend/internal/usecase"

	"github.com/gin-gonic/gin"
)

const defaultRecent = 20

func (s *Server) handleCheckout(c *gin.Context) {
	var req usecase.CheckoutRequest
	if !s.bind(c, &req) {
		return
	}
	res, err := s.checkout.Checkout(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (s *Server) handleListOrders(c *gin.Context) {
	var status domain.OrderStatus
	if v := c.Query("status"); v != "" {
		st, err := domain.ParseOrderStatus(v)
		if err != nil {
			s.err(c, http.StatusBadRequest, "BadRequest", err.Error())
			return
		}
		status = st
	}
	var list []domain.Order
	switch customer := c.Query("customerId"); {
	case customer != "":
		for _, o := range s.orders.ListForCustomer(c.Request.Context(), customer) {
			if status == "" || o.Status == status {
				list = append(list, o)
			}
		}
	case status != "":
		list = s.orders.ListByStatus(c.Request.Context(), status)
	default:
		n := defaultRecent
		if v := c.Query("recent"); v != "" {
			p, err := strconv.Atoi(v)
			if err != nil || p <= 0 {
				s.err(c, http.StatusBadRequest, "BadRequest", "recent must be a positive integer")
				return
			}
			n = p
		}
		list = s.orders.ListRecent(c.Request.Context(), n)
	}
	if list == nil {
		list = []domain.Order{}
	}
	c.JSON(http.StatusOK, gin.H{"orders": list})
}

func (s *Server) handleOrderStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.orders.Stats(c.Request.Context(), c.Query("customerId")))
}

func (s *Server) handleGetOrder(c *gin.Context) {
	o, err := s.orders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (s *Server) handleReceipt(c *gin.Context) {
	o, err := s.orders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	pdf, err := receipt.PDF(o)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Content-Disposition", `inline; filename="`+o.TrackingCode+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}

type transitionReq struct {
	Status            string           `json:"status"`
	Note              string           `json:"note"`
	DeliveryDate      *time.Time       `json:"deliveryDate"`
	EstimatedDelivery *time.Time       `json:"estimatedDelivery"`
	Location          *domain.GeoPoint `json:"location"`
	Photos            []string         `json:"photos"`
}

func (s *Server) handleTransition(c *gin.Context) {
	var req transitionReq
	if !s.bind(c, &req) {
		return
	}
	to, err := domain.ParseOrderStatus(req.Status)
	if err != nil {
		s.err(c, http.StatusBadRequest, "BadRequest", err.Error())
		return
	}
	// Cancellation goes through the coordinator so wallet payments are refunded.
	if to == domain.OrderCancelled {
		s.cancel(c, req.Note)
		return
	}
	o, err := s.orders.Transition(c.Request.Context(), c.Param("id"), to, &usecase.TransitionExtra{
		Note:              req.Note,
		Location:          req.Location,
		Photos:            req.Photos,
		DeliveryDate:      req.DeliveryDate,
		EstimatedDelivery: req.EstimatedDelivery,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (s *Server) handleCancel(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	if c.Request.ContentLength != 0 {
		if !s.bind(c, &req) {
			return
		}
	}
	s.cancel(c, req.Reason)
}

func (s *Server) cancel(c *gin.Context, reason string) {
	o, err := s.checkout.CancelOrder(c.Request.Context(), c.Param("id"), reason)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (s *Server) handleAssignDriver(c *gin.Context) {
	var req struct {
		Driver domain.Driver `json:"driver"`
	}
	if !s.bind(c, &req) {
		return
	}
	o, err := s.orders.AssignDriver(c.Request.Context(), c.Param("id"), req.Driver)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

type timelineReq struct {
	Label     string               `json:"label"`
	Message   domain.LocalizedText `json:"message"`
	Note      string               `json:"note"`
	Location  *domain.GeoPoint     `json:"location"`
	Photos    []string             `json:"photos"`
	Timestamp *time.Time           `json:"timestamp"`
}

func (s *Server) handleTimeline(c *gin.Context) {
	var req timelineReq
	if !s.bind(c, &req) {
		return
	}
	in := usecase.TimelineInput{
		Label:    req.Label,
		Message:  req.Message,
		Note:     req.Note,
		Location: req.Location,
		Photos:   req.Photos,
	}
	if req.Timestamp != nil {
		in.Timestamp = *req.Timestamp
	}
	o, err := s.orders.AppendTimelineEvent(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}
