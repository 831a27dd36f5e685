package server

import (
	"errors"
	"net/http"

	"farmcart-backend/internal/lock"
	"farmcart-backend/internal/usecase"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (s *Server) err(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{
			"code":      code,
			"message":   msg,
			"requestId": c.GetString(requestIDKey),
		},
	})
}

func (s *Server) fail(c *gin.Context, err error) {
	status, code := classify(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		msg = "internal error"
	}
	s.err(c, status, code, msg)
}

// classify maps domain errors onto HTTP statuses. Payment failures are checked first so a
// wrapped InsufficientFundsError still reports PaymentFailed.
func classify(err error) (int, string) {
	var (
		payment    usecase.PaymentFailedError
		invalid    usecase.InvalidOrderError
		amount     usecase.InvalidAmountError
		account    usecase.InvalidAccountError
		notFound   usecase.OrderNotFoundError
		txNotFound usecase.TransactionNotFoundError
		transition usecase.IllegalTransitionError
		txState    usecase.TransactionStateError
		funds      usecase.InsufficientFundsError
		points     usecase.InsufficientPointsError
	)
	switch {
	case errors.As(err, &payment):
		return http.StatusPaymentRequired, "PaymentFailed"
	case errors.As(err, &invalid):
		return http.StatusBadRequest, "InvalidOrder"
	case errors.As(err, &amount):
		return http.StatusBadRequest, "InvalidAmount"
	case errors.As(err, &account):
		return http.StatusBadRequest, "InvalidAccount"
	case errors.As(err, &notFound), errors.As(err, &txNotFound):
		return http.StatusNotFound, "NotFound"
	case errors.As(err, &transition):
		return http.StatusConflict, "IllegalTransition"
	case errors.As(err, &txState):
		return http.StatusConflict, "TransactionState"
	case errors.Is(err, lock.ErrBusy):
		return http.StatusConflict, "Busy"
	case errors.As(err, &funds):
		return http.StatusPaymentRequired, "InsufficientFunds"
	case errors.As(err, &points):
		return http.StatusPaymentRequired, "InsufficientPoints"
	default:
		return http.StatusInternalServerError, "ServerError"
	}
}
