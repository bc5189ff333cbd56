package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ReconcilePayment accepts either reference the thank-you page might hold:
// the checkout session id or the payment-intent id.
func (s *Server) ReconcilePayment(c *gin.Context) {
	reference := strings.TrimSpace(c.Query("session_id"))
	if reference == "" {
		reference = strings.TrimSpace(c.Query("payment_intent_id"))
	}
	if reference == "" {
		AbortWithError(c, newValidationError("session_id", "required", "session_id or payment_intent_id is required"))
		return
	}

	result, err := s.reconciler.Reconcile(c.Request.Context(), reference)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
