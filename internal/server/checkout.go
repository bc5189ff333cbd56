package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	checkoutdomain "github.com/smallbiznis/rewild/internal/checkout/domain"
)

type checkoutResponse struct {
	Success     bool   `json:"success"`
	SessionID   string `json:"session_id"`
	SessionURL  string `json:"session_url"`
	AmountTotal int64  `json:"amount_total"`
	Currency    string `json:"currency"`
}

func toCheckoutResponse(session *checkoutdomain.Session) checkoutResponse {
	return checkoutResponse{
		Success:     true,
		SessionID:   session.SessionID,
		SessionURL:  session.RedirectURL,
		AmountTotal: session.AmountTotal,
		Currency:    session.Currency,
	}
}

func (s *Server) StartPurchase(c *gin.Context) {
	var req checkoutdomain.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	session, err := s.checkout.StartPurchase(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCheckoutResponse(session))
}

func (s *Server) StartDonation(c *gin.Context) {
	var req checkoutdomain.DonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	session, err := s.checkout.StartDonation(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCheckoutResponse(session))
}
