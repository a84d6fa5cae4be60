package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gemfashion/storefront/checkout"
)

type checkoutView struct {
	checkout.Snapshot
	Cart cartView `json:"cart"`
}

func (s *Server) checkoutResponse(c *gin.Context, status int, snap checkout.Snapshot) {
	c.JSON(status, checkoutView{Snapshot: snap, Cart: viewCart(s.store(c).Cart())})
}

func (s *Server) getCheckout(c *gin.Context) {
	s.checkoutResponse(c, http.StatusOK, s.store(c).Checkout())
}

func (s *Server) openCheckout(c *gin.Context) {
	s.checkoutResponse(c, http.StatusOK, s.store(c).OpenCheckout())
}

func (s *Server) closeCheckout(c *gin.Context) {
	snap, err := s.store(c).CloseCheckout()
	if err != nil {
		s.fail(c, err)
		return
	}
	s.checkoutResponse(c, http.StatusOK, snap)
}

func (s *Server) proceedCheckout(c *gin.Context) {
	s.checkoutResponse(c, http.StatusOK, s.store(c).ProceedToPayment())
}

func (s *Server) backCheckout(c *gin.Context) {
	s.checkoutResponse(c, http.StatusOK, s.store(c).BackToCart())
}

type payRequest struct {
	Phone string `json:"phone"`
}

// pay starts the mobile money push and returns at once. The outcome shows up
// in GET /api/checkout and as a notification.
func (s *Server) pay(c *gin.Context) {
	var req payRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payment body")
		return
	}
	st := s.store(c)
	if _, err := st.Pay(c.Request.Context(), req.Phone); err != nil {
		s.fail(c, err)
		return
	}
	s.checkoutResponse(c, http.StatusAccepted, st.Checkout())
}
