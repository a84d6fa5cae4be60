package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/gemfashion/storefront/cart"
	"github.com/gemfashion/storefront/notify"
	"github.com/gemfashion/storefront/storefront"
)

type cartView struct {
	Items []cart.Item     `json:"items"`
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

func viewCart(c cart.Cart) cartView {
	items := []cart.Item(c)
	if items == nil {
		items = []cart.Item{}
	}
	return cartView{Items: items, Count: cart.Count(c), Total: cart.Total(c)}
}

type addItemRequest struct {
	ProductID int `json:"product_id" binding:"required"`
	Quantity  int `json:"quantity"`
}

type quantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

func (s *Server) getCart(c *gin.Context) {
	c.JSON(http.StatusOK, viewCart(s.store(c).Cart()))
}

func (s *Server) addCartItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "product_id is required")
		return
	}
	updated, err := s.store(c).AddToCart(c.Request.Context(), req.ProductID, req.Quantity)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, viewCart(updated))
}

func (s *Server) updateCartItem(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req quantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "quantity is required")
		return
	}
	updated, err := s.store(c).UpdateQuantity(c.Request.Context(), id, *req.Quantity)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, viewCart(updated))
}

func (s *Server) removeCartItem(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	updated, err := s.store(c).RemoveFromCart(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, viewCart(updated))
}

func (s *Server) clearCart(c *gin.Context) {
	updated, err := s.store(c).ClearCart(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, viewCart(updated))
}

func wishlistIDs(w cart.Wishlist) []int {
	if w == nil {
		return []int{}
	}
	return w
}

func (s *Server) getWishlist(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"items": wishlistIDs(s.store(c).Wishlist())})
}

func (s *Server) toggleWishlist(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	w, added, err := s.store(c).ToggleWishlist(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": wishlistIDs(w), "added": added})
}

func (s *Server) getTheme(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"theme": s.store(c).Theme()})
}

func (s *Server) toggleTheme(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"theme": s.store(c).ToggleTheme(c.Request.Context())})
}

// ---- filters ----

type categoryRequest struct {
	Category string `json:"category" binding:"required"`
}

type searchRequest struct {
	Text  string `json:"text"`
	Flush bool   `json:"flush"`
}

// priceRequest moves either end of the price window; absent ends stay put
type priceRequest struct {
	Min *decimal.Decimal `json:"min"`
	Max *decimal.Decimal `json:"max"`
}

func (s *Server) getFilters(c *gin.Context) {
	c.JSON(http.StatusOK, s.store(c).Filter())
}

func (s *Server) selectCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "category is required")
		return
	}
	c.JSON(http.StatusOK, s.store(c).SelectCategory(req.Category))
}

// setSearch applies once typing pauses; flush applies immediately
func (s *Server) setSearch(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid search body")
		return
	}
	st := s.store(c)
	st.SetSearch(req.Text)
	if req.Flush {
		c.JSON(http.StatusOK, st.FlushSearch())
		return
	}
	c.JSON(http.StatusAccepted, st.Filter())
}

func (s *Server) setPrice(c *gin.Context) {
	var req priceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "min and max must be numbers")
		return
	}
	c.JSON(http.StatusOK, s.store(c).SetPriceRange(req.Min, req.Max))
}

func (s *Server) resetPrice(c *gin.Context) {
	c.JSON(http.StatusOK, s.store(c).ResetPrice())
}

func (s *Server) filteredProducts(c *gin.Context) {
	st := s.store(c)
	visible := st.VisibleProducts()
	c.JSON(http.StatusOK, gin.H{
		"filter":   st.Filter(),
		"products": productViews(visible),
		"count":    len(visible),
	})
}

// ---- notifications ----

func (s *Server) listNotifications(c *gin.Context) {
	list := s.store(c).Notifications().List()
	if list == nil {
		list = []notify.Notification{}
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) dismissNotification(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "id must be an integer")
		return
	}
	s.store(c).Notifications().Dismiss(id)
	c.Status(http.StatusNoContent)
}

// streamNotifications sends the visible toasts as a snapshot, then every
// change until the client goes away
func (s *Server) streamNotifications(c *gin.Context) {
	queue := s.store(c).Notifications()
	events, cancel := queue.Subscribe()
	defer cancel()

	es := newEventStream(c)
	list := queue.List()
	if list == nil {
		list = []notify.Notification{}
	}
	if err := es.send("snapshot", list); err != nil {
		return
	}

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()
	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := es.ping(); err != nil {
				return
			}
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := es.send(string(ev.Kind), ev.Notification); err != nil {
				return
			}
		}
	}
}

// ---- newsletter ----

type newsletterRequest struct {
	Email string `json:"email"`
}

func (s *Server) subscribe(c *gin.Context) {
	var req newsletterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid newsletter body")
		return
	}
	if err := s.store(c).Subscribe(req.Email); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": storefront.MsgSubscribed})
}
