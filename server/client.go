package server

import (
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gemfashion/storefront/core"
	"github.com/gemfashion/storefront/storefront"
)

const clientIDKey = "client_id"

// cookieMaxAge keeps the client cookie for a year
const cookieMaxAge = 365 * 24 * 60 * 60

var validClientID = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// clientID resolves the caller from the X-Client-ID header, then the client
// cookie. A missing or malformed id is replaced by a fresh one, which is
// echoed in the header and set as a cookie.
func (s *Server) clientID() gin.HandlerFunc {
	cookie := s.cfg.HTTP.ClientCookie
	if cookie == "" {
		cookie = core.ClientIDCookie
	}

	return func(c *gin.Context) {
		id := c.GetHeader(core.ClientIDHeader)
		if id == "" {
			id, _ = c.Cookie(cookie)
		}
		if !validClientID.MatchString(id) {
			id = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(cookie, id, cookieMaxAge, "/", "", false, true)
		}
		c.Header(core.ClientIDHeader, id)
		c.Set(clientIDKey, id)
		c.Next()
	}
}

// store returns the calling client's storefront state
func (s *Server) store(c *gin.Context) *storefront.Store {
	return s.deps.Stores.Get(c.Request.Context(), c.GetString(clientIDKey))
}
