package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/gemfashion/storefront/catalog"
	"github.com/gemfashion/storefront/core"
)

type productView struct {
	catalog.Product
	Stars catalog.StarBreakdown `json:"stars"`
}

func productViews(products []catalog.Product) []productView {
	out := make([]productView, len(products))
	for i, p := range products {
		out[i] = productView{Product: p, Stars: catalog.Stars(p.Rating)}
	}
	return out
}

func pathID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		badRequest(c, "id must be an integer")
		return 0, false
	}
	return id, true
}

func queryCategory(c *gin.Context) (string, error) {
	category := c.DefaultQuery("category", catalog.AllCategories)
	if !catalog.HasCategory(category) {
		return "", core.ValidationError("catalog.category", fmt.Sprintf("Unknown category %q.", category), nil)
	}
	return category, nil
}

func queryDecimal(c *gin.Context, name string, fallback decimal.Decimal) (decimal.Decimal, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, core.ValidationError("catalog.price", fmt.Sprintf("%s must be a number.", name), err)
	}
	return v, nil
}

// listProducts filters the catalog without touching any client state
func (s *Server) listProducts(c *gin.Context) {
	category, err := queryCategory(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	products := catalog.Products()
	bounds := catalog.PriceBounds(products, category)

	min, err := queryDecimal(c, "min", bounds.Min)
	if err != nil {
		s.fail(c, err)
		return
	}
	max, err := queryDecimal(c, "max", bounds.Max)
	if err != nil {
		s.fail(c, err)
		return
	}

	visible := catalog.VisibleProducts(products, category, strings.TrimSpace(c.Query("q")), catalog.NewPriceRange(min, max))
	c.JSON(http.StatusOK, gin.H{
		"products": productViews(visible),
		"count":    len(visible),
	})
}

func (s *Server) getProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	p, found := catalog.Lookup(id)
	if !found {
		s.fail(c, fmt.Errorf("product %d: %w", id, core.ErrProductNotFound))
		return
	}
	c.JSON(http.StatusOK, productView{Product: p, Stars: catalog.Stars(p.Rating)})
}

func (s *Server) listCategories(c *gin.Context) {
	c.JSON(http.StatusOK, catalog.Categories())
}

func (s *Server) listOffers(c *gin.Context) {
	c.JSON(http.StatusOK, catalog.Offers())
}

// listSlides returns the carousel. With ?index= it also names the
// neighbouring slides, wrapping at both ends.
func (s *Server) listSlides(c *gin.Context) {
	slides := catalog.Slides()
	raw := c.Query("index")
	if raw == "" {
		c.JSON(http.StatusOK, slides)
		return
	}
	i, err := strconv.Atoi(raw)
	if err != nil || i < 0 || i >= len(slides) {
		badRequest(c, "index out of range")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"index":  i,
		"slide":  slides[i],
		"next":   catalog.NextSlide(i, len(slides)),
		"prev":   catalog.PrevSlide(i, len(slides)),
		"slides": len(slides),
	})
}

func (s *Server) priceBounds(c *gin.Context) {
	category, err := queryCategory(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, catalog.PriceBounds(catalog.Products(), category))
}
