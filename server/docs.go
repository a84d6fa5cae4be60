package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gemfashion/storefront/core"
	"github.com/gemfashion/storefront/docgen"
)

type docsRequest struct {
	URL string `json:"url"`
}

type progressView struct {
	JobID string `json:"job_id"`
	docgen.Event
}

// generateDocs runs a documentation job, streaming each step as a progress
// event and finishing with result or error
func (s *Server) generateDocs(c *gin.Context) {
	var req docsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid documentation body")
		return
	}

	es := newEventStream(c)
	job, err := s.deps.Docs.Run(c.Request.Context(), req.URL, func(job *docgen.Job, ev docgen.Event) {
		_ = es.send("progress", progressView{JobID: job.ID, Event: ev})
	})
	if err != nil {
		_ = es.send("error", gin.H{"job_id": job.ID, "message": job.Error})
		return
	}
	_ = es.send("result", gin.H{"job_id": job.ID, "markdown": job.Markdown})
}

func (s *Server) getDoc(c *gin.Context) {
	job, err := s.deps.Docs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (s *Server) getDocHTML(c *gin.Context) {
	job, err := s.deps.Docs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	if job.Status != docgen.StatusSucceeded {
		c.JSON(http.StatusConflict, errorBody{Error: "Documentation is not ready.", Kind: core.KindState})
		return
	}
	page, err := docgen.RenderPage("Documentation", job.Markdown)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}
