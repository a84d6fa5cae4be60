package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gemfashion/storefront/assistant"
	"github.com/gemfashion/storefront/core"
)

type sessionView struct {
	ID       string              `json:"id"`
	Greeting string              `json:"greeting"`
	Messages []assistant.Message `json:"messages"`
	Sending  bool                `json:"sending"`
}

func viewSession(sess *assistant.Session) sessionView {
	return sessionView{
		ID:       sess.ID(),
		Greeting: assistant.Greeting,
		Messages: sess.Transcript(),
		Sending:  sess.Sending(),
	}
}

func (s *Server) createSession(c *gin.Context) {
	sess, err := s.deps.Sessions.Create(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, viewSession(sess))
}

func (s *Server) getSession(c *gin.Context) {
	sess, err := s.deps.Sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, viewSession(sess))
}

type messageRequest struct {
	Text string `json:"text"`
}

// sendMessage streams the reply as chunk events followed by done, or error
// when the reply broke off
func (s *Server) sendMessage(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid message body")
		return
	}
	sess, err := s.deps.Sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	if sess.Sending() {
		s.fail(c, core.NewStoreError("assistant.Send", core.KindState, core.ErrSendInFlight))
		return
	}

	var es *eventStream
	stream := func() *eventStream {
		if es == nil {
			es = newEventStream(c)
		}
		return es
	}

	sent, err := sess.Send(c.Request.Context(), req.Text, func(fragment string) {
		_ = stream().send("chunk", gin.H{"text": fragment})
	})
	switch {
	case errors.Is(err, core.ErrSendInFlight):
		s.fail(c, core.NewStoreError("assistant.Send", core.KindState, err))
		return
	case !sent:
		badRequest(c, "text must not be empty")
		return
	}

	transcript := sess.Transcript()
	reply := transcript[len(transcript)-1]
	if err != nil {
		_ = stream().sendError(reply.Content)
		return
	}
	_ = stream().send("done", gin.H{"message": reply})
}
