package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// keepAlive is the interval between comment lines on idle event streams
const keepAlive = 15 * time.Second

// eventStream writes server-sent events to a gin response
type eventStream struct {
	w       gin.ResponseWriter
	flusher http.Flusher
}

func newEventStream(c *gin.Context) *eventStream {
	h := c.Writer.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	es := &eventStream{w: c.Writer, flusher: c.Writer}
	es.flusher.Flush()
	return es
}

// send writes one event with a JSON payload
func (es *eventStream) send(event string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(es.w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	es.flusher.Flush()
	return nil
}

func (es *eventStream) sendError(message string) error {
	return es.send("error", gin.H{
		"message":   message,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (es *eventStream) ping() error {
	if _, err := fmt.Fprint(es.w, ": ping\n\n"); err != nil {
		return err
	}
	es.flusher.Flush()
	return nil
}
