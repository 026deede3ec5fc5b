// Package response writes the JSON envelope used by the HTTP status endpoints.
package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Body is the envelope of every JSON reply. ServerTime is in ms, like the
// timestamps on websocket events, so clients can compare the two.
type Body struct {
	Success    bool        `json:"success"`
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
	ServerTime int64       `json:"serverTime"`
}

// OK sends a 200 with data.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data, ServerTime: time.Now().UnixMilli()})
}

// Fail aborts the request with status and msg. An empty msg uses the status text.
func Fail(c *gin.Context, status int, msg string) {
	if msg == "" {
		msg = http.StatusText(status)
	}
	c.AbortWithStatusJSON(status, Body{Error: msg, ServerTime: time.Now().UnixMilli()})
}

// NotFound answers unknown routes.
func NotFound(c *gin.Context) {
	Fail(c, http.StatusNotFound, "")
}

// ServiceUnavailable is used while the hub is not answering.
func ServiceUnavailable(c *gin.Context, msg string) {
	Fail(c, http.StatusServiceUnavailable, msg)
}
