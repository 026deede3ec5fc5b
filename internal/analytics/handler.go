package analytics

import (
	"context"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rajatjasiwal2001/portfolio/internal/realtime"
	"github.com/rajatjasiwal2001/portfolio/pkg/response"
)

const statsTimeout = 2 * time.Second

// StatsSource is satisfied by *realtime.Hub.
type StatsSource interface {
	Stats(ctx context.Context) (realtime.Stats, error)
}

// Handler serves the informational page and visitor stats.
type Handler struct {
	source StatsSource
	wsURL  string
	logger *zap.Logger
}

// NewHandler creates an analytics handler. wsURL is shown on the dashboard.
func NewHandler(source StatsSource, wsURL string, logger *zap.Logger) *Handler {
	return &Handler{source: source, wsURL: wsURL, logger: logger}
}

// SummaryResponse is the JSON shape for GET /stats.
type SummaryResponse struct {
	Connected     int       `json:"connected"`
	TotalVisitors int       `json:"totalVisitors"`
	ChatMessages  int       `json:"chatMessages"`
	StartedAt     time.Time `json:"startedAt"`
	UptimeSeconds int64     `json:"uptimeSeconds"`
}

// Summary handles GET /stats.
func (h *Handler) Summary(c *gin.Context) {
	st, ok := h.stats(c)
	if !ok {
		return
	}
	response.OK(c, SummaryResponse{
		Connected:     st.Connected,
		TotalVisitors: st.TotalVisitors,
		ChatMessages:  st.ChatMessages,
		StartedAt:     st.StartedAt,
		UptimeSeconds: int64(time.Since(st.StartedAt).Seconds()),
	})
}

var dashboardTmpl = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html>
<head><title>Portfolio WebSocket Server</title></head>
<body>
    <h1>Portfolio WebSocket Server</h1>
    <p>Server is running on {{.WSURL}}</p>
    <p>Connected clients: {{.Connected}}</p>
    <p>Total visitors: {{.TotalVisitors}}</p>
</body>
</html>
`))

// RegisterRoutes mounts GET / and GET /stats and installs the dashboard
// template on r.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.SetHTMLTemplate(dashboardTmpl)
	r.GET("/", h.Dashboard)
	r.GET("/stats", h.Summary)
}

// Dashboard handles GET /. The engine must carry dashboardTmpl, see RegisterRoutes.
func (h *Handler) Dashboard(c *gin.Context) {
	st, ok := h.stats(c)
	if !ok {
		return
	}
	c.HTML(http.StatusOK, dashboardTmpl.Name(), gin.H{
		"WSURL":         h.wsURL,
		"Connected":     st.Connected,
		"TotalVisitors": st.TotalVisitors,
	})
}

func (h *Handler) stats(c *gin.Context) (realtime.Stats, bool) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), statsTimeout)
	defer cancel()
	st, err := h.source.Stats(ctx)
	if err != nil {
		h.logger.Warn("read hub stats", zap.Error(err))
		response.ServiceUnavailable(c, "stats not available")
		return realtime.Stats{}, false
	}
	return st, true
}
