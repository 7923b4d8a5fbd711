package server

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/fan-ledger/internal/ledger"
)

// SummaryReader reads the pre-aggregated summary tab.
type SummaryReader interface {
	ReadAll(ctx context.Context, tab string) ([][]string, error)
}

// Viewer serves the read-only member lookup and ranking API from the summary tab.
// The tab is re-read at most once per ttl; failed reads are not cached.
type Viewer struct {
	store  SummaryReader
	tab    string
	target int64
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger

	mu       sync.Mutex
	rows     []ledger.SummaryRow
	loadedAt time.Time
}

func NewViewer(store SummaryReader, tab string, target int64, ttl time.Duration, logger *slog.Logger) *Viewer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Viewer{
		store:  store,
		tab:    tab,
		target: target,
		ttl:    ttl,
		now:    time.Now,
		logger: logger,
	}
}

// Router builds the HTTP handler with /health and the /api routes.
func (v *Viewer) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	v.RegisterRoutes(router.Group("/api"))
	return router
}

func (v *Viewer) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/members", v.member)  // GET /api/members?q=
	rg.GET("/ranking", v.ranking) // GET /api/ranking?by=month|total
}

func (v *Viewer) summary(ctx context.Context) ([]ledger.SummaryRow, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.rows != nil && v.now().Sub(v.loadedAt) < v.ttl {
		return v.rows, nil
	}
	table, err := v.store.ReadAll(ctx, v.tab)
	if err != nil {
		return nil, err
	}
	v.rows = ledger.ParseSummary(table)
	v.loadedAt = v.now()
	v.logger.Debug("viewer.summary.loaded", "rows", len(v.rows))
	return v.rows, nil
}

// load writes the "data not ready" response itself and reports false when there is
// nothing to serve.
func (v *Viewer) load(c *gin.Context) ([]ledger.SummaryRow, bool) {
	rows, err := v.summary(c.Request.Context())
	if err != nil {
		v.logger.Warn("viewer.summary.failed", "tab", v.tab, "error", err)
	}
	if len(rows) == 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "data not ready"})
		return nil, false
	}
	return rows, true
}

func (v *Viewer) member(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}
	rows, ok := v.load(c)
	if !ok {
		return
	}
	needle := strings.ToLower(q)
	for _, r := range rows {
		if !strings.Contains(strings.ToLower(r.Nickname), needle) {
			continue
		}
		c.JSON(http.StatusOK, gin.H{
			"nickname":        r.Nickname,
			"current":         r.Current,
			"month":           r.Month,
			"current_display": humanize.Comma(r.Current),
			"month_display":   "+" + humanize.Comma(r.Month),
			"target":          v.target,
			"progress":        ledger.QuotaProgress(r.Month, v.target),
		})
		return
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "no matching member"})
}

func (v *Viewer) ranking(c *gin.Context) {
	by := c.DefaultQuery("by", "month")
	var key func(ledger.SummaryRow) int64
	switch by {
	case "month":
		key = func(r ledger.SummaryRow) int64 { return r.Month }
	case "total":
		key = func(r ledger.SummaryRow) int64 { return r.Current }
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "by must be month or total"})
		return
	}
	rows, ok := v.load(c)
	if !ok {
		return
	}
	sorted := append([]ledger.SummaryRow(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool { return key(sorted[i]) > key(sorted[j]) })
	if limit := parseInt(c.Query("limit"), 0); limit > 0 && limit < len(sorted) {
		sorted = sorted[:limit]
	}

	items := make([]gin.H, 0, len(sorted))
	for i, r := range sorted {
		items = append(items, gin.H{"rank": i + 1, "nickname": r.Nickname, "value": key(r)})
	}
	c.JSON(http.StatusOK, gin.H{"by": by, "total": len(rows), "items": items})
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
