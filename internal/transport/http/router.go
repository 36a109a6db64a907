package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"tradepilot/internal/engine"
	"tradepilot/internal/store/gormstore"
	"tradepilot/internal/types"
)

// EngineView 为 engine.Engine 的只读视图。
type EngineView interface {
	RunID() string
	State() engine.State
	Mode() engine.Mode
	LastSummary() *engine.Summary
	LastClose() (decimal.Decimal, bool)
	Orders() []types.Order
	Book() engine.Book
}

// RunReader 查询历史运行记录，gormstore.RunStore 实现该接口。
type RunReader interface {
	ListRuns(ctx context.Context, limit int) ([]gormstore.RunModel, error)
	GetRun(ctx context.Context, runID string) (gormstore.RunModel, error)
	ListOrders(ctx context.Context, runID string) ([]gormstore.OrderModel, error)
	ListSnapshots(ctx context.Context, runID string) ([]gormstore.SnapshotModel, error)
}

type Router struct {
	Engine EngineView
	Runs   RunReader
}

func NewRouter(eng EngineView, runs RunReader) *Router {
	return &Router{Engine: eng, Runs: runs}
}

func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.GET("/status", r.handleStatus)
	group.GET("/ledger", r.handleLedger)
	group.GET("/ledger/report", r.handleReport)
	group.GET("/orders", r.handleOrders)
	group.GET("/summary", r.handleSummary)
	if r.Runs != nil {
		group.GET("/runs", r.handleRuns)
		group.GET("/runs/:id", r.handleRun)
		group.GET("/runs/:id/orders", r.handleRunOrders)
		group.GET("/runs/:id/snapshots", r.handleRunSnapshots)
	}
}

func (r *Router) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"run_id": r.Engine.RunID(),
		"state":  r.Engine.State().String(),
		"mode":   r.Engine.Mode(),
	})
}

func (r *Router) handleLedger(c *gin.Context) {
	c.JSON(http.StatusOK, r.Engine.Book().Inspect())
}

// handleReport 按 ?mark= 估值；缺省时使用最近一轮 K 线的收盘价，两者都没有时返回 400。
func (r *Router) handleReport(c *gin.Context) {
	var mark decimal.Decimal
	if raw := strings.TrimSpace(c.Query("mark")); raw != "" {
		v, err := decimal.NewFromString(raw)
		if err != nil || v.IsNegative() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "mark 必须是非负数"})
			return
		}
		mark = v
	} else {
		last, ok := r.Engine.LastClose()
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "尚无收盘价，请通过 ?mark= 指定估值价格"})
			return
		}
		mark = last
	}
	c.JSON(http.StatusOK, r.Engine.Book().Report(mark))
}

func (r *Router) handleOrders(c *gin.Context) {
	orders := r.Engine.Orders()
	if orders == nil {
		orders = []types.Order{}
	}
	if side := strings.TrimSpace(c.Query("side")); side != "" {
		want, err := types.ParseSide(side)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		filtered := make([]types.Order, 0, len(orders))
		for _, o := range orders {
			if o.Side == want {
				filtered = append(filtered, o)
			}
		}
		orders = filtered
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "count": len(orders)})
}

func (r *Router) handleSummary(c *gin.Context) {
	sum := r.Engine.LastSummary()
	if sum == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "运行尚未结束", "state": r.Engine.State().String()})
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (r *Router) handleRuns(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit 必须是正整数"})
		return
	}
	runs, err := r.Runs.ListRuns(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (r *Router) handleRun(c *gin.Context) {
	run, err := r.Runs.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeLookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

func (r *Router) handleRunOrders(c *gin.Context) {
	orders, err := r.Runs.ListOrders(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (r *Router) handleRunSnapshots(c *gin.Context) {
	snaps, err := r.Runs.ListSnapshots(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"snapshots": snaps})
}

func writeLookupError(c *gin.Context, err error) {
	if errors.Is(err, gormstore.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
