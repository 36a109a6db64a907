package model

import (
	"gorm.io/datatypes"
)

type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusFinished RunStatus = "finished"
	RunStatusFailed   RunStatus = "failed"
)

// RunModel 每次引擎运行一行，Summary 到达时补全统计。
type RunModel struct {
	RunID          string         `gorm:"column:run_id;primaryKey"`
	Mode           string         `gorm:"column:mode"`
	Symbol         string         `gorm:"column:symbol;index"`
	Interval       string         `gorm:"column:interval"`
	Status         RunStatus      `gorm:"column:status"`
	Rows           int            `gorm:"column:row_count"`
	Iterations     int            `gorm:"column:iterations"`
	Trades         int            `gorm:"column:trades"`
	Balance        string         `gorm:"column:balance"`
	Equity         string         `gorm:"column:equity"`
	Profit         string         `gorm:"column:profit"`
	ProfitPct      string         `gorm:"column:profit_pct"`
	Error          string         `gorm:"column:error"`
	SummaryJSON    datatypes.JSON `gorm:"column:summary_json;type:TEXT"`
	StartedAtUnix  int64          `gorm:"column:started_at"`
	FinishedAtUnix int64          `gorm:"column:finished_at"`
	UpdatedAtUnix  int64          `gorm:"column:updated_at"`
}

func (RunModel) TableName() string { return "runs" }

// OrderModel 为已成交订单及其对应的账本结果。
type OrderModel struct {
	ID            int64          `gorm:"column:id;primaryKey;autoIncrement"`
	RunID         string         `gorm:"column:run_id;index:idx_order_run,priority:1"`
	StepIndex     int            `gorm:"column:step_index;index:idx_order_run,priority:2"`
	OrderID       string         `gorm:"column:order_id;uniqueIndex"`
	ClientOrderID string         `gorm:"column:client_order_id"`
	Symbol        string         `gorm:"column:symbol"`
	Side          string         `gorm:"column:side"`
	Type          string         `gorm:"column:type"`
	Quantity      string         `gorm:"column:quantity"`
	Price         string         `gorm:"column:price"`
	Status        string         `gorm:"column:status"`
	Outcome       string         `gorm:"column:outcome"`
	Strategy      string         `gorm:"column:strategy"`
	RealizedPnL   string         `gorm:"column:realized_pnl"`
	RawJSON       datatypes.JSON `gorm:"column:raw_json;type:TEXT"`
	CreatedAtUnix int64          `gorm:"column:created_at"`
}

func (OrderModel) TableName() string { return "orders" }

// SnapshotModel 为每轮迭代结束时的账户快照，用于绘制净值曲线。
type SnapshotModel struct {
	ID             int64          `gorm:"column:id;primaryKey;autoIncrement"`
	RunID          string         `gorm:"column:run_id;uniqueIndex:idx_snapshot_step,priority:1"`
	StepIndex      int            `gorm:"column:step_index;uniqueIndex:idx_snapshot_step,priority:2"`
	CandleTimeUnix int64          `gorm:"column:candle_time"`
	Close          float64        `gorm:"column:close"`
	Balance        float64        `gorm:"column:balance"`
	Equity         float64        `gorm:"column:equity"`
	OpenPositions  int            `gorm:"column:open_positions"`
	Signals        int            `gorm:"column:signals"`
	SnapshotJSON   datatypes.JSON `gorm:"column:snapshot_json;type:TEXT"`
	CreatedAtUnix  int64          `gorm:"column:created_at"`
}

func (SnapshotModel) TableName() string { return "snapshots" }
