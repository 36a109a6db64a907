// Package gormstore 将引擎每轮统计与运行汇总写入 SQLite，供 HTTP 接口与报表读取。
package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"tradepilot/internal/engine"
	"tradepilot/internal/ledger"
	storemodel "tradepilot/internal/store/model"
)

type (
	RunModel      = storemodel.RunModel
	OrderModel    = storemodel.OrderModel
	SnapshotModel = storemodel.SnapshotModel
)

var ErrNotFound = errors.New("记录不存在")

// RunStore 实现 engine.Sink。
type RunStore struct {
	db  *gorm.DB
	now func() time.Time
}

var _ engine.Sink = (*RunStore)(nil)

func Open(path string) (*RunStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("gorm store: 路径不能为空")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&RunModel{}, &OrderModel{}, &SnapshotModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// WAL 下允许少量并发读（HTTP 查询）
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &RunStore{db: db, now: time.Now}, nil
}

func (s *RunStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Step 写入本轮成交订单和账户快照；首次出现的 run 自动建档。
func (s *RunStore) Step(ctx context.Context, step engine.Step) error {
	now := s.now().UnixMilli()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		run := RunModel{
			RunID:         step.RunID,
			Mode:          string(step.Mode),
			Symbol:        step.Symbol,
			Interval:      step.Interval,
			Status:        storemodel.RunStatusRunning,
			StartedAtUnix: now,
			UpdatedAtUnix: now,
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&run).Error; err != nil {
			return err
		}
		for _, res := range step.Results {
			if res.Order == nil {
				continue
			}
			m, err := newOrderModel(step, res, now)
			if err != nil {
				return err
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&m).Error; err != nil {
				return err
			}
		}
		snap, err := newSnapshotModel(step, now)
		if err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "run_id"}, {Name: "step_index"}},
			UpdateAll: true,
		}).Create(&snap).Error
	})
}

// Summary 更新 run 行的最终统计。
func (s *RunStore) Summary(ctx context.Context, sum engine.Summary) error {
	raw, err := json.Marshal(sum)
	if err != nil {
		return err
	}
	status := storemodel.RunStatusFinished
	if sum.Err != "" {
		status = storemodel.RunStatusFailed
	}
	m := RunModel{
		RunID:          sum.RunID,
		Mode:           string(sum.Mode),
		Symbol:         sum.Symbol,
		Interval:       sum.Interval,
		Status:         status,
		Rows:           sum.Rows,
		Iterations:     sum.Iterations,
		Trades:         sum.Report.Counters.Trades,
		Balance:        sum.Report.Balance.String(),
		Equity:         sum.Report.Equity.String(),
		Profit:         sum.Report.Profit.String(),
		ProfitPct:      sum.Report.ProfitPct.String(),
		Error:          sum.Err,
		SummaryJSON:    datatypes.JSON(raw),
		StartedAtUnix:  sum.StartedAt.UnixMilli(),
		FinishedAtUnix: sum.FinishedAt.UnixMilli(),
		UpdatedAtUnix:  s.now().UnixMilli(),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "run_id"}},
		UpdateAll: true,
	}).Create(&m).Error
}

// ListRuns 按开始时间倒序。
func (s *RunStore) ListRuns(ctx context.Context, limit int) ([]RunModel, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []RunModel
	err := s.db.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&out).Error
	return out, err
}

func (s *RunStore) GetRun(ctx context.Context, runID string) (RunModel, error) {
	var m RunModel
	err := s.db.WithContext(ctx).Where("run_id = ?", runID).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return RunModel{}, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	return m, err
}

func (s *RunStore) ListOrders(ctx context.Context, runID string) ([]OrderModel, error) {
	var out []OrderModel
	err := s.db.WithContext(ctx).Where("run_id = ?", runID).Order("step_index ASC, id ASC").Find(&out).Error
	return out, err
}

func (s *RunStore) ListSnapshots(ctx context.Context, runID string) ([]SnapshotModel, error) {
	var out []SnapshotModel
	err := s.db.WithContext(ctx).Where("run_id = ?", runID).Order("step_index ASC").Find(&out).Error
	return out, err
}

func newOrderModel(step engine.Step, res ledger.Result, now int64) (OrderModel, error) {
	o := res.Order
	raw, err := json.Marshal(res)
	if err != nil {
		return OrderModel{}, err
	}
	created := now
	if !o.CreatedAt.IsZero() {
		created = o.CreatedAt.UnixMilli()
	}
	return OrderModel{
		RunID:         step.RunID,
		StepIndex:     step.Index,
		OrderID:       o.OrderID,
		ClientOrderID: o.ClientOrderID,
		Symbol:        o.Symbol,
		Side:          string(o.Side),
		Type:          string(o.Type),
		Quantity:      o.Quantity.String(),
		Price:         o.Price.String(),
		Status:        string(o.Status),
		Outcome:       string(res.Outcome),
		Strategy:      res.Signal.StrategyName,
		RealizedPnL:   res.RealizedPnL.String(),
		RawJSON:       datatypes.JSON(raw),
		CreatedAtUnix: created,
	}, nil
}

func newSnapshotModel(step engine.Step, now int64) (SnapshotModel, error) {
	raw, err := json.Marshal(step.Snapshot)
	if err != nil {
		return SnapshotModel{}, err
	}
	mark := step.Candle.ClosePrice()
	equity := step.Snapshot.Balance
	for _, p := range step.Snapshot.Positions {
		equity = equity.Add(p.MarkValue(mark))
	}
	return SnapshotModel{
		RunID:          step.RunID,
		StepIndex:      step.Index,
		CandleTimeUnix: step.Candle.CloseTime,
		Close:          step.Candle.Close,
		Balance:        step.Snapshot.Balance.InexactFloat64(),
		Equity:         equity.InexactFloat64(),
		OpenPositions:  step.Snapshot.OpenPositionCount,
		Signals:        len(step.Signals),
		SnapshotJSON:   datatypes.JSON(raw),
		CreatedAtUnix:  now,
	}, nil
}
