// Package apperr 定义跨包传递的错误类型，配合 errors.Is / errors.As 使用。
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrConfiguration   = errors.New("configuration error")
	ErrExecution       = errors.New("execution failure")
	ErrDataUnavailable = errors.New("data unavailable")
)

// ConfigurationError 表示配置缺失或非法，Field 为出错的配置键。
type ConfigurationError struct {
	Field  string
	Reason string
}

func Configuration(field, reason string, args ...any) *ConfigurationError {
	if len(args) > 0 {
		reason = fmt.Sprintf(reason, args...)
	}
	return &ConfigurationError{Field: field, Reason: reason}
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("config: %s", e.Reason)
	}
	return fmt.Sprintf("config %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// ExecutionFailure 包装下单通道返回的错误。
type ExecutionFailure struct {
	Symbol        string
	Side          string
	ClientOrderID string
	Err           error
}

func (e *ExecutionFailure) Error() string {
	return fmt.Sprintf("execute %s %s (client_order_id=%s): %v", e.Side, e.Symbol, e.ClientOrderID, e.Err)
}

func (e *ExecutionFailure) Unwrap() error { return e.Err }

func (e *ExecutionFailure) Is(target error) bool { return target == ErrExecution }

// DataUnavailable 表示 K 线窗口为空、格式错误或拉取失败。
type DataUnavailable struct {
	Symbol   string
	Interval string
	Reason   string
	Err      error
}

func (e *DataUnavailable) Error() string {
	msg := fmt.Sprintf("market data %s@%s unavailable: %s", e.Symbol, e.Interval, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DataUnavailable) Unwrap() error { return e.Err }

func (e *DataUnavailable) Is(target error) bool { return target == ErrDataUnavailable }
