// Package errors 错误码和错误处理单元测试
package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==================== AppError 基础测试 ====================

func TestNew(t *testing.T) {
	err := New(1001, "参数错误")
	require.NotNil(t, err)
	assert.Equal(t, 1001, err.Code)
	assert.Equal(t, "参数错误", err.Message)
	assert.Nil(t, err.Err)
}

func TestWrap(t *testing.T) {
	originalErr := stderrors.New("database connection failed")
	err := Wrap(1004, "数据库错误", originalErr)

	require.NotNil(t, err)
	assert.Equal(t, 1004, err.Code)
	assert.Equal(t, "数据库错误", err.Message)
	assert.Equal(t, originalErr, err.Err)
}

// ==================== AppError 方法测试 ====================

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appError *AppError
		want     string
	}{
		{
			name:     "Error without underlying error",
			appError: New(1001, "参数错误"),
			want:     "[1001] 参数错误",
		},
		{
			name:     "Error with underlying error",
			appError: Wrap(1004, "数据库错误", stderrors.New("connection timeout")),
			want:     "[1004] 数据库错误: connection timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.appError.Error()
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	originalErr := stderrors.New("original error")
	err := Wrap(1000, "wrapped error", originalErr)

	unwrapped := err.Unwrap()
	assert.Equal(t, originalErr, unwrapped)
}

func TestAppError_WithMessage(t *testing.T) {
	original := New(1001, "原始消息")
	modified := original.WithMessage("修改后的消息")

	assert.Equal(t, 1001, modified.Code)
	assert.Equal(t, "修改后的消息", modified.Message)
	assert.Nil(t, modified.Err)

	// 验证原始错误未被修改
	assert.Equal(t, "原始消息", original.Message)
}

func TestAppError_WithError(t *testing.T) {
	original := New(1001, "参数错误")
	underlyingErr := stderrors.New("validation failed")
	modified := original.WithError(underlyingErr)

	assert.Equal(t, 1001, modified.Code)
	assert.Equal(t, "参数错误", modified.Message)
	assert.Equal(t, underlyingErr, modified.Err)

	// 验证原始错误未被修改
	assert.Nil(t, original.Err)
}

// ==================== 错误码常量测试 ====================

func TestCommonErrors(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		code int
	}{
		{"ErrUnknown", ErrUnknown, 1000},
		{"ErrInvalidParams", ErrInvalidParams, 1001},
		{"ErrNotFound", ErrNotFound, 1002},
		{"ErrAlreadyExists", ErrAlreadyExists, 1003},
		{"ErrDatabaseError", ErrDatabaseError, 1004},
		{"ErrCacheError", ErrCacheError, 1005},
		{"ErrInternalError", ErrInternalError, 1006},
		{"ErrExternalService", ErrExternalService, 1007},
		{"ErrRateLimitExceed", ErrRateLimitExceed, 1008},
		{"ErrOperationFailed", ErrOperationFailed, 1009},
		{"ErrReasonRequired", ErrReasonRequired, 1010},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.NotEmpty(t, tt.err.Message)
		})
	}
}

func TestAuthErrors(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		code int
	}{
		{"ErrUnauthorized", ErrUnauthorized, 2000},
		{"ErrTokenExpired", ErrTokenExpired, 2001},
		{"ErrTokenInvalid", ErrTokenInvalid, 2002},
		{"ErrPermissionDenied", ErrPermissionDenied, 2003},
		{"ErrAccountDisabled", ErrAccountDisabled, 2004},
		{"ErrPasswordError", ErrPasswordError, 2005},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.NotEmpty(t, tt.err.Message)
		})
	}
}

func TestAccountErrors(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		code int
	}{
		{"ErrSellerNotFound", ErrSellerNotFound, 3000},
		{"ErrSellerOnHold", ErrSellerOnHold, 3001},
		{"ErrSellerDeleted", ErrSellerDeleted, 3002},
		{"ErrPartnerNotFound", ErrPartnerNotFound, 3003},
		{"ErrPartnerOnHold", ErrPartnerOnHold, 3004},
		{"ErrAccountStatusSame", ErrAccountStatusSame, 3007},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.NotEmpty(t, tt.err.Message)
		})
	}
}

func TestSettlementErrors(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		code int
	}{
		{"ErrOrderNotFound", ErrOrderNotFound, 5000},
		{"ErrOrderNotDelivered", ErrOrderNotDelivered, 5001},
		{"ErrOrderAlreadyScheduled", ErrOrderAlreadyScheduled, 5002},
		{"ErrOrderAlreadySettled", ErrOrderAlreadySettled, 5003},
		{"ErrScheduleNotFound", ErrScheduleNotFound, 5004},
		{"ErrScheduleNotScheduled", ErrScheduleNotScheduled, 5005},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.NotEmpty(t, tt.err.Message)
		})
	}
}

func TestLedgerErrors(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		code int
	}{
		{"ErrLedgerAppendConflict", ErrLedgerAppendConflict, 6000},
		{"ErrInvalidEntryType", ErrInvalidEntryType, 6001},
		{"ErrInvalidAmount", ErrInvalidAmount, 6002},
		{"ErrInsufficientBalance", ErrInsufficientBalance, 6003},
		{"ErrWithdrawalNotFound", ErrWithdrawalNotFound, 6004},
		{"ErrWithdrawalOutstanding", ErrWithdrawalOutstanding, 6005},
		{"ErrWithdrawalNotPending", ErrWithdrawalNotPending, 6006},
		{"ErrWithdrawalNotHeld", ErrWithdrawalNotHeld, 6007},
		{"ErrCorrectionZeroAmount", ErrCorrectionZeroAmount, 6008},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.NotEmpty(t, tt.err.Message)
		})
	}
}

func TestCodErrors(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		code int
	}{
		{"ErrOrderNotCod", ErrOrderNotCod, 7000},
		{"ErrCodAlreadyCollected", ErrCodAlreadyCollected, 7001},
		{"ErrCodRecordNotFound", ErrCodRecordNotFound, 7002},
		{"ErrCodAlreadyRemitted", ErrCodAlreadyRemitted, 7003},
		{"ErrCollectedNonPositive", ErrCollectedNonPositive, 7004},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.NotEmpty(t, tt.err.Message)
		})
	}
}

// ==================== 辅助函数测试 ====================

func TestIsAppError(t *testing.T) {
	assert.True(t, IsAppError(ErrInvalidParams))
	assert.False(t, IsAppError(stderrors.New("plain error")))
}

func TestGetAppError(t *testing.T) {
	appErr := GetAppError(ErrSellerNotFound)
	assert.Equal(t, ErrSellerNotFound.Code, appErr.Code)

	plain := stderrors.New("plain error")
	wrapped := GetAppError(plain)
	assert.Equal(t, ErrUnknown.Code, wrapped.Code)
	assert.Equal(t, plain, wrapped.Err)
}
