// Package errors 定义业务错误码和错误处理
package errors

import (
	"fmt"
)

// AppError 应用错误
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 实现 errors.Unwrap
func (e *AppError) Unwrap() error {
	return e.Err
}

// New 创建新的应用错误
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装错误
func Wrap(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithMessage 修改错误消息
func (e *AppError) WithMessage(message string) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: message,
		Err:     e.Err,
	}
}

// WithError 添加原始错误
func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     err,
	}
}

// 通用错误码 (1000-1999)
var (
	ErrUnknown         = New(1000, "未知错误")
	ErrInvalidParams   = New(1001, "参数错误")
	ErrNotFound        = New(1002, "资源不存在")
	ErrAlreadyExists   = New(1003, "资源已存在")
	ErrDatabaseError   = New(1004, "数据库错误")
	ErrCacheError      = New(1005, "缓存错误")
	ErrInternalError   = New(1006, "内部错误")
	ErrExternalService = New(1007, "外部服务错误")
	ErrRateLimitExceed = New(1008, "请求过于频繁")
	ErrOperationFailed = New(1009, "操作失败")
	ErrReasonRequired  = New(1010, "必须填写操作理由")
)

// 认证错误码 (2000-2999)
var (
	ErrUnauthorized     = New(2000, "未登录")
	ErrTokenExpired     = New(2001, "登录已过期")
	ErrTokenInvalid     = New(2002, "无效的令牌")
	ErrPermissionDenied = New(2003, "权限不足")
	ErrAccountDisabled  = New(2004, "账号已禁用")
	ErrPasswordError    = New(2005, "密码错误")
)

// 卖家/配送员错误码 (3000-3999)
var (
	ErrSellerNotFound    = New(3000, "卖家不存在")
	ErrSellerOnHold      = New(3001, "卖家账户已冻结")
	ErrSellerDeleted     = New(3002, "卖家账户已注销")
	ErrPartnerNotFound   = New(3003, "配送员不存在")
	ErrPartnerOnHold     = New(3004, "配送员账户已冻结")
	ErrInvalidTier       = New(3005, "无效的卖家等级")
	ErrStatsNotFound     = New(3006, "卖家统计不存在")
	ErrAccountStatusSame = New(3007, "账户已处于目标状态")
)

// 订单/结算错误码 (5000-5999)
var (
	ErrOrderNotFound         = New(5000, "订单不存在")
	ErrOrderNotDelivered     = New(5001, "订单尚未妥投")
	ErrOrderAlreadyScheduled = New(5002, "订单已进入结算批次")
	ErrOrderAlreadySettled   = New(5003, "订单已完成结算")
	ErrScheduleNotFound      = New(5004, "结算批次不存在")
	ErrScheduleNotScheduled  = New(5005, "结算批次不在待结算状态")
	ErrScheduleCompleted     = New(5006, "结算批次已完成，不可变更")
	ErrBatchProcessFailed    = New(5007, "结算批次处理失败")
)

// 账本/提现错误码 (6000-6999)
var (
	ErrLedgerAppendConflict   = New(6000, "账本写入冲突，请重试")
	ErrInvalidEntryType       = New(6001, "无效的账本条目类型")
	ErrInvalidAmount          = New(6002, "金额必须大于零")
	ErrInsufficientBalance    = New(6003, "可用余额不足")
	ErrWithdrawalNotFound     = New(6004, "提现申请不存在")
	ErrWithdrawalOutstanding  = New(6005, "存在未完结的提现申请")
	ErrWithdrawalNotPending   = New(6006, "提现申请不在待审核状态")
	ErrWithdrawalNotHeld      = New(6007, "提现申请不在冻结状态")
	ErrCorrectionZeroAmount   = New(6008, "人工调账金额不能为零")
	ErrLedgerActorUnsupported = New(6009, "不支持的账本主体类型")
)

// 代收货款错误码 (7000-7999)
var (
	ErrOrderNotCod          = New(7000, "订单不是货到付款订单")
	ErrCodAlreadyCollected  = New(7001, "该订单已存在代收记录")
	ErrCodRecordNotFound    = New(7002, "代收记录不存在")
	ErrCodAlreadyRemitted   = New(7003, "该代收记录已回款")
	ErrCollectedNonPositive = New(7004, "实收金额必须大于零")
)

// 等级评估错误码 (8000-8999)
var (
	ErrTierEvaluationFailed = New(8000, "等级评估失败")
	ErrTierUnchangedTarget  = New(8001, "目标等级与当前等级相同")
)

// 管理错误码 (9000-9999)
var (
	ErrAdminNotFound  = New(9000, "管理员不存在")
	ErrOverrideFailed = New(9001, "人工干预记录写入失败")
	ErrExportFailed   = New(9002, "报表导出失败")
)

// IsAppError 判断是否为应用错误
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// GetAppError 获取应用错误
func GetAppError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return ErrUnknown.WithError(err)
}
