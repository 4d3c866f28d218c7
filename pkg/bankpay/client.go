// Package bankpay 提供银行代付通道封装
package bankpay

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Config 代付通道配置
type Config struct {
	MerchantID     string `mapstructure:"merchant_id"`
	APIKey         string `mapstructure:"api_key"`
	PrivateKeyPath string `mapstructure:"private_key_path"`
	NotifyURL      string `mapstructure:"notify_url"`
	IsSandbox      bool   `mapstructure:"is_sandbox"`
}

// TransferRequest 代付请求
type TransferRequest struct {
	OutTradeNo  string  `json:"out_trade_no"` // 商户侧流水号（提现单号）
	AccountName string  `json:"account_name"`
	AccountNo   string  `json:"account_no"`
	BankName    string  `json:"bank_name"`
	Amount      float64 `json:"amount"`
	Remark      string  `json:"remark,omitempty"`
}

// TransferResponse 代付响应
type TransferResponse struct {
	TransactionRef string    `json:"transaction_ref"` // 银行侧流水号
	Status         string    `json:"status"`
	PaidAt         time.Time `json:"paid_at"`
}

// Transferer 代付接口
type Transferer interface {
	Transfer(ctx context.Context, req *TransferRequest) (*TransferResponse, error)
}

// Client 代付客户端
type Client struct {
	config *Config
}

// NewClient 创建代付客户端
func NewClient(config *Config) (*Client, error) {
	if config.MerchantID == "" {
		return nil, fmt.Errorf("merchant_id is required")
	}
	return &Client{config: config}, nil
}

// Transfer 发起银行转账
func (c *Client) Transfer(ctx context.Context, req *TransferRequest) (*TransferResponse, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("invalid transfer amount: %.2f", req.Amount)
	}
	if req.AccountNo == "" || req.AccountName == "" {
		return nil, fmt.Errorf("bank account is required")
	}

	// TODO: 对接真实银行代付网关，目前沙箱环境返回模拟流水号
	now := time.Now()
	return &TransferResponse{
		TransactionRef: fmt.Sprintf("BK%d", now.UnixNano()),
		Status:         "success",
		PaidAt:         now,
	}, nil
}

// MockTransferer 模拟代付客户端（测试用）
type MockTransferer struct {
	mu        sync.Mutex
	Transfers []TransferRequest
	FailNext  bool
}

// Transfer 模拟转账
func (m *MockTransferer) Transfer(ctx context.Context, req *TransferRequest) (*TransferResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailNext {
		m.FailNext = false
		return nil, fmt.Errorf("bank transfer rejected")
	}

	m.Transfers = append(m.Transfers, *req)
	return &TransferResponse{
		TransactionRef: fmt.Sprintf("MOCK%06d", len(m.Transfers)),
		Status:         "success",
		PaidAt:         time.Now(),
	}, nil
}
