// Package sms 提供短信通知服务
package sms

import (
	"context"
	"encoding/json"
	"fmt"

	openapi "github.com/alibabacloud-go/darabonba-openapi/v2/client"
	dysmsapi "github.com/alibabacloud-go/dysmsapi-20170525/v3/client"
	"github.com/alibabacloud-go/tea/tea"
)

// Config 短信配置
type Config struct {
	AccessKeyID     string
	AccessKeySecret string
	SignName        string
	Endpoint        string
}

// TemplateCode 短信模板编码
type TemplateCode string

const (
	TemplateCodeLogin              TemplateCode = "SMS_LOGIN"               // 登录验证码
	TemplateCodeSettlementDone     TemplateCode = "SMS_SETTLEMENT_DONE"     // 结算完成通知
	TemplateCodeWithdrawalApproved TemplateCode = "SMS_WITHDRAWAL_APPROVED" // 提现审批通过
	TemplateCodeWithdrawalRejected TemplateCode = "SMS_WITHDRAWAL_REJECTED" // 提现被拒
	TemplateCodeCODRemitted        TemplateCode = "SMS_COD_REMITTED"        // COD 回款确认
)

// Sender 短信发送接口
type Sender interface {
	SendCode(ctx context.Context, phone string, code string, templateCode TemplateCode) error
	SendNotification(ctx context.Context, phone string, templateCode TemplateCode, params map[string]string) error
}

// Client 阿里云短信客户端
type Client struct {
	client   *dysmsapi.Client
	signName string
}

// NewClient 创建短信客户端
func NewClient(cfg *Config) (*Client, error) {
	config := &openapi.Config{
		AccessKeyId:     tea.String(cfg.AccessKeyID),
		AccessKeySecret: tea.String(cfg.AccessKeySecret),
	}

	if cfg.Endpoint != "" {
		config.Endpoint = tea.String(cfg.Endpoint)
	} else {
		config.Endpoint = tea.String("dysmsapi.aliyuncs.com")
	}

	client, err := dysmsapi.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sms client: %w", err)
	}

	return &Client{
		client:   client,
		signName: cfg.SignName,
	}, nil
}

// SendCode 发送验证码
func (c *Client) SendCode(ctx context.Context, phone string, code string, templateCode TemplateCode) error {
	return c.SendNotification(ctx, phone, templateCode, map[string]string{"code": code})
}

// SendNotification 发送通知短信
func (c *Client) SendNotification(ctx context.Context, phone string, templateCode TemplateCode, params map[string]string) error {
	templateParam, _ := json.Marshal(params)

	request := &dysmsapi.SendSmsRequest{
		PhoneNumbers:  tea.String(phone),
		SignName:      tea.String(c.signName),
		TemplateCode:  tea.String(string(templateCode)),
		TemplateParam: tea.String(string(templateParam)),
	}

	response, err := c.client.SendSms(request)
	if err != nil {
		return fmt.Errorf("failed to send sms: %w", err)
	}

	if *response.Body.Code != "OK" {
		return fmt.Errorf("sms send failed: %s - %s", *response.Body.Code, *response.Body.Message)
	}

	return nil
}

// SendSettlementDone 发送结算完成通知
func SendSettlementDone(ctx context.Context, s Sender, phone, batchNo, amount string) error {
	return s.SendNotification(ctx, phone, TemplateCodeSettlementDone, map[string]string{
		"batch_no": batchNo,
		"amount":   amount,
	})
}

// SendWithdrawalReviewed 发送提现审批结果通知
func SendWithdrawalReviewed(ctx context.Context, s Sender, phone, withdrawalNo string, approved bool, amount string) error {
	code := TemplateCodeWithdrawalApproved
	if !approved {
		code = TemplateCodeWithdrawalRejected
	}
	return s.SendNotification(ctx, phone, code, map[string]string{
		"withdrawal_no": withdrawalNo,
		"amount":        amount,
	})
}

// MockClient 模拟短信客户端（用于开发测试）
type MockClient struct {
	signName string
	Sent     []MockMessage
}

// MockMessage 模拟消息
type MockMessage struct {
	Phone        string
	TemplateCode TemplateCode
	Params       map[string]string
}

// NewMockClient 创建模拟客户端
func NewMockClient(signName string) *MockClient {
	return &MockClient{signName: signName}
}

// SendCode 模拟发送验证码
func (c *MockClient) SendCode(ctx context.Context, phone string, code string, templateCode TemplateCode) error {
	return c.SendNotification(ctx, phone, templateCode, map[string]string{"code": code})
}

// SendNotification 模拟发送通知
func (c *MockClient) SendNotification(ctx context.Context, phone string, templateCode TemplateCode, params map[string]string) error {
	c.Sent = append(c.Sent, MockMessage{Phone: phone, TemplateCode: templateCode, Params: params})
	return nil
}

// LastMessage 获取最后发送的消息
func (c *MockClient) LastMessage() *MockMessage {
	if len(c.Sent) == 0 {
		return nil
	}
	return &c.Sent[len(c.Sent)-1]
}
