package channel

import (
	"errors"
	"testing"

	"gitee.com/flycash/trip-platform/internal/domain"
	"gitee.com/flycash/trip-platform/internal/errs"
	"gitee.com/flycash/trip-platform/internal/service/provider/sms/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSMSClient struct {
	name   string
	err    error
	code   string
	calls  int
	gotReq client.SendReq
}

func (f *fakeSMSClient) Name() string {
	return f.name
}

func (f *fakeSMSClient) Send(req client.SendReq) (client.SendResp, error) {
	f.calls++
	f.gotReq = req
	if f.err != nil {
		return client.SendResp{}, f.err
	}
	code := f.code
	if code == "" {
		code = client.OK
	}
	statuses := make(map[string]client.SendRespStatus, len(req.PhoneNumbers))
	for _, phone := range req.PhoneNumbers {
		statuses[phone] = client.SendRespStatus{Code: code}
	}
	return client.SendResp{RequestID: "req-1", PhoneNumbers: statuses}, nil
}

func testSMSRecipient() domain.Recipient {
	return domain.Recipient{CustomerID: 42, Phone: "13800000000"}
}

func TestSMSAdapterSend(t *testing.T) {
	t.Parallel()

	ali := &fakeSMSClient{name: "ali"}
	adapter := NewSMSAdapter([]client.Client{ali}, SMSConfig{
		SignName:   "行程通知",
		TemplateID: "SMS_001",
		Cost:       10,
	})

	resp, err := adapter.Send(t.Context(), testSMSRecipient(), "你的行程明天出发")
	require.NoError(t, err)
	assert.Equal(t, int64(10), resp.Cost)
	assert.Equal(t, 1, ali.calls)
	// 渲染好的内容整体作为 content 变量传给供应商
	assert.Equal(t, "你的行程明天出发", ali.gotReq.TemplateParam["content"])
	assert.Equal(t, "行程通知", ali.gotReq.SignName)
}

func TestSMSAdapterProviderFallback(t *testing.T) {
	t.Parallel()

	ali := &fakeSMSClient{name: "ali", err: errors.New("限流")}
	tencent := &fakeSMSClient{name: "tencent"}
	adapter := NewSMSAdapter([]client.Client{ali, tencent}, SMSConfig{})

	resp, err := adapter.Send(t.Context(), testSMSRecipient(), "内容")
	require.NoError(t, err)
	assert.Equal(t, 1, ali.calls)
	assert.Equal(t, 1, tencent.calls)
	assert.Equal(t, DefaultSMSCost, resp.Cost)
}

func TestSMSAdapterBusinessCodeTriggersFallback(t *testing.T) {
	t.Parallel()

	// 接口调通了但业务码不是成功，也要换下一家
	ali := &fakeSMSClient{name: "ali", code: "isv.BUSINESS_LIMIT_CONTROL"}
	tencent := &fakeSMSClient{name: "tencent"}
	adapter := NewSMSAdapter([]client.Client{ali, tencent}, SMSConfig{})

	_, err := adapter.Send(t.Context(), testSMSRecipient(), "内容")
	require.NoError(t, err)
	assert.Equal(t, 1, tencent.calls)
}

func TestSMSAdapterAllProvidersFail(t *testing.T) {
	t.Parallel()

	ali := &fakeSMSClient{name: "ali", err: errors.New("限流")}
	tencent := &fakeSMSClient{name: "tencent", err: errors.New("欠费")}
	adapter := NewSMSAdapter([]client.Client{ali, tencent}, SMSConfig{})

	_, err := adapter.Send(t.Context(), testSMSRecipient(), "内容")
	require.Error(t, err)
	assert.False(t, IsPermanent(err))
	assert.ErrorIs(t, err, errs.ErrSendNotificationFailed)
}

func TestSMSAdapterNoPhone(t *testing.T) {
	t.Parallel()

	adapter := NewSMSAdapter([]client.Client{&fakeSMSClient{name: "ali"}}, SMSConfig{})

	_, err := adapter.Send(t.Context(), domain.Recipient{CustomerID: 42}, "内容")
	require.Error(t, err)
	assert.True(t, IsPermanent(err))
}

func TestSMSAdapterProbe(t *testing.T) {
	t.Parallel()

	adapter := NewSMSAdapter(nil, SMSConfig{})

	reachable, err := adapter.Probe(t.Context(), testSMSRecipient())
	require.NoError(t, err)
	assert.True(t, reachable)

	reachable, err = adapter.Probe(t.Context(), domain.Recipient{CustomerID: 42})
	require.NoError(t, err)
	assert.False(t, reachable)
}
