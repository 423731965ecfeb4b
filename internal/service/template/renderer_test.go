package template

import (
	"context"
	"testing"

	"gitee.com/flycash/trip-platform/internal/domain"
	"gitee.com/flycash/trip-platform/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTemplateRepo struct {
	tpl domain.MessageTemplate
	err error
}

func (f *fakeTemplateRepo) GetByID(_ context.Context, _ int64) (domain.MessageTemplate, error) {
	return f.tpl, f.err
}

func (f *fakeTemplateRepo) GetByType(_ context.Context, _ domain.NotificationType) (domain.MessageTemplate, error) {
	return f.tpl, f.err
}

func (f *fakeTemplateRepo) Create(_ context.Context, tpl domain.MessageTemplate) (domain.MessageTemplate, error) {
	return tpl, nil
}

func testTemplate() domain.MessageTemplate {
	return domain.MessageTemplate{
		ID:   100,
		Type: domain.NotificationTypeBookingConfirmed,
		Variants: map[domain.Channel]string{
			domain.ChannelSMS:   "行程${trip_id}预订成功，${start_date}出发",
			domain.ChannelEmail: "尊敬的客户，您的行程${trip_id}已确认，出发时间${start_date}",
		},
		RequiredVars: []string{"trip_id", "start_date"},
	}
}

func testRenderRequest(params map[string]string) domain.NotificationRequest {
	return domain.NotificationRequest{
		ID:         1001,
		TemplateID: 100,
		Params:     params,
	}
}

func TestRendererRender(t *testing.T) {
	t.Parallel()

	params := map[string]string{"trip_id": "1", "start_date": "2025-06-11 11:00"}

	testCases := []struct {
		name    string
		channel domain.Channel
		params  map[string]string
		want    string
		wantErr error
	}{
		{
			name:    "短信变体",
			channel: domain.ChannelSMS,
			params:  params,
			want:    "行程1预订成功，2025-06-11 11:00出发",
		},
		{
			name:    "邮件变体",
			channel: domain.ChannelEmail,
			params:  params,
			want:    "尊敬的客户，您的行程1已确认，出发时间2025-06-11 11:00",
		},
		{
			name:    "缺渠道变体时回退到邮件",
			channel: domain.ChannelWhatsApp,
			params:  params,
			want:    "尊敬的客户，您的行程1已确认，出发时间2025-06-11 11:00",
		},
		{
			name:    "缺必填变量",
			channel: domain.ChannelSMS,
			params:  map[string]string{"trip_id": "1"},
			wantErr: errs.ErrMissingVariable,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			r := NewRenderer(&fakeTemplateRepo{tpl: testTemplate()})
			got, err := r.Render(t.Context(), testRenderRequest(tc.params), tc.channel)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRendererUnresolvedPlaceholder(t *testing.T) {
	t.Parallel()

	// 占位符不在必填清单里，但参数也没给
	tpl := testTemplate()
	tpl.Variants[domain.ChannelSMS] = "行程${trip_id}，退款${refund_amount}元"
	tpl.RequiredVars = []string{"trip_id"}

	r := NewRenderer(&fakeTemplateRepo{tpl: tpl})
	_, err := r.Render(t.Context(), testRenderRequest(map[string]string{"trip_id": "1"}), domain.ChannelSMS)
	require.ErrorIs(t, err, errs.ErrMissingVariable)
}

func TestRendererNoVariant(t *testing.T) {
	t.Parallel()

	tpl := domain.MessageTemplate{
		ID:       100,
		Variants: map[domain.Channel]string{domain.ChannelSMS: "仅短信"},
	}
	r := NewRenderer(&fakeTemplateRepo{tpl: tpl})
	_, err := r.Render(t.Context(), testRenderRequest(nil), domain.ChannelWhatsApp)
	require.ErrorIs(t, err, errs.ErrTemplateNotFound)
}
