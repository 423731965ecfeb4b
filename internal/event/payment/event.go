package payment

const eventName = "payment_completed_events"

// CompletedEvent 支付系统在收款成功后发出
type CompletedEvent struct {
	// PaymentID 支付单号，幂等键
	PaymentID string `json:"paymentId"`
	TripID    int64  `json:"tripId"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	PaidAt    int64  `json:"paidAt"`
}
