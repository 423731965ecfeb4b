package settlement

const eventName = "trip_settlement_events"

// TripSettledEvent 行程进入终态（完成/退款）时发给下游结算系统
type TripSettledEvent struct {
	TripID       int64  `json:"tripId"`
	BizID        int64  `json:"bizId"`
	Status       string `json:"status"`
	PaidAmount   int64  `json:"paidAmount"`
	RefundAmount int64  `json:"refundAmount"`
	Currency     string `json:"currency"`
	SettledAt    int64  `json:"settledAt"`
}
