package alert

const (
	BudgetAlertTopic   = "budget_alert_events"
	DispatchAlertTopic = "dispatch_alert_events"
)

// BudgetAlertEvent 预算用量越过告警线时发出，每个预算周期只发一次
type BudgetAlertEvent struct {
	Channel     string  `json:"channel"`
	PeriodStart int64   `json:"periodStart"`
	Spent       int64   `json:"spent"`
	Ceiling     int64   `json:"ceiling"`
	Usage       float64 `json:"usage"`
}

// DispatchAlertEvent 通知请求所有渠道都失败、被放弃时发出
type DispatchAlertEvent struct {
	RequestID uint64 `json:"requestId"`
	TripID    int64  `json:"tripId"`
	Type      string `json:"type"`
	Reason    string `json:"reason"`
}
