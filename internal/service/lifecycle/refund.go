package lifecycle

// refundStep 退款阶梯的一档
type refundStep struct {
	minDays int
	// percent 退款比例，0~100
	percent int64
}

// 距出发越近退得越少，严格单调不增
var refundSteps = []refundStep{
	{minDays: 30, percent: 100},
	{minDays: 14, percent: 90},
	{minDays: 7, percent: 75},
	{minDays: 2, percent: 50},
	{minDays: 0, percent: 0},
}

// RefundAmount 按取消时点距出发的整天数计算退款金额，单位分。
// 向下取整，永远不会退出超过实付的金额
func RefundAmount(paidAmount int64, daysUntilStart int) int64 {
	if paidAmount <= 0 {
		return 0
	}
	for _, step := range refundSteps {
		if daysUntilStart >= step.minDays {
			const full = 100
			return paidAmount * step.percent / full
		}
	}
	return 0
}
