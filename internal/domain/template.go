package domain

// MessageTemplate 消息模版，分发时只读
// 每个渠道一份内容变体，渲染时按渠道取
type MessageTemplate struct {
	ID           int64
	Type         NotificationType
	Variants     map[Channel]string // 渠道 -> 内容模版，占位符形如 ${name}
	RequiredVars []string           // 必填变量名
}

// VariantFor 取指定渠道的内容变体，缺失时回退到邮件变体
func (t *MessageTemplate) VariantFor(channel Channel) (string, bool) {
	if v, ok := t.Variants[channel]; ok {
		return v, true
	}
	v, ok := t.Variants[ChannelEmail]
	return v, ok
}
