package ioc

import (
	"time"

	"gitee.com/flycash/trip-platform/internal/service/channel"
	channelmetrics "gitee.com/flycash/trip-platform/internal/service/channel/metrics"
	channeltracing "gitee.com/flycash/trip-platform/internal/service/channel/tracing"
	"gitee.com/flycash/trip-platform/internal/service/provider/sms/client"
	"github.com/gotomicro/ego/core/econf"
)

const defaultClientTimeout = 10 * time.Second

func InitWhatsAppAdapter() channel.Adapter {
	type Config struct {
		BaseURL string        `yaml:"baseURL"`
		Token   string        `yaml:"token"`
		Timeout time.Duration `yaml:"timeout"`
	}
	var cfg Config
	err := econf.UnmarshalKey("channel.whatsapp", &cfg)
	if err != nil {
		panic(err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultClientTimeout
	}
	return channel.NewWhatsAppAdapter(channel.NewHTTPWhatsAppClient(cfg.BaseURL, cfg.Token, cfg.Timeout))
}

func InitEmailAdapter() channel.Adapter {
	type Config struct {
		Addr     string `yaml:"addr"`
		From     string `yaml:"from"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		Subject  string `yaml:"subject"`
	}
	var cfg Config
	err := econf.UnmarshalKey("channel.email", &cfg)
	if err != nil {
		panic(err)
	}
	return channel.NewEmailAdapter(channel.NewSMTPEmailClient(cfg.Addr, cfg.From, cfg.Username, cfg.Password), cfg.Subject)
}

func InitSMSAdapter(clients []client.Client) channel.Adapter {
	var cfg channel.SMSConfig
	err := econf.UnmarshalKey("channel.sms", &cfg)
	if err != nil {
		panic(err)
	}
	return channel.NewSMSAdapter(clients, cfg)
}

// InitChannelAdapters 候选渠道，按成本从低到高排列，每个都包上指标和链路追踪
func InitChannelAdapters(smsClients []client.Client) []channel.Adapter {
	adapters := []channel.Adapter{
		InitWhatsAppAdapter(),
		InitEmailAdapter(),
		InitSMSAdapter(smsClients),
	}
	decorated := make([]channel.Adapter, 0, len(adapters))
	for _, a := range adapters {
		decorated = append(decorated, channeltracing.NewAdapter(channelmetrics.NewAdapter(a)))
	}
	return decorated
}
