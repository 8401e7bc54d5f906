package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	paho "github.com/eclipse/paho.mqtt.golang"
)

type MQTTConfig struct {
	BrokerURL   string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
}

// MQTTPublisher sends events to <prefix>/audit/<intent> with QoS 1.
type MQTTPublisher struct {
	cfg    MQTTConfig
	client paho.Client
	logger *slog.Logger
}

func NewMQTTPublisher(cfg MQTTConfig, logger *slog.Logger) *MQTTPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &MQTTPublisher{cfg: cfg, logger: logger}
}

func (p *MQTTPublisher) Start() error {
	if p.cfg.BrokerURL == "" {
		return errors.New("mqtt broker url is required")
	}
	opts := paho.NewClientOptions().
		AddBroker(p.cfg.BrokerURL).
		SetClientID(p.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true)

	if p.cfg.Username != "" {
		opts.SetUsername(p.cfg.Username)
		opts.SetPassword(p.cfg.Password)
	}

	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		p.logger.Error("mqtt connection lost", "error", err)
	})
	opts.SetOnConnectHandler(func(_ paho.Client) {
		p.logger.Info("mqtt audit publisher connected", "broker", p.cfg.BrokerURL)
	})

	p.client = paho.NewClient(opts)
	if token := p.client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

func (p *MQTTPublisher) Publish(ctx context.Context, ev Event) error {
	if p.client == nil {
		return errors.New("mqtt publisher not started")
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	token := p.client.Publish(Topic(p.cfg.TopicPrefix, ev.Intent), 1, false, payload)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-token.Done():
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish audit event: %w", err)
	}
	return nil
}

func (p *MQTTPublisher) Close() error {
	if p.client != nil {
		p.client.Disconnect(100)
	}
	return nil
}
