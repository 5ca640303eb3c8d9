package broker

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/khaledhikmat/vs-segmenter/service/config"
	"github.com/khaledhikmat/vs-segmenter/service/lgr"
)

const publishTimeout = 5 * time.Second

// Dial connects to the configured MQTT broker. The client is shared by the
// control subscriber and the publisher.
func Dial(cfgSvc config.IService) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", cfgSvc.GetMQTTBroker()))
	opts.SetClientID(cfgSvc.GetMQTTClientID())
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(_ mqtt.Client) {
		lgr.Logger.Info("mqtt connection established",
			slog.String("broker", cfgSvc.GetMQTTBroker()),
			slog.String("clientID", cfgSvc.GetMQTTClientID()),
		)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		lgr.Logger.Warn("mqtt connection lost, will auto-reconnect", slog.Any("error", err))
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connection failed: %w", err)
	}

	return client, nil
}

type mqttService struct {
	Client mqtt.Client

	mu        sync.Mutex
	published map[string]uint64
}

// NewMQTT publishes msgpack-encoded values at QoS 0.
func NewMQTT(client mqtt.Client) IService {
	return &mqttService{
		Client:    client,
		published: map[string]uint64{},
	}
}

func (svc *mqttService) Publish(topic string, v interface{}) error {
	payload, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("error encoding %s payload: %w", topic, err)
	}

	token := svc.Client.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish to %s timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s failed: %w", topic, err)
	}

	svc.mu.Lock()
	svc.published[topic]++
	svc.mu.Unlock()
	return nil
}

func (svc *mqttService) Close() error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	lgr.Logger.Info("mqtt publisher closing", slog.Any("published", svc.published))
	if svc.Client.IsConnected() {
		svc.Client.Disconnect(250)
	}
	return nil
}
