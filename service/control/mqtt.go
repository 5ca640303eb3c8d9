package control

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/vs-segmenter/model"
	"github.com/khaledhikmat/vs-segmenter/service/config"
	"github.com/khaledhikmat/vs-segmenter/service/lgr"
)

type mqttService struct {
	Client mqtt.Client
	Topic  string

	mu     sync.Mutex
	stream chan model.StateTransition
}

// NewMQTT subscribes to JSON state transitions on the control topic.
func NewMQTT(cfgSvc config.IService, client mqtt.Client) IService {
	return &mqttService{
		Client: client,
		Topic:  cfgSvc.GetControlTopic(),
	}
}

func (svc *mqttService) Subscribe() (<-chan model.StateTransition, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if svc.stream != nil {
		return nil, xerrors.New("control mqtt service. Already subscribed. Unsubscribe first")
	}

	// Transitions are rare; a small buffer keeps the paho callback from blocking.
	svc.stream = make(chan model.StateTransition, 10)
	stream := svc.stream

	token := svc.Client.Subscribe(svc.Topic, 1, func(_ mqtt.Client, msg mqtt.Message) {
		st, err := Decode(msg.Payload())
		if err != nil {
			lgr.Logger.Warn("invalid state transition",
				slog.String("topic", msg.Topic()),
				slog.Any("error", err),
			)
			return
		}

		select {
		case stream <- st:
		default:
			lgr.Logger.Warn("control stream full, dropping state transition")
		}
	})

	if !token.WaitTimeout(5 * time.Second) {
		svc.stream = nil
		return nil, fmt.Errorf("control subscription timeout")
	}
	if err := token.Error(); err != nil {
		svc.stream = nil
		return nil, fmt.Errorf("control subscription failed: %w", err)
	}

	lgr.Logger.Info("subscribed to control topic", slog.String("topic", svc.Topic))
	return stream, nil
}

func (svc *mqttService) Unsubscribe() error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if svc.stream == nil {
		return xerrors.New("not subscribed yet. Subscribe first")
	}

	if svc.Client.IsConnected() {
		token := svc.Client.Unsubscribe(svc.Topic)
		token.Wait()
		if err := token.Error(); err != nil {
			return err
		}
	}

	svc.stream = nil
	return nil
}

// Decode parses a {"actions":[{"node":..,"action":..}]} payload.
func Decode(payload []byte) (model.StateTransition, error) {
	var st model.StateTransition
	if err := json.Unmarshal(payload, &st); err != nil {
		return model.StateTransition{}, err
	}
	return st, nil
}
