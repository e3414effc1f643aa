// Package broker publishes distribution snapshots to MQTT so that other
// systems on the grid can follow allocation changes.
package broker

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

const qos = 1

type Publisher struct {
	client mqtt.Client
	topic  string
}

func Connect(broker, clientID, topic string) (*Publisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Warn().Err(err).Str("broker", broker).Msg("mqtt connection lost")
		})
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	return &Publisher{client: client, topic: topic}, nil
}

// PublishDistribution sends payload as the retained latest snapshot.
func (p *Publisher) PublishDistribution(ctx context.Context, payload []byte) error {
	token := p.client.Publish(p.topic, qos, true, payload)
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("mqtt publish %s: %w", p.topic, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Publisher) Close() {
	p.client.Disconnect(250)
}

// Subscribe hands every message on topic to fn until ctx is done. fn runs on
// the paho router goroutine and must not block for long.
func Subscribe(ctx context.Context, broker, clientID, topic string, fn func(payload []byte)) error {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt connect: %w", token.Error())
	}
	defer client.Disconnect(250)

	handler := func(_ mqtt.Client, msg mqtt.Message) { fn(msg.Payload()) }
	if token := client.Subscribe(topic, qos, handler); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt subscribe %s: %w", topic, token.Error())
	}
	log.Info().Str("topic", topic).Msg("subscribed")

	<-ctx.Done()
	return nil
}
