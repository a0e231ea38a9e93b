package publish

import (
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

// MQTTNotifier pushes plan-published events so kiosks can refetch without
// waiting for their next version poll.
type MQTTNotifier struct {
	client mqtt.Client
}

var connectHandler mqtt.OnConnectHandler = func(client mqtt.Client) {
	log.Info().Msg("connected to MQTT broker")
}

var connectLostHandler mqtt.ConnectionLostHandler = func(client mqtt.Client, err error) {
	log.Warn().Err(err).Msg("MQTT connection lost")
}

// NewMQTTNotifier connects to the broker. Publishing is fire-and-forget;
// kiosks still poll, MQTT only shortens the window.
func NewMQTTNotifier(brokerURL, clientID string) (*MQTTNotifier, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.OnConnect = connectHandler
	opts.OnConnectionLost = connectLostHandler

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	return &MQTTNotifier{client: client}, nil
}

// PlanPublished announces the new plan version on the group's topic.
func (n *MQTTNotifier) PlanPublished(groupID int, versionToken string) {
	topic := fmt.Sprintf("groups/%d/loop", groupID)
	payload, err := json.Marshal(map[string]any{
		"group_id":     groupID,
		"plan_version": versionToken,
	})
	if err != nil {
		return
	}
	token := n.client.Publish(topic, 0, false, payload)
	go func() {
		token.Wait()
		if token.Error() != nil {
			log.Warn().Err(token.Error()).Str("topic", topic).Msg("plan update notify failed")
		}
	}()
}

// Close disconnects from the broker.
func (n *MQTTNotifier) Close() {
	n.client.Disconnect(250)
}
