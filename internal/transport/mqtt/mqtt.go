// Package mqtt wraps github.com/eclipse/paho.mqtt.golang into the narrow
// broker client the bridge needs: connect, subscribe with a single ordered
// handler, publish. Grounded on the teacher's pkg/source/mqtt/mqtt.go, but
// simplified from a buffered-channel Source into a direct callback —
// Paho's default client already serializes message delivery to one
// goroutine in arrival order, which is exactly the cooperative
// single-threaded ingress model the bridge's pipeline assumes, so there is
// no need to re-buffer into a channel the way a generic connector would.
package mqtt

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/user/loxrelay"
)

// Handler is invoked once per delivered message, in arrival order.
type Handler func(topic string, payload []byte, retained bool)

// Broker is a thin wrapper around one Paho client.
type Broker struct {
	opts   *paho.ClientOptions
	client paho.Client
	log    loxrelay.Logger
}

// New builds a Broker for the given connection parameters. It does not
// connect until Connect is called.
func New(host string, port int, user, password, clientID string, log loxrelay.Logger) *Broker {
	opts := paho.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", host, port))
	if clientID != "" {
		opts.SetClientID(clientID)
	}
	if user != "" {
		opts.SetUsername(user)
		opts.SetPassword(password)
	}
	opts.SetCleanSession(true)
	opts.SetKeepAlive(30 * time.Second)
	opts.AutoReconnect = true
	opts.SetOrderMatters(true)

	return &Broker{opts: opts, log: log}
}

// Connect dials the broker and blocks until the handshake completes or
// times out.
func (b *Broker) Connect() error {
	b.client = paho.NewClient(b.opts)
	token := b.client.Connect()
	if !token.WaitTimeout(15 * time.Second) {
		return fmt.Errorf("mqtt: connect timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt: connect: %w", err)
	}
	return nil
}

// Subscribe subscribes to every topic filter at QoS 0 (spec §6: "at-most-
// once unless specified otherwise") and routes every delivered message
// through handler, in the order Paho hands them off.
func (b *Broker) Subscribe(topics []string, handler Handler) error {
	cb := func(_ paho.Client, m paho.Message) {
		payload := append([]byte(nil), m.Payload()...)
		handler(m.Topic(), payload, m.Retained())
	}
	for _, t := range topics {
		token := b.client.Subscribe(t, 0, cb)
		if token.Wait() && token.Error() != nil {
			return fmt.Errorf("mqtt: subscribe %s: %w", t, token.Error())
		}
	}
	return nil
}

// Publish implements loxrelay.Publisher.
func (b *Broker) Publish(topic, payload string, retain bool) error {
	if b.client == nil || !b.client.IsConnectionOpen() {
		return fmt.Errorf("mqtt: publish %s: not connected", topic)
	}
	token := b.client.Publish(topic, 0, retain, payload)
	token.Wait()
	return token.Error()
}

// Disconnect tears down the connection, waiting up to 250ms for in-flight
// work to drain.
func (b *Broker) Disconnect() {
	if b.client != nil {
		b.client.Disconnect(250)
	}
}
