package mqtt

import (
	"context"
	"crypto/rand"
	"fmt"

	"github.com/nexmqtt/client/packet"
)

// Request implements the v5 request/response pattern (ResponseTopic +
// CorrelationData): publish to topic, subscribe to a private response
// topic, and wait for the first reply published on that topic. The reply's
// CorrelationData is not compared with the request's.
// Grounded on gonzalop-mq/examples/v5_request_response/main.go.
//
// responseTopic should be a filter the broker will not route to any other
// client (typically under the client's own $share or a per-client prefix);
// Request subscribes to it for the duration of the call and unsubscribes
// afterward.
func (c *Client) Request(ctx context.Context, topic string, payload []byte, responseTopic string) ([]byte, error) {
	if c.opts.version != packet.VERSION500 {
		return nil, fmt.Errorf("mqtt: Request requires protocol version 5.0.0")
	}

	correlation := make([]byte, 8)
	if _, err := rand.Read(correlation); err != nil {
		return nil, fmt.Errorf("mqtt: generating correlation data: %w", err)
	}

	// Event.Message carries no Props, so correlation is by response topic
	// rather than by matching CorrelationData; responseTopic should
	// therefore be unique to this in-flight call.
	reply := make(chan []byte, 1)
	handler := func(msg *packet.Message) {
		if msg.TopicName != responseTopic {
			return
		}
		select {
		case reply <- msg.Content:
		default:
		}
	}

	if _, err := c.Subscribe(ctx, packet.Subscription{TopicFilter: responseTopic}); err != nil {
		return nil, fmt.Errorf("mqtt: subscribing to response topic: %w", err)
	}
	defer func() { _, _ = c.Unsubscribe(context.Background(), responseTopic) }()

	stop := make(chan struct{})
	go func() {
		for ev := range c.Events() {
			select {
			case <-stop:
				return
			default:
			}
			if ev.Kind == EventPublish && ev.Message != nil {
				handler(ev.Message)
			}
		}
	}()
	defer close(stop)

	props := &packet.PublishProperties{
		ResponseTopic:   packet.ReasonString(responseTopic),
		CorrelationData: packet.CorrelationData(correlation),
	}

	if err := c.PublishWithProperties(ctx, topic, payload, 1, false, props); err != nil {
		return nil, fmt.Errorf("mqtt: publishing request: %w", err)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case body := <-reply:
		return body, nil
	}
}
