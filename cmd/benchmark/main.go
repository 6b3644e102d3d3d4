package main

import (
	"context"
	"fmt"
	"log"
	"time"

	mqtt "github.com/nexmqtt/client"
	"github.com/nexmqtt/client/packet"
	"golang.org/x/sync/errgroup"
)

func main() {
	group, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < 100; i++ {
		i := i
		group.Go(func() error {
			c, err := mqtt.ConnectAndSubscribe(ctx,
				mqtt.URL("mqtt://127.0.0.1:1883"),
				mqtt.ClientID(fmt.Sprintf("bench-%d", i)),
				mqtt.Subscription(
					packet.Subscription{TopicFilter: "+"},
					packet.Subscription{TopicFilter: "a/b/c"},
				),
			)
			if err != nil {
				return err
			}
			c.OnMessage(func(msg *packet.Message) {
				log.Printf("id=%s, msg=%s %s", c.ID(), msg.TopicName, msg.Content)
			})

			timer := time.NewTimer(time.Second)
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-timer.C:
					topic := fmt.Sprintf("topic-%d", i)
					if err := c.Publish(ctx, topic, []byte("hello world"), 0, false); err != nil {
						log.Printf("id=%s publish: %v", c.ID(), err)
					}
					timer.Reset(time.Second)
				}
			}
		})
	}
	if err := group.Wait(); err != nil {
		panic(err)
	}
}
