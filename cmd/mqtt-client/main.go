package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/nexmqtt/client"
	"github.com/nexmqtt/client/packet"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	c, err := mqtt.ConnectAndSubscribe(ctx,
		mqtt.URL("mqtt://127.0.0.1:1883"),
		mqtt.AutoReconnect(5*time.Second),
		mqtt.Subscription(
			packet.Subscription{TopicFilter: "+"},
			packet.Subscription{TopicFilter: "a/b/c"},
		),
	)
	if err != nil {
		log.Fatal(err)
	}
	c.OnMessage(func(msg *packet.Message) {
		log.Printf("on: %s %s", msg.TopicName, msg.Content)
	})

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			payload := []byte(time.Now().Format("2006-01-02 15:04:05"))
			if err := c.Publish(ctx, "12345", payload, 0, false); err != nil {
				log.Printf("%v", err)
			}
			time.Sleep(time.Second)
		}
	})

	group.Go(func() error {
		defer cancel()
		ignore := make(chan os.Signal, 1)
		sign := make(chan os.Signal, 1)

		signal.Notify(ignore, syscall.SIGHUP) // 终端挂起或者控制进程终止(hang up)
		signal.Notify(sign, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

		select {
		case <-ctx.Done():
			log.Printf("ctx done")
			return ctx.Err()
		case sig := <-sign:
			return fmt.Errorf("got sign: %s", sig)
		}
	})

	if err := group.Wait(); err != nil {
		log.Println(err)
	}
	c.Disconnect(packet.ReasonCode{Code: 0x00})
}
