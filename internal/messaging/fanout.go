package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"

	"github.com/redis/go-redis/v9"
)

const userChannelPrefix = "messages:user:"

// UserChannel is the Redis channel carrying events for username.
func UserChannel(username string) string {
	return userChannelPrefix + username
}

// Fanout relays events through Redis so every instance can reach the
// connections it holds. With a nil client it delivers to the local hub only.
type Fanout struct {
	rdb *redis.Client
	hub *Hub
	log *slog.Logger
}

var _ Publisher = (*Fanout)(nil)

func NewFanout(rdb *redis.Client, hub *Hub) *Fanout {
	return &Fanout{rdb: rdb, hub: hub, log: slog.With("component", "fanout")}
}

func (f *Fanout) Publish(ctx context.Context, username string, evt Event) {
	if f.rdb == nil {
		f.hub.Publish(ctx, username, evt)
		return
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		f.log.Error("marshal event", "type", evt.Type, "error", err)
		return
	}
	if err := f.rdb.Publish(ctx, UserChannel(username), payload).Err(); err != nil {
		f.log.Warn("redis publish failed, delivering locally", "username", username, "error", err)
		f.hub.deliver(username, payload)
	}
}

// Start subscribes to every user channel and forwards payloads to the local
// hub until ctx is done. It returns once the subscription is confirmed.
func (f *Fanout) Start(ctx context.Context) error {
	if f.rdb == nil {
		return nil
	}
	sub := f.rdb.PSubscribe(ctx, userChannelPrefix+"*")
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s*: %w", userChannelPrefix, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				f.forward(msg)
			}
		}
	}()
	return nil
}

func (f *Fanout) forward(msg *redis.Message) {
	defer func() {
		if r := recover(); r != nil {
			f.log.Error("panic in fanout subscriber", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	username := strings.TrimPrefix(msg.Channel, userChannelPrefix)
	if username == "" {
		return
	}
	f.hub.deliver(username, []byte(msg.Payload))
}
