package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// AvailabilityPubSub announces seat-count changes so other instances
// drop their cached availability for the affected course.
type AvailabilityPubSub struct {
	rdb     *redis.Client
	channel string
}

func NewAvailabilityPubSub(rdb *redis.Client) *AvailabilityPubSub {
	return &AvailabilityPubSub{
		rdb:     rdb,
		channel: ChannelAvailabilityChanged(),
	}
}

type availabilityChangedMsg struct {
	Type     string `json:"type"`
	CourseID int64  `json:"course_id"`
	TsUnix   int64  `json:"ts_unix"`
}

func (p *AvailabilityPubSub) PublishCourseChanged(ctx context.Context, courseID int64) error {
	msg := availabilityChangedMsg{
		Type:     "availability_changed",
		CourseID: courseID,
		TsUnix:   time.Now().Unix(),
	}

	b, _ := json.Marshal(msg)

	return p.rdb.Publish(ctx, p.channel, b).Err()
}

func (p *AvailabilityPubSub) Subscribe(ctx context.Context, handler func(ctx context.Context, courseID int64)) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var ev availabilityChangedMsg
			if err := json.Unmarshal([]byte(m.Payload), &ev); err == nil &&
				ev.CourseID != 0 {
				handler(ctx, ev.CourseID)
			}
		}
	}
}
