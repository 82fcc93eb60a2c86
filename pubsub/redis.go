package pubsub

import (
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"

	"bookings/tracing"
)

func NewRedisPublisher(rdb *redis.Client, watermillLogger watermill.LoggerAdapter) message.Publisher {
	var publisher message.Publisher
	publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{
		Client: rdb,
	}, watermillLogger)
	if err != nil {
		panic(err)
	}

	publisher = PartitionKeyDecorator{Publisher: publisher}
	publisher = tracing.PublisherDecorator{Publisher: publisher}
	return publisher
}

// PartitionKeyDecorator stamps the booking id of saga events into message
// metadata. Redis Streams does not order by key, but a transport that does
// can use it to deliver all messages of one booking in publish order.
type PartitionKeyDecorator struct {
	message.Publisher
}

func (d PartitionKeyDecorator) Publish(topic string, messages ...*message.Message) error {
	for i := range messages {
		if messages[i].Metadata.Get("partition_key") != "" {
			continue
		}

		var payload struct {
			BookingID string `json:"booking_id"`
		}
		if err := json.Unmarshal(messages[i].Payload, &payload); err != nil || payload.BookingID == "" {
			continue
		}

		messages[i].Metadata.Set("partition_key", payload.BookingID)
	}

	return d.Publisher.Publish(topic, messages...)
}
