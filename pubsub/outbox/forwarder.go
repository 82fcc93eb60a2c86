package outbox

import (
	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/forwarder"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/sirupsen/logrus"
)

// AddForwarderHandler moves outbox rows written by NewPublisherForTx to the
// Redis publisher as part of the router's run loop.
func AddForwarderHandler(
	postgresSubscriber message.Subscriber,
	publisher message.Publisher,
	router *message.Router,
	logger watermill.LoggerAdapter,
) {
	_, err := forwarder.NewForwarder(postgresSubscriber, publisher, logger, forwarder.Config{
		ForwarderTopic: topic,
		Router:         router,
		Middlewares: []message.HandlerMiddleware{
			func(h message.HandlerFunc) message.HandlerFunc {
				return func(msg *message.Message) ([]*message.Message, error) {
					log.FromContext(msg.Context()).WithFields(logrus.Fields{
						"message_id": msg.UUID,
						"metadata":   msg.Metadata,
					}).Info("Forwarding message from outbox")

					return h(msg)
				}
			},
		},
	})
	if err != nil {
		panic(err)
	}
}
