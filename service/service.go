package service

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"bookings/db"
	"bookings/db/bookings"
	"bookings/db/payments"
	"bookings/db/tickets"
	"bookings/http"
	"bookings/pubsub"
	"bookings/pubsub/bus"
	"bookings/pubsub/event"
	"bookings/pubsub/outbox"
	"bookings/reservation"
)

func init() {
	log.Init(logrus.InfoLevel)
}

type Service struct {
	db              *sqlx.DB
	watermillRouter *message.Router
	httpServer      *http.Server
}

func New(
	addr string,
	dbConn *sqlx.DB,
	redisClient *redis.Client,
	inventoryService http.InventoryService,
) Service {
	ticketsRepo := tickets.NewPostgresRepository(dbConn)
	bookingsRepo := bookings.NewPostgresRepository(dbConn)
	paymentsRepo := payments.NewPostgresRepository(dbConn)
	guard := reservation.NewGuard(redisClient, tickets.HoldDuration)

	watermillLogger := log.NewWatermill(log.FromContext(context.Background()))

	var redisPublisher message.Publisher
	redisPublisher = pubsub.NewRedisPublisher(redisClient, watermillLogger)
	redisPublisher = log.CorrelationPublisherDecorator{Publisher: redisPublisher}

	eventBus, err := bus.NewEventBus(redisPublisher)
	if err != nil {
		panic(fmt.Errorf("failed to create event bus: %w", err))
	}

	eventsHandler := event.NewHandler(
		eventBus,
		ticketsRepo,
		bookingsRepo,
	)

	postgresSubscriber := outbox.NewPostgresSubscriber(dbConn, watermillLogger)
	eventProcessorConfig := event.NewProcessorConfig(redisClient, watermillLogger)

	watermillRouter, err := pubsub.NewWatermillRouter(
		postgresSubscriber,
		redisPublisher,
		eventProcessorConfig,
		eventsHandler,
		watermillLogger,
	)
	if err != nil {
		panic(fmt.Errorf("failed to create watermill router: %w", err))
	}

	httpServer := http.NewServer(
		addr,
		inventoryService,
		guard,
		ticketsRepo,
		bookingsRepo,
		paymentsRepo,
	)

	return Service{
		dbConn,
		watermillRouter,
		httpServer,
	}
}

func (s Service) Run(ctx context.Context) error {
	if err := db.InitializeDatabaseSchema(s.db); err != nil {
		return fmt.Errorf("failed to initialize database schema: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.watermillRouter.Run(ctx)
	})

	g.Go(func() error {
		// we don't want to start HTTP server before Watermill router (so service won't be healthy before it's ready)
		<-s.watermillRouter.Running()

		err := s.httpServer.Run(ctx)
		if err != nil {
			return err
		}

		return nil
	})

	return g.Wait()
}
