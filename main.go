package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/jessevdk/go-flags"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"

	"bookings/gateway"
	"bookings/service"
	"bookings/tracing"
)

type options struct {
	Addr           string `long:"addr" env:"ADDR" default:":8080" description:"HTTP listen address"`
	PostgresURL    string `long:"postgres-url" env:"POSTGRES_URL" required:"true" description:"Postgres connection string"`
	RedisAddr      string `long:"redis-addr" env:"REDIS_ADDR" required:"true" description:"Redis address"`
	GatewayAddr    string `long:"gateway-addr" env:"GATEWAY_ADDR" required:"true" description:"Base URL of the API gateway fronting the ticket inventory"`
	JaegerEndpoint string `long:"jaeger-endpoint" env:"JAEGER_ENDPOINT" description:"Jaeger collector endpoint"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	traceProvider := tracing.ConfigureTraceProvider(opts.JaegerEndpoint, opts.GatewayAddr)
	defer func() {
		if err := traceProvider.Shutdown(context.Background()); err != nil {
			log.FromContext(ctx).WithError(err).Error("failed to shutdown trace provider")
		}
	}()

	sqlDB, err := otelsql.Open("postgres", opts.PostgresURL)
	if err != nil {
		panic(err)
	}
	dbConn := sqlx.NewDb(sqlDB, "postgres")
	defer dbConn.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr: opts.RedisAddr,
	})
	defer redisClient.Close()

	inventoryClient := gateway.NewInventoryClient(opts.GatewayAddr)

	svc := service.New(
		opts.Addr,
		dbConn,
		redisClient,
		inventoryClient,
	)

	if err := svc.Run(ctx); err != nil {
		panic(err)
	}
}
