package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/aitabderrahimhamou/MGL842-Order-Microservice/internal/config"
	"github.com/aitabderrahimhamou/MGL842-Order-Microservice/internal/consumer"
	"github.com/aitabderrahimhamou/MGL842-Order-Microservice/internal/model"
	"github.com/aitabderrahimhamou/MGL842-Order-Microservice/internal/oracle"
	"github.com/aitabderrahimhamou/MGL842-Order-Microservice/internal/pipeline"
	"github.com/aitabderrahimhamou/MGL842-Order-Microservice/internal/publisher"
	"github.com/aitabderrahimhamou/MGL842-Order-Microservice/internal/server"
	"github.com/aitabderrahimhamou/MGL842-Order-Microservice/internal/store"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "orderservice",
		Short: "Order microservice",
		Long:  "Consumes order-placed events from the orders queue, persists them and forwards fulfillment events to the products queue.",
	}
	rootCmd.PersistentFlags().String("config", "", "path to a YAML config file")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(publishCmd())
	rootCmd.AddCommand(oracleCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the consumer loop and the HTTP surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			pool, err := store.NewPool(ctx, cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("unable to connect to database: %w", err)
			}
			defer pool.Close()
			logger.Info("connected to PostgreSQL")

			orders := store.NewOrderStore(pool)
			if err := orders.EnsureSchema(ctx); err != nil {
				return err
			}

			conn, err := consumer.Dial(cfg.AMQPURL, cfg.ConnectAttempts, cfg.ConnectDelay, logger)
			if err != nil {
				return err
			}
			defer conn.Close()
			logger.Info("connected to RabbitMQ")

			pub, err := publisher.NewRabbitMQPublisher(conn, cfg.OutboundQueue)
			if err != nil {
				return err
			}
			defer pub.Close()

			checker := oracle.Disabled()
			if cfg.OracleURL != "" {
				logger.Warn("fault-injection oracle enabled", slog.String("url", cfg.OracleURL))
				checker = oracle.New(cfg.OracleURL)
			}

			pl := pipeline.New(orders, pub, checker, logger.With(slog.String("component", "pipeline")))
			cons, err := consumer.New(conn, cfg.InboundQueue, pl, logger.With(slog.String("component", "consumer")))
			if err != nil {
				return err
			}
			defer cons.Close()

			healthy := func(ctx context.Context) error {
				if conn.IsClosed() {
					return errors.New("broker connection closed")
				}
				return orders.Healthy(ctx)
			}
			httpSrv := &http.Server{
				Addr:    cfg.HTTPAddr,
				Handler: server.New(orders, healthy, cfg.JWTSecret, logger.With(slog.String("component", "http"))).Handler(),
			}

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return cons.Run(ctx)
			})
			g.Go(func() error {
				logger.Info("http server listening", slog.String("addr", cfg.HTTPAddr))
				if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return httpSrv.Shutdown(shutdownCtx)
			})

			if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			logger.Info("shut down cleanly")
			return nil
		},
	}
}

func publishCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Inject synthetic order events onto the orders queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			username, _ := cmd.Flags().GetString("user")
			prices, _ := cmd.Flags().GetFloat64Slice("price")
			count, _ := cmd.Flags().GetInt("count")
			if count <= 0 {
				count = 1
			}

			conn, err := consumer.Dial(cfg.AMQPURL, cfg.ConnectAttempts, cfg.ConnectDelay, logger)
			if err != nil {
				return err
			}
			defer conn.Close()

			ch, err := conn.Channel()
			if err != nil {
				return fmt.Errorf("failed to open a channel: %w", err)
			}
			defer ch.Close()
			if _, err := ch.QueueDeclare(cfg.InboundQueue, true, false, false, false, nil); err != nil {
				return fmt.Errorf("failed to declare queue %s: %w", cfg.InboundQueue, err)
			}

			products := make([]model.Product, 0, len(prices))
			for i, p := range prices {
				products = append(products, model.Product{ID: fmt.Sprintf("p%d", i+1), Price: p})
			}

			start := time.Now()
			var wg sync.WaitGroup
			for i := 0; i < count; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					ev := model.OrderEvent{
						OrderID:  uuid.New().String(),
						Username: username,
						Products: products,
					}
					body, err := json.Marshal(ev)
					if err != nil {
						logger.Error("failed to encode event", slog.String("error", err.Error()))
						return
					}
					err = ch.PublishWithContext(cmd.Context(), "", cfg.InboundQueue, false, false, amqp.Publishing{
						MessageId:    uuid.New().String(),
						ContentType:  "application/json",
						Body:         body,
						DeliveryMode: amqp.Persistent,
					})
					if err != nil {
						logger.Error("failed to publish event", slog.String("error", err.Error()))
						return
					}
					logger.Info("published order event",
						slog.String("queue", cfg.InboundQueue),
						slog.String("order_id", ev.OrderID),
					)
				}()
			}
			wg.Wait()
			logger.Info("done", slog.Int("count", count), slog.Duration("elapsed", time.Since(start)))
			return nil
		},
	}
	cmd.Flags().String("user", "alice", "username on the injected events")
	cmd.Flags().Float64Slice("price", []float64{3, 5}, "line item prices")
	cmd.Flags().Int("count", 1, "number of events to inject concurrently")
	return cmd
}

func oracleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "oracle",
		Short: "Inspect the fault-injection counter",
	}
	cmd.PersistentFlags().String("url", "http://localhost:4000", "oracle base URL")

	get := &cobra.Command{
		Use:   "get",
		Short: "Print the current counter value",
		RunE: func(cmd *cobra.Command, args []string) error {
			url, _ := cmd.Flags().GetString("url")
			value, err := oracle.New(url).Value(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println(value)
			return nil
		},
	}
	increment := &cobra.Command{
		Use:   "increment",
		Short: "Advance the counter by one",
		RunE: func(cmd *cobra.Command, args []string) error {
			url, _ := cmd.Flags().GetString("url")
			return oracle.New(url).Increment(cmd.Context())
		},
	}
	cmd.AddCommand(get, increment)
	return cmd
}
