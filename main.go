package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"brewdesk-alert-services/internal/bridge"
	"brewdesk-alert-services/internal/config"
	"brewdesk-alert-services/internal/events"
	httpapi "brewdesk-alert-services/internal/http"
	"brewdesk-alert-services/internal/logger"
	"brewdesk-alert-services/internal/orderapi"
	"brewdesk-alert-services/internal/session"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log, err := logger.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	var publisher *events.Publisher
	if cfg.RabbitMQURL != "" {
		pub, err := events.New(cfg.RabbitMQURL)
		if err != nil {
			if cfg.Env == "production" {
				log.Fatal("rabbitmq connection failed", zap.Error(err))
			}
			log.Warn("rabbitmq connection failed; continuing without events", zap.Error(err))
		}
		if pub != nil {
			if err := pub.EnsureExchange(events.Exchange); err != nil {
				if cfg.Env == "production" {
					log.Fatal("rabbitmq exchange failed", zap.Error(err))
				}
				log.Warn("rabbitmq exchange failed; continuing without events", zap.Error(err))
				_ = pub.Close()
				pub = nil
			}
		}
		publisher = pub
		if pub != nil {
			defer pub.Close()
			log.Info("disposition events enabled", zap.String("exchange", events.Exchange))
		}
	} else {
		log.Info("disposition events disabled (RABBITMQ_URL is empty)")
	}

	hub := bridge.NewHub(log)
	orders := orderapi.New(cfg.OrderAPIBaseURL, cfg.OrderAPITimeout)

	var sink session.EventSink
	if publisher != nil {
		sink = publisher
	}
	sessions := session.NewManager(log, cfg, orders, hub, sink)

	ctx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	sessions.StartJanitor(ctx)

	apiServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      httpapi.NewRouter(log, cfg, sessions, hub),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("alert console api ready", zap.String("base", "/api/console"))
		log.Info("host bridge ready", zap.String("ws", "/ws/host"), zap.String("push", "/api/host/push"))
		log.Info("alert service listening", zap.String("addr", cfg.HTTPAddr))
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctxShutdown); err != nil {
		log.Error("http server shutdown failed", zap.Error(err))
	}
}
