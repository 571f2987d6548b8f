package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/PhucLe1725/QM-Bookstore-sub000/internal/cart"
	"github.com/PhucLe1725/QM-Bookstore-sub000/internal/catalog"
	"github.com/PhucLe1725/QM-Bookstore-sub000/internal/config"
	"github.com/PhucLe1725/QM-Bookstore-sub000/internal/events"
	"github.com/PhucLe1725/QM-Bookstore-sub000/internal/httpx"
	kafkax "github.com/PhucLe1725/QM-Bookstore-sub000/internal/kafka"
	"github.com/PhucLe1725/QM-Bookstore-sub000/internal/ledger"
	"github.com/PhucLe1725/QM-Bookstore-sub000/internal/order"
	"github.com/PhucLe1725/QM-Bookstore-sub000/internal/payment"
	"github.com/PhucLe1725/QM-Bookstore-sub000/internal/postgres"
	"github.com/PhucLe1725/QM-Bookstore-sub000/internal/redisx"
	"github.com/PhucLe1725/QM-Bookstore-sub000/internal/voucher"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	newLogger := zap.NewProduction
	if cfg.Business.Bool("LOG_DEV", false) {
		newLogger = zap.NewDevelopment
	}
	log, err := newLogger()
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	if err := postgres.Bootstrap(ctx, db); err != nil {
		log.Fatal("schema bootstrap", zap.Error(err))
	}

	rdb := redisx.New(cfg.RedisAddr)
	defer func() { _ = rdb.Close() }()

	hub := kafkax.NewHub(cfg.KafkaBrokers, []string{
		events.TopicOrderCreated,
		events.TopicOrderPaid,
		events.TopicOrderCancelled,
		events.TopicStockPosted,
	}, 1024, log)
	hub.Start(ctx)

	ledgerRepo := &ledger.Repo{DB: db}
	cartRepo := &cart.Repo{DB: db}
	voucherRepo := &voucher.Repo{DB: db}
	paymentRepo := &payment.Repo{DB: db}
	orderRepo := &order.Repo{
		DB:         db,
		Ledger:     ledgerRepo,
		Carts:      cartRepo,
		Vouchers:   voucherRepo,
		Payments:   paymentRepo,
		CodePrefix: cfg.Business.OrderCodePrefix,
	}

	svc := &order.Service{
		Store:    orderRepo,
		Cart:     cartRepo,
		Catalog:  &catalog.Repo{DB: db},
		Vouchers: voucher.NewEngine(voucherRepo),
		Events:   hub,
		Redis:    rdb,
		Cfg:      cfg.Business,
		Name:     cfg.ServiceName,
		Log:      log,
	}

	router := httpx.NewRouter()
	(&httpx.OrdersHandler{Svc: svc}).Register(router)
	(&httpx.VouchersHandler{Repo: voucherRepo, Engine: voucher.NewEngine(voucherRepo)}).Register(router)
	(&httpx.LedgerHandler{Repo: ledgerRepo, Events: hub, Service: cfg.ServiceName}).Register(router)
	(&httpx.PaymentsHandler{Repo: paymentRepo}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)
	hub.Close()
	cancel()
	hub.WaitClosed()
}
