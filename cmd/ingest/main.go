package main

import (
	"context"
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
	"github.com/PhucLe1725/QM-Bookstore-sub000/internal/ingest"
	kafkax "github.com/PhucLe1725/QM-Bookstore-sub000/internal/kafka"
	"github.com/PhucLe1725/QM-Bookstore-sub000/internal/ledger"
	"github.com/PhucLe1725/QM-Bookstore-sub000/internal/order"
	"github.com/PhucLe1725/QM-Bookstore-sub000/internal/payment"
	"github.com/PhucLe1725/QM-Bookstore-sub000/internal/postgres"
	"github.com/PhucLe1725/QM-Bookstore-sub000/internal/redisx"
	"github.com/PhucLe1725/QM-Bookstore-sub000/internal/voucher"
)

// Bank notification timestamps come without a zone and are local to the
// bank's market.
const bankTimezone = "Asia/Ho_Chi_Minh"

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

	hub := kafkax.NewHub(cfg.KafkaBrokers, []string{events.TopicOrderPaid}, 256, log)
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
		Store:   orderRepo,
		Cart:    cartRepo,
		Catalog: &catalog.Repo{DB: db},
		Events:  hub,
		Redis:   rdb,
		Cfg:     cfg.Business,
		Name:    cfg.ServiceName + "-ingest",
		Log:     log,
	}

	loc, err := time.LoadLocation(bankTimezone)
	if err != nil {
		loc = time.UTC
	}

	worker := ingest.NewWorker(
		ingest.NewGatewayClient(cfg.MailGatewayURL),
		paymentRepo,
		svc,
		rdb,
		log,
		cfg.Business.BankSender,
		cfg.MailBatchSize,
		cfg.PollInterval,
		cfg.Business.OrderCodePrefix,
		loc,
	)

	go worker.Run(ctx)
	log.Info("ingest worker started",
		zap.String("gateway", cfg.MailGatewayURL),
		zap.Duration("interval", cfg.PollInterval))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	cancel()
	hub.Close()
	hub.WaitClosed()
}
