// Command unhcr-salesforce runs the donation export worker pool: it
// drains the submission queue and pushes signed donations to the Give
// Clarity Salesforce endpoint.
//
// With -fielddoc it instead prints a CSV listing every CRM field the
// mapper can emit and exits.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/digitalist-se/unhcr-salesforce/export"
	"github.com/digitalist-se/unhcr-salesforce/store"
)

func main() {
	configPath := flag.String("config", "settings.yaml", "path to the YAML settings file")
	fieldDoc := flag.Bool("fielddoc", false, "print CRM field documentation as CSV and exit")
	flag.Parse()

	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to set up logging:", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(*configPath, *fieldDoc, log); err != nil {
		log.Fatal("exiting on error", zap.Error(err))
	}
}

func run(configPath string, fieldDoc bool, log *zap.Logger) error {
	file, err := os.Open(configPath)
	if err != nil {
		return fmt.Errorf("failed to open settings %w", err)
	}
	settings, err := export.LoadSettings(os.LookupEnv, file)
	file.Close()
	if err != nil {
		return err
	}

	if fieldDoc {
		csv, err := export.GenerateFieldDocumentation(settings).FormatCSV()
		if err != nil {
			return err
		}
		fmt.Print(csv)
		return nil
	}

	poll, err := time.ParseDuration(settings.Queue.PollInterval)
	if err != nil {
		return fmt.Errorf("bad queue poll interval %w", err)
	}

	db, err := gorm.Open(sqlite.Open(settings.Database.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to open database %w", err)
	}
	if err := store.AutoMigrate(db); err != nil {
		return fmt.Errorf("failed to migrate database %w", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return fmt.Errorf("failed to set up id generation %w", err)
	}

	submissions := store.NewSubmissions(db)
	orders := store.NewOrders(db)
	queue := &store.Queue{
		DB:          db,
		GenID:       node,
		Now:         time.Now,
		MaxAttempts: settings.Queue.MaxAttempts,
		RetryDelay:  poll,
	}

	bus := &export.Dispatcher{Log: log}
	recorder := export.OutcomeRecorder{Submissions: submissions, Orders: orders, Log: log}
	bus.Subscribe(recorder.HandleDonationCreated)

	worker := &export.Worker{
		Submissions: submissions,
		Orders:      orders,
		Gate:        export.Gate{PushUnsignedInterest: settings.AutogiroPush, Log: log},
		Mapper:      export.Mapper{Settings: settings, Now: time.Now},
		Submitter: export.Submitter{
			Client: export.GiveClarityClient{Settings: settings.API},
			Bus:    bus,
			Log:    log,
		},
		Log: log,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workers := settings.Queue.Workers
	if workers < 1 {
		workers = 1
	}
	log.Info("starting export workers", zap.Int("workers", workers))
	worker.RunPool(ctx, queue, workers, poll)
	log.Info("export workers stopped")
	return nil
}
