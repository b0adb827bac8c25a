package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/zachetka/backend/core"
	"github.com/zachetka/backend/core/results"
	"github.com/zachetka/backend/core/syncjob"
	emailsvc "github.com/zachetka/backend/services/email"
	logsvc "github.com/zachetka/backend/services/logger"
	notifysvc "github.com/zachetka/backend/services/notify"
	"github.com/zachetka/backend/services/yacontest"
	"github.com/zachetka/backend/storage/database"
	sqlxrepos "github.com/zachetka/backend/storage/database/sqlx"
)

// The scheduler drives the periodic sync: one full pass over all active
// courses every conf.Sync.Interval. Runs never overlap; if a pass takes
// longer than the interval the next tick is skipped.
func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "SYNC : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	if !conf.Sync.Enabled {
		logger.Info("sync is disabled, exiting")
		return
	}

	rawDB, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() { _ = rawDB.Close() }()
	db := sqlx.NewDb(rawDB, conf.Database.Engine)

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	notifier := setUpNotifier(conf, logger, mailSvc)

	resultsStore := sqlxrepos.NewResultsStore(db)
	courseRepo := sqlxrepos.NewCourseRepository(db)
	resultsSvc := results.NewService(resultsStore, logger)
	orchestrator := syncjob.NewOrchestrator(
		courseRepo, resultsSvc, yacontest.NewClient(conf, logger), logger, notifier)

	logger.Info(fmt.Sprintf("Scheduler starting : interval %s", conf.Sync.Interval))
	defer logger.Info("Scheduler stopped")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(conf.Sync.Interval)
	defer ticker.Stop()

	// buffered guard: holds a token while a pass is running
	inflight := make(chan struct{}, 1)
	runPass := func() {
		select {
		case inflight <- struct{}{}:
		default:
			logger.Warn("previous sync pass still running, skipping tick")
			return
		}
		go func() {
			defer func() { <-inflight }()
			started := time.Now()
			orchestrator.RunOnce(ctx)
			logger.Info(fmt.Sprintf("sync pass finished in %s", time.Since(started)))
		}()
	}

	runPass() // first pass immediately, then on every tick
	for {
		select {
		case <-ticker.C:
			runPass()
		case sig := <-shutdown:
			logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))
			cancel()
			// wait for an in-flight pass to drain
			inflight <- struct{}{}
			return
		}
	}
}

func setUpDB(conf *core.Config) (*sql.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}
	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}
	if err = database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func setUpNotifier(conf *core.Config, logger core.Logger, mailSvc core.EmailService) core.Notifier {
	sinks := core.MultiNotifier{notifysvc.NewConsoleNotifier(logger)}
	if conf.Telegram.Token != "" {
		tg, err := notifysvc.NewTelegramNotifier(conf, logger)
		if err != nil {
			logger.Error(fmt.Sprintf("setting up telegram notifier: %v", err), err)
		} else {
			sinks = append(sinks, tg)
		}
	}
	if conf.OperatorEmail != "" {
		sinks = append(sinks, notifysvc.NewEmailNotifier(conf, mailSvc))
	}
	return sinks
}
