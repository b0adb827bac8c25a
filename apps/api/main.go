package main

import (
	"context"
	"database/sql"
	"expvar"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/zachetka/backend/apps/api/echo"
	"github.com/zachetka/backend/core"
	"github.com/zachetka/backend/core/course"
	"github.com/zachetka/backend/core/results"
	"github.com/zachetka/backend/core/student"
	"github.com/zachetka/backend/core/syncjob"
	emailsvc "github.com/zachetka/backend/services/email"
	logsvc "github.com/zachetka/backend/services/logger"
	notifysvc "github.com/zachetka/backend/services/notify"
	"github.com/zachetka/backend/services/yacontest"
	"github.com/zachetka/backend/storage/database"
	sqlxrepos "github.com/zachetka/backend/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up DB
	rawDB, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = rawDB.Close(); err != nil {
			logger.Error("closing database", err)
		}
	}()
	db := sqlx.NewDb(rawDB, conf.Database.Engine)

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	notifier := setUpNotifier(conf, logger, mailSvc)

	resultsStore := sqlxrepos.NewResultsStore(db)
	studentSvc := student.NewService(sqlxrepos.NewStudentRepository(db), resultsStore)
	courseRepo := sqlxrepos.NewCourseRepository(db)
	courseSvc := course.NewService(courseRepo)
	resultsSvc := results.NewService(resultsStore, logger)
	orchestrator := syncjob.NewOrchestrator(
		courseRepo, resultsSvc, yacontest.NewClient(conf, logger), logger, notifier)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	core.InitValidators(validator.New(), newTranslator())

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err = http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:         conf,
			Logger:       logger,
			StudentSvc:   studentSvc,
			CourseSvc:    courseSvc,
			ResultsSvc:   resultsSvc,
			Orchestrator: orchestrator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
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

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
