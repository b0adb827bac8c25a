package main

import (
	"fmt"
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/zachetka/backend/core"
	"github.com/zachetka/backend/core/course"
	"github.com/zachetka/backend/core/results"
	"github.com/zachetka/backend/core/student"
	logsvc "github.com/zachetka/backend/services/logger"
	"github.com/zachetka/backend/storage/database"
	sqlxrepos "github.com/zachetka/backend/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()

	appLogger := logsvc.NewRollbarLogger(logger, conf)
	appLogger.Enable(!conf.Debug)

	// set up DB
	errAndDie(database.CreateIfNotExist(conf))
	rawDB, err := database.Open(conf)
	errAndDie(err)
	defer func() { _ = rawDB.Close() }()
	errAndDie(rawDB.Ping())
	db := sqlx.NewDb(rawDB, conf.Database.Engine)

	resultsStore := sqlxrepos.NewResultsStore(db)
	courseRepo := sqlxrepos.NewCourseRepository(db)

	// start CLI
	cli := commandLine{
		db:         rawDB,
		studentSvc: student.NewService(sqlxrepos.NewStudentRepository(db), resultsStore),
		courseSvc:  course.NewService(courseRepo),
		resultsSvc: results.NewService(resultsStore, appLogger),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(fmt.Sprintf("%+v", err))
	}
}
