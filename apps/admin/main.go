package main

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/account"
	"github.com/trezcool/gradebook/core/attendance"
	"github.com/trezcool/gradebook/core/semester"
	logsvc "github.com/trezcool/gradebook/services/logger"
	"github.com/trezcool/gradebook/storage/database"
	sqlxrepos "github.com/trezcool/gradebook/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(os.Stdout, "ADMIN", conf)
	logger.Enable(!conf.Debug)

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	defer func() { _ = db.Close() }()

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	account.InitValidators(validate, translator)

	locks := core.NewKeyedRWMutex()
	accRepo, err := sqlxrepos.NewAccountRepository(db)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up account repository: %v", err), err)
	}
	semRepo, err := sqlxrepos.NewSemesterRepository(db, locks)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up semester repository: %v", err), err)
	}
	attRepo, err := sqlxrepos.NewAttendanceRepository(db, locks)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up attendance repository: %v", err), err)
	}

	// start CLI
	cli := commandLine{
		db:            db,
		accountSvc:    account.NewService(accRepo, validate, translator),
		semesterSvc:   semester.NewService(semRepo, logger),
		attendanceSvc: attendance.NewService(attRepo, logger, conf),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			fmt.Printf("\nerror: %s\n", err)
		}
		_ = db.Close()
		os.Exit(1)
	}
}
