package main

import (
	"log"
	"os"

	"github.com/eventyay/cfp/core"
	"github.com/eventyay/cfp/core/schedule"
	"github.com/eventyay/cfp/core/submission"
	"github.com/eventyay/cfp/core/user"
	appfs "github.com/eventyay/cfp/fs"
	emailsvc "github.com/eventyay/cfp/services/email"
	logsvc "github.com/eventyay/cfp/services/logger"
	"github.com/eventyay/cfp/storage/database"
	sqlxrepos "github.com/eventyay/cfp/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	core.TemplateFS = appfs.FS
	if core.Conf.DatabaseURL == "" {
		logger.Fatal("DATABASEURL must be set")
	}

	// set up DB
	db, err := database.Open(core.Conf)
	errAndDie(err)
	defer db.Close()

	appLogger := logsvc.NewRollbarLogger(logger, core.Conf)
	appLogger.Enable(false) // CLI errors stay local

	subRepo := sqlxrepos.NewSubmissionRepository(db)
	schedSvc := schedule.NewService(sqlxrepos.NewScheduleRepository(db))
	audit := sqlxrepos.NewActionLog(db, appLogger)

	cli := commandLine{
		db:     db,
		usrSvc: user.NewService(sqlxrepos.NewUserRepository(db), emailsvc.NewConsoleService()),
		subSvc: submission.NewService(subRepo, schedSvc, emailsvc.NewConsoleService(), audit, appLogger),
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
		logger.Fatal(err)
	}
}
