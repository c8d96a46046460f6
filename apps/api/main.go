package main

import (
	"log"
	"os"
	"path/filepath"
	"time"

	echoapi "github.com/eventyay/cfp/apps/api/echo"
	"github.com/eventyay/cfp/core"
	"github.com/eventyay/cfp/core/cfp"
	"github.com/eventyay/cfp/core/schedule"
	"github.com/eventyay/cfp/core/submission"
	"github.com/eventyay/cfp/core/user"
	appfs "github.com/eventyay/cfp/fs"
	emailsvc "github.com/eventyay/cfp/services/email"
	logsvc "github.com/eventyay/cfp/services/logger"
	"github.com/eventyay/cfp/storage/database"
	inmemdb "github.com/eventyay/cfp/storage/database/inmem"
	sqlxrepos "github.com/eventyay/cfp/storage/database/sqlx"
	"github.com/eventyay/cfp/storage/filestage"
	"github.com/eventyay/cfp/storage/session"
)

func main() {
	core.TemplateFS = appfs.FS

	std := log.New(os.Stdout, core.Conf.AppName+" : ", log.LstdFlags|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(std, core.Conf)
	logger.Enable(!(core.Conf.Debug || core.Conf.TestMode))

	var mailSvc core.EmailService
	if core.Conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}

	var (
		usrRepo   user.Repository
		subRepo   submission.Repository
		schedRepo schedule.Repository
		events    cfp.EventSource
		audit     submission.ActionLogger
	)
	if core.Conf.DatabaseURL != "" {
		db, err := database.Open(core.Conf)
		if err != nil {
			logger.Fatal("opening database", err)
		}
		defer db.Close()

		usrRepo = sqlxrepos.NewUserRepository(db)
		subRepo = sqlxrepos.NewSubmissionRepository(db)
		schedRepo = sqlxrepos.NewScheduleRepository(db)
		events = sqlxrepos.NewEventSource(db)
		audit = sqlxrepos.NewActionLog(db, logger)
	} else {
		// no database configured: run fully in memory with a demo event
		db := inmemdb.Open()
		usrRepo = inmemdb.NewUserRepository(db)
		schedRepo = inmemdb.NewScheduleRepository(db)
		audit = logsvc.NewActionLog(logger)

		repo := inmemdb.NewSubmissionRepository(db)
		subRepo = repo
		src := inmemdb.NewEventSource(db)
		seedDemoEvent(src, repo)
		events = src
	}

	usrSvc := user.NewService(usrRepo, mailSvc)
	schedSvc := schedule.NewService(schedRepo)
	subSvc := submission.NewService(subRepo, schedSvc, mailSvc, audit, logger)

	store := session.NewDiskvDraftStore(filepath.Join(core.Conf.DraftDir, "drafts"))
	stager := filestage.New(filepath.Join(core.Conf.DraftDir, "files"))

	app := echoapi.NewServer(&echoapi.Options{
		Address:       core.Conf.ServerAddress,
		Logger:        logger,
		UserSvc:       usrSvc,
		SubmissionSvc: subSvc,
		Events:        events,
		Registry:      cfp.NewStepRegistry(),
		CfPDeps: &cfp.Deps{
			Submissions: subSvc,
			Users:       usrSvc,
			Store:       store,
			Stager:      stager,
			Mailer:      mailSvc,
			Logger:      logger,
		},
	})
	app.Start()
}

type demoSeeder interface {
	SeedSubmissionType(submission.SubmissionType) submission.SubmissionType
	SeedTrack(submission.Track) submission.Track
	SeedQuestion(submission.Question) submission.Question
}

type eventSeeder interface {
	SeedEvent(cfp.Event)
}

func seedDemoEvent(events eventSeeder, repo demoSeeder) {
	events.SeedEvent(cfp.Event{
		Slug:        "democon",
		Name:        "DemoCon",
		Locales:     []string{"en", "de"},
		CfPDeadline: time.Now().AddDate(1, 0, 0),
	})
	talk := repo.SeedSubmissionType(submission.SubmissionType{
		EventSlug: "democon", Name: "Talk", DefaultDuration: 30,
	})
	repo.SeedSubmissionType(submission.SubmissionType{
		EventSlug: "democon", Name: "Workshop", DefaultDuration: 90,
	})
	community := repo.SeedTrack(submission.Track{EventSlug: "democon", Name: "Community"})
	repo.SeedQuestion(submission.Question{
		EventSlug: "democon",
		Variant:   submission.QuestionText,
		Question:  "What do you expect the audience to take away?",
		Required:  true,
		TrackIDs:  []int{community.ID},
		Active:    true,
		Position:  1,
	})
	repo.SeedQuestion(submission.Question{
		EventSlug:         "democon",
		Variant:           submission.QuestionBoolean,
		Question:          "Have you given this talk before?",
		SubmissionTypeIDs: []int{talk.ID},
		Active:            true,
		Position:          2,
	})
}
