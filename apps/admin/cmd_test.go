package main

import (
	"database/sql"
	"fmt"
	"strconv"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/eventyay/cfp/core"
	"github.com/eventyay/cfp/core/schedule"
	"github.com/eventyay/cfp/core/submission"
	"github.com/eventyay/cfp/core/user"
	appfs "github.com/eventyay/cfp/fs"
	emailsvc "github.com/eventyay/cfp/services/email"
	inmemdb "github.com/eventyay/cfp/storage/database/inmem"
)

type testLogger struct{}

func (testLogger) Debug(string, ...interface{}) {}
func (testLogger) Info(string, ...interface{})  {}
func (testLogger) Warn(string, ...interface{})  {}
func (testLogger) Error(string, ...interface{}) {}
func (testLogger) Fatal(string, ...interface{}) {}

type noopAudit struct{}

func (noopAudit) LogAction(string, int, map[string]interface{}) {}

var (
	usrSvc *user.Service
	subSvc *submission.Service
)

func setup(t *testing.T) *commandLine {
	t.Helper()
	core.TemplateFS = appfs.FS

	db := inmemdb.Open()
	usrSvc = user.NewService(inmemdb.NewUserRepository(db), emailsvc.NewConsoleServiceMock())
	schedSvc := schedule.NewService(inmemdb.NewScheduleRepository(db))
	subSvc = submission.NewService(
		inmemdb.NewSubmissionRepository(db), schedSvc,
		emailsvc.NewConsoleServiceMock(), noopAudit{}, testLogger{},
	)
	return &commandLine{
		db:     &sqlx.DB{}, // only touched by the mocked migrate runner
		usrSvc: usrSvc,
		subSvc: subSvc,
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func checkCliErr(t *testing.T, tt cliTest, err error) {
	t.Helper()
	if err == nil {
		if tt.wantErr != nil || tt.wantErrStr != "" {
			t.Errorf("cli.run() error = nil, want %v%s", tt.wantErr, tt.wantErrStr)
		}
		return
	}
	if tt.wantErr != nil {
		if err != tt.wantErr {
			t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
		}
	} else if tt.wantErrStr != "" {
		if err.Error() != tt.wantErrStr {
			t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
		}
	} else {
		t.Errorf("cli.run() unexpected error = %v", err)
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s requires a VERSION argument", command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand defaults to up", args: []string{"migrate"}},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to requires a VERSION argument"},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		t.Run(tt.name, func(t *testing.T) {
			checkCliErr(t, tt, cli.run(args))
		})
	}
}

func Test_commandLine_addOrganizer(t *testing.T) {
	cli := setup(t)

	existing, err := usrSvc.Register(user.NewUser{
		Name: "User", Email: "awe@test.cd",
		Password: "S3cret!Pass", PasswordConfirm: "S3cret!Pass",
	})
	if err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no email", args: []string{"addorganizer", "-name", "Lol"}, wantErr: errHelp},
		{name: "new account but no password", args: []string{"addorganizer", "-name", "Lol", "-email", "lol@test.cd"}, wantErr: errHelp},
		{name: "promote existing account", args: []string{"addorganizer", "-email", existing.Email}},
		{name: "create new organizer", args: []string{"addorganizer", "-name", "Orga", "-email", "orga@test.cd"}, extra: extra{pwd: "S3cret!Pass"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			checkCliErr(t, tt, err)
			if err != nil {
				return
			}
			if len(tt.args) > 0 && tt.args[0] == "addorganizer" {
				email := tt.args[len(tt.args)-1]
				usr, err := usrSvc.GetByEmail(email)
				if err != nil {
					t.Fatalf("GetByEmail(%s) failed: %v", email, err)
				}
				if !usr.IsOrganizer {
					t.Errorf("%s should be an organizer", email)
				}
			}
		})
	}
}

func Test_commandLine_addSpeaker(t *testing.T) {
	cli := setup(t)

	usr, err := usrSvc.Register(user.NewUser{
		Name: "Ada", Email: "ada@test.cd",
		Password: "S3cret!Pass", PasswordConfirm: "S3cret!Pass",
	})
	if err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	sub, err := subSvc.Create(submission.NewSubmission{
		EventSlug: "democon", Title: "A talk", Abstract: "About things.", SubmissionTypeID: 1,
	}, user.User{})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	tests := []cliTest{
		{name: "no args", args: []string{"addspeaker"}, wantErr: errHelp},
		{name: "unknown code", args: []string{"addspeaker", "-code", "NOSUCH", "-email", usr.Email}, wantErr: submission.ErrNotFound},
		{name: "unknown email", args: []string{"addspeaker", "-code", sub.Code, "-email", "lol@test.cd"}, wantErr: user.ErrNotFound},
		{name: "ok", args: []string{"addspeaker", "-code", sub.Code, "-email", usr.Email}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		t.Run(tt.name, func(t *testing.T) {
			checkCliErr(t, tt, cli.run(args))
		})
	}

	refreshed, err := subSvc.GetByCode(sub.Code)
	if err != nil {
		t.Fatalf("GetByCode() failed: %v", err)
	}
	if len(refreshed.SpeakerIDs) != 1 || refreshed.SpeakerIDs[0] != usr.ID {
		t.Errorf("speaker not attached; SpeakerIDs = %v", refreshed.SpeakerIDs)
	}
}

func Test_commandLine_forceState(t *testing.T) {
	cli := setup(t)

	sub, err := subSvc.Create(submission.NewSubmission{
		EventSlug: "democon", Title: "A talk", Abstract: "About things.", SubmissionTypeID: 1,
	}, user.User{})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	tests := []cliTest{
		{name: "no args", args: []string{"forcestate"}, wantErr: errHelp},
		{name: "unknown state", args: []string{"forcestate", "-code", sub.Code, "-state", "lol"}, wantErrStr: "unknown state \"lol\""},
		{name: "unknown code", args: []string{"forcestate", "-code", "NOSUCH", "-state", "accepted"}, wantErr: submission.ErrNotFound},
		{name: "forced jump", args: []string{"forcestate", "-code", sub.Code, "-state", "Confirmed"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		t.Run(tt.name, func(t *testing.T) {
			checkCliErr(t, tt, cli.run(args))
		})
	}

	refreshed, err := subSvc.GetByCode(sub.Code)
	if err != nil {
		t.Fatalf("GetByCode() failed: %v", err)
	}
	if refreshed.Status != submission.StatusConfirmed {
		t.Errorf("Status = %s, want %s", refreshed.Status, submission.StatusConfirmed)
	}
}
