package main

import (
	"errors"
	"flag"
	"fmt"
	"syscall"

	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/eventyay/cfp/core"
	"github.com/eventyay/cfp/core/submission"
	"github.com/eventyay/cfp/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db     *sqlx.DB
	usrSvc *user.Service
	subSvc *submission.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate [up|down|status|version...]                - run database migrations")
	fmt.Println("  addorganizer -name NAME -email EMAIL               - create an organizer account; the password is prompted")
	fmt.Println("  addspeaker -code CODE -email EMAIL                 - attach an existing account as speaker")
	fmt.Println("  forcestate -code CODE -state STATE                 - pin a proposal to a state, bypassing transition checks")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addOrganizerCmd := flag.NewFlagSet("addorganizer", flag.ExitOnError)
	addOrganizerName := addOrganizerCmd.String("name", "", "The organizer's full name.")
	addOrganizerEmail := addOrganizerCmd.String("email", "", "The organizer's email. The password will be prompted next for new accounts.")

	addSpeakerCmd := flag.NewFlagSet("addspeaker", flag.ExitOnError)
	addSpeakerCode := addSpeakerCmd.String("code", "", "The proposal code.")
	addSpeakerEmail := addSpeakerCmd.String("email", "", "The email of an existing account.")

	forceStateCmd := flag.NewFlagSet("forcestate", flag.ExitOnError)
	forceStateCode := forceStateCmd.String("code", "", "The proposal code.")
	forceStateState := forceStateCmd.String("state", "", "The target state.")

	switch args[1] {
	case "migrate":
		migrateArgs := args[2:]
		if len(migrateArgs) == 0 {
			migrateArgs = []string{"up"}
		}
		return cli.migrate(migrateArgs)
	case "addorganizer":
		if err := addOrganizerCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addOrganizerEmail == "" {
			addOrganizerCmd.Usage()
			return errHelp
		}
		return cli.addOrganizer(*addOrganizerName, *addOrganizerEmail)
	case "addspeaker":
		if err := addSpeakerCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addSpeakerCode == "" || *addSpeakerEmail == "" {
			addSpeakerCmd.Usage()
			return errHelp
		}
		return cli.addSpeaker(*addSpeakerCode, *addSpeakerEmail)
	case "forcestate":
		if err := forceStateCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *forceStateCode == "" || *forceStateState == "" {
			forceStateCmd.Usage()
			return errHelp
		}
		return cli.forceState(*forceStateCode, *forceStateState)
	default:
		cli.printUsage()
		return errHelp
	}
}

// addOrganizer promotes an existing account or registers a new one with
// organizer rights.
func (cli *commandLine) addOrganizer(name, email string) error {
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrSvc.MakeOrganizer(email)
	if err == nil {
		fmt.Printf("%s is now an organizer\n", usr.Email)
		return nil
	}
	if !errors.Is(err, user.ErrNotFound) {
		return err
	}

	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return err
	}
	if len(pwd) == 0 {
		return errHelp
	}

	nu := user.NewUser{
		Name:            name,
		Email:           email,
		Password:        string(pwd),
		PasswordConfirm: string(pwd),
	}
	if err = nu.Validate(cli.usrSvc); err != nil {
		return err
	}
	if _, err = cli.usrSvc.Register(nu); err != nil {
		return err
	}
	usr, err = cli.usrSvc.MakeOrganizer(email)
	if err != nil {
		return err
	}
	fmt.Printf("created organizer %s\n", usr.Email)
	return nil
}

func (cli *commandLine) addSpeaker(code, email string) error {
	usr, err := cli.usrSvc.GetByEmail(email)
	if err != nil {
		return err
	}
	sub, err := cli.subSvc.GetByCode(code)
	if err != nil {
		return err
	}
	if err = cli.subSvc.AddSpeaker(&sub, usr); err != nil {
		return err
	}
	fmt.Printf("%s is now a speaker of %s\n", usr.Email, sub.Code)
	return nil
}

func (cli *commandLine) forceState(code, state string) error {
	target := submission.Status(core.CleanString(state, true /* lower */))
	if !target.IsValid() {
		return fmt.Errorf("unknown state %q", state)
	}
	sub, err := cli.subSvc.GetByCode(code)
	if err != nil {
		return err
	}
	if err = cli.subSvc.ForceState(&sub, target, user.User{}); err != nil {
		return err
	}
	fmt.Printf("%s is now %s\n", sub.Code, sub.Status)
	return nil
}
