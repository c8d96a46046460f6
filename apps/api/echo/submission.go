package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/eventyay/cfp/core"
	"github.com/eventyay/cfp/core/submission"
	"github.com/eventyay/cfp/core/user"
)

type submissionApi struct {
	svc    *submission.Service
	usrSvc *user.Service
}

func registerSubmissionAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *submission.Service, usrSvc *user.Service) {
	api := submissionApi{svc: svc, usrSvc: usrSvc}

	g.GET("/events/:event/submissions", api.list, jwt, organizerMiddleware())

	sg := g.Group("/submissions/:code", jwt)

	// speakers of the submission may act on their own proposal
	sg.GET("", api.retrieve)
	sg.POST("/confirm", api.transition(api.svc.Confirm))
	sg.POST("/withdraw", api.transition(api.svc.Withdraw))
	sg.POST("/cancel", api.transition(api.svc.Cancel))

	// organizer-only state changes
	og := sg.Group("", organizerMiddleware())
	og.POST("/accept", api.transition(api.svc.Accept))
	og.POST("/reject", api.transition(api.svc.Reject))
	og.POST("/make-submitted", api.transition(api.svc.MakeSubmitted))
	og.POST("/state", api.forceState)
	og.DELETE("", api.remove)
}

// Handlers

func (api *submissionApi) list(ctx echo.Context) error {
	subs, err := api.svc.QueryEvent(ctx.Param("event"))
	if err != nil {
		return errors.Wrap(err, "querying submissions")
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *submissionApi) retrieve(ctx echo.Context) error {
	sub, usr, err := api.getAllowedSubmission(ctx)
	if err != nil {
		return err
	}

	speakers, err := api.svc.Speakers(sub)
	if err != nil {
		return errors.Wrap(err, "querying speakers")
	}
	resp := echo.Map{"submission": sub, "speakers": speakers}
	if usr.IsOrganizer {
		answers, err := api.svc.Answers(sub.Code)
		if err != nil {
			return errors.Wrap(err, "querying answers")
		}
		resp["answers"] = answers
	}
	return ctx.JSON(http.StatusOK, resp)
}

// transition wraps one state-changing service call into a handler. The
// service decides legality; illegal moves surface as 409s.
func (api *submissionApi) transition(do func(*submission.Submission, user.User) error) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		sub, usr, err := api.getAllowedSubmission(ctx)
		if err != nil {
			return err
		}
		if err = do(&sub, usr); err != nil {
			return err
		}
		return ctx.JSON(http.StatusOK, sub)
	}
}

type forceStateRequest struct {
	State string `json:"state" validate:"required"`
}

// forceState pins a submission to a state without consulting the
// transition table. An organizer escape hatch for cleaning up mistakes.
func (api *submissionApi) forceState(ctx echo.Context) error {
	var data forceStateRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to forceStateRequest")
	}
	target := submission.Status(core.CleanString(data.State, true))
	if !target.IsValid() {
		return core.NewValidationError(nil, core.FieldError{Field: "state", Error: "unknown state"})
	}

	sub, usr, err := api.getAllowedSubmission(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.ForceState(&sub, target, usr); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *submissionApi) remove(ctx echo.Context) error {
	sub, usr, err := api.getAllowedSubmission(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Remove(&sub, usr); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// getAllowedSubmission loads the submission and enforces that the caller
// is an organizer or one of its speakers.
func (api *submissionApi) getAllowedSubmission(ctx echo.Context) (submission.Submission, user.User, error) {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return submission.Submission{}, user.User{}, err
	}

	sub, err := api.svc.GetByCode(ctx.Param("code"))
	if err != nil {
		return submission.Submission{}, user.User{}, err
	}

	if usr.IsOrganizer {
		return sub, usr, nil
	}
	for _, id := range sub.SpeakerIDs {
		if id == usr.ID {
			return sub, usr, nil
		}
	}
	return submission.Submission{}, user.User{}, errHttpForbidden
}
