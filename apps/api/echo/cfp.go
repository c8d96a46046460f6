package echoapi

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/eventyay/cfp/core/cfp"
)

// maxUploadSize bounds what ParseMultipartForm keeps in memory.
const maxUploadSize = 32 << 20 // 32 MB

type cfpApi struct {
	opts *Options
}

func registerCfPAPI(g *echo.Group, optionalAuth echo.MiddlewareFunc, opts *Options) {
	api := cfpApi{opts: opts}

	cg := g.Group("/cfp/:event")
	cg.GET("/steps", api.describe)

	wg := cg.Group("/submit/:tmpid/:step", optionalAuth)
	wg.GET("", api.render)
	wg.POST("", api.post)
}

// describe exposes the step pipeline as the CfP editor sees it: ordered,
// unfiltered, with the form schema of every step.
func (api *cfpApi) describe(ctx echo.Context) error {
	event, err := api.opts.Events.GetEvent(ctx.Param("event"))
	if err != nil {
		return err
	}
	flow := api.flow(event)
	return ctx.JSON(http.StatusOK, flow.Describe())
}

func (api *cfpApi) render(ctx echo.Context) error {
	r, flow, cleanup, err := api.buildRequest(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	step, err := flow.StepByIdentifier(ctx.Param("step"))
	if err != nil {
		return err
	}
	if redirect := api.guardSkipAhead(r, flow, step); redirect != nil {
		return redirect
	}

	view, err := step.Render(r)
	if err != nil {
		return errors.Wrap(err, "rendering step")
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"step": view,
		"prev": stepIdentifier(flow.PrevApplicable(r, step)),
		"next": stepIdentifier(flow.NextApplicable(r, step)),
	})
}

func (api *cfpApi) post(ctx echo.Context) error {
	r, flow, cleanup, err := api.buildRequest(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	step, err := flow.StepByIdentifier(ctx.Param("step"))
	if err != nil {
		return err
	}
	if redirect := api.guardSkipAhead(r, flow, step); redirect != nil {
		return redirect
	}

	if err = step.Post(r); err != nil {
		return err
	}

	if next := flow.NextApplicable(r, step); next != nil {
		return ctx.JSON(http.StatusOK, echo.Map{"next": next.Identifier()})
	}

	// last step done: turn the draft into a real submission
	warnings, err := flow.Finalize(r)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, echo.Map{
		"submission": r.Submission.Code,
		"warnings":   warnings,
	})
}

// guardSkipAhead sends visitors back to the first incomplete step so they
// cannot jump past required input.
func (api *cfpApi) guardSkipAhead(r *cfp.Request, flow *cfp.Flow, step cfp.Step) error {
	first := flow.FirstIncomplete(r, step)
	if first != nil && first.Identifier() != step.Identifier() {
		return echo.NewHTTPError(http.StatusConflict, echo.Map{
			"error": "earlier steps are incomplete",
			"step":  first.Identifier(),
		})
	}
	return nil
}

func (api *cfpApi) flow(event cfp.Event) *cfp.Flow {
	return cfp.NewFlow(event, api.opts.CfPDeps, api.opts.Registry)
}

func (api *cfpApi) buildRequest(ctx echo.Context) (*cfp.Request, *cfp.Flow, func(), error) {
	noop := func() {}

	event, err := api.opts.Events.GetEvent(ctx.Param("event"))
	if err != nil {
		return nil, nil, noop, err
	}
	if !event.IsOpen(time.Now()) {
		return nil, nil, noop, errCfPClosed
	}

	draftID, err := uuid.Parse(ctx.Param("tmpid"))
	if err != nil {
		return nil, nil, noop, echo.NewHTTPError(http.StatusNotFound, "unknown submission attempt")
	}

	r := &cfp.Request{
		Event:   event,
		DraftID: draftID.String(),
		Form:    make(map[string][]string),
		Files:   make(map[string]cfp.UploadedFile),
	}

	if claims, cErr := getContextClaims(ctx); cErr == nil {
		usr, uErr := api.opts.UserSvc.GetByID(claims.UserID())
		if uErr != nil {
			return nil, nil, noop, errors.Wrap(uErr, "loading authenticated user")
		}
		r.User = &usr
	}

	cleanup := noop
	if ctx.Request().Method == http.MethodPost {
		req := ctx.Request()
		if err = req.ParseMultipartForm(maxUploadSize); err != nil && err != http.ErrNotMultipart {
			return nil, nil, noop, echo.NewHTTPError(http.StatusBadRequest, "malformed form data")
		}
		r.Form = req.PostForm

		if req.MultipartForm != nil {
			closers := make([]func(), 0, len(req.MultipartForm.File))
			for name, headers := range req.MultipartForm.File {
				if len(headers) == 0 {
					continue
				}
				fh := headers[0]
				f, oErr := fh.Open()
				if oErr != nil {
					return nil, nil, noop, errors.Wrap(oErr, "opening upload")
				}
				closers = append(closers, func() { _ = f.Close() })
				r.Files[name] = cfp.UploadedFile{
					Name:        fh.Filename,
					ContentType: fh.Header.Get("Content-Type"),
					Size:        fh.Size,
					Content:     f,
				}
			}
			cleanup = func() {
				for _, closeFile := range closers {
					closeFile()
				}
			}
		}
	}

	return r, api.flow(event), cleanup, nil
}

func stepIdentifier(step cfp.Step) string {
	if step == nil {
		return ""
	}
	return step.Identifier()
}
