package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/bmd/internal/common"
	"github.com/dmitrijs2005/bmd/internal/server/models"
	"github.com/dmitrijs2005/bmd/internal/server/services"
	"github.com/labstack/echo/v4"
)

// userMessage is the notification text shown for a failed form action.
func userMessage(err error) string {
	var (
		ve *common.ValidationError
		ue *common.UpstreamError
	)
	switch {
	case errors.As(err, &ve):
		return ve.Message
	case errors.Is(err, common.ErrEmailTaken):
		return "Email already registered"
	case errors.Is(err, common.ErrorUnauthorized):
		return "Invalid email or password"
	case errors.Is(err, common.ErrorNotFound):
		return "Workflow not found"
	case errors.As(err, &ue):
		return "Error: " + ue.Error()
	default:
		return "Something went wrong, please try again"
	}
}

func (s *Server) redirectFlash(c echo.Context, to, kind, msg string) error {
	s.setFlash(c, kind, msg)
	return c.Redirect(http.StatusSeeOther, to)
}

func (s *Server) pageRoot(c echo.Context) error {
	if _, ok := s.sessionUser(c); ok {
		return c.Redirect(http.StatusSeeOther, "/workflows")
	}
	return c.Redirect(http.StatusSeeOther, "/login")
}

type loginForm struct {
	Email string
}

func (s *Server) pageLogin(c echo.Context) error {
	if _, ok := s.sessionUser(c); ok {
		return c.Redirect(http.StatusSeeOther, "/workflows")
	}
	return s.render(c, http.StatusOK, "login", pageData{Title: "Sign in", Data: loginForm{}})
}

func (s *Server) pageLoginSubmit(c echo.Context) error {
	email := c.FormValue("email")
	data := pageData{Title: "Sign in", Data: loginForm{Email: email}}

	res, err := s.users.Login(c.Request().Context(), email, c.FormValue("password"))
	if err != nil {
		return s.renderFlash(c, "login", data, err)
	}

	s.setSession(c, res.AccessToken)
	return c.Redirect(http.StatusSeeOther, "/workflows")
}

type signupForm struct {
	Name  string
	Email string
	ORCID string
}

func (s *Server) pageSignup(c echo.Context) error {
	return s.render(c, http.StatusOK, "signup", pageData{Title: "Create account", Data: signupForm{}})
}

func (s *Server) pageSignupSubmit(c echo.Context) error {
	form := signupForm{
		Name:  c.FormValue("name"),
		Email: c.FormValue("email"),
		ORCID: c.FormValue("orcid"),
	}
	data := pageData{Title: "Create account", Data: form}

	password := c.FormValue("password")
	if form.Name == "" || form.Email == "" || password == "" {
		return s.renderFlash(c, "signup", data, common.Invalid("Please fill in all required fields"))
	}
	if password != c.FormValue("confirm_password") {
		return s.renderFlash(c, "signup", data, common.Invalid("Passwords do not match"))
	}

	res, err := s.users.Signup(c.Request().Context(), services.SignupRequest{
		Email:    form.Email,
		Password: password,
		Name:     form.Name,
		ORCID:    form.ORCID,
	})
	if err != nil {
		return s.renderFlash(c, "signup", data, err)
	}

	s.setSession(c, res.AccessToken)
	s.setFlash(c, flashPositive, "Account created")
	return c.Redirect(http.StatusSeeOther, "/workflows")
}

func (s *Server) pageLogout(c echo.Context) error {
	s.clearSession(c)
	return c.Redirect(http.StatusSeeOther, "/login")
}

func (s *Server) pageSelectWorkflow(c echo.Context) error {
	return s.render(c, http.StatusOK, "select", pageData{Title: "New workflow", Active: "create"})
}

type createForm struct {
	Species        []string
	TimePeriods    []string
	Submission     models.WorkflowSubmission
	Periods        []string
	MinObs         string
	Confidence     string
	Historical     bool
	GenerateReport bool
}

func (s *Server) newCreateForm() createForm {
	return createForm{
		Species:        s.pages.species,
		TimePeriods:    services.TimePeriods,
		MinObs:         "10",
		Confidence:     "80",
		Historical:     true,
		GenerateReport: true,
	}
}

func (s *Server) pageCreate(c echo.Context) error {
	return s.render(c, http.StatusOK, "create", pageData{Title: "Create workflow", Active: "create", Data: s.newCreateForm()})
}

func (s *Server) pageCreateSubmit(c echo.Context) error {
	form := s.newCreateForm()
	params, err := c.FormParams()
	if err != nil {
		return detail(http.StatusBadRequest, "Invalid form")
	}

	form.Periods = params["time_period"]
	form.MinObs = params.Get("min_observations")
	form.Confidence = params.Get("confidence_threshold")
	form.Historical = params.Get("include_historical") != ""
	form.GenerateReport = params.Get("generate_report") != ""
	form.Submission = models.WorkflowSubmission{
		Name:          params.Get("name"),
		Description:   params.Get("description"),
		SpeciesName:   params.Get("species_name"),
		EcosystemType: "terrestrial",
		GeometryType:  params.Get("geometry_type"),
		GeometryWKT:   params.Get("geometry_wkt"),
		Parameters: models.WorkflowParameters{
			TimePeriod:        strings.Join(form.Periods, ";"),
			DirectiveTypes:    params["directive_types"],
			IncludeHistorical: &form.Historical,
			GenerateReport:    &form.GenerateReport,
		},
	}
	data := pageData{Title: "Create workflow", Active: "create", Data: form}

	if form.MinObs != "" {
		n, err := strconv.Atoi(form.MinObs)
		if err != nil || n < 0 {
			return s.renderFlash(c, "create", data, common.Invalid("Min observations must be a whole number"))
		}
		form.Submission.Parameters.MinObservations = &n
	}
	if form.Confidence != "" {
		n, err := strconv.Atoi(form.Confidence)
		if err != nil || n < 0 || n > 100 {
			return s.renderFlash(c, "create", data, common.Invalid("Confidence must be between 0 and 100"))
		}
		form.Submission.Parameters.ConfidenceThreshold = &n
	}

	res, err := s.workflows.Submit(c.Request().Context(), currentUser(c), form.Submission)
	if err != nil {
		return s.renderFlash(c, "create", data, err)
	}

	return s.redirectFlash(c, "/workflows", flashPositive, "Workflow submitted: "+res.WorkflowID)
}

func (s *Server) pageWorkflows(c echo.Context) error {
	list, err := s.workflows.List(c.Request().Context(), currentUser(c))
	if err != nil {
		return err
	}
	return s.render(c, http.StatusOK, "workflows", pageData{Title: "My workflows", Active: "workflows", Data: list})
}

func (s *Server) pageDeleteWorkflow(c echo.Context) error {
	id := c.Param("id")
	if err := s.workflows.Delete(c.Request().Context(), currentUser(c), id); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return s.redirectFlash(c, "/workflows", flashNegative, "Workflow not found")
		}
		return err
	}
	return s.redirectFlash(c, "/workflows", flashInfo, "Workflow deleted")
}

func (s *Server) pageResults(c echo.Context) error {
	ctx := c.Request().Context()
	userID := currentUser(c)

	w, err := s.workflows.Get(ctx, userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return s.render(c, http.StatusNotFound, "results", pageData{Title: "Workflow not found", Active: "workflows"})
		}
		return err
	}

	view := newResultsView(w)
	if url, err := s.workflows.CrateURL(ctx, userID, w.ID); err == nil {
		view.CrateURL = url
	} else if !errors.Is(err, services.ErrArchiveDisabled) {
		s.logger.Warn(ctx, "crate link unavailable", "workflow_id", w.ID, "error", err)
	}

	return s.render(c, http.StatusOK, "results", pageData{Title: "Analysis results", Active: "workflows", Data: view})
}

type accountView struct {
	User         *models.User
	ORCIDEnabled bool
}

func (s *Server) pageAccount(c echo.Context) error {
	u, err := s.users.GetUser(c.Request().Context(), currentUser(c))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.clearSession(c)
			return c.Redirect(http.StatusSeeOther, "/login")
		}
		return err
	}
	return s.render(c, http.StatusOK, "account", pageData{
		Title:  "Account settings",
		Active: "account",
		Data:   accountView{User: u, ORCIDEnabled: s.orcid != nil},
	})
}

func (s *Server) pageAccountProfile(c echo.Context) error {
	err := s.users.UpdateProfile(c.Request().Context(), currentUser(c), services.ProfileUpdate{
		Name:  c.FormValue("name"),
		Email: c.FormValue("email"),
		ORCID: c.FormValue("orcid"),
	})
	if err != nil {
		return s.redirectFlash(c, "/account", flashNegative, userMessage(err))
	}
	return s.redirectFlash(c, "/account", flashPositive, "Profile updated successfully")
}

func (s *Server) pageAccountPassword(c echo.Context) error {
	err := s.users.ChangePassword(c.Request().Context(), currentUser(c),
		c.FormValue("current_password"), c.FormValue("new_password"), c.FormValue("confirm_password"))
	if err != nil {
		return s.redirectFlash(c, "/account", flashNegative, userMessage(err))
	}
	return s.redirectFlash(c, "/account", flashPositive, "Password changed successfully")
}

func (s *Server) pageAccountDelete(c echo.Context) error {
	err := s.users.DeleteAccount(c.Request().Context(), currentUser(c), c.FormValue("confirm_email"))
	if err != nil {
		return s.redirectFlash(c, "/account", flashNegative, userMessage(err))
	}
	s.clearSession(c)
	return s.redirectFlash(c, "/login", flashInfo, "Account deleted")
}

func (s *Server) pageORCIDLogin(c echo.Context) error {
	if s.orcid == nil {
		return s.redirectFlash(c, "/account", flashNegative, "ORCID linking is not configured")
	}

	attempt, url, err := s.orcid.Begin()
	if err != nil {
		return err
	}
	if err := s.saveLoginAttempt(c, attempt); err != nil {
		return err
	}
	return c.Redirect(http.StatusFound, url)
}

func (s *Server) pageORCIDCallback(c echo.Context) error {
	ctx := c.Request().Context()
	if s.orcid == nil {
		return s.redirectFlash(c, "/account", flashNegative, "ORCID linking is not configured")
	}

	attempt, ok := s.takeLoginAttempt(c)
	if !ok {
		return s.redirectFlash(c, "/account", flashNegative, "ORCID sign-in expired, please try again")
	}
	if e := c.QueryParam("error"); e != "" {
		s.logger.Info(ctx, "orcid sign-in declined", "error", e)
		return s.redirectFlash(c, "/account", flashNegative, "ORCID sign-in was cancelled")
	}

	orcid, err := s.orcid.Finish(ctx, attempt, c.QueryParam("state"), c.QueryParam("code"))
	if err != nil {
		s.logger.Warn(ctx, "orcid sign-in failed", "error", err)
		return s.redirectFlash(c, "/account", flashNegative, "ORCID sign-in failed")
	}

	if err := s.users.LinkORCID(ctx, currentUser(c), orcid); err != nil {
		return s.redirectFlash(c, "/account", flashNegative, userMessage(err))
	}
	return s.redirectFlash(c, "/account", flashPositive, "ORCID iD linked: "+orcid)
}
