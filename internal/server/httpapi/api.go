package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/bmd/internal/server/models"
	"github.com/dmitrijs2005/bmd/internal/server/services"
	"github.com/labstack/echo/v4"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type workflowList struct {
	Workflows []models.Workflow `json:"workflows"`
}

// POST /api/auth/signup
func (s *Server) apiSignup(c echo.Context) error {
	var req services.SignupRequest
	if err := c.Bind(&req); err != nil {
		return detail(http.StatusBadRequest, "Invalid request body")
	}

	res, err := s.users.Signup(c.Request().Context(), req)
	if err != nil {
		return apiError(err)
	}
	return c.JSON(http.StatusOK, res)
}

// POST /api/auth/login
func (s *Server) apiLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return detail(http.StatusBadRequest, "Invalid request body")
	}

	res, err := s.users.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return apiError(err)
	}
	return c.JSON(http.StatusOK, res)
}

// POST /api/workflows/submit
func (s *Server) apiSubmit(c echo.Context) error {
	var sub models.WorkflowSubmission
	if err := c.Bind(&sub); err != nil {
		return detail(http.StatusBadRequest, "Invalid request body")
	}

	res, err := s.workflows.Submit(c.Request().Context(), currentUser(c), sub)
	if err != nil {
		return apiError(err)
	}
	return c.JSON(http.StatusOK, res)
}

// GET /api/workflows
func (s *Server) apiListWorkflows(c echo.Context) error {
	list, err := s.workflows.List(c.Request().Context(), currentUser(c))
	if err != nil {
		return apiError(err)
	}
	return c.JSON(http.StatusOK, workflowList{Workflows: list})
}

// GET /api/workflows/:id
func (s *Server) apiGetWorkflow(c echo.Context) error {
	w, err := s.workflows.Get(c.Request().Context(), currentUser(c), c.Param("id"))
	if err != nil {
		return apiError(err)
	}
	return c.JSON(http.StatusOK, w)
}

// DELETE /api/workflows/:id
func (s *Server) apiDeleteWorkflow(c echo.Context) error {
	id := c.Param("id")
	if err := s.workflows.Delete(c.Request().Context(), currentUser(c), id); err != nil {
		return apiError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "deleted", "workflow_id": id})
}

// GET /api/workflows/:id/crate
func (s *Server) apiCrateURL(c echo.Context) error {
	url, err := s.workflows.CrateURL(c.Request().Context(), currentUser(c), c.Param("id"))
	if err != nil {
		return apiError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"url": url})
}

// POST /api/workflows/webhook/:id
func (s *Server) apiWebhook(c echo.Context) error {
	var u models.StatusUpdate
	if err := c.Bind(&u); err != nil {
		return detail(http.StatusBadRequest, "Invalid request body")
	}

	id := c.Param("id")
	if err := s.workflows.ApplyStatus(c.Request().Context(), id, u); err != nil {
		return apiError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "webhook processed"})
}
