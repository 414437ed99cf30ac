package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dmitrijs2005/bmd/internal/common"
	"github.com/dmitrijs2005/bmd/internal/logging"
	"github.com/dmitrijs2005/bmd/internal/server/models"
	"github.com/dmitrijs2005/bmd/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/bmd/internal/server/rocrate"
	"github.com/dmitrijs2005/bmd/internal/server/workflowapi"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// TimePeriods are the climate periods a workflow may be projected onto.
var TimePeriods = []string{"1981-2010", "2011-2040", "2041-2070", "2071-2100"}

// DirectiveTypes are the EU directives a species list can be drawn from.
var DirectiveTypes = []string{"invasive_species", "habitat"}

var ErrArchiveDisabled = errors.New("crate archive is not configured")

// CrateArchive keeps a copy of each submitted crate.
type CrateArchive interface {
	Put(ctx context.Context, userID, workflowID string, data []byte) error
	PresignGet(ctx context.Context, userID, workflowID string) (string, error)
}

type SubmitResult struct {
	WorkflowID string `json:"workflow_id"`
	Status     string `json:"status"`
}

type WorkflowService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	submitter   workflowapi.Submitter
	archive     CrateArchive
	logger      logging.Logger
	now         func() time.Time

	submitted metric.Int64Counter
	updates   metric.Int64Counter
}

// NewWorkflowService wires the service. archive may be nil.
func NewWorkflowService(db *sql.DB, m repomanager.RepositoryManager, submitter workflowapi.Submitter,
	archive CrateArchive, logger logging.Logger) (*WorkflowService, error) {
	meter := otel.Meter("github.com/dmitrijs2005/bmd/internal/server/services")

	submitted, err := meter.Int64Counter("bmd.workflows.submitted",
		metric.WithDescription("Workflows accepted by the Workflow API"))
	if err != nil {
		return nil, err
	}
	updates, err := meter.Int64Counter("bmd.workflows.status_updates",
		metric.WithDescription("Status updates applied to workflows"))
	if err != nil {
		return nil, err
	}

	return &WorkflowService{
		db:          db,
		repomanager: m,
		submitter:   submitter,
		archive:     archive,
		logger:      logger.With("module", "workflows"),
		now:         func() time.Time { return time.Now().UTC() },
		submitted:   submitted,
		updates:     updates,
	}, nil
}

func validateSubmission(sub *models.WorkflowSubmission) error {
	sub.Name = strings.TrimSpace(sub.Name)
	sub.SpeciesName = strings.TrimSpace(sub.SpeciesName)
	sub.GeometryWKT = strings.TrimSpace(sub.GeometryWKT)
	if sub.EcosystemType == "" {
		sub.EcosystemType = "terrestrial"
	}
	if sub.GeometryType == "" {
		sub.GeometryType = "polygon"
	}

	if sub.Name == "" {
		return common.Invalid("Please enter a workflow name")
	}
	if sub.EcosystemType != "terrestrial" {
		return common.Invalid("Only terrestrial workflows are currently supported")
	}
	if len(sub.Parameters.DirectiveTypes) == 0 {
		return common.Invalid("Please choose an EU directive")
	}
	for _, d := range sub.Parameters.DirectiveTypes {
		if !slices.Contains(DirectiveTypes, d) {
			return common.Invalid("Unknown directive type %q", d)
		}
	}
	if sub.SpeciesName == "" {
		return common.Invalid("Please select a species")
	}
	periods := sub.Parameters.TimePeriods()
	if len(periods) == 0 {
		return common.Invalid("Please select a time period")
	}
	for _, p := range periods {
		if !slices.Contains(TimePeriods, p) {
			return common.Invalid("Unknown time period %q", p)
		}
	}
	if sub.GeometryWKT == "" {
		return common.Invalid("Please draw an area on the map")
	}
	return nil
}

// Submit validates the request, relays it to the Workflow API and records
// the workflow under the identifier the API assigned.
func (s *WorkflowService) Submit(ctx context.Context, userID string, sub models.WorkflowSubmission) (*SubmitResult, error) {
	if err := validateSubmission(&sub); err != nil {
		return nil, err
	}

	periods := sub.Parameters.TimePeriods()
	crate, err := rocrate.Build(rocrate.Context{
		WorkflowName:   sub.Name,
		Description:    sub.Description,
		SpeciesName:    sub.SpeciesName,
		EcosystemType:  sub.EcosystemType,
		GeometryType:   sub.GeometryType,
		GeometryWKT:    sub.GeometryWKT,
		TimePeriods:    periods,
		DirectiveTypes: sub.Parameters.DirectiveTypes,
	})
	if err != nil {
		return nil, fmt.Errorf("error building crate: %w", err)
	}
	s.logger.Debug(ctx, "crate built", "contents", crate.Summary())

	receipt, err := s.submitter.Submit(ctx, workflowapi.Submission{
		Crate:          crate.Zip,
		TargetSpecies:  sub.SpeciesName,
		ClimatePeriods: strings.Join(periods, ";"),
		AOIWKT:         sub.GeometryWKT,
	})
	if err != nil {
		var upErr *common.UpstreamError
		if !errors.As(err, &upErr) {
			err = &common.UpstreamError{Message: err.Error(), Err: err}
		}
		return nil, err
	}

	status := receipt.Status
	if !common.IsKnownStatus(status) {
		status = common.StatusSubmitted
	}

	params, err := json.Marshal(sub.Parameters)
	if err != nil {
		return nil, fmt.Errorf("error encoding parameters: %w", err)
	}

	now := s.now()
	w := &models.Workflow{
		ID:            receipt.WorkflowID,
		UserID:        userID,
		Name:          sub.Name,
		Description:   sub.Description,
		SpeciesName:   sub.SpeciesName,
		EcosystemType: sub.EcosystemType,
		GeometryType:  sub.GeometryType,
		GeometryWKT:   sub.GeometryWKT,
		Parameters:    string(params),
		Status:        status,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repomanager.Workflows(s.db).Create(ctx, w); err != nil {
		return nil, fmt.Errorf("error saving workflow: %w", err)
	}

	s.submitted.Add(ctx, 1)
	s.logger.Info(ctx, "workflow submitted",
		"workflow_id", w.ID, "user_id", userID, "species", w.SpeciesName, "status", status)

	if st, ok := s.submitter.(workflowapi.Starter); ok {
		st.Start(w.ID)
	}

	if s.archive != nil {
		if err := s.archive.Put(ctx, userID, w.ID, crate.Zip); err != nil {
			s.logger.Warn(ctx, "crate archive failed", "workflow_id", w.ID, "error", err)
		}
	}

	return &SubmitResult{WorkflowID: w.ID, Status: status}, nil
}

// List returns the user's workflows, newest first.
func (s *WorkflowService) List(ctx context.Context, userID string) ([]models.Workflow, error) {
	return s.repomanager.Workflows(s.db).ListByUser(ctx, userID)
}

// Get returns common.ErrorNotFound for a missing workflow and for one owned by someone else.
func (s *WorkflowService) Get(ctx context.Context, userID, workflowID string) (*models.Workflow, error) {
	w, err := s.repomanager.Workflows(s.db).GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if w.UserID != userID {
		return nil, common.ErrorNotFound
	}
	return w, nil
}

func (s *WorkflowService) Delete(ctx context.Context, userID, workflowID string) error {
	if _, err := s.Get(ctx, userID, workflowID); err != nil {
		return err
	}
	if err := s.repomanager.Workflows(s.db).Delete(ctx, workflowID); err != nil {
		return err
	}
	s.logger.Info(ctx, "workflow deleted", "workflow_id", workflowID, "user_id", userID)
	return nil
}

// ApplyStatus records a progress report for a workflow. Results and
// completed_at are written on completion, the error message on failure.
func (s *WorkflowService) ApplyStatus(ctx context.Context, workflowID string, u models.StatusUpdate) error {
	if !common.IsKnownStatus(u.Status) {
		return common.Invalid("Unknown workflow status %q", u.Status)
	}

	now := s.now()
	change := models.StatusChange{Status: u.Status, UpdatedAt: now}

	switch u.Status {
	case common.StatusCompleted:
		change.CompletedAt = &now
		if raw := bytes.TrimSpace(u.Results); len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
			if !json.Valid(raw) {
				return common.Invalid("results must be valid JSON")
			}
			results := string(raw)
			change.Results = &results
		}
	case common.StatusFailed:
		if u.ErrorMessage != nil && *u.ErrorMessage != "" {
			change.ErrorMessage = u.ErrorMessage
		}
	}

	if err := s.repomanager.Workflows(s.db).UpdateStatus(ctx, workflowID, change); err != nil {
		return err
	}

	s.updates.Add(ctx, 1, metric.WithAttributes(attribute.String("status", u.Status)))
	s.logger.Info(ctx, "workflow status updated", "workflow_id", workflowID, "status", u.Status)
	return nil
}

// ListByStatus is the operator view across all users.
func (s *WorkflowService) ListByStatus(ctx context.Context, status string) ([]models.WorkflowWithOwner, error) {
	if !common.IsKnownStatus(status) {
		return nil, common.Invalid("Unknown workflow status %q", status)
	}
	return s.repomanager.Workflows(s.db).ListByStatus(ctx, status)
}

// CrateURL returns a short-lived download link for the archived crate.
func (s *WorkflowService) CrateURL(ctx context.Context, userID, workflowID string) (string, error) {
	if s.archive == nil {
		return "", ErrArchiveDisabled
	}
	if _, err := s.Get(ctx, userID, workflowID); err != nil {
		return "", err
	}
	return s.archive.PresignGet(ctx, userID, workflowID)
}

// ParseResults decodes stored results into the structured shape. ok is false
// when the payload is some other JSON, which callers show raw.
func ParseResults(raw *string) (res models.Results, ok bool) {
	if raw == nil || *raw == "" {
		return res, false
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(*raw), &probe); err != nil {
		return res, false
	}
	if _, has := probe["summary"]; !has {
		return res, false
	}
	if err := json.Unmarshal([]byte(*raw), &res); err != nil {
		return models.Results{}, false
	}
	return res, true
}
