// Package workflowapi relays workflow submissions to the external Workflow
// API, or to an in-process mock runner when no real service is available.
package workflowapi

import (
	"context"

	"github.com/dmitrijs2005/bmd/internal/server/models"
)

// Submission is one outbound job: the crate plus the form parameters the
// Workflow API reads directly.
type Submission struct {
	Crate          []byte
	TargetSpecies  string
	ClimatePeriods string
	AOIWKT         string
}

// Submitter hands a job to a runner and returns the identifier it assigned.
type Submitter interface {
	Submit(ctx context.Context, s Submission) (models.SubmitReceipt, error)
}

// StatusReporter receives progress for a workflow. The HTTP webhook and the
// mock runner both end up here.
type StatusReporter interface {
	ApplyStatus(ctx context.Context, workflowID string, u models.StatusUpdate) error
}

// Starter is implemented by runners that begin work for an accepted
// submission only once the workflow row has been stored.
type Starter interface {
	Start(workflowID string)
}
