package models

import (
	"encoding/json"
	"time"
)

// Workflow is a submitted SDM job. ID is assigned by the external Workflow API.
type Workflow struct {
	ID            string     `json:"workflow_id"`
	UserID        string     `json:"user_id"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	SpeciesName   string     `json:"species_name"`
	EcosystemType string     `json:"ecosystem_type"`
	GeometryType  string     `json:"geometry_type"`
	GeometryWKT   string     `json:"geometry_wkt"`
	Parameters    string     `json:"parameters"`
	Status        string     `json:"status"`
	Results       *string    `json:"results"`
	ErrorMessage  *string    `json:"error_message"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	CompletedAt   *time.Time `json:"completed_at"`
}

// WorkflowWithOwner is a Workflow joined with its owner's contact details,
// used by operator listings.
type WorkflowWithOwner struct {
	Workflow
	UserEmail string `json:"email"`
	UserName  string `json:"user_name"`
}

// StatusChange is applied to a workflow row when the Workflow API reports progress.
// Results and ErrorMessage are written only when non-nil; CompletedAt only when set.
type StatusChange struct {
	Status       string
	Results      *string
	ErrorMessage *string
	UpdatedAt    time.Time
	CompletedAt  *time.Time
}

// StatusUpdate is the webhook body posted by the Workflow API (and by the
// in-process mock runner).
type StatusUpdate struct {
	WorkflowID   string          `json:"workflow_id"`
	Status       string          `json:"status"`
	Results      json.RawMessage `json:"results,omitempty"`
	ErrorMessage *string         `json:"error_message,omitempty"`
}
