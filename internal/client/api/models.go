package api

import "time"

type AuthResult struct {
	AccessToken string `json:"access_token"`
	UserID      string `json:"user_id"`
}

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	ORCID    string `json:"orcid,omitempty"`
}

type Submission struct {
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	SpeciesName   string     `json:"species_name"`
	EcosystemType string     `json:"ecosystem_type"`
	GeometryType  string     `json:"geometry_type"`
	GeometryWKT   string     `json:"geometry_wkt"`
	Parameters    Parameters `json:"parameters"`
}

type Parameters struct {
	TimePeriod          string   `json:"time_period"`
	DirectiveTypes      []string `json:"directive_types"`
	MinObservations     *int     `json:"min_observations,omitempty"`
	ConfidenceThreshold *int     `json:"confidence_threshold,omitempty"`
}

type Receipt struct {
	WorkflowID string `json:"workflow_id"`
	Status     string `json:"status"`
}

type Workflow struct {
	ID           string     `json:"workflow_id"`
	Name         string     `json:"name"`
	SpeciesName  string     `json:"species_name"`
	Status       string     `json:"status"`
	ErrorMessage *string    `json:"error_message"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at"`
}
