package models

import "strings"

// WorkflowSubmission is the body of POST /api/workflows/submit.
type WorkflowSubmission struct {
	Name          string             `json:"name"`
	Description   string             `json:"description"`
	SpeciesName   string             `json:"species_name"`
	EcosystemType string             `json:"ecosystem_type"`
	GeometryType  string             `json:"geometry_type"`
	GeometryWKT   string             `json:"geometry_wkt"`
	Parameters    WorkflowParameters `json:"parameters"`
}

// WorkflowParameters holds the modelling options chosen on the create page.
// TimePeriod is a ";"-separated list of climate periods.
type WorkflowParameters struct {
	TimePeriod          string   `json:"time_period"`
	DirectiveTypes      []string `json:"directive_types"`
	MinObservations     *int     `json:"min_observations,omitempty"`
	ConfidenceThreshold *int     `json:"confidence_threshold,omitempty"`
	IncludeHistorical   *bool    `json:"include_historical,omitempty"`
	GenerateReport      *bool    `json:"generate_report,omitempty"`
}

// TimePeriods splits TimePeriod, dropping blanks.
func (p WorkflowParameters) TimePeriods() []string {
	var out []string
	for _, s := range strings.Split(p.TimePeriod, ";") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// SubmitReceipt is what the Workflow API returns for an accepted submission.
type SubmitReceipt struct {
	WorkflowID string `json:"workflow_id"`
	Status     string `json:"status"`
}
