package models

// Results is the payload the Workflow API attaches to a completed workflow.
type Results struct {
	Summary                Summary                        `json:"summary"`
	ModelPerformance       ModelPerformance               `json:"model_performance"`
	TopSpecies             []SpeciesResult                `json:"top_species"`
	EnvironmentalVariables map[string]VariableContribution `json:"environmental_variables"`
}

type Summary struct {
	TotalSpecies     int     `json:"total_species"`
	TotalOccurrences int     `json:"total_occurrences"`
	AreaKm2          float64 `json:"area_km2"`
}

type ModelPerformance struct {
	AUCScore float64 `json:"auc_score"`
	TSSScore float64 `json:"tss_score"`
	Kappa    float64 `json:"kappa"`
}

type SpeciesResult struct {
	Name               string  `json:"name"`
	Occurrences        int     `json:"occurrences"`
	HabitatSuitability float64 `json:"habitat_suitability"`
}

type VariableContribution struct {
	ContributionPct float64 `json:"contribution_pct"`
}
