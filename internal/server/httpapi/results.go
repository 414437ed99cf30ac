package httpapi

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"

	"github.com/dmitrijs2005/bmd/internal/server/models"
	"github.com/dmitrijs2005/bmd/internal/server/services"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type variableView struct {
	Label string
	Pct   float64
}

type resultsView struct {
	Workflow   *models.Workflow
	Structured bool
	Results    models.Results
	Variables  []variableView
	Raw        string
	CrateURL   string
}

var titleCaser = cases.Title(language.English)

// variableLabel turns "bio1_annual_mean" into "Mean Temp Annual Mean".
func variableLabel(name string) string {
	s := strings.ReplaceAll(name, "_", " ")
	s = strings.Replace(s, "bio1 ", "Mean Temp ", 1)
	s = strings.Replace(s, "bio12 ", "Annual Precip ", 1)
	return titleCaser.String(s)
}

func newResultsView(w *models.Workflow) resultsView {
	v := resultsView{Workflow: w}

	res, ok := services.ParseResults(w.Results)
	if !ok {
		if w.Results != nil {
			v.Raw = prettyJSON(*w.Results)
		}
		return v
	}

	v.Structured = true
	v.Results = res
	for name, c := range res.EnvironmentalVariables {
		v.Variables = append(v.Variables, variableView{Label: variableLabel(name), Pct: c.ContributionPct})
	}
	sort.Slice(v.Variables, func(i, j int) bool {
		if v.Variables[i].Pct != v.Variables[j].Pct {
			return v.Variables[i].Pct > v.Variables[j].Pct
		}
		return v.Variables[i].Label < v.Variables[j].Label
	})
	return v
}

func prettyJSON(raw string) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(raw), "", "  "); err != nil {
		return raw
	}
	return buf.String()
}
