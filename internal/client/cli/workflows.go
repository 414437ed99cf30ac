package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/bmd/internal/client/api"
	"github.com/dustin/go-humanize"
)

func (a *App) List(ctx context.Context) error {
	list, err := a.api.List(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No workflows yet")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSPECIES\tSTATUS\tCREATED")
	for _, w := range list {
		status := w.Status
		if w.ErrorMessage != nil && *w.ErrorMessage != "" {
			status += ": " + *w.ErrorMessage
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", w.ID, w.Name, w.SpeciesName, status, humanize.Time(w.CreatedAt))
	}
	return tw.Flush()
}

// Submit walks the user through a terrestrial SDM submission.
func (a *App) Submit(ctx context.Context) error {
	if !a.isLoggedIn() {
		return api.ErrNotLoggedIn
	}

	var (
		s   api.Submission
		err error
	)
	ask := func(dst *string, prompt, def string) {
		if err == nil {
			*dst, err = GetOptionalText(a.reader, prompt, def, a.out)
		}
	}

	ask(&s.Name, "Workflow name", "")
	ask(&s.Description, "Description", "")
	ask(&s.SpeciesName, "Target species", "")
	ask(&s.EcosystemType, "Ecosystem type", "terrestrial")
	ask(&s.GeometryType, "Geometry type", "polygon")
	ask(&s.GeometryWKT, "Area of interest (WKT)", "")
	if err != nil {
		return err
	}

	periods, err := GetList(a.reader, "Climate periods", a.out)
	if err != nil {
		return err
	}
	s.Parameters.TimePeriod = strings.Join(periods, ";")

	if s.Parameters.DirectiveTypes, err = GetList(a.reader, "Directive types", a.out); err != nil {
		return err
	}

	if s.Parameters.MinObservations, err = a.askInt("Min observations", "10"); err != nil {
		return err
	}
	if s.Parameters.ConfidenceThreshold, err = a.askInt("Confidence threshold (0-100)", "80"); err != nil {
		return err
	}

	rec, err := a.api.Submit(ctx, s)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Workflow submitted: %s (%s)\n", rec.WorkflowID, rec.Status)
	return nil
}

func (a *App) askInt(prompt, def string) (*int, error) {
	s, err := GetOptionalText(a.reader, prompt, def, a.out)
	if err != nil {
		return nil, err
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("%s must be a whole number", strings.ToLower(prompt))
	}
	return &n, nil
}

func (a *App) Delete(ctx context.Context, id string) error {
	if err := a.api.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Workflow %s deleted\n", id)
	return nil
}

// Crate downloads the workflow's archived RO-Crate to <id>.zip in the
// current directory.
func (a *App) Crate(ctx context.Context, id string) error {
	u, err := a.api.CrateURL(ctx, id)
	if err != nil {
		return err
	}
	path := id + ".zip"
	n, err := a.api.Download(ctx, u, path)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Saved %s (%s)\n", path, humanize.Bytes(uint64(n)))
	return nil
}
