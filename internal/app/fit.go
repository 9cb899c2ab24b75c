package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"flood-frequency/internal/distribution"
	"flood-frequency/internal/quality"
	"flood-frequency/internal/selection"
)

// FitOptions configure the fit command.
type FitOptions struct {
	Source   SourceOptions
	Families []string
	Format   string
	Output   string
}

// Fit fits the candidate families and prints them ranked by AIC. Families
// that failed to fit are listed last with their error.
func (a *App) Fit(ctx context.Context, opts FitOptions) error {
	s, _, err := a.loadSeries(ctx, opts.Source)
	if err != nil {
		return err
	}
	if _, err := quality.Validate(s); err != nil {
		return err
	}

	var families []distribution.Family
	for _, name := range opts.Families {
		f, err := distribution.ParseFamily(name)
		if err != nil {
			return err
		}
		families = append(families, f)
	}

	ranked := selection.RankAll(distribution.FitAll(s.Values(), families))
	a.Logger.Debug().Int("families", len(ranked)).Msg("fits ranked")

	w, closeOut, err := a.output(opts.Output)
	if err != nil {
		return err
	}
	if strings.EqualFold(opts.Format, FormatJSON) {
		err = writeJSON(w, ranked)
	} else {
		err = writeFitTable(w, ranked, a.Config.Export.Decimals)
	}
	if cerr := closeOut(); err == nil {
		err = cerr
	}
	return err
}

func writeFitTable(w io.Writer, ranked []distribution.FitResult, places int32) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Rank\tDistribution\tAIC\tBIC\tLogL\tKS\tp\tAD\tParameters\tError")
	for i, fit := range ranked {
		rank := fmt.Sprint(i + 1)
		if !fit.OK() {
			rank = "-"
		}
		params := make([]string, len(fit.Params))
		names := fit.Family.ParamNames()
		for j, p := range fit.Params {
			label := fmt.Sprintf("p%d", j)
			if j < len(names) {
				label = names[j]
			}
			params[j] = label + "=" + formatFloat(p, places)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			rank,
			fit.Family.DisplayName(),
			formatFloat(fit.AIC, places),
			formatFloat(fit.BIC, places),
			formatFloat(fit.LogLikelihood, places),
			formatFloat(fit.KSStatistic, 4),
			formatOptional(fit.PValue, 4),
			formatFloat(fit.AndersonDarling, 4),
			strings.Join(params, " "),
			sanitizeInline(fit.FitError),
		)
	}
	return tw.Flush()
}
