package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/gitlegend/gitlegend/internal/contract"
	"github.com/gitlegend/gitlegend/schema"
)

// healthDimension is one scored row of a health report.
type healthDimension struct {
	Name  string
	Score int
}

func healthDimensions(h schema.HealthScore) []healthDimension {
	return []healthDimension{
		{"overall", h.Overall},
		{"activity", h.Breakdown.Activity},
		{"contributor_diversity", h.Breakdown.ContributorDiversity},
		{"code_quality", h.Breakdown.CodeQuality},
		{"maintenance", h.Breakdown.Maintenance},
	}
}

// PrintHealth outputs a repository health score, dispatching on the configured format.
func PrintHealth(repo schema.Repository, health schema.HealthScore, cfg *contract.Config) error {
	fmtFloat, _ := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSONHealth(w, repo, health)
		}, "Wrote JSON health score"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVHealth(w, repo, health, fmtFloat)
		}, "Wrote CSV health score"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	default:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeHealthTable(w, repo, health, cfg, fmtFloat)
		}, "Wrote health score"); err != nil {
			return fmt.Errorf("error writing table output: %w", err)
		}
	}
	return nil
}

func writeJSONHealth(w io.Writer, repo schema.Repository, health schema.HealthScore) error {
	type JSONHealth struct {
		Repository string `json:"repository"`
		Label      string `json:"label"`
		schema.HealthScore
	}
	return writeJSON(w, JSONHealth{
		Repository:  repo.FullName,
		Label:       contract.GetPlainLabel(float64(health.Overall)),
		HealthScore: health,
	})
}

// writeCSVHealth writes one metric per row so every value shares a single schema.
func writeCSVHealth(w io.Writer, repo schema.Repository, health schema.HealthScore, fmtFloat func(float64) string) error {
	return writeCSVWithHeader(w, []string{"repository", "metric", "value", "label"}, func(cw *csv.Writer) error {
		for _, d := range healthDimensions(health) {
			row := []string{repo.FullName, d.Name, strconv.Itoa(d.Score), contract.GetPlainLabel(float64(d.Score))}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		m := health.Metrics
		raw := [][2]string{
			{"total_commits", strconv.Itoa(m.TotalCommits)},
			{"active_contributors", strconv.Itoa(m.ActiveContributors)},
			{"commit_frequency", fmtFloat(m.CommitFrequency)},
			{"avg_response_time", fmtFloat(m.AvgResponseTime)},
			{"bug_fix_rate", fmtFloat(m.BugFixRate)},
		}
		for _, kv := range raw {
			if err := cw.Write([]string{repo.FullName, kv[0], kv[1], ""}); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeHealthTable(w io.Writer, repo schema.Repository, health schema.HealthScore, cfg *contract.Config, fmtFloat func(float64) string) error {
	label := contract.GetPlainLabel
	if cfg.UseColors {
		label = contract.GetColorLabel
	}

	var data [][]string
	for _, d := range healthDimensions(health) {
		data = append(data, []string{d.Name, strconv.Itoa(d.Score), label(float64(d.Score))})
	}
	if _, err := fmt.Fprintf(w, "Health of %s\n", repo.FullName); err != nil {
		return err
	}
	if err := renderTable(w, []string{"Dimension", "Score", "Label"}, data); err != nil {
		return err
	}

	m := health.Metrics
	if _, err := fmt.Fprintf(w, "Commits: %d, active contributors: %d, commits/week: %s, bug fix rate: %s%%\n",
		m.TotalCommits, m.ActiveContributors, fmtFloat(m.CommitFrequency), fmtFloat(m.BugFixRate*100)); err != nil {
		return err
	}
	if len(health.Recommendations) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "Recommendations:"); err != nil {
		return err
	}
	for _, r := range health.Recommendations {
		if _, err := fmt.Fprintf(w, "  - %s\n", r); err != nil {
			return err
		}
	}
	return nil
}
