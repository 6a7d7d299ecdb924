package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/gitlegend/gitlegend/internal/contract"
	"github.com/gitlegend/gitlegend/schema"
)

// PrintAnalyses outputs analysis runs, dispatching on the configured format.
func PrintAnalyses(runs []schema.AnalysisRun, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			if len(runs) == 1 {
				return writeJSON(w, runs[0])
			}
			return writeJSON(w, runs)
		}, "Wrote JSON analyses"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVAnalyses(w, runs)
		}, "Wrote CSV analyses"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	default:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeAnalysisTable(w, runs, cfg)
		}, "Wrote analyses"); err != nil {
			return fmt.Errorf("error writing table output: %w", err)
		}
	}
	return nil
}

func writeCSVAnalyses(w io.Writer, runs []schema.AnalysisRun) error {
	header := []string{
		"id", "repository_id", "status", "progress", "error", "created_at", "completed_at",
		"commits_found", "key_commits", "summaries_generated", "model_usage",
	}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, r := range runs {
			row := []string{
				r.ID,
				r.RepositoryID,
				string(r.Status),
				strconv.Itoa(r.Progress),
				r.Error,
				formatTime(r.CreatedAt),
				formatTimePtr(r.CompletedAt),
				strconv.Itoa(r.CommitsFound),
				strconv.Itoa(r.KeyCommits),
				strconv.Itoa(r.SummariesGenerated),
				formatUsage(r.ModelUsage),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeAnalysisTable(w io.Writer, runs []schema.AnalysisRun, cfg *contract.Config) error {
	good, warn, bad := colorizers(cfg.UseColors)
	errWidth := GetMaxTableTextWidth(cfg, 100)

	var data [][]string
	for _, r := range runs {
		status := string(r.Status)
		switch r.Status {
		case schema.CompletedStatus:
			status = good(status)
		case schema.FailedStatus:
			status = bad(status)
		default:
			status = warn(status)
		}
		data = append(data, []string{
			r.ID,
			status,
			strconv.Itoa(r.Progress) + "%",
			strconv.Itoa(r.CommitsFound),
			strconv.Itoa(r.KeyCommits),
			strconv.Itoa(r.SummariesGenerated),
			formatTime(r.CreatedAt),
			contract.TruncateText(r.Error, errWidth),
		})
	}
	return renderTable(w, []string{"ID", "Status", "Progress", "Commits", "Key", "Summaries", "Created", "Error"}, data)
}

// PrintDashboard outputs store-wide statistics.
func PrintDashboard(stats schema.DashboardStats, cfg *contract.Config) error {
	rows := [][]string{
		{"repositories", strconv.Itoa(stats.Repositories)},
		{"analyses", strconv.Itoa(stats.Analyses)},
		{"processing", strconv.Itoa(stats.Processing)},
		{"commits", strconv.Itoa(stats.Commits)},
		{"recent_activity", strconv.Itoa(stats.RecentActivity)},
	}

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, stats)
		}, "Wrote JSON dashboard"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVWithHeader(w, []string{"metric", "value"}, func(cw *csv.Writer) error {
				return cw.WriteAll(rows)
			})
		}, "Wrote CSV dashboard"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	default:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return renderTable(w, []string{"Metric", "Value"}, rows)
		}, "Wrote dashboard"); err != nil {
			return fmt.Errorf("error writing table output: %w", err)
		}
	}
	return nil
}
