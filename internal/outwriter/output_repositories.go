package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/gitlegend/gitlegend/internal/contract"
	"github.com/gitlegend/gitlegend/schema"
)

// PrintRepositories outputs imported repositories, dispatching on the configured format.
func PrintRepositories(repos []schema.Repository, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, repos)
		}, "Wrote JSON repositories"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVRepositories(w, repos)
		}, "Wrote CSV repositories"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	default:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeRepositoryTable(w, repos, cfg)
		}, "Wrote repositories"); err != nil {
			return fmt.Errorf("error writing table output: %w", err)
		}
	}
	return nil
}

func writeCSVRepositories(w io.Writer, repos []schema.Repository) error {
	header := []string{"id", "full_name", "language", "stars", "forks", "private", "url", "created_at", "last_analyzed_at"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, r := range repos {
			row := []string{
				r.ID,
				r.FullName,
				r.Language,
				strconv.Itoa(r.Stars),
				strconv.Itoa(r.Forks),
				strconv.FormatBool(r.Private),
				r.URL,
				formatTime(r.CreatedAt),
				formatTimePtr(r.LastAnalyzedAt),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeRepositoryTable(w io.Writer, repos []schema.Repository, cfg *contract.Config) error {
	descWidth := GetMaxTableTextWidth(cfg, 90)
	var data [][]string
	for _, r := range repos {
		analyzed := formatTimePtr(r.LastAnalyzedAt)
		if analyzed == "" {
			analyzed = "never"
		}
		data = append(data, []string{
			r.ID,
			r.FullName,
			r.Language,
			strconv.Itoa(r.Stars),
			analyzed,
			contract.TruncateText(r.Description, descWidth),
		})
	}
	if err := renderTable(w, []string{"ID", "Repository", "Language", "Stars", "Last Analyzed", "Description"}, data); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Showing %d repositories\n", len(repos))
	return err
}
