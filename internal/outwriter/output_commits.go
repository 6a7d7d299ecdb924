package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/gitlegend/gitlegend/internal/contract"
	"github.com/gitlegend/gitlegend/schema"
)

// PrintCommits outputs scored commits, dispatching on the configured format.
func PrintCommits(commits []schema.ScoredCommit, cfg *contract.Config) error {
	fmtFloat, intFmt := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, commits)
		}, "Wrote JSON commits"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVCommits(w, commits, fmtFloat, intFmt)
		}, "Wrote CSV commits"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	default:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCommitTable(w, commits, cfg, fmtFloat)
		}, "Wrote commits"); err != nil {
			return fmt.Errorf("error writing table output: %w", err)
		}
	}
	return nil
}

func writeCSVCommits(w io.Writer, commits []schema.ScoredCommit, fmtFloat func(float64) string, intFmt string) error {
	header := []string{
		"sha", "author", "author_date", "additions", "deletions", "files_changed",
		"significance", "is_key_commit", "model_used", "message", "summary",
	}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, c := range commits {
			row := []string{
				c.SHA,
				c.AuthorName,
				formatTime(c.AuthorDate),
				fmt.Sprintf(intFmt, c.Additions),
				fmt.Sprintf(intFmt, c.Deletions),
				fmt.Sprintf(intFmt, c.FilesChanged),
				fmtFloat(c.Significance),
				strconv.FormatBool(c.IsKeyCommit),
				c.ModelUsed,
				c.Message,
				c.Summary,
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeCommitTable(w io.Writer, commits []schema.ScoredCommit, cfg *contract.Config, fmtFloat func(float64) string) error {
	good, _, _ := colorizers(cfg.UseColors)
	textWidth := GetMaxTableTextWidth(cfg, 70)

	var data [][]string
	keyCount := 0
	for _, c := range commits {
		key := ""
		if c.IsKeyCommit {
			key = good("★")
			keyCount++
		}
		text := c.Message
		if c.Summary != "" {
			text = c.Summary
		}
		data = append(data, []string{
			contract.ShortSHA(c.SHA),
			c.AuthorDate.UTC().Format("2006-01-02"),
			contract.TruncateText(c.AuthorName, 20),
			fmtFloat(c.Significance),
			key,
			contract.TruncateText(text, textWidth),
		})
	}
	if err := renderTable(w, []string{"SHA", "Date", "Author", "Significance", "Key", "Message"}, data); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Showing %d commits (%d key commits)\n", len(commits), keyCount)
	return err
}

// PrintContributors outputs contributor rollups, dispatching on the configured format.
func PrintContributors(contributors []schema.ContributorRollup, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSONContributors(w, contributors)
		}, "Wrote JSON contributors"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVContributors(w, contributors)
		}, "Wrote CSV contributors"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	default:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeContributorTable(w, contributors, cfg)
		}, "Wrote contributors"); err != nil {
			return fmt.Errorf("error writing table output: %w", err)
		}
	}
	return nil
}

// writeJSONContributors adds a 1-based rank to each rollup.
func writeJSONContributors(w io.Writer, contributors []schema.ContributorRollup) error {
	type JSONContributor struct {
		Rank int `json:"rank"`
		schema.ContributorRollup
	}
	output := make([]JSONContributor, len(contributors))
	for i, c := range contributors {
		output[i] = JSONContributor{Rank: i + 1, ContributorRollup: c}
	}
	return writeJSON(w, output)
}

func writeCSVContributors(w io.Writer, contributors []schema.ContributorRollup) error {
	header := []string{
		"rank", "github_id", "login", "name", "email", "commits",
		"additions", "deletions", "is_first_contributor", "is_top_contributor",
	}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for i, c := range contributors {
			row := []string{
				strconv.Itoa(i + 1),
				c.GitHubID,
				c.Login,
				c.Name,
				c.Email,
				strconv.Itoa(c.CommitsCount),
				strconv.Itoa(c.Additions),
				strconv.Itoa(c.Deletions),
				strconv.FormatBool(c.IsFirstContributor),
				strconv.FormatBool(c.IsTopContributor),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeContributorTable(w io.Writer, contributors []schema.ContributorRollup, cfg *contract.Config) error {
	good, warn, _ := colorizers(cfg.UseColors)

	var data [][]string
	total := 0
	for i, c := range contributors {
		total += c.CommitsCount
		name := c.Login
		if name == "" {
			name = c.Name
		}
		badge := ""
		switch {
		case c.IsFirstContributor:
			badge = good("first")
		case c.IsTopContributor:
			badge = warn("top")
		}
		data = append(data, []string{
			strconv.Itoa(i + 1),
			contract.TruncateText(name, 30),
			strconv.Itoa(c.CommitsCount),
			"+" + strconv.Itoa(c.Additions),
			"-" + strconv.Itoa(c.Deletions),
			badge,
		})
	}
	if err := renderTable(w, []string{"Rank", "Contributor", "Commits", "Additions", "Deletions", "Badge"}, data); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Showing %d contributors (total commits: %d)\n", len(contributors), total)
	return err
}
