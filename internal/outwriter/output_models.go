package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gitlegend/gitlegend/internal/contract"
	"github.com/gitlegend/gitlegend/schema"
)

// PrintModels outputs the model catalog, marking the models enabled in the active config.
func PrintModels(models []schema.ModelDescriptor, active schema.ModelConfig, cfg *contract.Config) error {
	fmtFloat, _ := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSONModels(w, models, active)
		}, "Wrote JSON models"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVModels(w, models, active, fmtFloat)
		}, "Wrote CSV models"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	default:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeModelTable(w, models, active, cfg, fmtFloat)
		}, "Wrote models"); err != nil {
			return fmt.Errorf("error writing table output: %w", err)
		}
	}
	return nil
}

// modelRole names the part a model plays in the active config.
func modelRole(id string, active schema.ModelConfig) string {
	switch {
	case id == active.Primary:
		return "primary"
	case id == active.Fallback:
		return "fallback"
	}
	for _, e := range active.Enabled {
		if e == id {
			return "enabled"
		}
	}
	return ""
}

func writeJSONModels(w io.Writer, models []schema.ModelDescriptor, active schema.ModelConfig) error {
	type JSONModel struct {
		schema.ModelDescriptor
		Role string `json:"role,omitempty"`
	}
	output := make([]JSONModel, len(models))
	for i, m := range models {
		output[i] = JSONModel{ModelDescriptor: m, Role: modelRole(m.ID, active)}
	}
	return writeJSON(w, output)
}

func writeCSVModels(w io.Writer, models []schema.ModelDescriptor, active schema.ModelConfig, fmtFloat func(float64) string) error {
	header := []string{
		"id", "name", "provider", "is_free", "recommended", "context_length",
		"input_price", "output_price", "rate_limit", "features", "role",
	}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, m := range models {
			row := []string{
				m.ID,
				m.Name,
				m.Provider,
				strconv.FormatBool(m.IsFree),
				strconv.FormatBool(m.Recommended),
				strconv.Itoa(m.ContextLength),
				fmtFloat(m.InputPrice),
				fmtFloat(m.OutputPrice),
				strconv.Itoa(m.RateLimit),
				strings.Join(m.Features, "|"),
				modelRole(m.ID, active),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeModelTable(w io.Writer, models []schema.ModelDescriptor, active schema.ModelConfig, cfg *contract.Config, fmtFloat func(float64) string) error {
	good, warn, _ := colorizers(cfg.UseColors)

	var data [][]string
	for _, m := range models {
		price := "free"
		if !m.IsFree {
			price = fmtFloat(m.InputPrice) + "/" + fmtFloat(m.OutputPrice)
		}
		rec := ""
		if m.Recommended {
			rec = good("yes")
		}
		role := modelRole(m.ID, active)
		if role == "primary" || role == "fallback" {
			role = warn(role)
		}
		data = append(data, []string{m.ID, m.Provider, strconv.Itoa(m.ContextLength), price, rec, role})
	}
	if err := renderTable(w, []string{"Model", "Provider", "Context", "Price ($/M in/out)", "Recommended", "Role"}, data); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Showing %d models\n", len(models))
	return err
}

// PrintModelConfigs outputs model config versions, newest first. A single
// element prints the active config.
func PrintModelConfigs(versions []schema.ModelConfigVersion, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			if len(versions) == 1 {
				return writeJSON(w, versions[0])
			}
			return writeJSON(w, versions)
		}, "Wrote JSON model config"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVModelConfigs(w, versions)
		}, "Wrote CSV model config"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	default:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeModelConfigTable(w, versions)
		}, "Wrote model config"); err != nil {
			return fmt.Errorf("error writing table output: %w", err)
		}
	}
	return nil
}

func writeCSVModelConfigs(w io.Writer, versions []schema.ModelConfigVersion) error {
	header := []string{"version", "primary", "fallback", "enabled", "updated_by", "created_at"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, v := range versions {
			row := []string{
				strconv.FormatInt(v.Version, 10),
				v.Primary,
				v.Fallback,
				strings.Join(v.Enabled, "|"),
				v.UpdatedBy,
				formatTime(v.CreatedAt),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeModelConfigTable(w io.Writer, versions []schema.ModelConfigVersion) error {
	var data [][]string
	for _, v := range versions {
		version := strconv.FormatInt(v.Version, 10)
		if v.Version == 0 {
			version = "default"
		}
		data = append(data, []string{
			version,
			v.Primary,
			v.Fallback,
			strconv.Itoa(len(v.Enabled)),
			v.UpdatedBy,
			formatTime(v.CreatedAt),
		})
	}
	return renderTable(w, []string{"Version", "Primary", "Fallback", "Enabled", "Updated By", "Created"}, data)
}

// ModelAvailability is the probe result of one model.
type ModelAvailability struct {
	ModelID   string `json:"model_id"`
	Available bool   `json:"available"`
}

// PrintAvailability outputs model probe results.
func PrintAvailability(results []ModelAvailability, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, results)
		}, "Wrote JSON availability"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVWithHeader(w, []string{"model_id", "available"}, func(cw *csv.Writer) error {
				for _, r := range results {
					if err := cw.Write([]string{r.ModelID, strconv.FormatBool(r.Available)}); err != nil {
						return err
					}
				}
				return nil
			})
		}, "Wrote CSV availability"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	default:
		good, _, bad := colorizers(cfg.UseColors)
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			var data [][]string
			for _, r := range results {
				status := bad("unavailable")
				if r.Available {
					status = good("available")
				}
				data = append(data, []string{r.ModelID, status})
			}
			return renderTable(w, []string{"Model", "Status"}, data)
		}, "Wrote availability"); err != nil {
			return fmt.Errorf("error writing table output: %w", err)
		}
	}
	return nil
}
