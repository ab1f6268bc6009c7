package app

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/modelfetch/modelfetch/internal/domain"
)

// fileReport is the JSON shape for one file's outcome
type fileReport struct {
	Name    string `json:"name"`
	Size    int64  `json:"size"`
	Outcome string `json:"outcome"`
	Error   string `json:"error,omitempty"`
}

// modelReport is the JSON shape for one model's outcome
type modelReport struct {
	Name     string       `json:"name"`
	Status   string       `json:"status"`
	Duration string       `json:"duration"`
	Files    []fileReport `json:"files"`
	Error    string       `json:"error,omitempty"`
}

// batchReport is the JSON shape for a whole run
type batchReport struct {
	Total    int           `json:"total"`
	Success  int           `json:"success"`
	Failed   int           `json:"failed"`
	Duration string        `json:"duration"`
	Models   []modelReport `json:"models"`
}

func buildReport(batch *domain.BatchResult) batchReport {
	report := batchReport{
		Total:    len(batch.Models),
		Success:  batch.SuccessCount(),
		Failed:   len(batch.Models) - batch.SuccessCount(),
		Duration: batch.Duration.Round(time.Millisecond).String(),
	}

	for _, m := range batch.Models {
		mr := modelReport{
			Name:     m.Name,
			Status:   string(m.Status),
			Duration: m.Duration.Round(time.Millisecond).String(),
		}
		if m.Err != nil {
			mr.Error = m.Err.Error()
		}
		for _, f := range m.Files {
			fr := fileReport{
				Name:    f.Name,
				Size:    f.Size,
				Outcome: string(f.Outcome),
			}
			if f.Err != nil {
				fr.Error = f.Err.Error()
			}
			mr.Files = append(mr.Files, fr)
		}
		report.Models = append(report.Models, mr)
	}

	return report
}

// WriteJSONSummary writes the batch result as indented JSON
func WriteJSONSummary(w io.Writer, batch *domain.BatchResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(buildReport(batch))
}

// WriteSummary writes a human-readable batch summary listing every model's
// terminal status and every failed file's reason.
func WriteSummary(w io.Writer, batch *domain.BatchResult) {
	fmt.Fprintln(w)
	for _, m := range batch.Models {
		marker := "ok"
		if m.Status != domain.StatusDone {
			marker = "FAILED"
		}
		fmt.Fprintf(w, "%-8s %s (%d files, %s)\n", marker, m.Name, len(m.Files), m.Duration.Round(time.Millisecond))

		for _, f := range m.Files {
			if f.Outcome == domain.FileFailed {
				fmt.Fprintf(w, "         - %s: %v\n", f.Name, f.Err)
			}
		}
		if m.Err != nil && len(m.Failed()) == 0 {
			fmt.Fprintf(w, "         %v\n", m.Err)
		}
	}
	fmt.Fprintf(w, "\n%d/%d models succeeded in %s\n",
		batch.SuccessCount(), len(batch.Models), batch.Duration.Round(time.Millisecond))
}
