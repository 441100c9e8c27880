package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/tracesearch/trace-ablate/internal/pkg/logger"
)

// Writer renders a report to an output directory. Each format is fully built
// in memory before its file is created, so a failed run never leaves partial
// output behind.
type Writer struct {
	dir string
	log *logger.Logger
}

// NewWriter creates a writer targeting dir.
func NewWriter(dir string, log *logger.Logger) *Writer {
	if log == nil {
		log = logger.Default()
	}
	return &Writer{dir: dir, log: log}
}

// Write renders the report as report.json, report.csv, and report.md. The
// three files are independent, so they are written concurrently; the first
// failure aborts the rest.
func (w *Writer) Write(rep Report) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	renderers := []struct {
		name   string
		render func(Report) ([]byte, error)
	}{
		{"report.json", renderJSON},
		{"report.csv", renderCSV},
		{"report.md", renderMarkdown},
	}

	var g errgroup.Group
	for _, r := range renderers {
		g.Go(func() error {
			data, err := r.render(rep)
			if err != nil {
				return fmt.Errorf("render %s: %w", r.name, err)
			}
			path := filepath.Join(w.dir, r.name)
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", r.name, err)
			}
			w.log.Info("report written", "path", path)
			return nil
		})
	}
	return g.Wait()
}

func renderJSON(rep Report) ([]byte, error) {
	return json.MarshalIndent(rep, "", "  ")
}

func renderCSV(rep Report) ([]byte, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)

	header := []string{
		"key", "measurements",
		"mean_precision", "mean_recall", "mean_f1",
		"stddev_f1", "min_f1", "max_f1",
		"mean_impact", "mean_execution_ms",
	}
	if err := cw.Write(header); err != nil {
		return nil, err
	}
	for _, s := range rep.Summaries {
		row := []string{
			s.Key,
			fmt.Sprintf("%d", s.Measurements),
			formatFloat(s.MeanPrecision),
			formatFloat(s.MeanRecall),
			formatFloat(s.MeanF1),
			formatFloat(s.StdDevF1),
			formatFloat(s.MinF1),
			formatFloat(s.MaxF1),
			formatFloat(s.MeanImpact),
			formatFloat(s.MeanExecutionMS),
		}
		if err := cw.Write(row); err != nil {
			return nil, err
		}
	}
	cw.Flush()
	return buf.Bytes(), cw.Error()
}

func renderMarkdown(rep Report) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# Ablation Report\n\n")
	fmt.Fprintf(&buf, "Run `%s`, generated %s.\n\n", rep.RunID, rep.GeneratedAt.Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&buf, "| Key | N | Precision | Recall | F1 | Impact |\n")
	fmt.Fprintf(&buf, "|-----|---|-----------|--------|----|--------|\n")
	for _, s := range rep.Summaries {
		fmt.Fprintf(&buf, "| %s | %d | %.3f | %.3f | %.3f | %.3f |\n",
			s.Key, s.Measurements, s.MeanPrecision, s.MeanRecall, s.MeanF1, s.MeanImpact)
	}
	return buf.Bytes(), nil
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%.6f", v)
}
