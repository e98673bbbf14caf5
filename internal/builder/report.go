package builder

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// CategoryReport is the outcome for one metadata file.
type CategoryReport struct {
	Name       string `yaml:"name"`
	Source     string `yaml:"source"`
	Train      int    `yaml:"train"`
	Test       int    `yaml:"test"`
	Masks      int    `yaml:"masks"`
	Created    int    `yaml:"created"`
	Missing    int    `yaml:"missing"`
	Skipped    int    `yaml:"skipped,omitempty"`
	Duplicates int    `yaml:"duplicates,omitempty"`
	Error      string `yaml:"error,omitempty"`
}

// Failed reports whether the category was abandoned.
func (c CategoryReport) Failed() bool {
	return c.Error != ""
}

// Report summarizes a build run.
type Report struct {
	StartedAt           time.Time        `yaml:"started_at"`
	CompletedAt         time.Time        `yaml:"completed_at"`
	RunID               string           `yaml:"run_id,omitempty"`
	OutputDir           string           `yaml:"output_dir"`
	Categories          []CategoryReport `yaml:"categories"`
	CategoriesProcessed int              `yaml:"categories_processed"`
	CategoriesFailed    int              `yaml:"categories_failed"`
	TotalCreated        int              `yaml:"total_created"`
	TotalMissing        int              `yaml:"total_missing"`
	DryRun              bool             `yaml:"dry_run"`
}

func (r *Report) add(c CategoryReport) {
	r.Categories = append(r.Categories, c)
	if c.Failed() {
		r.CategoriesFailed++
	} else {
		r.CategoriesProcessed++
	}
	r.TotalCreated += c.Created
	r.TotalMissing += c.Missing
}

func (r *Report) finish() {
	r.CompletedAt = time.Now().UTC()
}

// Category returns the report for a category by name.
func (r *Report) Category(name string) (CategoryReport, bool) {
	for _, c := range r.Categories {
		if c.Name == name {
			return c, true
		}
	}
	return CategoryReport{}, false
}

// WriteSummary prints the human-readable end-of-run summary.
func (r *Report) WriteSummary(w io.Writer) error {
	rule := strings.Repeat("=", 60)
	verb := "created"
	if r.DryRun {
		verb = "planned"
	}

	var b strings.Builder
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "Summary:")
	for _, c := range r.Categories {
		if c.Failed() {
			fmt.Fprintf(&b, "  - %s: FAILED (%s)\n", c.Name, c.Error)
			continue
		}
		fmt.Fprintf(&b, "  - %s: %d %s (%d train, %d test, %d masks), %d missing",
			c.Name, c.Created, verb, c.Train, c.Test, c.Masks, c.Missing)
		if c.Skipped > 0 {
			fmt.Fprintf(&b, ", %d skipped", c.Skipped)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "  - Categories processed: %d\n", r.CategoriesProcessed)
	if r.CategoriesFailed > 0 {
		fmt.Fprintf(&b, "  - Categories failed: %d\n", r.CategoriesFailed)
	}
	fmt.Fprintf(&b, "  - Total symlinks %s: %d\n", verb, r.TotalCreated)
	fmt.Fprintf(&b, "  - Missing files: %d\n", r.TotalMissing)
	fmt.Fprintf(&b, "  - Output directory: %s\n", r.OutputDir)
	fmt.Fprintln(&b, rule)

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteYAML saves the report to path, replacing any previous file atomically.
func (r *Report) WriteYAML(path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".report-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp report: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close report: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename report: %w", err)
	}
	return nil
}
