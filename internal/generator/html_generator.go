package generator

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/atomic"

	"github.com/Zachdehooge/observatorio/internal/aggregate"
	"github.com/Zachdehooge/observatorio/internal/fetcher"
)

// RankingSize is the number of beneficiaries in the report ranking.
const RankingSize = 5

// Report is the beneficiary report: audited total, contract count and the
// largest beneficiaries.
type Report struct {
	GeneratedAt time.Time
	Total       float64
	Count       int
	Ranking     []aggregate.BeneficiaryTotal
	Labels      []string
	Values      []float64
	Alerts      []fetcher.Alert
}

// NewReport builds the report for c.
func NewReport(c fetcher.Collections, now time.Time) Report {
	ranking := aggregate.TopBeneficiaries(c.Subsidies, RankingSize)
	labels := make([]string, 0, len(ranking))
	values := make([]float64, 0, len(ranking))
	for _, b := range ranking {
		labels = append(labels, b.Beneficiary)
		values = append(values, b.Total)
	}
	return Report{
		GeneratedAt: now,
		Total:       aggregate.SubsidyTotal(c.Subsidies),
		Count:       len(c.Subsidies),
		Ranking:     ranking,
		Labels:      labels,
		Values:      values,
		Alerts:      c.Alerts,
	}
}

// GenerateDashboardHTML writes a standalone dashboard to outputPath along
// with the stylesheet, script and manifest it links to.
func (r *Renderer) GenerateDashboardHTML(p Page, outputPath string) error {
	p.Static = true
	var buf bytes.Buffer
	if err := r.Page(&buf, p); err != nil {
		return err
	}
	if err := WriteStaticAssets(filepath.Dir(outputPath)); err != nil {
		return err
	}
	return atomic.WriteFile(outputPath, &buf)
}

// GenerateReportHTML writes the beneficiary report to outputPath.
func (r *Renderer) GenerateReportHTML(rep Report, outputPath string) error {
	var buf bytes.Buffer
	if err := r.Report(&buf, rep); err != nil {
		return err
	}
	if err := WriteStaticAssets(filepath.Dir(outputPath)); err != nil {
		return err
	}
	return atomic.WriteFile(outputPath, &buf)
}

// WriteStaticAssets copies the embedded assets into dir.
func WriteStaticAssets(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	assets := Static()
	return fs.WalkDir(assets, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := fs.ReadFile(assets, path)
		if err != nil {
			return err
		}
		return atomic.WriteFile(filepath.Join(dir, path), bytes.NewReader(data))
	})
}
