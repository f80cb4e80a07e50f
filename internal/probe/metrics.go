package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/prometheus/common/expfmt"
)

// Family summarizes one metric family from a metrics exposition.
type Family struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Help    string `json:"help,omitempty"`
	Samples int    `json:"series"`
	// Value is set for single-sample gauge, counter, and untyped families.
	Value *float64 `json:"value,omitempty"`
}

// MetricsReport is a parsed summary of a metrics exposition.
type MetricsReport struct {
	Families []Family
	Samples  int
}

// FetchMetrics retrieves and parses the Prometheus text exposition at path.
func (p *Prober) FetchMetrics(ctx context.Context, path string) (*MetricsReport, error) {
	url := p.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching metrics: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("metrics endpoint returned %d", resp.StatusCode)
	}
	return ParseMetrics(resp.Body)
}

// ParseMetrics decodes a text-format exposition into a report with families
// sorted by name.
func ParseMetrics(r io.Reader) (*MetricsReport, error) {
	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(r)
	if err != nil {
		return nil, fmt.Errorf("parsing metrics exposition: %w", err)
	}
	report := &MetricsReport{Families: make([]Family, 0, len(families))}
	for name, mf := range families {
		f := Family{
			Name:    name,
			Type:    strings.ToLower(mf.GetType().String()),
			Help:    mf.GetHelp(),
			Samples: len(mf.GetMetric()),
		}
		if f.Samples == 1 {
			m := mf.GetMetric()[0]
			switch {
			case m.GetGauge() != nil:
				v := m.GetGauge().GetValue()
				f.Value = &v
			case m.GetCounter() != nil:
				v := m.GetCounter().GetValue()
				f.Value = &v
			case m.GetUntyped() != nil:
				v := m.GetUntyped().GetValue()
				f.Value = &v
			}
		}
		report.Samples += f.Samples
		report.Families = append(report.Families, f)
	}
	sort.Slice(report.Families, func(i, j int) bool {
		return report.Families[i].Name < report.Families[j].Name
	})
	return report, nil
}

// Filter returns the families whose name contains substr. An empty substr
// returns all families.
func (r *MetricsReport) Filter(substr string) []Family {
	if substr == "" {
		return r.Families
	}
	var out []Family
	for _, f := range r.Families {
		if strings.Contains(f.Name, substr) {
			out = append(out, f)
		}
	}
	return out
}
