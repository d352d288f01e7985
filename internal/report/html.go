package report

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/yuin/goldmark"

	"github.com/joseph-ayodele/invoice-analyzer/internal/core/aggregate"
	"github.com/joseph-ayodele/invoice-analyzer/internal/entity"
)

// TopCategories is how many slices the category pie shows.
const TopCategories = 10

// HTMLSink renders a standalone page: narrative on the left, charts on the right.
type HTMLSink struct {
	dir    string
	name   string
	md     goldmark.Markdown
	logger *slog.Logger
}

func NewHTMLSink(dir, name string, logger *slog.Logger) *HTMLSink {
	if logger == nil {
		logger = slog.Default()
	}
	if name == "" {
		name = "summary.IA.html"
	}
	return &HTMLSink{dir: dir, name: name, md: goldmark.New(), logger: logger}
}

type chartSeries struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

type htmlView struct {
	RunID        string
	GeneratedAt  string
	Narrative    template.HTML
	NarrativeErr string
	Stats        entity.BatchStats
	Months       []entity.Amount
	Providers    chartSeries
	Categories   chartSeries
	Summary      entity.ExpenseSummary
}

func (s *HTMLSink) Write(ctx context.Context, in Input) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	start := time.Now()

	page, err := s.Render(in)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	path := filepath.Join(s.dir, s.name)
	if err := os.WriteFile(path, page, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}

	s.logger.Info("report.html.ok", "path", path, "bytes", len(page), "elapsed_ms", time.Since(start).Milliseconds())
	return path, nil
}

// Render returns the page bytes without touching the filesystem.
func (s *HTMLSink) Render(in Input) ([]byte, error) {
	out := in.Output
	view := htmlView{
		RunID:       in.RunID,
		GeneratedAt: out.GeneratedAt.Format(time.RFC3339),
		Stats:       out.Summary.Stats,
		Months:      aggregate.Sorted(out.Summary.MonthlyTotals),
		Providers:   series(aggregate.Ranked(out.Summary.ProviderTotals, 0)),
		Categories:  series(aggregate.Ranked(out.Summary.CategoryTotals, TopCategories)),
		Summary:     out.Summary,
	}

	if out.NarrativeErr != nil {
		view.NarrativeErr = out.Narrative
	} else {
		var md bytes.Buffer
		if err := s.md.Convert([]byte(out.Narrative), &md); err != nil {
			return nil, fmt.Errorf("render narrative: %w", err)
		}
		// goldmark escapes raw HTML unless WithUnsafe is set.
		view.Narrative = template.HTML(md.String())
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("execute template: %w", err)
	}
	return buf.Bytes(), nil
}

func series(amounts []entity.Amount) chartSeries {
	cs := chartSeries{Labels: make([]string, 0, len(amounts)), Values: make([]float64, 0, len(amounts))}
	for _, a := range amounts {
		cs.Labels = append(cs.Labels, a.Key)
		cs.Values = append(cs.Values, a.Value.Round(2).InexactFloat64())
	}
	return cs
}

var pageTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>Invoice Summary</title>
  <script src="https://cdn.jsdelivr.net/npm/chart.js"></script>
  <style>
    body { font-family: Arial, sans-serif; padding: 20px; }
    .grid-container { display: grid; grid-template-columns: 1fr 2fr; gap: 20px; }
    .summary-card, .chart-card { padding: 10px; border: 1px solid #ccc; border-radius: 8px; background: #f9f9f9; }
    .summary-card pre { white-space: pre-wrap; word-wrap: break-word; max-height: 600px; overflow: auto; }
    .right-column { display: grid; grid-template-columns: 1fr 1fr; gap: 20px; }
    table { border-collapse: collapse; }
    td, th { padding: 2px 8px; text-align: right; }
  </style>
</head>
<body>
  <div class="grid-container">
    <div class="summary-card">
      <h2>Executive Summary (AI)</h2>
      {{- if .NarrativeErr}}
      <pre class="error">{{.NarrativeErr}}</pre>
      {{- else}}
      <div class="narrative">{{.Narrative}}</div>
      {{- end}}
      <h3>Monthly Totals</h3>
      <table id="monthly">
        {{- range .Months}}
        <tr><th>{{.Key}}</th><td>{{.Value.StringFixed 2}}</td></tr>
        {{- end}}
      </table>
      <p class="stats">Documents: {{.Stats.Documents}} &middot; Processed: {{.Stats.Processed}} &middot; Failed: {{.Stats.Failed}} &middot; Items: {{.Stats.Items}} &middot; AI calls: {{.Stats.AICalls}}</p>
      {{- if .RunID}}
      <p class="run">Run {{.RunID}} generated {{.GeneratedAt}}</p>
      {{- end}}
    </div>
    <div class="right-column">
      <div class="chart-card">
        <h2>Provider Totals</h2>
        <canvas id="providerChart"></canvas>
      </div>
      <div class="chart-card">
        <h2>Top 10 Expense Categories</h2>
        <canvas id="topCategoryPieChart"></canvas>
      </div>
    </div>
  </div>
<script>
const summary = {{.Summary}};
const providers = {{.Providers}};
const categories = {{.Categories}};
new Chart(document.getElementById('providerChart').getContext('2d'), {
  type: 'bar',
  data: {
    labels: providers.labels,
    datasets: [{ label: 'Provider Totals', data: providers.values, backgroundColor: 'rgba(75,192,192,0.6)' }]
  },
  options: { indexAxis: 'y', responsive: true }
});
new Chart(document.getElementById('topCategoryPieChart').getContext('2d'), {
  type: 'pie',
  data: {
    labels: categories.labels,
    datasets: [{
      data: categories.values,
      backgroundColor: [
        'rgba(255,99,132,0.6)','rgba(54,162,235,0.6)','rgba(255,206,86,0.6)',
        'rgba(75,192,192,0.6)','rgba(153,102,255,0.6)','rgba(255,159,64,0.6)',
        'rgba(199,199,199,0.6)','rgba(83,102,255,0.6)','rgba(255,102,178,0.6)','rgba(102,255,153,0.6)'
      ]
    }]
  },
  options: { responsive: true }
});
</script>
</body>
</html>
`))
