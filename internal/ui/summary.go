package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/getlawrence/instrumentation-explorer/pkg/instrumentation/pipeline"
	"github.com/getlawrence/instrumentation-explorer/pkg/instrumentation/types"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	latestStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

// RenderSummary formats the outcome of a generation run.
func RenderSummary(outputDir string, stats pipeline.Stats, manifests []*types.VersionManifest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", headerStyle.Render("📊 Statistics"))
	b.WriteString(strings.Repeat("=", 13))
	b.WriteString("\n\n")

	summary := []string{
		fmt.Sprintf("📂 Output: %s", outputDir),
		fmt.Sprintf("📦 Unique instrumentations: %d", stats.UniqueInstrumentations),
		fmt.Sprintf("🗂️  Versions processed: %d", stats.VersionsProcessed),
		fmt.Sprintf("🔗 Total instrumentations: %d", stats.TotalInstrumentations),
	}
	if stats.MarkdownDocuments > 0 {
		summary = append(summary, fmt.Sprintf("📝 Markdown documents: %d", stats.MarkdownDocuments))
	}
	if stats.ConventionMetrics > 0 {
		summary = append(summary, fmt.Sprintf("📐 Semantic convention metrics: %d", stats.ConventionMetrics))
	}
	if savings := stats.Savings(); savings > 0 {
		summary = append(summary, fmt.Sprintf("♻️  Deduplication savings: %.1f%%", savings))
	}
	b.WriteString(strings.Join(summary, "\n"))
	b.WriteString("\n")

	if len(manifests) > 0 {
		b.WriteString("\n")
		b.WriteString("Versions:\n")
		b.WriteString(strings.Repeat("-", 9))
		b.WriteString("\n")
		for _, m := range manifests {
			line := fmt.Sprintf("  • %s: %d instrumentations", m.Version, m.Metadata.TotalCount)
			if m.Metadata.ChangedFromPrevious != nil {
				line += fmt.Sprintf(", %d new/changed", *m.Metadata.ChangedFromPrevious)
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// RenderVersions formats detected versions, marking the latest.
func RenderVersions(vs []VersionLine) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📂 Found %d version(s):\n", len(vs))
	for _, v := range vs {
		switch {
		case v.IsLatest:
			fmt.Fprintf(&b, "   - %s %s\n", v.Version, latestStyle.Render("(latest)"))
		case v.Preview:
			fmt.Fprintf(&b, "   - %s (preview)\n", v.Version)
		default:
			fmt.Fprintf(&b, "   - %s\n", v.Version)
		}
	}
	return b.String()
}

// VersionLine is one row of RenderVersions.
type VersionLine struct {
	Version  string
	IsLatest bool
	Preview  bool
}
