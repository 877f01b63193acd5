package report

import (
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/LJTian/KpopABLab/internal/storage"
)

// Overall 全部事件的汇总
type Overall struct {
	Impressions int     `json:"impressions"`
	Clicks      int     `json:"clicks"`
	CTR         float64 `json:"ctr"`
	MeanDwell   float64 `json:"mean_dwell_ms"`
}

// VariantRow 单个变体的汇总，CTR 为百分比
type VariantRow struct {
	Variant     storage.Variant `json:"variant"`
	Impressions int             `json:"impressions"`
	Clicks      int             `json:"clicks"`
	CTR         float64         `json:"ctr"`
	AvgDwell    float64         `json:"avg_dwell_ms"`
}

// CTR 返回 100 × clicks / impressions，impressions 为 0 时返回 0
func CTR(clicks, impressions int) float64 {
	if impressions == 0 {
		return 0
	}
	return 100 * float64(clicks) / float64(impressions)
}

// Summarize 纯函数，结果只取决于输入；变体按标签排序
func Summarize(events []storage.ExposureEvent) (Overall, []VariantRow) {
	var overall Overall
	if len(events) == 0 {
		return overall, nil
	}

	type acc struct {
		imp, clk, dwell, n int
	}
	groups := make(map[storage.Variant]*acc)
	dwellSum := 0
	for _, ev := range events {
		overall.Impressions += ev.Impression
		overall.Clicks += ev.Click
		dwellSum += ev.DwellMS

		g, ok := groups[ev.Variant]
		if !ok {
			g = &acc{}
			groups[ev.Variant] = g
		}
		g.imp += ev.Impression
		g.clk += ev.Click
		g.dwell += ev.DwellMS
		g.n++
	}
	overall.CTR = CTR(overall.Clicks, overall.Impressions)
	overall.MeanDwell = float64(dwellSum) / float64(len(events))

	rows := make([]VariantRow, 0, len(groups))
	for v, g := range groups {
		rows = append(rows, VariantRow{
			Variant:     v,
			Impressions: g.imp,
			Clicks:      g.clk,
			CTR:         CTR(g.clk, g.imp),
			AvgDwell:    round1(float64(g.dwell) / float64(g.n)),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Variant < rows[j].Variant })
	return overall, rows
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}

// RenderTable 以表格形式输出汇总，供命令行使用
func RenderTable(w io.Writer, overall Overall, rows []VariantRow) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Per-variant performance")
	t.AppendHeader(table.Row{"variant", "impressions", "clicks", "ctr(%)", "avg_dwell"})
	for _, r := range rows {
		t.AppendRow(table.Row{
			string(r.Variant),
			r.Impressions,
			r.Clicks,
			fmt.Sprintf("%.2f", r.CTR),
			fmt.Sprintf("%.1f", r.AvgDwell),
		})
	}
	t.AppendFooter(table.Row{
		"total",
		FormatThousands(overall.Impressions),
		FormatThousands(overall.Clicks),
		fmt.Sprintf("%.2f", overall.CTR),
		fmt.Sprintf("%.0f", overall.MeanDwell),
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight, AlignFooter: text.AlignRight},
		{Number: 3, Align: text.AlignRight, AlignFooter: text.AlignRight},
		{Number: 4, Align: text.AlignRight, AlignFooter: text.AlignRight},
		{Number: 5, Align: text.AlignRight, AlignFooter: text.AlignRight},
	})
	t.Render()
}

// FormatThousands 1234567 -> "1,234,567"
func FormatThousands(n int) string {
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	s := fmt.Sprintf("%d", n)
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return sign + s
}
