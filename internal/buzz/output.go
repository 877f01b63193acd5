package buzz

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gorm.io/datatypes"

	"github.com/LJTian/KpopABLab/internal/storage"
)

// ReportTop 报告中列出的名次数
const ReportTop = 10

var csvColumns = []string{
	"artist", "yt_views_sum", "wiki_views_mean", "lfm_listeners", "lfm_playcount",
	"yt_views_sum_z", "wiki_views_mean_z", "lfm_listeners_z", "kbuzz_index",
}

// WriteCSV 按当前顺序写出全部结果，自动创建目录
func WriteCSV(path string, rows []Row) error {
	if err := ensureParent(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	_ = w.Write(csvColumns)
	for _, r := range rows {
		_ = w.Write([]string{
			r.Artist,
			strconv.FormatInt(r.YTViewsSum, 10),
			formatFloat(r.WikiViewsMean),
			formatFloat(r.LFMListeners),
			formatFloat(r.LFMPlaycount),
			formatFloat(r.YTViewsSumZ),
			formatFloat(r.WikiViewsMeanZ),
			formatFloat(r.LFMListenersZ),
			formatFloat(r.Index),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// RenderReport 纯文本排行，最多 ReportTop 名
func RenderReport(rows []Row) string {
	lines := []string{fmt.Sprintf("# K-Buzz Index (top %d)", ReportTop), ""}
	for i, r := range rows {
		if i >= ReportTop {
			break
		}
		lines = append(lines, fmt.Sprintf("%d. %s: %.2f", i+1, r.Artist, r.Index))
	}
	return strings.Join(lines, "\n")
}

func WriteReport(path string, rows []Row) error {
	if err := ensureParent(path); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(RenderReport(rows)), 0o644); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return nil
}

// ToSnapshots 转成可入库的快照，Rank 从 1 开始
func ToSnapshots(runDate string, rows []Row) []storage.BuzzSnapshot {
	out := make([]storage.BuzzSnapshot, 0, len(rows))
	for i, r := range rows {
		out = append(out, storage.BuzzSnapshot{
			RunDate:       runDate,
			Rank:          i + 1,
			Artist:        r.Artist,
			YTViewsSum:    float64(r.YTViewsSum),
			WikiViewsMean: r.WikiViewsMean,
			LFMListeners:  r.LFMListeners,
			LFMPlaycount:  r.LFMPlaycount,
			Index:         r.Index,
			Signals: datatypes.JSONMap{
				"yt_views_sum_z":    r.YTViewsSumZ,
				"wiki_views_mean_z": r.WikiViewsMeanZ,
				"lfm_listeners_z":   r.LFMListenersZ,
			},
		})
	}
	return out
}

func ensureParent(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}
	return nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
