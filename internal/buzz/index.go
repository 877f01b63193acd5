package buzz

import (
	"math"
	"sort"
)

// 各信号权重
const (
	weightYouTube   = 0.5
	weightWikipedia = 0.3
	weightLastFM    = 0.2
)

// Row 一位艺人的原始信号、标准化分数和综合指数
type Row struct {
	Artist        string
	YTViewsSum    int64
	WikiViewsMean float64
	LFMListeners  float64
	LFMPlaycount  float64

	YTViewsSumZ    float64
	WikiViewsMeanZ float64
	LFMListenersZ  float64
	Index          float64
}

// ZScore 使用总体标准差；标准差为 0 时全部返回 0
func ZScore(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}

	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	std := math.Sqrt(variance / float64(len(values)))
	if std == 0 || math.IsNaN(std) {
		return out
	}
	for i, v := range values {
		out[i] = (v - mean) / std
	}
	return out
}

// Score 计算标准化分数和指数，并按指数降序稳定排序
func Score(rows []Row) {
	yt := make([]float64, len(rows))
	wiki := make([]float64, len(rows))
	lfm := make([]float64, len(rows))
	for i, r := range rows {
		yt[i] = float64(r.YTViewsSum)
		wiki[i] = r.WikiViewsMean
		lfm[i] = r.LFMListeners
	}
	ytZ, wikiZ, lfmZ := ZScore(yt), ZScore(wiki), ZScore(lfm)

	for i := range rows {
		rows[i].YTViewsSumZ = ytZ[i]
		rows[i].WikiViewsMeanZ = wikiZ[i]
		rows[i].LFMListenersZ = lfmZ[i]
		rows[i].Index = weightYouTube*ytZ[i] + weightWikipedia*wikiZ[i] + weightLastFM*lfmZ[i]
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Index > rows[j].Index })
}
