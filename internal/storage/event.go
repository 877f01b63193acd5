package storage

import "time"

// Variant 标题变体：A = 感性，B = 事实
type Variant string

const (
	VariantA Variant = "A"
	VariantB Variant = "B"
)

// ExposureEvent 一张卡片在一次渲染中的曝光记录，写入后不再修改
type ExposureEvent struct {
	SessionID  string    `json:"sid"`
	Timestamp  time.Time `json:"ts"`
	Variant    Variant   `json:"variant"`
	Title      string    `json:"title"`
	URL        string    `json:"url"`
	Impression int       `json:"impression"`
	Click      int       `json:"click"`
	DwellMS    int       `json:"dwell_ms"`
	Position   int       `json:"position"`
}

// HasTimestamp 读日志时无法解析的 ts 会留下零值
func (e ExposureEvent) HasTimestamp() bool {
	return !e.Timestamp.IsZero()
}
