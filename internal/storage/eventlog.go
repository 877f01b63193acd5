package storage

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	logFilePrefix = "ab_headline_"
	dateLayout    = "2006-01-02"
)

// Columns 日志文件的列，顺序固定
var Columns = []string{"sid", "ts", "variant", "title", "url", "impression", "click", "dwell_ms", "position"}

// 读取时必须存在的列，其余缺失按零值处理
var requiredColumns = []string{"ts", "variant", "impression", "click", "dwell_ms"}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// 兼容旧日志中 "+00:00Z" 形式的时间戳
var tsLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999-07:00Z",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	dateLayout,
}

// EventLog 按 UTC 日期分文件的追加式 CSV 日志。
// 同一进程内的追加由互斥锁串行化，跨进程写同一文件时不保证行级原子性
type EventLog struct {
	dir string
	bom bool
	mu  sync.Mutex
}

func NewEventLog(dir string, bom bool) *EventLog {
	return &EventLog{dir: dir, bom: bom}
}

func (l *EventLog) Dir() string {
	return l.dir
}

// PathFor 返回某个 UTC 日期对应的日志文件
func (l *EventLog) PathFor(date time.Time) string {
	return filepath.Join(l.dir, logFilePrefix+date.UTC().Format(dateLayout)+".csv")
}

// Append 追加事件；文件不存在（或为空）时先写表头。events 为空时不触碰文件
func (l *EventLog) Append(events []ExposureEvent, date time.Time) error {
	if len(events) == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}

	path := l.PathFor(date)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat log %s: %w", path, err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if info.Size() == 0 {
		if l.bom {
			buf.Write(utf8BOM)
		}
		_ = w.Write(Columns)
	}
	for _, ev := range events {
		_ = w.Write(encodeRow(ev))
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("encode log rows: %w", err)
	}

	// 整批一次写入，减少与其他写者交错的机会
	if _, err := f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write log %s: %w", path, err)
	}
	return nil
}

// Read 读取某日日志。文件不存在返回空结果；整体解析失败时返回空结果和错误
func (l *EventLog) Read(date time.Time) ([]ExposureEvent, error) {
	path := l.PathFor(date)
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open log %s: %w", path, err)
	}
	defer f.Close()

	events, err := decode(f)
	if err != nil {
		return nil, fmt.Errorf("read log %s: %w", path, err)
	}
	return events, nil
}

// Tail 返回最后 n 行
func Tail(events []ExposureEvent, n int) []ExposureEvent {
	if n <= 0 {
		return nil
	}
	if len(events) <= n {
		return events
	}
	return events[len(events)-n:]
}

func encodeRow(ev ExposureEvent) []string {
	return []string{
		ev.SessionID,
		ev.Timestamp.UTC().Format(time.RFC3339Nano),
		string(ev.Variant),
		toValidUTF8(ev.Title),
		toValidUTF8(ev.URL),
		strconv.Itoa(ev.Impression),
		strconv.Itoa(ev.Click),
		strconv.Itoa(ev.DwellMS),
		strconv.Itoa(ev.Position),
	}
}

func decode(r io.Reader) ([]ExposureEvent, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	// 行字段数由下方按表头校验：短行补零，长行视为损坏
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	field := func(rec []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	var out []ExposureEvent
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(rec) > len(header) {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("record on line %d: %d fields, header has %d", line, len(rec), len(header))
		}
		out = append(out, ExposureEvent{
			SessionID:  field(rec, "sid"),
			Timestamp:  parseTimestamp(field(rec, "ts")),
			Variant:    Variant(strings.TrimSpace(field(rec, "variant"))),
			Title:      field(rec, "title"),
			URL:        field(rec, "url"),
			Impression: coerceInt(field(rec, "impression")),
			Click:      coerceInt(field(rec, "click")),
			DwellMS:    coerceInt(field(rec, "dwell_ms")),
			Position:   coerceInt(field(rec, "position")),
		})
	}
	return out, nil
}

// coerceInt 数值列解析失败或缺失时按 0 处理，"1.0" 之类的浮点文本截断为整数
func coerceInt(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int(f)
}

// parseTimestamp 无法解析时返回零值
func parseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range tsLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// toValidUTF8 将字符串规范为合法 UTF-8，避免 RSS 源混入的非法字节写坏日志
func toValidUTF8(s string) string {
	return strings.ToValidUTF8(s, "\uFFFD")
}
