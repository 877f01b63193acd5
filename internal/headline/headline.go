package headline

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// Placeholder 用于标题缺失时
const Placeholder = "(no title)"

var (
	emojis   = []string{"✨", "🔥", "💥", "🎶", "🚀", "💎", "🌟", "📈"}
	factTags = []string{"[official]", "[breaking]", "[data]", "[stats]", "[summary]"}
)

const factualSuffix = "key metrics & links"

// Pair 是同一标题的两种呈现：A = 感性，B = 事实
type Pair struct {
	Emotional string
	Factual   string
}

// Generator 生成标题对。随机源可注入，便于测试复现
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator rng 为 nil 时按当前时间播种
func NewGenerator(rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Generator{rng: rng}
}

func (g *Generator) MakePair(title string) Pair {
	title = strings.TrimSpace(title)
	if title == "" {
		title = Placeholder
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	return Pair{
		Emotional: g.emotional(title),
		Factual:   g.factual(title),
	}
}

func (g *Generator) emotional(title string) string {
	emo := emojis[g.rng.Intn(len(emojis))]
	return fmt.Sprintf("%s %s — must-see points: %d", emo, title, 2+g.rng.Intn(3))
}

// 事实型：不加 emoji 和夸张词，保留原标题里的数字与实体
func (g *Generator) factual(title string) string {
	tag := factTags[g.rng.Intn(len(factTags))]
	return fmt.Sprintf("%s %s | %s", tag, title, factualSuffix)
}
