package experiment

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRegistryGetOrCreate(t *testing.T) {
	reg := NewRegistry(func() time.Time { return fixedNow })

	a, created := reg.GetOrCreate("")
	assert.True(t, created)
	_, err := uuid.Parse(a.ID)
	assert.NoError(t, err)
	assert.Equal(t, fixedNow, a.StartedAt)

	again, created := reg.GetOrCreate(a.ID)
	assert.False(t, created)
	assert.Same(t, a, again)

	// 未知但合法的 id 保留下来，让浏览器 cookie 在重启后继续有效
	known := uuid.NewString()
	b, created := reg.GetOrCreate(known)
	assert.True(t, created)
	assert.Equal(t, known, b.ID)

	c, _ := reg.GetOrCreate("not-a-uuid")
	assert.NotEqual(t, "not-a-uuid", c.ID)

	got, ok := reg.Get(b.ID)
	assert.True(t, ok)
	assert.Same(t, b, got)
	assert.Equal(t, 3, reg.Len())
}
