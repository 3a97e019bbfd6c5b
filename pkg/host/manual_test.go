package host

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualFrameOrdering(t *testing.T) {
	m := NewManual()
	var got []string

	m.Post(func() {
		got = append(got, "task")
		m.RequestFrame(func() {
			got = append(got, "frame1")
			m.RequestFrame(func() { got = append(got, "frame2") })
		})
	})
	m.Flush()
	assert.Equal(t, []string{"task"}, got)
	assert.Equal(t, 1, m.PendingFrames())

	m.Frame()
	assert.Equal(t, []string{"task", "frame1"}, got)
	m.Frame()
	assert.Equal(t, []string{"task", "frame1", "frame2"}, got)
	assert.Equal(t, 0, m.PendingFrames())
}

func TestManualAdvance(t *testing.T) {
	m := NewManual()
	var a, b int
	ta := m.Every(time.Second, func() { a++ })
	m.Every(3*time.Second, func() { b++ })
	m.Every(0, func() { t.Fatal("zero interval ticker fired") })
	assert.Equal(t, 2, m.ActiveTickers())

	m.Advance(3 * time.Second)
	assert.Equal(t, 3, a)
	assert.Equal(t, 1, b)

	ta.Stop()
	m.Advance(3 * time.Second)
	assert.Equal(t, 3, a)
	assert.Equal(t, 2, b)
	assert.Equal(t, 1, m.ActiveTickers())
}
