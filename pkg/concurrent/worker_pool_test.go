package concurrent

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPool(t *testing.T) {
	wp := NewWorkerPool[int, int](4, 10)
	wp.Start(func(job int) int { return job * job })

	for i := 1; i <= 5; i++ {
		wp.AddJob(i)
	}
	wp.Close()
	go wp.Wait()

	var got []int
	for r := range wp.CollectResults() {
		got = append(got, r)
	}
	sort.Ints(got)
	assert.Equal(t, []int{1, 4, 9, 16, 25}, got)
}

func TestWorkerPoolTryAddJob(t *testing.T) {
	release := make(chan struct{})
	wp := NewWorkerPool[int, int](1, 1)
	wp.Start(func(job int) int {
		<-release
		return job
	})

	require.True(t, wp.TryAddJob(1))
	// the single worker holds job 1 once it has been dequeued; fill the queue behind it
	require.Eventually(t, func() bool { return wp.TryAddJob(2) }, time.Second, time.Millisecond)
	assert.False(t, wp.TryAddJob(3))

	close(release)
	wp.Close()
	assert.False(t, wp.TryAddJob(4))
	wp.Close()
	go wp.Wait()

	n := 0
	for range wp.CollectResults() {
		n++
	}
	assert.Equal(t, 2, n)
}

func TestPoolSchedule(t *testing.T) {
	p := NewPool(2, 4, 1)
	defer p.Close()

	var wg sync.WaitGroup
	var mu sync.Mutex
	sum := 0
	for i := 1; i <= 10; i++ {
		wg.Add(1)
		i := i
		p.Schedule(func() {
			defer wg.Done()
			mu.Lock()
			sum += i
			mu.Unlock()
		})
	}
	wg.Wait()
	assert.Equal(t, 55, sum)
}

func TestPoolScheduleTimeout(t *testing.T) {
	p := NewPool(1, 0, 1)
	block := make(chan struct{})
	defer close(block)

	started := make(chan struct{})
	require.NoError(t, p.ScheduleTimeout(time.Second, func() {
		close(started)
		<-block
	}))
	<-started

	err := p.ScheduleTimeout(10*time.Millisecond, func() {})
	assert.ErrorIs(t, err, ErrScheduleTimeout)
}
