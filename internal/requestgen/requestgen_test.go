package requestgen

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLatestTokenWins(t *testing.T) {
	var tr Tracker
	first := tr.Begin("slots")
	second := tr.Begin("slots")

	assert.False(t, tr.Current(first))
	assert.True(t, tr.Current(second))
}

func TestKeysAreIndependent(t *testing.T) {
	var tr Tracker
	a := tr.Begin("slots")
	b := tr.Begin("booking")
	assert.True(t, tr.Current(a))
	assert.True(t, tr.Current(b))
}

func TestInvalidate(t *testing.T) {
	var tr Tracker
	tok := tr.Begin("slots")
	tr.Invalidate("slots")
	assert.False(t, tr.Current(tok))
}

func TestZeroTokenNeverCurrent(t *testing.T) {
	var tr Tracker
	assert.False(t, tr.Current(Token{}))
}

func TestConcurrentBegin(t *testing.T) {
	var tr Tracker
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Begin("k")
		}()
	}
	wg.Wait()
	last := tr.Begin("k")
	assert.True(t, tr.Current(last))
	assert.Equal(t, uint64(51), last.gen)
}
