package agents

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueryTrackerFiltersByData(t *testing.T) {
	tr := NewQueryTracker()
	tr.Add("MATCH (g:gene) RETURN g", true)
	tr.Add("MATCH (d:disease) RETURN d", false)
	tr.Add("   ", true) // blank queries are dropped

	assert.Equal(t, []string{"MATCH (g:gene) RETURN g", "MATCH (d:disease) RETURN d"}, tr.All())
	assert.Equal(t, []string{"MATCH (g:gene) RETURN g"}, tr.WithData())

	tr.Reset()
	assert.Empty(t, tr.All())
}

func TestQueryTrackerConcurrentAdd(t *testing.T) {
	tr := NewQueryTracker()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tr.Add(fmt.Sprintf("RETURN %d", i), i%2 == 0)
		}(i)
	}
	wg.Wait()

	assert.Len(t, tr.All(), 20)
	assert.Len(t, tr.WithData(), 10)
}
