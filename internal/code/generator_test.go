package code

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateFormat(t *testing.T) {
	g := NewGenerator("")
	c := g.Generate()

	assert.True(t, strings.HasPrefix(c, "EVT-"), c)
	assert.True(t, Valid(c), c)
	assert.Len(t, c, len("EVT-")+timeChars+1+randomChars)
	assert.Equal(t, strings.ToUpper(c), c)
	assert.NotContains(t, c, "I")
	assert.NotContains(t, c, "L")
	assert.NotContains(t, c, "O")
	assert.NotContains(t, c, "U")
}

func TestGenerateCustomPrefix(t *testing.T) {
	g := NewGenerator(" tix ")
	assert.Equal(t, "TIX", g.Prefix())
	assert.True(t, strings.HasPrefix(g.Generate(), "TIX-"))
}

func TestGenerateUniqueUnderConcurrency(t *testing.T) {
	g := NewGenerator("EVT")

	const workers = 20
	const perWorker = 500

	var mu sync.Mutex
	seen := make(map[string]struct{}, workers*perWorker)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]string, 0, perWorker)
			for i := 0; i < perWorker; i++ {
				local = append(local, g.Generate())
			}
			mu.Lock()
			defer mu.Unlock()
			for _, c := range local {
				seen[c] = struct{}{}
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
}

func TestGenerateAfterCollisionDiffers(t *testing.T) {
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	g := newGenerator("EVT", func() time.Time { return fixed }, NewGenerator("").entropy)

	first := g.Generate()
	second := g.Generate()
	assert.NotEqual(t, first, second)
	// same millisecond, so only the random group differs
	assert.Equal(t, first[:len(first)-randomChars], second[:len(second)-randomChars])
}

func TestGenerateWithExhaustedEntropy(t *testing.T) {
	g := newGenerator("EVT", time.Now, bytes.NewReader(nil))
	c := g.Generate()
	require.True(t, Valid(c), c)
	assert.True(t, strings.HasSuffix(c, "00000000"))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "EVT-ABC123", Normalize("evt-abc123 "))
	assert.Equal(t, Normalize("EVT-ABC123"), Normalize("  evt-ABC123\t"))
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("EVT-01HZ9K-7QH2XW0C"))
	assert.False(t, Valid("EVT-ABC123"))
	assert.False(t, Valid("evt-01hz9k-7qh2xw0c"))
	assert.False(t, Valid("EVT-01HZ9K-7QH2XWOC"))
	assert.False(t, Valid(""))
}
