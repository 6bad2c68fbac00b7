package hostarch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContext_switchRoundTrip(t *testing.T) {
	boot := NewContext()
	boot.Adopt()

	var got any
	worker := NewContext()
	worker.Init(func(token any) {
		got = token
		worker.Handoff(boot, `back`)
	})

	resumed := boot.Switch(worker, `in`)
	assert.Equal(t, `back`, resumed)
	assert.Equal(t, `in`, got)
}

func TestContext_parkAndResume(t *testing.T) {
	boot := NewContext()
	boot.Adopt()

	tokens := make(chan any, 2)
	worker := NewContext()
	worker.Init(func(token any) {
		tokens <- token
		// park until switched into again, then hand control back for good
		tokens <- worker.Switch(boot, `one`)
		worker.Handoff(boot, `two`)
	})

	require.Equal(t, `one`, boot.Switch(worker, `first`))
	require.Equal(t, `two`, boot.Switch(worker, `second`))
	assert.Equal(t, `first`, <-tokens)
	assert.Equal(t, `second`, <-tokens)
}

func TestTimerSource(t *testing.T) {
	src := NewTimerSource()

	a := src.Measure()
	time.Sleep(2 * time.Millisecond)
	b := src.Measure()
	assert.Greater(t, b, a)

	assert.Equal(t, 2500*time.Microsecond, src.IntoDuration(src.FromDuration(2500*time.Microsecond)))
	assert.EqualValues(t, 1500, src.FromDuration(1500*time.Microsecond))

	ms := src.Monotonic()
	time.Sleep(3 * time.Millisecond)
	assert.Greater(t, src.Monotonic(), ms)
}
