// FILE: src/internal/multiline/buffer_test.go
package multiline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffer_Disabled(t *testing.T) {
	b := New(false, nil, nil)
	assert.False(t, b.Enabled())

	res := b.Feed("Traceback (most recent call last):")
	assert.False(t, res.Consumed)
	assert.False(t, res.Flushed)
	assert.False(t, b.Pending())
}

func TestBuffer_TracebackAssembly(t *testing.T) {
	b := New(true, nil, nil)

	res := b.Feed("Traceback (most recent call last):")
	assert.True(t, res.Consumed)
	assert.False(t, res.Flushed)
	assert.True(t, b.Pending())

	res = b.Feed(`  File "app.py", line 10, in main`)
	assert.True(t, res.Consumed)
	assert.False(t, res.Flushed)

	res = b.Feed("    raise ValueError(\"bad\")")
	assert.True(t, res.Consumed)
	assert.False(t, res.Flushed)

	// A non-continuation line flushes the block and is NOT swallowed:
	// the caller dispatches it separately.
	res = b.Feed("ValueError: bad")
	assert.True(t, res.Flushed)
	assert.False(t, res.Consumed)
	assert.Equal(t,
		"Traceback (most recent call last):\n"+
			`  File "app.py", line 10, in main`+"\n"+
			"    raise ValueError(\"bad\")",
		res.Block)
	assert.False(t, b.Pending())
}

func TestBuffer_OrdinaryLinesPassThrough(t *testing.T) {
	b := New(true, nil, nil)

	res := b.Feed("2024-01-01 12:00:00 INFO started")
	assert.False(t, res.Consumed)
	assert.False(t, res.Flushed)
	assert.False(t, b.Pending())
}

func TestBuffer_ContinuationOutsideBlockNotBuffered(t *testing.T) {
	b := New(true, nil, nil)

	// Indented line with no open block is an ordinary line
	res := b.Feed("    stray indented line")
	assert.False(t, res.Consumed)
	assert.False(t, res.Flushed)
}

func TestBuffer_Flush(t *testing.T) {
	b := New(true, nil, nil)

	_, ok := b.Flush()
	assert.False(t, ok)

	b.Feed("Traceback (most recent call last):")
	b.Feed("  line one")

	block, ok := b.Flush()
	require.True(t, ok)
	assert.Equal(t, "Traceback (most recent call last):\n  line one", block)
	assert.False(t, b.Pending())
}

func TestBuffer_JavaExceptionStart(t *testing.T) {
	b := New(true, nil, nil)

	res := b.Feed(`Exception in thread "main" java.lang.NullPointerException`)
	assert.True(t, res.Consumed)

	res = b.Feed("\tat com.example.Main.run(Main.java:12)")
	assert.True(t, res.Consumed)

	block, ok := b.Flush()
	require.True(t, ok)
	assert.Contains(t, block, "java.lang.NullPointerException")
	assert.Contains(t, block, "at com.example.Main.run")
}
