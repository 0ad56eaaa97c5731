package utils

import (
	"bufio"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInputPromptWithContext_TrimsInput(t *testing.T) {
	input, err := InputPromptWithContext(context.Background(), bufio.NewReader(strings.NewReader("  where is auth handled \n")))

	require.NoError(t, err)
	assert.Equal(t, "where is auth handled", input)
}

func TestInputPromptWithContext_EOFWithoutNewline(t *testing.T) {
	input, err := InputPromptWithContext(context.Background(), bufio.NewReader(strings.NewReader("partial")))

	require.NoError(t, err)
	assert.Equal(t, "partial", input)
}

func TestInputPromptWithContext_Cancelled(t *testing.T) {
	reader, writer := io.Pipe()
	defer writer.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := InputPromptWithContext(ctx, bufio.NewReader(reader))

	assert.ErrorIs(t, err, context.Canceled)
}
