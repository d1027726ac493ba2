package confirm

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatic(t *testing.T) {
	ok, err := Static{Answer: true}.Confirm(t.Context(), "restore?")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Static{}.Confirm(t.Context(), "restore?")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFunc(t *testing.T) {
	var asked string
	c := Func(func(_ context.Context, q string) (bool, error) {
		asked = q
		return true, nil
	})
	ok, err := c.Confirm(t.Context(), "repair?")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "repair?", asked)
}

func TestPromptAnswers(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"  yes  \n", true},
		{"n\n", false},
		{"\n", false},
		{"maybe\n", false},
		{"", false},
		{"y", true},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			var out bytes.Buffer
			p := NewPrompt(strings.NewReader(tt.input), &out)

			ok, err := p.Confirm(t.Context(), "Restore backup /backups/x?")
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
			assert.Equal(t, "Restore backup /backups/x? [y/N]: ", out.String())
		})
	}
}

func TestPromptSequentialQuestions(t *testing.T) {
	p := NewPrompt(strings.NewReader("y\nn\n"), io.Discard)

	first, err := p.Confirm(t.Context(), "one?")
	require.NoError(t, err)
	second, err := p.Confirm(t.Context(), "two?")
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second)
}

func TestPromptCanceled(t *testing.T) {
	r, w := io.Pipe()
	defer func() { _ = w.Close() }()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	ok, err := NewPrompt(r, io.Discard).Confirm(ctx, "restore?")
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, ok)
}
