package prompt

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	for _, version := range []string{"v0.1", " V0.1\n", CurrentVersion} {
		text, err := Get(version)
		require.NoError(t, err, version)
		assert.Contains(t, text, "<code-change>")
		assert.Contains(t, text, "<files-to-change>")
	}
}

func TestGet_UnknownVersion(t *testing.T) {
	_, err := Get("v9")
	assert.ErrorIs(t, err, ErrUnknownVersion)
	assert.ErrorContains(t, err, "v0.1")
}

func TestEveryVersionHasATemplate(t *testing.T) {
	for _, v := range Versions() {
		_, err := Get(v)
		assert.NoError(t, err, v)
	}
}

func TestCopy(t *testing.T) {
	original := writeClipboard
	t.Cleanup(func() { writeClipboard = original })

	var copied string
	writeClipboard = func(text string) error {
		copied = text
		return nil
	}
	text, err := Copy("v0.1")
	require.NoError(t, err)
	assert.Equal(t, text, copied)

	writeClipboard = func(string) error { return errors.New("no clipboard") }
	text, err = Copy("v0.1")
	assert.ErrorContains(t, err, "no clipboard")
	assert.NotEmpty(t, text)
}
