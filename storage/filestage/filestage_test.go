package filestage_test

import (
	"io/ioutil"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventyay/cfp/storage/filestage"
)

func TestStagerRoundTrip(t *testing.T) {
	stager := filestage.New(t.TempDir())

	staged, err := stager.Stage("slides.pdf", strings.NewReader("not really a pdf"))
	require.NoError(t, err)
	assert.NotEqual(t, "slides.pdf", staged) // staged names never collide with user input
	assert.True(t, strings.HasSuffix(staged, ".pdf"))

	rc, err := stager.Open(staged)
	require.NoError(t, err)
	defer rc.Close()
	content, err := ioutil.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "not really a pdf", string(content))

	require.NoError(t, stager.Remove(staged))
	_, err = stager.Open(staged)
	assert.Error(t, err)
}

func TestStagerDistinctNames(t *testing.T) {
	stager := filestage.New(t.TempDir())

	a, err := stager.Stage("logo.png", strings.NewReader("a"))
	require.NoError(t, err)
	b, err := stager.Stage("logo.png", strings.NewReader("b"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	rc, err := stager.Open(a)
	require.NoError(t, err)
	defer rc.Close()
	content, err := ioutil.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "a", string(content))
}
