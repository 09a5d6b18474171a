package uploader

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	at := time.Date(2024, 2, 29, 8, 0, 0, 0, time.UTC)

	key, err := ObjectKey("media", "Photo.JPG", at)
	require.NoError(t, err)
	assert.Regexp(t, `^media/20240229/[0-9a-f-]{36}\.jpg$`, key)

	_, err = ObjectKey("media", "script.sh", at)
	assert.ErrorIs(t, err, ErrUnsupportedType)
}
