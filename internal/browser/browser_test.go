package browser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	assert.True(t, opts.Headless)
	assert.Equal(t, 60*time.Second, opts.Timeout)
	assert.Equal(t, 1920, opts.ViewportWidth)
	assert.Equal(t, 1080, opts.ViewportHeight)
	assert.True(t, opts.BlockHeavy)
}

func TestParseCookieFileBareArray(t *testing.T) {
	data := []byte(`[{"name": "session", "value": "abc", "domain": ".depop.com"}]`)

	cookies, err := parseCookieFile(data)

	require.NoError(t, err)
	require.Len(t, cookies, 1)
	assert.Equal(t, "session", cookies[0].Name)
	assert.Equal(t, "abc", cookies[0].Value)
	assert.Equal(t, ".depop.com", cookies[0].Domain)
}

func TestParseCookieFileWrapped(t *testing.T) {
	data := []byte(`{"cookies": [{"name": "session", "value": "abc", "expires": 1893456000}]}`)

	cookies, err := parseCookieFile(data)

	require.NoError(t, err)
	require.Len(t, cookies, 1)
	assert.Equal(t, float64(1893456000), cookies[0].Expires)
}

func TestParseCookieFileInvalid(t *testing.T) {
	_, err := parseCookieFile([]byte(`not json`))
	assert.Error(t, err)
}

func TestDefaultString(t *testing.T) {
	assert.Equal(t, ".depop.com", defaultString("", ".depop.com"))
	assert.Equal(t, "www.depop.com", defaultString("www.depop.com", ".depop.com"))
}
