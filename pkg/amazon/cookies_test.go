package amazon

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCookiesMirrorsSingleSpelling(t *testing.T) {
	t.Parallel()

	out := NormalizeCookies(map[string]string{
		"ubid-main":  "abc",
		"at_main":    "token",
		"session-id": "sid",
	})

	assert.Equal(t, "abc", out["ubid-main"])
	assert.Equal(t, "abc", out["ubid_main"])
	assert.Equal(t, "token", out["at_main"])
	assert.Equal(t, "token", out["at-main"])
	assert.Equal(t, "sid", out["session-id"])
}

func TestNormalizeCookiesLeavesMissingPairsAlone(t *testing.T) {
	t.Parallel()

	out := NormalizeCookies(map[string]string{"session-id": "sid"})

	assert.Equal(t, map[string]string{"session-id": "sid"}, out)
}

func TestNormalizeCookiesDoesNotOverwriteConflicts(t *testing.T) {
	t.Parallel()

	out := NormalizeCookies(map[string]string{
		"ubid-main": "hyphen",
		"ubid_main": "underscore",
	})

	assert.Equal(t, "hyphen", out["ubid-main"])
	assert.Equal(t, "underscore", out["ubid_main"])
}

func TestNormalizeCookiesDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	raw := map[string]string{"at-main": "token"}
	_ = NormalizeCookies(raw)

	assert.Equal(t, map[string]string{"at-main": "token"}, raw)
}

func TestLoadCookiesFromEnv(t *testing.T) {
	t.Setenv(CookiesEnv, `{"ubid-main":"abc","at-main":"token","session-id":"sid"}`)

	cookies, err := LoadCookies(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)

	assert.Equal(t, "abc", cookies["ubid_main"])
	assert.Equal(t, "token", cookies["at_main"])
	assert.Equal(t, "sid", cookies["session-id"])
}

func TestLoadCookiesMalformedEnv(t *testing.T) {
	t.Setenv(CookiesEnv, "{not json")

	_, err := LoadCookies(filepath.Join(t.TempDir(), "absent.json"))

	assert.Error(t, err)
	assert.Contains(t, err.Error(), CookiesEnv)
}

func TestLoadCookiesFromFile(t *testing.T) {
	t.Setenv(CookiesEnv, "")

	path := filepath.Join(t.TempDir(), "cookies.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"ubid_main":"abc"}`), 0o600))

	cookies, err := LoadCookies(path)
	require.NoError(t, err)

	assert.Equal(t, "abc", cookies["ubid-main"])
}

func TestLoadCookiesUnconfigured(t *testing.T) {
	t.Setenv(CookiesEnv, "")

	cookies, err := LoadCookies(filepath.Join(t.TempDir(), "absent.json"))

	assert.NoError(t, err)
	assert.Nil(t, cookies)
}
