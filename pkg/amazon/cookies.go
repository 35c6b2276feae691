package amazon

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// CookiesEnv holds the cookie set as a JSON object.
	CookiesEnv = "AMAZON_PHOTOS_COOKIES"
	// DBPathEnv overrides the local node store location.
	DBPathEnv = "AMAZON_PHOTOS_DB"
)

// cookiePairs are the keys Amazon spells with hyphens over HTTP but which
// the TLD detection logic matches with underscores. Both spellings must be
// present for auth and domain detection to agree.
var cookiePairs = [][2]string{
	{"ubid-main", "ubid_main"},
	{"at-main", "at_main"},
}

// DefaultConfigDir returns the per-user configuration directory.
func DefaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "amazon-photos-mcp"), nil
}

// DefaultCookiesPath returns the default cookies.json location.
func DefaultCookiesPath() (string, error) {
	dir, err := DefaultConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "cookies.json"), nil
}

// DefaultDBPath returns the default node store location.
func DefaultDBPath() (string, error) {
	dir, err := DefaultConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "ap.db"), nil
}

// LoadCookies loads the cookie set from the AMAZON_PHOTOS_COOKIES
// environment variable, falling back to the JSON file at path (or the
// default per-user location when path is empty). Returns nil with no error
// when neither source is configured. Malformed JSON in either source is an
// error.
func LoadCookies(path string) (map[string]string, error) {
	var raw map[string]string

	if env := os.Getenv(CookiesEnv); env != "" {
		if err := json.Unmarshal([]byte(env), &raw); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", CookiesEnv, err)
		}
	}

	if raw == nil {
		if path == "" {
			var err error
			path, err = DefaultCookiesPath()
			if err != nil {
				return nil, err
			}
		}
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read cookies file: %w", err)
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	return NormalizeCookies(raw), nil
}

// NormalizeCookies returns a copy of raw in which, for each hyphen/underscore
// key pair, a value present under exactly one spelling is mirrored to the
// other. Pairs where both or neither spelling is present are left untouched.
func NormalizeCookies(raw map[string]string) map[string]string {
	normalized := make(map[string]string, len(raw))
	for k, v := range raw {
		normalized[k] = v
	}
	for _, pair := range cookiePairs {
		hyphen, underscore := pair[0], pair[1]
		_, hasHyphen := normalized[hyphen]
		_, hasUnderscore := normalized[underscore]
		switch {
		case hasHyphen && !hasUnderscore:
			normalized[underscore] = normalized[hyphen]
		case hasUnderscore && !hasHyphen:
			normalized[hyphen] = normalized[underscore]
		}
	}
	return normalized
}
