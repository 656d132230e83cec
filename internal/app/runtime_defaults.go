package app

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/charlesng35/teamseats/pkg/crypto"
)

const jwtSecretBytes = 48

// ApplyRuntimeDefaults ensures critical settings are populated even when no configuration file is supplied.
// It returns a map describing which keys were generated so callers can log the event without exposing values.
func ApplyRuntimeDefaults(cfg *Config) (map[string]bool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	generated := make(map[string]bool)

	if strings.TrimSpace(cfg.Auth.JWT.Secret) == "" {
		secret, err := crypto.GenerateToken(jwtSecretBytes)
		if err != nil {
			return nil, fmt.Errorf("generate jwt secret: %w", err)
		}
		cfg.Auth.JWT.Secret = secret
		generated["auth.jwt.secret"] = true
	}

	appURL, err := normaliseAppURL(cfg.Server.AppURL)
	if err != nil {
		return nil, err
	}
	cfg.Server.AppURL = appURL

	return generated, nil
}

// normaliseAppURL strips trailing slashes so links can be built by concatenation.
func normaliseAppURL(raw string) (string, error) {
	value := strings.TrimRight(strings.TrimSpace(raw), "/")
	if value == "" {
		return "", nil
	}
	parsed, err := url.Parse(value)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("server.app_url %q must be an absolute URL", raw)
	}
	return value, nil
}
