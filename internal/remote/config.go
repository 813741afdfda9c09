package remote

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables carrying the remote credentials. Both are
// required; a missing or malformed value is a fatal startup error.
const (
	EnvRemoteURL = "AGROBOOK_REMOTE_URL"
	EnvRemoteKey = "AGROBOOK_REMOTE_KEY"
)

// Endpoint must be a bare postgres URL: scheme, user, host, optional
// port, database name. The access key is injected separately, so a
// password embedded in the URL is rejected as malformed.
var reEndpoint = regexp.MustCompile(`^postgres(ql)?://[A-Za-z0-9_.-]+@[A-Za-z0-9.-]+(:\d+)?/[A-Za-z0-9_-]+$`)

// ValidationError reports a malformed credential or input value.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

// Config holds the validated remote connection settings.
type Config struct {
	URL string
	Key string
}

// LoadConfig reads the remote credentials from the environment,
// loading a .env file from the working directory first when present
// (missing .env is not an error).
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	rawURL := strings.TrimSpace(os.Getenv(EnvRemoteURL))
	key := strings.TrimSpace(os.Getenv(EnvRemoteKey))

	if rawURL == "" || key == "" {
		return Config{}, &ValidationError{
			Field: "credentials",
			Msg:   fmt.Sprintf("set %s and %s (via environment or .env)", EnvRemoteURL, EnvRemoteKey),
		}
	}
	if !reEndpoint.MatchString(rawURL) {
		return Config{}, &ValidationError{
			Field: EnvRemoteURL,
			Msg:   fmt.Sprintf("%q does not match postgres://user@host[:port]/database", rawURL),
		}
	}

	return Config{URL: rawURL, Key: key}, nil
}

// DSN combines the endpoint URL and the access key into the lib/pq
// connection string.
func (c Config) DSN() (string, error) {
	u, err := url.Parse(c.URL)
	if err != nil {
		return "", &ValidationError{Field: EnvRemoteURL, Msg: err.Error()}
	}
	u.User = url.UserPassword(u.User.Username(), c.Key)
	q := u.Query()
	if q.Get("sslmode") == "" {
		q.Set("sslmode", "require")
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
