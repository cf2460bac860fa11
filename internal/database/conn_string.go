package database

import (
	"fmt"
	"net/url"

	"github.com/jsphbtst/personal-alpaca-cli/internal/config"
)

// ApplicationName tags sessions opened by this process in pg_stat_activity.
const ApplicationName = "quotestream"

// BuildConnString builds a PostgreSQL connection URL from config.
// Credentials are escaped so any character is safe in the password.
func BuildConnString(cfg config.DBConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = config.DefaultDBSSLMode
	}

	q := url.Values{}
	q.Set("sslmode", sslMode)
	q.Set("application_name", ApplicationName)

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:     "/" + cfg.Name,
		RawQuery: q.Encode(),
	}
	return u.String()
}
