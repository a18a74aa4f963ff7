package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/plaid"
	"github.com/Veraticus/the-books-must-balance/internal/simplefin"
	"github.com/Veraticus/the-books-must-balance/internal/source/yahoo"
	"github.com/spf13/viper"
)

// LoadPlaidConfig reads plaid.* keys, falling back to PLAID_* variables.
// Validation is left to plaid.NewClient.
func LoadPlaidConfig() *plaid.Config {
	cfg := &plaid.Config{
		ClientID:    setting("plaid.client_id", "PLAID_CLIENT_ID"),
		Secret:      setting("plaid.secret", "PLAID_SECRET"),
		Environment: setting("plaid.environment", "PLAID_ENV"),
		AccessToken: setting("plaid.access_token", "PLAID_ACCESS_TOKEN"),
		AccountIDs:  viper.GetStringSlice("plaid.account_ids"),
	}
	if cfg.Environment == "" {
		cfg.Environment = "sandbox"
	}
	return cfg
}

// setting returns the viper value for key, or the env variable when the key
// is empty. env may be blank.
func setting(key, env string) string {
	if v := viper.GetString(key); v != "" {
		return v
	}
	if env == "" {
		return ""
	}
	return os.Getenv(env)
}

// LoadYahooConfig reads yahoo.* keys.
func LoadYahooConfig() yahoo.Config {
	return yahoo.Config{
		BaseURL:   viper.GetString("yahoo.base_url"),
		UserAgent: viper.GetString("yahoo.user_agent"),
		Timeout:   viper.GetDuration("yahoo.timeout"),
	}
}

// CacheMaxAge is how long fetched statements are reused, cache.max_age.
func CacheMaxAge() time.Duration {
	if !viper.IsSet("cache.max_age") {
		return 24 * time.Hour
	}
	return viper.GetDuration("cache.max_age")
}

// SimpleFINSettings holds the simplefin.* keys.
type SimpleFINSettings struct {
	AccessURL string
	Token     string
	StateFile string
}

// LoadSimpleFINSettings reads simplefin.* keys, falling back to SIMPLEFIN_*
// variables. The claimed access URL is kept next to the database by default.
func LoadSimpleFINSettings() SimpleFINSettings {
	s := SimpleFINSettings{
		AccessURL: setting("simplefin.access_url", "SIMPLEFIN_ACCESS_URL"),
		Token:     setting("simplefin.token", "SIMPLEFIN_TOKEN"),
		StateFile: ExpandPath(viper.GetString("simplefin.state_file")),
	}
	if s.StateFile == "" {
		s.StateFile = simplefin.DefaultStatePath(filepath.Dir(DefaultDatabasePath()))
	}
	return s
}
