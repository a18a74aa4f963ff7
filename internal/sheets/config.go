// Package sheets exports classified statements to Google Sheets.
package sheets

import (
	"fmt"
	"time"
	_ "time/tzdata" // spreadsheet time zones are validated on hosts without zoneinfo

	"github.com/Veraticus/the-books-must-balance/internal/common"
)

// DefaultSpreadsheetName is used when creating a spreadsheet without a name.
const DefaultSpreadsheetName = "Balance Sheet Export"

// Config holds the configuration for the Google Sheets writer. Exactly one of
// the service account key or the OAuth2 client plus refresh token must be set.
type Config struct {
	ClientID           string
	ClientSecret       string
	RefreshToken       string
	ServiceAccountPath string
	SpreadsheetID      string
	SpreadsheetName    string
	SheetName          string
	TimeZone           string
	BatchSize          int
	RetryAttempts      int
	RetryDelay         time.Duration
	EnableFormatting   bool
}

// DefaultConfig returns a Config with everything but credentials filled in.
func DefaultConfig() Config {
	return Config{
		EnableFormatting: true,
		SpreadsheetName:  DefaultSpreadsheetName,
		SheetName:        "Balance Sheet",
		TimeZone:         "America/New_York",
		BatchSize:        1000,
		RetryAttempts:    3,
		RetryDelay:       time.Second,
	}
}

func (c *Config) hasOAuth() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
}

// Validate checks credentials and limits. Missing credentials wrap
// common.ErrMissingConfig, everything else common.ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case !c.hasOAuth() && c.ServiceAccountPath == "":
		return fmt.Errorf("%w: no authentication method configured for Google Sheets", common.ErrMissingConfig)
	case c.hasOAuth() && c.ServiceAccountPath != "":
		return fmt.Errorf("%w: multiple authentication methods configured; use either OAuth2 or service account", common.ErrInvalidConfig)
	case c.SheetName == "":
		return fmt.Errorf("%w: sheet name is required", common.ErrInvalidConfig)
	case c.BatchSize <= 0:
		return fmt.Errorf("%w: batch size must be positive", common.ErrInvalidConfig)
	case c.RetryAttempts < 0:
		return fmt.Errorf("%w: retry attempts cannot be negative", common.ErrInvalidConfig)
	case c.RetryDelay < 0:
		return fmt.Errorf("%w: retry delay cannot be negative", common.ErrInvalidConfig)
	}
	if c.TimeZone != "" {
		if _, err := time.LoadLocation(c.TimeZone); err != nil {
			return fmt.Errorf("%w: time zone %q: %w", common.ErrInvalidConfig, c.TimeZone, err)
		}
	}
	return nil
}
