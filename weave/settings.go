/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package weave

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Settings control client behaviour. They are usually read from the
// environment with LoadSettings.
type Settings struct {
	// Disabled turns every op into a plain function call.
	Disabled bool `env:"WEAVE_DISABLED,default=false"`
	// PrintCallLink logs a UI link whenever a root call starts.
	PrintCallLink bool `env:"WEAVE_PRINT_CALL_LINK,default=true"`

	TraceServerURL string `env:"WEAVE_TRACE_SERVER_URL,default=https://trace.wandb.ai"`
	UIURL          string `env:"WEAVE_UI_URL,default=https://wandb.ai"`
	APIKey         string `env:"WANDB_API_KEY"`

	// Parallelism bounds the number of dataset rows an evaluation runs at once.
	Parallelism int `env:"WEAVE_PARALLELISM,default=20"`
	// CallsPageSize is the number of calls fetched per request by CallsIter.
	CallsPageSize int `env:"WEAVE_CALLS_PAGE_SIZE,default=1000"`

	// RedactKeys extends the built-in list of sensitive input keys.
	RedactKeys            []string `env:"WEAVE_REDACT_KEYS"`
	AllowMixedProjectRefs bool     `env:"WEAVE_ALLOW_MIXED_PROJECT_REFS,default=false"`

	HTTPTimeout time.Duration `env:"WEAVE_HTTP_TIMEOUT,default=30s"`
	MaxRetries  int           `env:"WEAVE_MAX_RETRIES,default=3"`
}

// LoadSettings reads Settings from the process environment.
func LoadSettings(ctx context.Context) (Settings, error) {
	var s Settings
	if err := envconfig.Process(ctx, &s); err != nil {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}
	return s, s.validate()
}

// DefaultSettings returns Settings with every default applied and nothing
// read from the environment.
func DefaultSettings() Settings {
	var s Settings
	// Defaults are constant and always parse.
	_ = envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   &s,
		Lookuper: envconfig.MapLookuper(nil),
	})
	return s
}

func (s Settings) validate() error {
	if s.Parallelism < 1 {
		return fmt.Errorf("WEAVE_PARALLELISM must be at least 1, got %d", s.Parallelism)
	}
	if s.CallsPageSize < 1 {
		return fmt.Errorf("WEAVE_CALLS_PAGE_SIZE must be at least 1, got %d", s.CallsPageSize)
	}
	if s.MaxRetries < 0 {
		return fmt.Errorf("WEAVE_MAX_RETRIES must not be negative, got %d", s.MaxRetries)
	}
	return nil
}
