// Copyright (c) 2025 Formplay
// Licensed under the MIT License. See LICENSE file in the project root for details.

package manifest

import (
	"context"

	"github.com/rs/zerolog"

	"formplay/cli/internal/formplayer"
)

// Options controls Resolve.
type Options struct {
	BaseURL string
	// Fetch enables downloading {base_url}/manifest.json.
	Fetch   bool
	Fetcher Fetcher
	// Overrides are applied last, usually the config [actions] table.
	Overrides map[string]string
	Log       zerolog.Logger
}

// Get returns the manifest for baseURL, using the RAM cache if available.
func Get(ctx context.Context, f Fetcher, baseURL string) (*Manifest, error) {
	if cached := GetCached(baseURL); cached != nil {
		return cached, nil
	}
	m, err := f.Fetch(ctx, baseURL)
	if err != nil {
		return nil, err
	}
	SetCached(baseURL, m)
	return m, nil
}

// Resolve builds the action token table. A manifest that cannot be fetched
// is logged and skipped; the defaults still apply. The manifest, when one
// was loaded, is returned alongside the tokens.
func Resolve(ctx context.Context, opts Options) (formplayer.Tokens, *Manifest, error) {
	layers := []map[string]string{DefaultActions()}

	var m *Manifest
	if opts.Fetch && opts.BaseURL != "" {
		var err error
		m, err = Get(ctx, opts.Fetcher, opts.BaseURL)
		if err != nil {
			opts.Log.Warn().Err(err).Str("base_url", opts.BaseURL).Msg("manifest unavailable, using default action tokens")
		} else {
			layers = append(layers, m.Actions)
		}
	}
	layers = append(layers, opts.Overrides)

	tokens, err := formplayer.TokensFrom(Merge(layers...))
	if err != nil {
		return nil, m, err
	}
	return tokens, m, nil
}
