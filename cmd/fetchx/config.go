// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"net/url"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/gogama/fetchx"
	"github.com/gogama/fetchx/origin"
	"github.com/gogama/fetchx/redirect"
	"github.com/gogama/fetchx/timeout"
	"github.com/rs/zerolog"
)

// config is the file form of the client settings. Command line flags
// override it.
//
//	base = "https://example.com/app/"
//	timeout = "5s"
//	max_redirects = 5
//	user_agent = "fetchx/1"
//	content_type_charset = "utf-8"
//	forwardable = ["Authorization", "Cookie", "X-Api-Key"]
//	credentials = "same-origin"
//
//	[headers]
//	Accept = "application/json"
type config struct {
	Base               string            `toml:"base"`
	Timeout            duration          `toml:"timeout"`
	MaxRedirects       *int              `toml:"max_redirects"`
	UserAgent          string            `toml:"user_agent"`
	ContentTypeCharset string            `toml:"content_type_charset"`
	Forwardable        []string          `toml:"forwardable"`
	Credentials        string            `toml:"credentials"`
	Headers            map[string]string `toml:"headers"`
}

type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func loadConfig(path string) (*config, error) {
	var cfg config
	if path == "" {
		return &cfg, nil
	}
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("fetchx: config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("fetchx: config %s: unknown key %q", path, undecoded[0].String())
	}
	if cfg.Credentials != "" && !validCredentials(cfg.Credentials) {
		return nil, fmt.Errorf("fetchx: config %s: invalid credentials %q", path, cfg.Credentials)
	}
	return &cfg, nil
}

// credentials returns the credentials mode of requests. Headers given
// on the command line are meant to be sent, so the default is Include
// even though no document origin is known.
func (cfg *config) credentials() origin.Credentials {
	if cfg.Credentials == "" {
		return origin.Include
	}
	return origin.ParseCredentials(cfg.Credentials)
}

func (cfg *config) client(logger *zerolog.Logger) (*fetchx.Client, error) {
	c := &fetchx.Client{
		UserAgent:          cfg.UserAgent,
		ContentTypeCharset: cfg.ContentTypeCharset,
		Forwardable:        cfg.Forwardable,
		Logger:             logger,
	}
	if cfg.Base != "" {
		u, err := url.Parse(cfg.Base)
		if err != nil {
			return nil, fmt.Errorf("fetchx: base URL: %w", err)
		}
		c.BaseURL = u
	}
	if cfg.Timeout.Duration > 0 {
		c.TimeoutPolicy = timeout.Fixed(cfg.Timeout.Duration)
	}
	if cfg.MaxRedirects != nil {
		c.RedirectPolicy = redirect.Hops(*cfg.MaxRedirects)
	}
	return c, nil
}
