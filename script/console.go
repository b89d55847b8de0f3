// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package script

import (
	"github.com/rs/zerolog"
)

// logPrinter routes console output to a zerolog logger.
type logPrinter struct {
	logger *zerolog.Logger
}

func (p *logPrinter) Log(s string) {
	p.logger.Info().Str("source", "console").Msg(s)
}

func (p *logPrinter) Warn(s string) {
	p.logger.Warn().Str("source", "console").Msg(s)
}

func (p *logPrinter) Error(s string) {
	p.logger.Error().Str("source", "console").Msg(s)
}
