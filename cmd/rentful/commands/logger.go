package commands

import (
	"io"

	"github.com/rs/zerolog"
)

// zerologAdapter bridges zerolog onto the client's logger interface.
type zerologAdapter struct {
	logger zerolog.Logger
}

// NewLogger creates a structured logger writing human-readable output to w.
func NewLogger(w io.Writer) *zerologAdapter { //nolint:revive // adapter type stays private
	console := zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}

	return &zerologAdapter{logger: zerolog.New(console).With().Timestamp().Logger()}
}

func (z *zerologAdapter) Debug(msg string, fields map[string]interface{}) {
	z.logger.Debug().Fields(fields).Msg(msg)
}

func (z *zerologAdapter) Info(msg string, fields map[string]interface{}) {
	z.logger.Info().Fields(fields).Msg(msg)
}

func (z *zerologAdapter) Warn(msg string, fields map[string]interface{}) {
	z.logger.Warn().Fields(fields).Msg(msg)
}

func (z *zerologAdapter) Error(msg string, fields map[string]interface{}) {
	z.logger.Error().Fields(fields).Msg(msg)
}
