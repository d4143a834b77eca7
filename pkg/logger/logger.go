package logx

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config is decoded with the LOG prefix.
type Config struct {
	Debug        bool `split_words:"true" default:"false"`
	PrettyFormat bool `split_words:"true" default:"false"`
	Caller       bool `default:"true"`
}

// Init points the global logger at stderr. Stdout carries replies and the
// hand-off line, so nothing is ever logged there.
func Init(opts ...Config) {
	InitWriter(os.Stderr, opts...)
}

func InitWriter(w io.Writer, opts ...Config) {
	conf := Config{Caller: true}
	if len(opts) > 0 {
		conf = opts[0]
	}

	if conf.PrettyFormat {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}

	level := zerolog.InfoLevel
	if conf.Debug {
		level = zerolog.DebugLevel
	}

	ctx := zerolog.New(w).Level(level).With().Timestamp()
	if conf.Caller {
		ctx = ctx.Caller()
	}
	log.Logger = ctx.Logger()
}

// Agent returns a child of the global logger tagged with the agent key.
func Agent(key string) zerolog.Logger {
	return log.With().Str("agent", key).Logger()
}
