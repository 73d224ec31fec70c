package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config opciones para el logger.
type Config struct {
	Env     string    // development -> consola legible; otro -> JSON
	Level   string    // trace, debug, info, warn, error
	Service string    // se agrega como campo "service" a cada evento
	Output  io.Writer // nil -> os.Stdout
}

// Logger zerolog con el campo service fijo. Los métodos de nivel (Info, Warn, Error...) vienen del embebido.
type Logger struct {
	zerolog.Logger
}

// New crea el logger del proceso y lo publica como logger global de zerolog.
func New(cfg Config) *Logger {
	w := cfg.Output
	if w == nil {
		w = os.Stdout
	}
	if cfg.Env == "development" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}

	ctx := zerolog.New(w).Level(parseLevel(cfg.Level)).With().Timestamp()
	if cfg.Service != "" {
		ctx = ctx.Str("service", cfg.Service)
	}
	zl := ctx.Logger()
	log.Logger = zl

	return &Logger{Logger: zl}
}

// Nop descarta todo.
func Nop() *Logger {
	return &Logger{Logger: zerolog.Nop()}
}

// parseLevel acepta los nombres de zerolog; cualquier otro valor queda en info.
func parseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// Component devuelve un sublogger con el campo "component" fijo (dispatcher, bridge, nfe...).
func (l *Logger) Component(name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}

// Zerolog devuelve el logger interno para las capas que reciben zerolog.Logger.
func (l *Logger) Zerolog() zerolog.Logger {
	return l.Logger
}
