// Package zerolog adapts a zerolog.Logger to listcount.Logger.
package zerolog

import (
	"github.com/rs/zerolog"

	"github.com/unkn0wn-root/listcount"
)

var _ listcount.Logger = Logger{}

type Logger struct{ L zerolog.Logger }

func (z Logger) Debug(msg string, f listcount.Fields) { with(z.L.Debug(), f).Msg(msg) }
func (z Logger) Info(msg string, f listcount.Fields)  { with(z.L.Info(), f).Msg(msg) }
func (z Logger) Warn(msg string, f listcount.Fields)  { with(z.L.Warn(), f).Msg(msg) }
func (z Logger) Error(msg string, f listcount.Fields) { with(z.L.Error(), f).Msg(msg) }

func with(e *zerolog.Event, f listcount.Fields) *zerolog.Event {
	if len(f) == 0 {
		return e
	}
	return e.Fields(map[string]any(f))
}
