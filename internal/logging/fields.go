package logging

import "log/slog"

// Common field names for consistent logging across the engine.
const (
	FieldService     = "service"
	FieldSessionID   = "session_id"
	FieldCategory    = "category"
	FieldSignalID    = "signal_id"
	FieldSignalCount = "signal_count"
	FieldFlagCount   = "flag_count"
	FieldRiskLevel   = "risk_level"
	FieldDuration    = "duration_ms"
	FieldAddr        = "addr"
	FieldError       = "error"
)

// Service returns a slog attribute for the service name.
func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

// SessionID returns a slog attribute for a monitored session.
func SessionID(id string) slog.Attr {
	return slog.String(FieldSessionID, id)
}

// Category returns a slog attribute for an analysis category.
func Category(c string) slog.Attr {
	return slog.String(FieldCategory, c)
}

// SignalID returns a slog attribute for a catalog signal id.
func SignalID(id int) slog.Attr {
	return slog.Int(FieldSignalID, id)
}

// SignalCount returns a slog attribute for a loaded catalog size.
func SignalCount(n int) slog.Attr {
	return slog.Int(FieldSignalCount, n)
}

// FlagCount returns a slog attribute for a generated flag count.
func FlagCount(n int) slog.Attr {
	return slog.Int(FieldFlagCount, n)
}

// RiskLevel returns a slog attribute for a session risk level.
func RiskLevel(v float64) slog.Attr {
	return slog.Float64(FieldRiskLevel, v)
}

// Duration returns a slog attribute for duration in milliseconds.
func Duration(ms int64) slog.Attr {
	return slog.Int64(FieldDuration, ms)
}

// Addr returns a slog attribute for a listen address.
func Addr(addr string) slog.Attr {
	return slog.String(FieldAddr, addr)
}

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	return slog.String(FieldError, err.Error())
}
