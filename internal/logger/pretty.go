// internal/logger/pretty.go
package logger

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Colors for terminal output
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorPurple = "\033[35m"
	ColorCyan   = "\033[36m"
	ColorBold   = "\033[1m"
)

// PrettyEncoder creates a user-friendly console encoder
func PrettyEncoder() zapcore.Encoder {
	return zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		TimeKey:        "time",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    customLevelEncoder,
		EncodeTime:     customTimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	})
}

func customLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	switch level {
	case zapcore.DebugLevel:
		enc.AppendString(ColorCyan + "[DEBUG]" + ColorReset)
	case zapcore.InfoLevel:
		enc.AppendString(ColorGreen + "[INFO]" + ColorReset)
	case zapcore.WarnLevel:
		enc.AppendString(ColorYellow + "[WARN]" + ColorReset)
	case zapcore.ErrorLevel:
		enc.AppendString(ColorRed + "[ERROR]" + ColorReset)
	case zapcore.FatalLevel:
		enc.AppendString(ColorRed + ColorBold + "[FATAL]" + ColorReset)
	default:
		enc.AppendString(fmt.Sprintf("[%s]", level.CapitalString()))
	}
}

func customTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("15:04:05"))
}

// FormatMessage creates user-friendly log messages
func FormatMessage(msg string, fields ...zap.Field) string {
	switch msg {
	case "Transaction sent":
		return fmt.Sprintf("%s📤 Transaction sent: %s%s", ColorYellow, shortenSignature(extractField(fields, "signature")), ColorReset)
	case "Transaction confirmed":
		return fmt.Sprintf("%s✅ Transaction confirmed in slot %s%s", ColorGreen, extractField(fields, "slot"), ColorReset)
	case "Transaction not confirmed":
		return fmt.Sprintf("%s✗ Transaction %s: %s%s", ColorRed, extractField(fields, "outcome"), extractField(fields, "message"), ColorReset)
	case "Simulation rejected":
		return fmt.Sprintf("%s✗ Simulation rejected: %s%s", ColorRed, extractField(fields, "error"), ColorReset)
	case "Initializing counter":
		return fmt.Sprintf("%s⚡ Initializing counter %s%s", ColorCyan, shortenAddress(extractField(fields, "counter")), ColorReset)
	case "Incrementing counter":
		return fmt.Sprintf("%s⚡ Incrementing counter %s%s", ColorCyan, shortenAddress(extractField(fields, "counter")), ColorReset)
	case "Counter incremented":
		return fmt.Sprintf("%s🎉 Counter is now %s%s", ColorGreen+ColorBold, extractField(fields, "count"), ColorReset)
	case "Retrying transaction send":
		return fmt.Sprintf("%s↻ Retrying send in %s%s", ColorYellow, extractField(fields, "next"), ColorReset)
	default:
		return msg
	}
}

func extractField(fields []zap.Field, key string) string {
	for _, field := range fields {
		if field.Key != key {
			continue
		}
		switch {
		case field.Type == zapcore.StringType:
			return field.String
		case field.Type == zapcore.DurationType:
			return time.Duration(field.Integer).String()
		case field.Interface != nil:
			return fmt.Sprintf("%v", field.Interface)
		default:
			return fmt.Sprintf("%d", field.Integer)
		}
	}
	return ""
}

func shortenAddress(addr string) string {
	if len(addr) > 8 {
		return addr[:4] + "..." + addr[len(addr)-4:]
	}
	return addr
}

func shortenSignature(sig string) string {
	if len(sig) > 16 {
		return sig[:8] + "..." + sig[len(sig)-8:]
	}
	return sig
}

// prettyCore rewrites known messages and drops structured fields.
type prettyCore struct {
	core   zapcore.Core
	fields []zapcore.Field
}

func (c *prettyCore) Enabled(level zapcore.Level) bool {
	return c.core.Enabled(level)
}

func (c *prettyCore) With(fields []zapcore.Field) zapcore.Core {
	merged := append(append([]zapcore.Field(nil), c.fields...), fields...)
	return &prettyCore{core: c.core, fields: merged}
}

func (c *prettyCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return checked.AddCore(entry, c)
	}
	return checked
}

func (c *prettyCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	all := append(append([]zapcore.Field(nil), c.fields...), fields...)
	entry.Message = FormatMessage(entry.Message, all...)
	if strings.HasPrefix(entry.Message, "\033") {
		return c.core.Write(entry, nil)
	}
	var errs []zapcore.Field
	for _, f := range all {
		if f.Type == zapcore.ErrorType {
			errs = append(errs, f)
		}
	}
	return c.core.Write(entry, errs)
}

func (c *prettyCore) Sync() error {
	return c.core.Sync()
}
