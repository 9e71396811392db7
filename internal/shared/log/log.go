package log

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New returns a console logger tagged with the module name. Secrets must
// never be passed as fields.
func New(module string) zerolog.Logger {
	return NewWithWriter(module, os.Stderr)
}

func NewWithWriter(module string, w io.Writer) zerolog.Logger {
	out := zerolog.ConsoleWriter{
		Out:           w,
		TimeFormat:    "15:04",
		PartsOrder:    []string{"time", "level", "module", "message"},
		FieldsExclude: []string{"module"},
	}

	out.FormatPartValueByName = func(i any, s string) string {
		if s == "module" && i != nil {
			return strings.ToUpper(fmt.Sprintf("%s", i))
		}
		return ""
	}

	out.FormatFieldName = func(i any) string {
		return fmt.Sprintf("\n         \033[30m- \033[36m%s: \033[0m", i)
	}

	out.FormatErrFieldName = func(i any) string {
		return fmt.Sprintf("\n         \033[30m- \033[31m%s: \033[0m", i)
	}

	return zerolog.New(out).
		With().
		Timestamp().
		Str("module", module).
		Logger()
}

// SetLevel sets the global level from a config string such as "debug".
func SetLevel(level string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %w", err)
	}
	zerolog.SetGlobalLevel(lvl)
	return nil
}
