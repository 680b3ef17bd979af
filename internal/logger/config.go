// internal/logger/config.go
package logger

type Config struct {
	LogFile     string
	MaxSize     int  // мегабайты
	MaxAge      int  // дни
	MaxBackups  int  // количество файлов
	Compress    bool // сжимать ротированные файлы
	Development bool
	// Pretty switches the console to short colored lines without fields.
	Pretty bool
	// Buffer, when set, replaces the console core so a TUI owns the terminal.
	Buffer *LogBuffer
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		LogFile:     "logs/counter.log",
		MaxSize:     10,
		MaxAge:      30,
		MaxBackups:  5,
		Compress:    true,
		Development: false,
		Pretty:      true,
	}
}
