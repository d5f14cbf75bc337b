package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// LogLevel определяет уровни логирования
type LogLevel int

const (
	TRACE LogLevel = iota
	DEBUG
	INFO
	WARN
	ERROR
)

// String возвращает строковое представление уровня логирования
func (l LogLevel) String() string {
	switch l {
	case TRACE:
		return "TRACE"
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel разбирает имя уровня без учёта регистра; неизвестное имя даёт INFO
func ParseLevel(name string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "TRACE":
		return TRACE
	case "DEBUG":
		return DEBUG
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

func (l LogLevel) logrus() logrus.Level {
	switch l {
	case TRACE:
		return logrus.TraceLevel
	case DEBUG:
		return logrus.DebugLevel
	case WARN:
		return logrus.WarnLevel
	case ERROR:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// Logger логгер компонента: консоль и файл с отдельными порогами
type Logger struct {
	component       string
	console         *logrus.Logger
	file            *logrus.Logger
	out             *os.File
	minConsoleLevel LogLevel
	minFileLevel    LogLevel
	mu              sync.Mutex
}

// LogDir каталог файлов логов
var LogDir = "logs"

// NewLogger создаёт логгер компонента с файлом logs/<component>_<время>.log.
// Уровень консоли берётся из LOG_LEVEL, формат из LOG_FORMAT (text|json).
func NewLogger(component string) (*Logger, error) {
	if err := os.MkdirAll(LogDir, 0755); err != nil {
		return nil, fmt.Errorf("ошибка создания директории %s: %w", LogDir, err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	filename := filepath.Join(LogDir, fmt.Sprintf("%s_%s.log", component, timestamp))
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания файла логов: %w", err)
	}

	logger := newLogger(component, os.Stdout, file)
	logger.out = file
	return logger, nil
}

// NewConsoleLogger логгер без файла
func NewConsoleLogger(component string, w io.Writer) *Logger {
	return newLogger(component, w, nil)
}

func newLogger(component string, console io.Writer, file io.Writer) *Logger {
	consoleLevel := INFO
	if level, ok := os.LookupEnv("LOG_LEVEL"); ok {
		consoleLevel = ParseLevel(level)
	}

	l := &Logger{
		component:       component,
		console:         logrus.New(),
		minConsoleLevel: consoleLevel,
		minFileLevel:    TRACE,
	}
	l.console.SetOutput(console)
	l.console.SetLevel(logrus.TraceLevel)
	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		l.console.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.console.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if file != nil {
		l.file = logrus.New()
		l.file.SetOutput(file)
		l.file.SetLevel(logrus.TraceLevel)
		l.file.SetFormatter(&logrus.JSONFormatter{})
	}
	return l
}

// Component имя компонента логгера
func (l *Logger) Component() string { return l.component }

// SetLevels задаёт пороги консоли и файла
func (l *Logger) SetLevels(console, file LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.minConsoleLevel = console
	l.minFileLevel = file
}

func (l *Logger) consoleLevel() LogLevel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.minConsoleLevel
}

func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	l.write(l.component, level, l.consoleLevel(), fmt.Sprintf(format, args...))
}

// write пишет сообщение от имени component; console порог консоли
func (l *Logger) write(component string, level, console LogLevel, message string) {
	l.mu.Lock()
	file, fileLogger := l.minFileLevel, l.file
	l.mu.Unlock()

	if level >= console {
		l.console.WithField("component", component).Log(level.logrus(), message)
	}
	if fileLogger != nil && level >= file {
		fileLogger.WithField("component", component).Log(level.logrus(), message)
	}
}

// Trace сообщение уровня TRACE
func (l *Logger) Trace(format string, args ...interface{}) { l.log(TRACE, format, args...) }

// Debug сообщение уровня DEBUG
func (l *Logger) Debug(format string, args ...interface{}) { l.log(DEBUG, format, args...) }

// Info сообщение уровня INFO
func (l *Logger) Info(format string, args ...interface{}) { l.log(INFO, format, args...) }

// Warn сообщение уровня WARN
func (l *Logger) Warn(format string, args ...interface{}) { l.log(WARN, format, args...) }

// Error сообщение уровня ERROR
func (l *Logger) Error(format string, args ...interface{}) { l.log(ERROR, format, args...) }

// Close закрывает файл логов
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.out == nil {
		return nil
	}
	err := l.out.Close()
	l.out = nil
	l.file = nil
	return err
}

// Глобальный логгер. До InitDefaultLogger пишет только в stderr.
var (
	defaultLogger   = NewConsoleLogger("default", os.Stderr)
	defaultLoggerMu sync.RWMutex
)

// InitDefaultLogger создаёт глобальный логгер с файлом для компонента
func InitDefaultLogger(component string) error {
	logger, err := NewLogger(component)
	if err != nil {
		return err
	}
	defaultLoggerMu.Lock()
	defaultLogger = logger
	defaultLoggerMu.Unlock()
	return nil
}

// SetDefaultLogger подменяет глобальный логгер
func SetDefaultLogger(l *Logger) {
	defaultLoggerMu.Lock()
	defaultLogger = l
	defaultLoggerMu.Unlock()
}

// CloseDefaultLogger закрывает файл глобального логгера
func CloseDefaultLogger() {
	defaultLoggerMu.RLock()
	l := defaultLogger
	defaultLoggerMu.RUnlock()
	_ = l.Close()
}

func current() *Logger {
	defaultLoggerMu.RLock()
	defer defaultLoggerMu.RUnlock()
	return defaultLogger
}

// Trace логирует сообщение уровня TRACE
func Trace(format string, args ...interface{}) { current().Trace(format, args...) }

// Debug логирует сообщение уровня DEBUG
func Debug(format string, args ...interface{}) { current().Debug(format, args...) }

// Info логирует сообщение уровня INFO
func Info(format string, args ...interface{}) { current().Info(format, args...) }

// Warn логирует сообщение уровня WARN
func Warn(format string, args ...interface{}) { current().Warn(format, args...) }

// Error логирует сообщение уровня ERROR
func Error(format string, args ...interface{}) { current().Error(format, args...) }
