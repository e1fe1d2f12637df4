// Package zaplogger is the process-wide structured logger, written to the
// console and, once InitLogger is called, to the _app_logs table
package zaplogger

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var log *zap.Logger
var zapConfig zap.Config

// Fields type, used to pass to `WithFields`.
type Fields map[string]interface{}

// LogsTableName is the table the DbWriter appends to
const LogsTableName = "_app_logs"

const timestampLayout = "2006-01-02T15:04:05.999-0700"

// field names whose values never reach a log sink in clear text
var redactedKeys = map[string]bool{
	"password":      true,
	"password_hash": true,
	"code":          true,
	"twofactorcode": true,
	"token":         true,
	"authorization": true,
	"cookie":        true,
	"secret":        true,
}

// LogRecord is one persisted log entry
type LogRecord struct {
	ID        uint      `gorm:"primaryKey"`
	Timestamp time.Time `gorm:"index"`
	Level     string    `gorm:"index;size:8"`
	Caller    string
	Message   string
	Fields    datatypes.JSON
}

// TableName specifies the table name for LogRecord
func (LogRecord) TableName() string {
	return LogsTableName
}

// DbWriter is a zapcore.WriteSyncer that stores JSON-encoded entries through gorm
type DbWriter struct {
	db *gorm.DB
}

// NewDbWriter creates a writer on db, the table must exist
func NewDbWriter(db *gorm.DB) *DbWriter {
	return &DbWriter{db: db}
}

func (w *DbWriter) Write(p []byte) (int, error) {
	var entry map[string]json.RawMessage
	if err := json.Unmarshal(p, &entry); err != nil {
		return 0, err
	}

	record := LogRecord{
		Level:   unquote(entry["level"]),
		Caller:  unquote(entry["caller"]),
		Message: unquote(entry["message"]),
	}
	timestamp, err := time.Parse(timestampLayout, unquote(entry["timestamp"]))
	if err != nil {
		return 0, err
	}
	record.Timestamp = timestamp

	// whatever is left are the call's fields
	for _, k := range []string{"level", "timestamp", "caller", "message"} {
		delete(entry, k)
	}
	if len(entry) > 0 {
		fields, err := json.Marshal(entry)
		if err != nil {
			return 0, err
		}
		record.Fields = datatypes.JSON(fields)
	}

	if err := w.db.Create(&record).Error; err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *DbWriter) Sync() error {
	return nil
}

func unquote(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func customTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format(timestampLayout))
}

func init() {
	zapConfig = zap.Config{
		Encoding:         "console",
		Level:            zap.NewAtomicLevelAt(zap.DebugLevel),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey:   "message",
			LevelKey:     "level",
			TimeKey:      "timestamp",
			CallerKey:    "caller",
			EncodeLevel:  zapcore.CapitalLevelEncoder,
			EncodeTime:   customTimeEncoder,
			EncodeCaller: zapcore.ShortCallerEncoder,
		},
	}

	var err error
	log, err = zapConfig.Build(zap.AddCallerSkip(2))
	if err != nil {
		panic(err)
	}
}

// InitLogger adds the database sink next to the console
func InitLogger(db *gorm.DB) error {
	if err := db.AutoMigrate(&LogRecord{}); err != nil {
		return fmt.Errorf("failed to auto migrate %s: %v", LogsTableName, err)
	}

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewConsoleEncoder(zapConfig.EncoderConfig), zapcore.AddSync(os.Stdout), zapConfig.Level),
		zapcore.NewCore(zapcore.NewJSONEncoder(zapConfig.EncoderConfig), NewDbWriter(db), zapConfig.Level),
	)
	log = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(2))
	return nil
}

// SetLogLevel sets the logging level, unknown names mean info
func SetLogLevel(level string) {
	l, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || l < zapcore.DebugLevel || l > zapcore.ErrorLevel {
		l = zapcore.InfoLevel
	}
	zapConfig.Level.SetLevel(l)
}

// Info logs an info message
func Info(msg string, fields ...Fields) { write(zapcore.InfoLevel, msg, fields) }

// Debug logs a debug message
func Debug(msg string, fields ...Fields) { write(zapcore.DebugLevel, msg, fields) }

// Warn logs a warning message
func Warn(msg string, fields ...Fields) { write(zapcore.WarnLevel, msg, fields) }

// Error logs an error message
func Error(msg string, fields ...Fields) { write(zapcore.ErrorLevel, msg, fields) }

// Fatal logs a fatal message and exits the program
func Fatal(msg string, fields ...Fields) { write(zapcore.FatalLevel, msg, fields) }

// WithFields returns a logger carrying fields
func WithFields(fields Fields) *zap.Logger {
	return log.WithOptions(zap.AddCallerSkip(-2)).With(getZapFields(fields)...)
}

// TimeTrack logs the time taken since start, use with defer
func TimeTrack(start time.Time, name string) {
	elapsed := time.Since(start)
	Info(name+" took "+elapsed.String(), Fields{"duration": elapsed})
}

// Mask keeps the first and last two characters of a value
func Mask(value string) string {
	if len(value) <= 4 {
		return "****"
	}
	return value[:2] + "..." + value[len(value)-2:]
}

func write(level zapcore.Level, msg string, fields []Fields) {
	ce := log.Check(level, msg)
	if ce == nil {
		return
	}
	if len(fields) > 0 {
		ce.Write(getZapFields(fields[0])...)
		return
	}
	ce.Write()
}

// getZapFields converts Fields to zap fields, redacting credential values
func getZapFields(fields Fields) []zap.Field {
	zapFields := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		if redactedKeys[strings.ToLower(k)] {
			zapFields = append(zapFields, zap.String(k, "[REDACTED]"))
			continue
		}
		zapFields = append(zapFields, zap.Any(k, v))
	}
	return zapFields
}

// Sync flushes any buffered log entries
func Sync() error {
	return log.Sync()
}
