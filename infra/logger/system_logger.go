package logger

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mstgnz/vrpay/infra/opensearch"
)

// LogLevel represents the severity level of a log entry
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
	LevelFatal LogLevel = "fatal"
)

// SystemLog represents a structured system log entry
type SystemLog struct {
	Timestamp   time.Time      `json:"timestamp"`
	Level       LogLevel       `json:"level"`
	Message     string         `json:"message"`
	Component   string         `json:"component"`
	Function    string         `json:"function"`
	File        string         `json:"file"`
	Line        int            `json:"line"`
	EntityID    string         `json:"entity_id,omitempty"`
	Transaction string         `json:"merchant_transaction_id,omitempty"`
	RequestID   string         `json:"request_id,omitempty"`
	Error       string         `json:"error,omitempty"`
	Fields      map[string]any `json:"fields,omitempty"`
	Environment string         `json:"environment"`
	Service     string         `json:"service"`
	Version     string         `json:"version"`
}

// SystemLogger handles structured logging to OpenSearch and console
type SystemLogger struct {
	mu               sync.Mutex
	out              io.Writer
	openSearchLogger *opensearch.Logger
	enableConsole    bool
	enableOpenSearch bool
	minLevel         LogLevel
	service          string
	version          string
	environment      string
}

// NewSystemLogger creates a new system logger
func NewSystemLogger(openSearchLogger *opensearch.Logger, config SystemLoggerConfig) *SystemLogger {
	return &SystemLogger{
		out:              os.Stdout,
		openSearchLogger: openSearchLogger,
		enableConsole:    config.EnableConsole,
		enableOpenSearch: config.EnableOpenSearch && openSearchLogger != nil,
		minLevel:         config.MinLevel,
		service:          config.Service,
		version:          config.Version,
		environment:      config.Environment,
	}
}

// SystemLoggerConfig represents configuration for system logger
type SystemLoggerConfig struct {
	EnableConsole    bool     `mapstructure:"enable_console"`
	EnableOpenSearch bool     `mapstructure:"enable_opensearch"`
	MinLevel         LogLevel `mapstructure:"min_level"`
	Service          string   `mapstructure:"service"`
	Version          string   `mapstructure:"version"`
	Environment      string   `mapstructure:"environment"`
}

// LogContext holds contextual information for logging
type LogContext struct {
	EntityID              string
	MerchantTransactionID string
	RequestID             string
	Fields                map[string]any
}

// Debug logs a debug message
func (sl *SystemLogger) Debug(message string, ctx ...LogContext) {
	sl.log(LevelDebug, message, ctx...)
}

// Info logs an info message
func (sl *SystemLogger) Info(message string, ctx ...LogContext) {
	sl.log(LevelInfo, message, ctx...)
}

// Warn logs a warning message
func (sl *SystemLogger) Warn(message string, ctx ...LogContext) {
	sl.log(LevelWarn, message, ctx...)
}

// Error logs an error message
func (sl *SystemLogger) Error(message string, err error, ctx ...LogContext) {
	logCtx := LogContext{}
	if len(ctx) > 0 {
		logCtx = ctx[0]
	}
	if err != nil {
		fields := make(map[string]any, len(logCtx.Fields)+1)
		for k, v := range logCtx.Fields {
			fields[k] = v
		}
		fields["error"] = err.Error()
		logCtx.Fields = fields
	}
	sl.log(LevelError, message, logCtx)
}

// Fatal logs a fatal message and exits
func (sl *SystemLogger) Fatal(message string, err error, ctx ...LogContext) {
	sl.Error(message, err, ctx...)
	os.Exit(1)
}

func (sl *SystemLogger) log(level LogLevel, message string, ctx ...LogContext) {
	if !sl.shouldLog(level) {
		return
	}

	// skip log, the level method and the package helper
	file, line, function := "unknown", 0, "unknown"
	if pc, f, l, ok := runtime.Caller(3); ok {
		file, line = f, l
		if fn := runtime.FuncForPC(pc); fn != nil {
			function = fn.Name()
			if idx := strings.LastIndex(function, "."); idx != -1 {
				function = function[idx+1:]
			}
		}
	}

	entry := SystemLog{
		Timestamp:   time.Now().UTC(),
		Level:       level,
		Message:     message,
		Component:   sl.extractComponent(file),
		Function:    function,
		File:        file,
		Line:        line,
		Environment: sl.environment,
		Service:     sl.service,
		Version:     sl.version,
	}

	if len(ctx) > 0 {
		entry.EntityID = ctx[0].EntityID
		entry.Transaction = ctx[0].MerchantTransactionID
		entry.RequestID = ctx[0].RequestID
		entry.Fields = redactFields(ctx[0].Fields)
		if errMsg, ok := entry.Fields["error"].(string); ok {
			entry.Error = errMsg
		}
	}

	if sl.enableConsole {
		sl.logToConsole(entry)
	}
	if sl.enableOpenSearch {
		go sl.logToOpenSearch(entry)
	}
}

var levelOrder = map[LogLevel]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
	LevelFatal: 4,
}

func (sl *SystemLogger) shouldLog(level LogLevel) bool {
	return levelOrder[level] >= levelOrder[sl.minLevel]
}

// extractComponent extracts component name from file path
func (sl *SystemLogger) extractComponent(file string) string {
	// e.g., /path/to/vrpay/provider/vrpay/vrpay.go -> provider/vrpay
	parts := strings.Split(file, "/")

	for i := len(parts) - 1; i >= 0; i-- {
		if parts[i] == "vrpay" && i+2 < len(parts) {
			return parts[i+1] + "/" + parts[i+2]
		}
	}

	if len(parts) >= 2 {
		return parts[len(parts)-2]
	}

	return "unknown"
}

// Field keys whose values never reach a log line
var redactedKeys = map[string]bool{
	"authorization": true,
	"bearertoken":   true,
	"token":         true,
	"webhookkey":    true,
	"key":           true,
	"password":      true,
	"number":        true,
	"cvv":           true,
	"iban":          true,
}

// redactFields copies fields, masking sensitive keys and string values
func redactFields(fields map[string]any) map[string]any {
	if fields == nil {
		return nil
	}
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		switch {
		case redactedKeys[strings.ToLower(k)]:
			out[k] = "***REDACTED***"
		case k == "error":
			out[k] = v
		default:
			if str, ok := v.(string); ok {
				v = opensearch.SanitizeForLog(str)
			}
			out[k] = v
		}
	}
	return out
}

var levelColors = map[LogLevel]string{
	LevelDebug: "\033[36m", // Cyan
	LevelInfo:  "\033[32m", // Green
	LevelWarn:  "\033[33m", // Yellow
	LevelError: "\033[31m", // Red
	LevelFatal: "\033[35m", // Magenta
}

const colorReset = "\033[0m"

// logToConsole writes [TIMESTAMP] [LEVEL] [COMPONENT] [CONTEXT] MESSAGE and
// then one line per field in key order
func (sl *SystemLogger) logToConsole(entry SystemLog) {
	var b strings.Builder

	var contextParts []string
	if entry.EntityID != "" {
		contextParts = append(contextParts, "entity="+entry.EntityID)
	}
	if entry.Transaction != "" {
		contextParts = append(contextParts, "tx="+entry.Transaction)
	}
	if entry.RequestID != "" {
		contextParts = append(contextParts, "req_id="+shortID(entry.RequestID))
	}
	logContext := ""
	if len(contextParts) > 0 {
		logContext = "[" + strings.Join(contextParts, " ") + "] "
	}

	fmt.Fprintf(&b, "%s [%s%s%s] [%s] %s%s",
		entry.Timestamp.Format("2006-01-02 15:04:05"),
		levelColors[entry.Level], strings.ToUpper(string(entry.Level)), colorReset,
		entry.Component,
		logContext,
		entry.Message,
	)
	if entry.Error != "" {
		fmt.Fprintf(&b, " - Error: %s", entry.Error)
	}
	b.WriteByte('\n')

	keys := make([]string, 0, len(entry.Fields))
	for key := range entry.Fields {
		if key != "error" {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(&b, "  %s: %v\n", key, entry.Fields[key])
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()
	io.WriteString(sl.out, b.String())
}

func (sl *SystemLogger) logToOpenSearch(entry SystemLog) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sl.openSearchLogger.LogSystemEvent(ctx, entry); err != nil {
		log.Printf("Failed to log to OpenSearch: %v", err)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// ParseLevel maps a LOGGING_LEVEL value to a LogLevel
func ParseLevel(v string) (LogLevel, bool) {
	switch l := LogLevel(strings.ToLower(strings.TrimSpace(v))); l {
	case LevelDebug, LevelInfo, LevelWarn, LevelError, LevelFatal:
		return l, true
	}
	return LevelInfo, false
}
