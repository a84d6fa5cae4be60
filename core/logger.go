package core

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
)

type ctxKey string

const requestIDKey ctxKey = "storefront.request_id"

// WithRequestID stores a request identifier picked up by context-aware logging
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the request identifier set by WithRequestID
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

var levelRank = map[string]int{
	"DEBUG": 0,
	"INFO":  1,
	"WARN":  2,
	"ERROR": 3,
}

// ProductionLogger writes structured logs as JSON lines or human-readable text.
//
// Loggers derived with WithComponent share output and level with their parent.
type ProductionLogger struct {
	shared      *loggerState
	serviceName string
	component   string
}

type loggerState struct {
	mu     sync.Mutex
	level  string
	format string
	output io.Writer
}

// NewProductionLogger builds a logger from the logging section of the config
func NewProductionLogger(logging LoggingConfig, dev DevelopmentConfig, serviceName string) *ProductionLogger {
	level := strings.ToUpper(logging.Level)
	if dev.DebugLogging {
		level = "DEBUG"
	}
	if _, ok := levelRank[level]; !ok {
		level = "INFO"
	}

	format := logging.Format
	if format != "text" {
		format = "json"
	}

	var out io.Writer = os.Stdout
	if logging.Output == "stderr" {
		out = os.Stderr
	}

	return &ProductionLogger{
		shared: &loggerState{
			level:  level,
			format: format,
			output: out,
		},
		serviceName: serviceName,
		component:   "storefront",
	}
}

// WithComponent returns a logger tagging every entry with component
func (p *ProductionLogger) WithComponent(component string) Logger {
	return &ProductionLogger{
		shared:      p.shared,
		serviceName: p.serviceName,
		component:   component,
	}
}

// SetOutput changes the output writer (useful for testing)
func (p *ProductionLogger) SetOutput(w io.Writer) {
	p.shared.mu.Lock()
	defer p.shared.mu.Unlock()
	p.shared.output = w
}

// SetLevel changes the minimum level for this logger and all derived ones
func (p *ProductionLogger) SetLevel(level string) {
	p.shared.mu.Lock()
	defer p.shared.mu.Unlock()
	p.shared.level = strings.ToUpper(level)
}

func (p *ProductionLogger) Info(msg string, fields map[string]interface{}) {
	p.log(context.Background(), "INFO", msg, fields)
}

func (p *ProductionLogger) Error(msg string, fields map[string]interface{}) {
	p.log(context.Background(), "ERROR", msg, fields)
}

func (p *ProductionLogger) Warn(msg string, fields map[string]interface{}) {
	p.log(context.Background(), "WARN", msg, fields)
}

func (p *ProductionLogger) Debug(msg string, fields map[string]interface{}) {
	p.log(context.Background(), "DEBUG", msg, fields)
}

func (p *ProductionLogger) InfoWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	p.log(ctx, "INFO", msg, fields)
}

func (p *ProductionLogger) ErrorWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	p.log(ctx, "ERROR", msg, fields)
}

func (p *ProductionLogger) WarnWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	p.log(ctx, "WARN", msg, fields)
}

func (p *ProductionLogger) DebugWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	p.log(ctx, "DEBUG", msg, fields)
}

func (p *ProductionLogger) log(ctx context.Context, level, msg string, fields map[string]interface{}) {
	p.shared.mu.Lock()
	defer p.shared.mu.Unlock()

	if levelRank[level] < levelRank[p.shared.level] {
		return
	}

	entry := make(map[string]interface{}, len(fields)+6)
	for k, v := range fields {
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		entry[k] = v
	}
	if ctx != nil {
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			entry["trace_id"] = sc.TraceID().String()
			entry["span_id"] = sc.SpanID().String()
		}
		if id := RequestIDFromContext(ctx); id != "" {
			entry["request_id"] = id
		}
	}

	timestamp := time.Now().Format(time.RFC3339Nano)

	if p.shared.format == "json" {
		entry["timestamp"] = timestamp
		entry["level"] = level
		entry["service"] = p.serviceName
		entry["component"] = p.component
		entry["message"] = msg
		if data, err := json.Marshal(entry); err == nil {
			fmt.Fprintln(p.shared.output, string(data))
		}
		return
	}

	keys := make([]string, 0, len(entry))
	for k := range entry {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, entry[k])
	}
	fmt.Fprintf(p.shared.output, "%s [%s] [%s] %s%s\n", timestamp, level, p.component, msg, b.String())
}
