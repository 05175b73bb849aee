// Package config reads engine settings from environment variables.
// Every accessor reads the environment on call, so tests can change
// variables with t.Setenv.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	// Debug enables debug logging. Set via TENSORPIPE_DEBUG.
	Debug = Bool("TENSORPIPE_DEBUG")
	// QueueSize is the capacity of queues created at branch points and
	// for queue elements without max-size-buffers. Set via
	// TENSORPIPE_QUEUE_SIZE.
	QueueSize = Uint("TENSORPIPE_QUEUE_SIZE", 16)
	// SourceQueueSize is the capacity of source input queues. Set via
	// TENSORPIPE_SOURCE_QUEUE_SIZE.
	SourceQueueSize = Uint("TENSORPIPE_SOURCE_QUEUE_SIZE", 64)
)

// InvokeTimeout returns default timeout of single-shot invocations.
// Configurable via TENSORPIPE_INVOKE_TIMEOUT as duration or seconds.
// Zero means no timeout, which is also the default.
func InvokeTimeout() time.Duration {
	s := Var("TENSORPIPE_INVOKE_TIMEOUT")
	if s == "" {
		return 0
	}
	if d, err := time.ParseDuration(s); err == nil && d >= 0 {
		return d
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil && n >= 0 {
		return time.Duration(n) * time.Second
	}
	logrus.WithFields(logrus.Fields{"key": "TENSORPIPE_INVOKE_TIMEOUT", "value": s}).
		Warn("invalid environment variable, using default")
	return 0
}

// Var returns environment variable with surrounding spaces and quotes
// removed.
func Var(key string) string {
	return strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"'")
}

// Bool returns a function that reads boolean variable, false by default.
func Bool(key string) func() bool {
	return func() bool {
		if s := Var(key); s != "" {
			b, err := strconv.ParseBool(s)
			if err != nil {
				return true
			}
			return b
		}
		return false
	}
}

// Uint returns a function that reads positive integer variable.
func Uint(key string, defaultValue uint) func() uint {
	return func() uint {
		if s := Var(key); s != "" {
			n, err := strconv.ParseUint(s, 10, 32)
			if err == nil && n > 0 {
				return uint(n)
			}
			logrus.WithFields(logrus.Fields{"key": key, "value": s, "default": defaultValue}).
				Warn("invalid environment variable, using default")
		}
		return defaultValue
	}
}

// EnvVar describes a single setting.
type EnvVar struct {
	Name        string
	Value       any
	Description string
}

// AsMap returns all settings with their current values.
func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"TENSORPIPE_DEBUG":             {"TENSORPIPE_DEBUG", Debug(), "Show debug logs"},
		"TENSORPIPE_QUEUE_SIZE":        {"TENSORPIPE_QUEUE_SIZE", QueueSize(), "Capacity of branch queues (default 16)"},
		"TENSORPIPE_SOURCE_QUEUE_SIZE": {"TENSORPIPE_SOURCE_QUEUE_SIZE", SourceQueueSize(), "Capacity of source queues (default 64)"},
		"TENSORPIPE_INVOKE_TIMEOUT":    {"TENSORPIPE_INVOKE_TIMEOUT", InvokeTimeout(), "Timeout of single-shot invocations (default none)"},
	}
}

// Values returns all settings formatted as strings.
func Values() map[string]string {
	vals := make(map[string]string)
	for k, v := range AsMap() {
		vals[k] = fmt.Sprintf("%v", v.Value)
	}
	return vals
}
