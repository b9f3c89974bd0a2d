// Package logging configures logrus for the CLI and routes client-go's klog
// output through it.
package logging

import (
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"
	"k8s.io/klog/v2"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

// Setup configures the standard logrus logger. Output goes to out, normally
// stderr, so stdout stays free for reports.
func Setup(level, format string, out io.Writer) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("log level %q: %w", level, err)
	}

	var formatter log.Formatter
	switch format {
	case "", FormatText:
		formatter = &log.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05"}
	case FormatJSON:
		formatter = &log.JSONFormatter{}
	default:
		return fmt.Errorf("log format %q (want text or json)", format)
	}

	log.SetOutput(out)
	log.SetLevel(lvl)
	log.SetFormatter(formatter)

	redirectKlog()
	return nil
}

// client-go logs retries and throttling through klog on stderr; keep it at
// debug so it only shows with --log-level debug.
func redirectKlog() {
	klog.LogToStderr(false)
	klog.SetOutput(log.StandardLogger().WriterLevel(log.DebugLevel))
}
