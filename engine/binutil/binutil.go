package binutil

import (
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/natefinch/lumberjack"
	"github.com/yondr/yondr/engine/gwlog"
)

// SetupHTTPServer starts the HTTP server for go tool pprof, port 0 disables it
func SetupHTTPServer(ip string, port int) {
	if port == 0 {
		gwlog.Infof("pprof server not enabled")
		return
	}

	httpHost := fmt.Sprintf("%s:%d", ip, port)
	gwlog.Infof("http server listening on %s", httpHost)
	gwlog.Infof("pprof http://%s/debug/pprof/ ... available commands: ", httpHost)
	gwlog.Infof("    go tool pprof http://%s/debug/pprof/heap", httpHost)
	gwlog.Infof("    go tool pprof http://%s/debug/pprof/profile", httpHost)

	go func() {
		if err := http.ListenAndServe(httpHost, nil); err != nil {
			gwlog.Errorf("http server stopped: %v", err)
		}
	}()
}

// SetupGWLog sets the component name, level and outputs of the log system.
// Logs go to a rotating logFile (if set) and to stderr (if logStderr).
func SetupGWLog(component string, logLevel string, logFile string, logStderr bool) {
	gwlog.SetSource(component)
	gwlog.Infof("Set log level to %s", logLevel)
	gwlog.SetLevel(gwlog.StringToLevel(logLevel))

	outputWriters := make([]io.Writer, 0, 2)
	if logFile != "" {
		logFileWriter := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    100, // megabytes
			MaxBackups: 100,
			MaxAge:     30, //days
			Compress:   true,
		}

		logFileWriter.Rotate() // rotate immediately
		outputWriters = append(outputWriters, logFileWriter)
	}

	if logStderr {
		outputWriters = append(outputWriters, os.Stderr)
	}

	switch len(outputWriters) {
	case 0:
		gwlog.SetOutput(io.Discard)
	case 1:
		gwlog.SetOutput(outputWriters[0])
	default:
		gwlog.SetOutput(io.MultiWriter(outputWriters...))
	}
}
