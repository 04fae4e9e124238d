package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/devkapilbansal/watchstream/internal/app/healthwatch"
	"github.com/devkapilbansal/watchstream/internal/pkg/bootstrap"
	"github.com/devkapilbansal/watchstream/internal/pkg/log"
	"github.com/devkapilbansal/watchstream/internal/pkg/log/zap"
	"github.com/devkapilbansal/watchstream/internal/pkg/util/stringify"
)

type Handler struct {
	pattern     string
	description string
	handler     http.HandlerFunc
}

func getHandlers(config *bootstrap.Config, watcher *healthwatch.Watcher, logger log.Logger) []Handler {
	handlers := []Handler{
		{
			"/",
			"admin home page",
			func(http.ResponseWriter, *http.Request) {},
		},
		{
			"/log_level",
			"update the log level to `debug`, `info`, `warn`, or `error`. " +
				"Omitting the level outputs the current log level. usage: `/log_level/<level>`",
			logLevelHandler(logger),
		},
		{
			"/ready",
			"respond 200 while the watched service reports SERVING",
			readyHandler(watcher),
		},
		{
			"/server_info",
			"print bootstrap configuration",
			configDumpHandler(config),
		},
		{
			"/watch_status",
			"print the current state of the health watch",
			watchStatusHandler(watcher),
		},
	}
	// The default handler is defined later to avoid infinite recursion.
	handlers[0].handler = defaultHandler(handlers)
	return handlers
}

// RegisterHandlers installs the admin endpoints on mux.
func RegisterHandlers(mux *http.ServeMux, config *bootstrap.Config, watcher *healthwatch.Watcher, logger log.Logger) {
	for _, handler := range getHandlers(config, watcher, logger) {
		mux.Handle(handler.pattern, handler.handler)
		if !strings.HasSuffix(handler.pattern, "/") {
			mux.Handle(handler.pattern+"/", handler.handler)
		}
	}
}

func defaultHandler(handlers []Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		// The "/" pattern matches everything, so we need to check
		// that we're at the root here.
		if req.URL.Path != "/" {
			http.NotFound(w, req)
			return
		}
		fmt.Fprintf(w, "admin commands are:\n")
		for _, handler := range handlers {
			fmt.Fprintf(w, "  %s: %s\n", handler.pattern, handler.description)
		}
	}
}

func configDumpHandler(config *bootstrap.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		configString, err := stringify.InterfaceToString(config)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprintf(w, "Failed to dump config: %s\n", err.Error())
			return
		}
		fmt.Fprintf(w, "%s\n", configString)
	}
}

func watchStatusHandler(watcher *healthwatch.Watcher) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		snapshotString, err := stringify.InterfaceToString(watcher.Snapshot())
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprintf(w, "Failed to dump watch status: %s\n", err.Error())
			return
		}
		fmt.Fprintf(w, "%s\n", snapshotString)
	}
}

func readyHandler(watcher *healthwatch.Watcher) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if watcher.Serving() {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}
}

func getParam(path string) string {
	// Assumes that the URL is of the format `address/endpoint/parameter` and returns `parameter`.
	splitPath := strings.SplitN(path, "/", 3)
	if len(splitPath) == 3 {
		return splitPath[2]
	}
	return ""
}

func logLevelHandler(l log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method == "POST" {
			logLevel := getParam(req.URL.Path)

			// If no level is provided, output the current log level.
			if logLevel == "" {
				fmt.Fprintf(w, "Current log level: %s\n", l.GetLevel())
				return
			}

			// Otherwise update the logging level.
			if _, err := zap.ParseLogLevel(logLevel); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				fmt.Fprintf(w, "Invalid log level: %s\n", logLevel)
				return
			}
			l.UpdateLogLevel(logLevel)
			fmt.Fprintf(w, "Current log level: %s\n", l.GetLevel())
		} else {
			w.WriteHeader(http.StatusMethodNotAllowed)
			fmt.Fprintf(w, "Only POST is supported\n")
		}
	}
}
