// Package healthwatch adapts the standard gRPC health Watch stream to
// the watch client. It keeps the last observed serving status of one
// service and notifies a callback on every transition.
package healthwatch

import (
	"context"
	"sync"

	"github.com/golang/protobuf/proto"
	"github.com/uber-go/tally"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/devkapilbansal/watchstream/internal/app/metrics"
	"github.com/devkapilbansal/watchstream/internal/app/watch"
	"github.com/devkapilbansal/watchstream/internal/pkg/log"
)

// WatchPath is the fully qualified method of the health Watch stream.
const WatchPath = "/grpc.health.v1.Health/Watch"

// Snapshot is a point-in-time view of the watcher, served by the admin
// endpoint.
type Snapshot struct {
	Service            string `json:"service"`
	Status             string `json:"status"`
	Attempts           int    `json:"attempts"`
	RetriesScheduled   int    `json:"retries_scheduled"`
	LastTerminalStatus string `json:"last_terminal_status"`
}

// Watcher implements watch.EventHandler for the health Watch stream.
// The watch client invokes the On* methods serially; the internal lock
// only guards against concurrent Snapshot and Serving readers.
type Watcher struct {
	service  string
	logger   log.Logger
	onChange func(healthpb.HealthCheckResponse_ServingStatus)

	statusChanges tally.Counter
	serving       tally.Gauge

	mu           sync.Mutex
	status       healthpb.HealthCheckResponse_ServingStatus
	attempts     int
	retries      int
	lastTerminal codes.Code
	sawTerminal  bool
}

// NewWatcher watches the serving status of service; the empty string
// watches the server's overall health. onChange may be nil. It is
// invoked from inside the watch client's callback path, so it must not
// block.
func NewWatcher(
	service string,
	onChange func(healthpb.HealthCheckResponse_ServingStatus),
	logger log.Logger,
	scope tally.Scope,
) *Watcher {
	tag := service
	if tag == "" {
		tag = "_server"
	}
	s := scope.SubScope(metrics.ScopeHealth).Tagged(map[string]string{"service": tag})
	return &Watcher{
		service:       service,
		logger:        logger.Named("healthwatch").With("service", service),
		onChange:      onChange,
		statusChanges: s.Counter(metrics.HealthStatusChanges),
		serving:       s.Gauge(metrics.HealthServing),
		status:        healthpb.HealthCheckResponse_SERVICE_UNKNOWN,
	}
}

func (w *Watcher) Path() string {
	return WatchPath
}

func (w *Watcher) EncodeRequest() ([]byte, error) {
	return proto.Marshal(&healthpb.HealthCheckRequest{Service: w.service})
}

func (w *Watcher) OnCallStart(*watch.Client) {
	w.mu.Lock()
	w.attempts++
	w.mu.Unlock()
}

func (w *Watcher) OnRetryTimerStart(*watch.Client) {
	w.mu.Lock()
	w.retries++
	w.mu.Unlock()
}

func (w *Watcher) OnMessageReceived(_ *watch.Client, payload []byte) error {
	var resp healthpb.HealthCheckResponse
	if err := proto.Unmarshal(payload, &resp); err != nil {
		return err
	}
	w.setStatus(resp.Status)
	return nil
}

// OnTerminalStatus marks the service status unknown until the stream
// comes back; a lost stream says nothing about the peer's health.
func (w *Watcher) OnTerminalStatus(_ *watch.Client, code codes.Code) {
	w.mu.Lock()
	w.lastTerminal = code
	w.sawTerminal = true
	w.mu.Unlock()
	w.setStatus(healthpb.HealthCheckResponse_SERVICE_UNKNOWN)
}

// Serving reports whether the last observed status is SERVING.
func (w *Watcher) Serving() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status == healthpb.HealthCheckResponse_SERVING
}

func (w *Watcher) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	last := ""
	if w.sawTerminal {
		last = w.lastTerminal.String()
	}
	return Snapshot{
		Service:            w.service,
		Status:             w.status.String(),
		Attempts:           w.attempts,
		RetriesScheduled:   w.retries,
		LastTerminalStatus: last,
	}
}

func (w *Watcher) setStatus(status healthpb.HealthCheckResponse_ServingStatus) {
	w.mu.Lock()
	changed := status != w.status
	w.status = status
	w.mu.Unlock()
	if !changed {
		return
	}
	w.statusChanges.Inc(1)
	if status == healthpb.HealthCheckResponse_SERVING {
		w.serving.Update(1)
	} else {
		w.serving.Update(0)
	}
	w.logger.Info(context.Background(), "serving status changed to %s", status)
	if w.onChange != nil {
		w.onChange(status)
	}
}
