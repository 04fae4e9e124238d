package healthwatch

import (
	"testing"

	"github.com/golang/protobuf/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/devkapilbansal/watchstream/internal/pkg/log"
	"github.com/devkapilbansal/watchstream/internal/pkg/stats"
)

func newTestWatcher(service string, onChange func(healthpb.HealthCheckResponse_ServingStatus)) *Watcher {
	return NewWatcher(service, onChange, log.MockLogger, stats.NewMockScope("test"))
}

func statusPayload(t *testing.T, s healthpb.HealthCheckResponse_ServingStatus) []byte {
	t.Helper()
	b, err := proto.Marshal(&healthpb.HealthCheckResponse{Status: s})
	require.NoError(t, err)
	return b
}

func TestEncodeRequestCarriesServiceName(t *testing.T) {
	w := newTestWatcher("payments", nil)
	b, err := w.EncodeRequest()
	require.NoError(t, err)

	var req healthpb.HealthCheckRequest
	require.NoError(t, proto.Unmarshal(b, &req))
	assert.Equal(t, "payments", req.Service)
	assert.Equal(t, "/grpc.health.v1.Health/Watch", w.Path())
}

func TestStatusTransitionsFireCallback(t *testing.T) {
	var observed []healthpb.HealthCheckResponse_ServingStatus
	w := newTestWatcher("", func(s healthpb.HealthCheckResponse_ServingStatus) {
		observed = append(observed, s)
	})

	require.NoError(t, w.OnMessageReceived(nil, statusPayload(t, healthpb.HealthCheckResponse_SERVING)))
	assert.True(t, w.Serving())

	// A repeated status is not a transition.
	require.NoError(t, w.OnMessageReceived(nil, statusPayload(t, healthpb.HealthCheckResponse_SERVING)))
	require.NoError(t, w.OnMessageReceived(nil, statusPayload(t, healthpb.HealthCheckResponse_NOT_SERVING)))
	assert.False(t, w.Serving())

	assert.Equal(t, []healthpb.HealthCheckResponse_ServingStatus{
		healthpb.HealthCheckResponse_SERVING,
		healthpb.HealthCheckResponse_NOT_SERVING,
	}, observed)
}

func TestMalformedPayloadIsRejected(t *testing.T) {
	w := newTestWatcher("", nil)
	assert.Error(t, w.OnMessageReceived(nil, []byte{0xff, 0xff, 0xff}))
	assert.False(t, w.Serving())
}

func TestStreamLossResetsStatusToUnknown(t *testing.T) {
	w := newTestWatcher("", nil)
	require.NoError(t, w.OnMessageReceived(nil, statusPayload(t, healthpb.HealthCheckResponse_SERVING)))
	require.True(t, w.Serving())

	w.OnTerminalStatus(nil, codes.Unavailable)
	assert.False(t, w.Serving())

	snap := w.Snapshot()
	assert.Equal(t, healthpb.HealthCheckResponse_SERVICE_UNKNOWN.String(), snap.Status)
	assert.Equal(t, codes.Unavailable.String(), snap.LastTerminalStatus)
}

func TestSnapshotCountsAttemptsAndRetries(t *testing.T) {
	w := newTestWatcher("payments", nil)
	w.OnCallStart(nil)
	w.OnRetryTimerStart(nil)
	w.OnCallStart(nil)

	snap := w.Snapshot()
	assert.Equal(t, "payments", snap.Service)
	assert.Equal(t, 2, snap.Attempts)
	assert.Equal(t, 1, snap.RetriesScheduled)
	assert.Equal(t, "", snap.LastTerminalStatus)
}
