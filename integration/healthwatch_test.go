// +build integration

package integration

import (
	"context"
	"net"
	"testing"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	"github.com/devkapilbansal/watchstream/internal/app/healthwatch"
	"github.com/devkapilbansal/watchstream/internal/app/transport"
	"github.com/devkapilbansal/watchstream/internal/app/watch"
	"github.com/devkapilbansal/watchstream/internal/pkg/backoff"
	"github.com/devkapilbansal/watchstream/internal/pkg/log"
	"github.com/devkapilbansal/watchstream/internal/pkg/stats"
)

const serviceName = "test.v1.Payments"

func TestHealthWatch(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "health watch integration tests suite")
}

type backend struct {
	listener *bufconn.Listener
	server   *grpc.Server
	health   *health.Server
	conn     *grpc.ClientConn
}

func startBackend(withHealthService bool) *backend {
	b := &backend{
		listener: bufconn.Listen(1024 * 1024),
		server:   grpc.NewServer(),
	}
	if withHealthService {
		b.health = health.NewServer()
		b.health.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
		healthpb.RegisterHealthServer(b.server, b.health)
	}
	go func() { _ = b.server.Serve(b.listener) }()

	conn, err := grpc.Dial(
		"bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return b.listener.Dial()
		}),
		grpc.WithInsecure(),
	)
	Expect(err).To(BeNil())
	b.conn = conn
	return b
}

func (b *backend) stop() {
	_ = b.conn.Close()
	b.server.Stop()
}

func quickRetries() backoff.Config {
	return backoff.Config{
		InitialDelay: 50 * time.Millisecond,
		Multiplier:   1.6,
		Jitter:       -1,
		MaxDelay:     time.Second,
	}
}

var _ = Describe("health watch over a live stream", func() {
	var (
		b        *backend
		watcher  *healthwatch.Watcher
		client   *watch.Client
		statuses chan healthpb.HealthCheckResponse_ServingStatus
	)

	startWatch := func(withHealthService bool) {
		b = startBackend(withHealthService)
		statuses = make(chan healthpb.HealthCheckResponse_ServingStatus, 16)
		watcher = healthwatch.NewWatcher(
			serviceName,
			func(s healthpb.HealthCheckResponse_ServingStatus) { statuses <- s },
			log.MockLogger,
			stats.NewMockScope("integration"),
		)
		client = watch.New(transport.NewGRPCChannel(b.conn), watcher, watch.Options{
			Logger:  log.MockLogger,
			Backoff: quickRetries(),
		})
	}

	AfterEach(func() {
		client.Orphan()
		Eventually(client.Done(), 5*time.Second).Should(BeClosed())
		b.stop()
	})

	It("observes the initial status and later transitions", func() {
		startWatch(true)

		Eventually(statuses, 5*time.Second).Should(Receive(Equal(healthpb.HealthCheckResponse_SERVING)))
		Expect(watcher.Serving()).To(BeTrue())

		b.health.SetServingStatus(serviceName, healthpb.HealthCheckResponse_NOT_SERVING)
		Eventually(statuses, 5*time.Second).Should(Receive(Equal(healthpb.HealthCheckResponse_NOT_SERVING)))
		Expect(watcher.Serving()).To(BeFalse())
	})

	It("marks the service unknown when the stream is lost and recovers", func() {
		startWatch(true)
		Eventually(statuses, 5*time.Second).Should(Receive(Equal(healthpb.HealthCheckResponse_SERVING)))

		// Shutdown flips every registered service to NOT_SERVING over
		// the existing stream.
		b.health.Shutdown()
		Eventually(statuses, 5*time.Second).Should(Receive(Equal(healthpb.HealthCheckResponse_NOT_SERVING)))

		b.health.Resume()
		Eventually(statuses, 5*time.Second).Should(Receive(Equal(healthpb.HealthCheckResponse_SERVING)))
	})

	It("stops retrying when the health service is unimplemented", func() {
		startWatch(false)

		Eventually(func() string {
			return watcher.Snapshot().LastTerminalStatus
		}, 5*time.Second).Should(Equal("Unimplemented"))

		Consistently(func() int {
			return watcher.Snapshot().Attempts
		}, time.Second, 100*time.Millisecond).Should(Equal(1))
		Expect(watcher.Serving()).To(BeFalse())
	})
})
