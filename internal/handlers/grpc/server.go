package grpc

import (
	"github.com/Nazarious-ucu/nightjet-alerts/internal/metrics"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// AlertsService is the health service name probed by orchestrators.
const AlertsService = "nightjet.alerts.v1.Alerts"

// NewServer builds the ops gRPC server: health checking, instrumented by the service metrics.
func NewServer(m *metrics.Metrics) (*grpc.Server, *health.Server) {
	srv := grpc.NewServer(
		grpc.UnaryInterceptor(m.UnaryServerInterceptor()),
		grpc.StreamInterceptor(m.StreamServerInterceptor()),
	)

	hs := health.NewServer()
	hs.SetServingStatus(AlertsService, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	m.GRPC.InitializeMetrics(srv)
	return srv, hs
}

// MarkServing flips the alerts service to SERVING once the HTTP surface is up.
func MarkServing(hs *health.Server) {
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(AlertsService, healthpb.HealthCheckResponse_SERVING)
}
