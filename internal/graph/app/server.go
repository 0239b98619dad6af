package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/latticeworks/lattice/internal/graph/projection"
	storagesqlite "github.com/latticeworks/lattice/internal/graph/storage/sqlite"
)

// Server hosts the graphd runtime: durable stores, the command engine, and
// the health endpoint.
type Server struct {
	listener    net.Listener
	grpcServer  *grpc.Server
	health      *health.Server
	events      *storagesqlite.Store
	projections *storagesqlite.Store
	service     *Service
}

// New creates a configured graphd server listening on the provided port.
func New(cfg Config) (*Server, error) {
	addr := cfg.Addr
	if addr == "" {
		addr = fmt.Sprintf(":%d", cfg.Port)
	}
	return NewWithAddr(cfg, addr)
}

// NewWithAddr creates a configured graphd server on an explicit address.
func NewWithAddr(cfg Config, addr string) (server *Server, err error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	defer func() {
		if err != nil {
			_ = listener.Close()
		}
	}()

	events, err := openEventStore(cfg.EventsDBPath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = events.Close()
		}
	}()
	projections, err := openProjectionStore(cfg.ProjectionsDBPath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = projections.Close()
		}
	}()

	handler, err := buildDomainHandler(events, events, cfg.SnapshotEvery)
	if err != nil {
		return nil, fmt.Errorf("build domain handler: %w", err)
	}
	applier := projection.Applier{Graphs: projections, Nodes: projections, Edges: projections}
	service := &Service{
		Domain:      handler,
		Events:      events,
		Projections: projections,
		Projection:  &projection.OrderedApplier{Applier: applier, Watermarks: projections},
		Publisher:   LogPublisher{},
	}
	repairProjectionGaps(projections, events, applier)

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(statusUnaryInterceptor),
	)
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	return &Server{
		listener:    listener,
		grpcServer:  grpcServer,
		health:      healthServer,
		events:      events,
		projections: projections,
		service:     service,
	}, nil
}

// Addr returns the listener address for the graphd server.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Service returns the application surface backed by this server's stores.
func (s *Server) Service() *Service {
	if s == nil {
		return nil
	}
	return s.service
}

// Run creates and serves a graphd server until the context ends.
func Run(ctx context.Context, cfg Config) error {
	server, err := New(cfg)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve starts the graphd server and blocks until it stops or the context
// ends.
func (s *Server) Serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.closeStores()

	log.Printf("graphd listening at %v", s.listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.grpcServer.Serve(s.listener)
	}()

	handleErr := func(err error) error {
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	}

	select {
	case <-ctx.Done():
		if s.health != nil {
			s.health.Shutdown()
		}
		s.grpcServer.GracefulStop()
		return handleErr(<-serveErr)
	case err := <-serveErr:
		return handleErr(err)
	}
}

func (s *Server) closeStores() {
	if s == nil {
		return
	}
	if s.events != nil {
		if err := s.events.Close(); err != nil {
			log.Printf("close event store: %v", err)
		}
	}
	if s.projections != nil {
		if err := s.projections.Close(); err != nil {
			log.Printf("close projection store: %v", err)
		}
	}
}

// repairProjectionGaps replays journal events the projection missed, for
// example after a crash between append and apply. Failures are logged, not
// fatal: serving a stale projection beats refusing to start.
func repairProjectionGaps(projections *storagesqlite.Store, events *storagesqlite.Store, applier projection.Applier) {
	results, err := projection.RepairProjectionGaps(context.Background(), projections, events, applier)
	if err != nil {
		log.Printf("repair projection gaps: %v", err)
		return
	}
	for _, result := range results {
		log.Printf("repaired projection gap graph=%s events=%d", result.GraphID, result.EventsReplayed)
	}
}

func openEventStore(path string) (*storagesqlite.Store, error) {
	if err := ensureStorageDir(path); err != nil {
		return nil, err
	}
	store, err := storagesqlite.OpenEvents(path)
	if err != nil {
		return nil, fmt.Errorf("open event store: %w", err)
	}
	return store, nil
}

func openProjectionStore(path string) (*storagesqlite.Store, error) {
	if err := ensureStorageDir(path); err != nil {
		return nil, err
	}
	store, err := storagesqlite.OpenProjections(path)
	if err != nil {
		return nil, fmt.Errorf("open projection store: %w", err)
	}
	return store, nil
}

func ensureStorageDir(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create storage dir: %w", err)
		}
	}
	return nil
}
