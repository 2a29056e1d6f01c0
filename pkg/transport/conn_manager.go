package transport

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/sekas-io/sekas/pkg/client"
	"github.com/sekas-io/sekas/pkg/log"
	"github.com/sekas-io/sekas/pkg/metrics"
)

// ConnManager maps node addresses to reusable multiplexed connections.
// It is safe for concurrent use; handles are shared, not cloned.
type ConnManager struct {
	mu     sync.Mutex
	conns  map[string]*NodeClient
	logger zerolog.Logger
}

// NewConnManager creates an empty connection manager.
func NewConnManager() *ConnManager {
	return &ConnManager{
		conns:  make(map[string]*NodeClient),
		logger: log.WithComponent("conn-manager"),
	}
}

// GetNodeClient returns the shared transport for addr, dialing on first
// use. gRPC dials lazily, so failures surface on the first RPC rather
// than here.
func (m *ConnManager) GetNodeClient(addr string) (client.NodeClient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if nc, ok := m.conns[addr]; ok {
		return nc, nil
	}

	conn, err := grpc.Dial(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	)
	if err != nil {
		metrics.NodeConnectTotal.WithLabelValues("error").Inc()
		return nil, &client.ConnectError{Err: fmt.Errorf("dial %s: %w", addr, err)}
	}

	connID := uuid.New().String()[:8]
	m.logger.Debug().Str("addr", addr).Str("conn_id", connID).Msg("Established node connection")
	metrics.NodeConnectTotal.WithLabelValues("ok").Inc()

	nc := &NodeClient{conn: conn, addr: addr, connID: connID}
	m.conns[addr] = nc
	return nc, nil
}

// Close tears down every connection.
func (m *ConnManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for addr, nc := range m.conns {
		if err := nc.conn.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close connection to %s: %w", addr, err)
		}
		delete(m.conns, addr)
	}
	return firstErr
}
