package daemonrunner

import (
	"context"
	"fmt"
	"time"

	"github.com/curatorhq/curator/internal/rpc"
)

// startRPCServer initializes and starts the MCP broker.
func (d *Daemon) startRPCServer(ctx context.Context) (*rpc.Server, chan error, error) {
	// Sync daemon version with CLI version.
	rpc.ServerVersion = d.Version

	server := rpc.NewServer(d.cfg.SocketPath)
	d.server = server
	d.registerHandlers(server)

	serverErrChan := make(chan error, 1)
	go func() {
		d.log.Log("Starting RPC server: %s", d.cfg.SocketPath)
		if err := server.Start(ctx); err != nil {
			d.log.Log("RPC server error: %v", err)
			serverErrChan <- err
		}
	}()

	select {
	case err := <-serverErrChan:
		d.log.Log("RPC server failed to start: %v", err)
		return nil, nil, fmt.Errorf("cannot start RPC server: %w", err)
	case <-server.WaitReady():
		d.log.Log("RPC server ready (socket listening)")
	case <-time.After(5 * time.Second):
		d.log.Log("Warning: server didn't signal ready after 5 seconds (may still be starting)")
	}

	return server, serverErrChan, nil
}
