package daemonrunner

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"

	"github.com/curatorhq/curator/internal/docstore"
	"github.com/curatorhq/curator/internal/rpc"
	"github.com/curatorhq/curator/internal/similarity"
	"github.com/curatorhq/curator/internal/status"
)

// Resource URIs exposed over resources/list and resources/read.
const (
	resourceDaemon   = "curator://status/daemon"
	resourceMonitor  = "curator://status/monitor"
	resourceVault    = "curator://status/vault"
	resourceDatabase = "curator://status/database"
)

type resourceEntry struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MimeType    string `json:"mimeType"`
}

type toolEntry struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// registerHandlers wires the MCP method surface onto the broker. Handlers
// close over the daemon's engine, store and status files.
func (d *Daemon) registerHandlers(server *rpc.Server) {
	server.Register("resources/list", d.handleResourcesList)
	server.Register("resources/read", d.handleResourcesRead)
	server.Register("tools/list", d.handleToolsList)
	server.Register("tools/call", d.handleToolsCall)
	server.Register("status/get", d.handleStatusGet)
}

func (d *Daemon) handleResourcesList(_ context.Context, _ json.RawMessage) (interface{}, *rpc.Error) {
	return map[string]interface{}{
		"resources": []resourceEntry{
			{URI: resourceDaemon, Name: "daemon", Description: "Daemon lifecycle state", MimeType: "application/json"},
			{URI: resourceMonitor, Name: "monitor", Description: "File monitor summary", MimeType: "application/json"},
			{URI: resourceVault, Name: "vault", Description: "Managed-directory validation report", MimeType: "application/json"},
			{URI: resourceDatabase, Name: "database", Description: "Change-history store summary", MimeType: "application/json"},
		},
	}, nil
}

type resourcesReadParams struct {
	URI string `json:"uri"`
}

func (d *Daemon) handleResourcesRead(_ context.Context, params json.RawMessage) (interface{}, *rpc.Error) {
	var p resourcesReadParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, rpc.Errorf(rpc.CodeInvalidParams, "bad params: %v", err)
	}

	var doc interface{}
	switch p.URI {
	case resourceDaemon:
		doc = status.ReadDaemon(filepath.Join(d.cfg.Home, status.DaemonFile))
	case resourceMonitor:
		doc = status.ReadMonitor(filepath.Join(d.cfg.Home, status.MonitorFile))
	case resourceVault:
		doc = status.ReadVault(filepath.Join(d.cfg.Home, status.VaultFile))
	case resourceDatabase:
		doc = status.ReadDatabase(filepath.Join(d.cfg.Home, status.DatabaseFile))
	default:
		return nil, rpc.Errorf(rpc.CodeInvalidParams, "unknown resource: %s", p.URI)
	}

	return map[string]interface{}{
		"uri":      p.URI,
		"contents": doc,
	}, nil
}

func (d *Daemon) handleToolsList(_ context.Context, _ json.RawMessage) (interface{}, *rpc.Error) {
	return map[string]interface{}{
		"tools": []toolEntry{
			{Name: "file_changes", Description: "List recently changed files that pass the significance filter"},
			{Name: "nearest_files", Description: "Find tracked files most similar to the given content"},
			{Name: "prune_now", Description: "Run a prune pass over the change-history store immediately"},
		},
	}, nil
}

type toolsCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

type fileChangesArgs struct {
	Limit int `json:"limit,omitempty"`
}

type nearestFilesArgs struct {
	Content string `json:"content"`
	K       int    `json:"k,omitempty"`
}

func (d *Daemon) handleToolsCall(ctx context.Context, params json.RawMessage) (interface{}, *rpc.Error) {
	var p toolsCallParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, rpc.Errorf(rpc.CodeInvalidParams, "bad params: %v", err)
	}

	switch p.Name {
	case "file_changes":
		return d.callFileChanges(ctx, p.Arguments)
	case "nearest_files":
		return d.callNearestFiles(ctx, p.Arguments)
	case "prune_now":
		return d.callPruneNow(ctx)
	default:
		return nil, rpc.Errorf(rpc.CodeInvalidParams, "unknown tool: %s", p.Name)
	}
}

func (d *Daemon) callFileChanges(ctx context.Context, args json.RawMessage) (interface{}, *rpc.Error) {
	var a fileChangesArgs
	if len(args) > 0 {
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, rpc.Errorf(rpc.CodeInvalidParams, "bad file_changes arguments: %v", err)
		}
	}

	records, err := d.engine.InterestingChanges(ctx, a.Limit)
	if err != nil {
		return nil, storeError(err)
	}
	if records == nil {
		records = []*docstore.FileRecord{}
	}
	return map[string]interface{}{"changes": records}, nil
}

func (d *Daemon) callNearestFiles(ctx context.Context, args json.RawMessage) (interface{}, *rpc.Error) {
	var a nearestFilesArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, rpc.Errorf(rpc.CodeInvalidParams, "bad nearest_files arguments: %v", err)
	}
	if a.Content == "" {
		return nil, rpc.Errorf(rpc.CodeInvalidParams, "nearest_files requires content")
	}
	if a.K <= 0 {
		a.K = 5
	}

	matches, err := d.engine.Nearest(ctx, []byte(a.Content), a.K)
	if err != nil {
		if errors.Is(err, similarity.ErrUnavailable) {
			return nil, rpc.Errorf(rpc.CodeInternalError, "similarity service unavailable: %v", err)
		}
		return nil, rpc.Errorf(rpc.CodeInternalError, "nearest lookup failed: %v", err)
	}
	if matches == nil {
		matches = []similarity.Match{}
	}
	return map[string]interface{}{"matches": matches}, nil
}

func (d *Daemon) callPruneNow(ctx context.Context) (interface{}, *rpc.Error) {
	stats, err := d.engine.Prune(ctx)
	if err != nil {
		return nil, storeError(err)
	}
	d.log.Log("Prune requested over RPC: %d missing, %d below floor, %d evicted, %d remaining",
		stats.RemovedMissing, stats.RemovedLowPriority, stats.Evicted, stats.Remaining)
	return stats, nil
}

func (d *Daemon) handleStatusGet(ctx context.Context, _ json.RawMessage) (interface{}, *rpc.Error) {
	d.refreshMonitorStatus(ctx)
	return map[string]interface{}{
		"daemon":   status.ReadDaemon(filepath.Join(d.cfg.Home, status.DaemonFile)),
		"monitor":  status.ReadMonitor(filepath.Join(d.cfg.Home, status.MonitorFile)),
		"vault":    status.ReadVault(filepath.Join(d.cfg.Home, status.VaultFile)),
		"database": status.ReadDatabase(filepath.Join(d.cfg.Home, status.DatabaseFile)),
		"broker":   d.server.Metrics().Snapshot(),
	}, nil
}

func storeError(err error) *rpc.Error {
	if errors.Is(err, docstore.ErrUnavailable) {
		return rpc.Errorf(rpc.CodeInternalError, "store unavailable: %v", err)
	}
	return rpc.Errorf(rpc.CodeInternalError, "store operation failed: %v", err)
}
