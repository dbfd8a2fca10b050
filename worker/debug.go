package worker

import (
	"encoding/json"
	"net/http"
	"time"
)

// NodeStatus is one member's point-in-time health, as reported by
// `waystation inspect`.
type NodeStatus struct {
	Address string `json:"address"`
	Status  string `json:"status"`
}

// ClusterStatus is one cluster's member list with live status, as
// reported by `waystation inspect`.
type ClusterStatus struct {
	Name     string       `json:"name"`
	Protocol string       `json:"protocol"`
	Sticky   string       `json:"sticky"`
	Zeroconf bool         `json:"zeroconf"`
	Nodes    []NodeStatus `json:"nodes"`
}

// DebugHandler returns the http.Handler backing the debug/metrics
// endpoint (SPEC_FULL.md §1 "metrics snapshotting"; §2 "cli" row): `/stats`
// renders the metrics.Collector snapshot, `/clusters` renders every
// cluster's live member status for the `inspect` CLI command.
func (w *Worker) DebugHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/stats", w.handleStats)
	mux.HandleFunc("/clusters", w.handleClusters)
	return mux
}

func (w *Worker) handleStats(rw http.ResponseWriter, r *http.Request) {
	writeJSON(rw, w.metrics.Snapshot())
}

func (w *Worker) handleClusters(rw http.ResponseWriter, r *http.Request) {
	out := make([]ClusterStatus, 0, len(w.clusters))
	now := time.Now()

	for _, cc := range w.cfg.ClusterConfigs() {
		c := w.clusters[cc.Name]
		status := ClusterStatus{
			Name:     cc.Name,
			Protocol: string(cc.Protocol),
			Sticky:   string(cc.Sticky),
			Zeroconf: cc.Zeroconf != nil,
		}
		if cc.Zeroconf == nil {
			for _, addr := range c.Wrapper().List.All() {
				status.Nodes = append(status.Nodes, NodeStatus{
					Address: addr.String(),
					Status:  w.manager.Get(now, addr).String(),
				})
			}
		}
		out = append(out, status)
	}

	writeJSON(rw, out)
}

func writeJSON(rw http.ResponseWriter, v any) {
	rw.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(rw)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
