package history

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"netsweep/internal/model"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(filepath.Join(t.TempDir(), "nested", "history.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleResult(target string, started time.Time) *model.ScanResult {
	r := model.NewScanResult(target, []int{22, 80, 443})
	r.StartedAt = started
	r.FinishedAt = started.Add(1500 * time.Millisecond)
	r.HostsProbed = 254
	r.LiveHosts = []string{"10.0.0.2", "10.0.0.9", "10.0.0.30"}
	r.Add(model.HostResult{Address: "10.0.0.9", Ports: []model.PortResult{
		{Port: 22, Protocol: "tcp", State: model.StateOpen, Service: "SSH", Banner: "SSH-2.0-OpenSSH_9.6", Latency: 3 * time.Millisecond},
		{Port: 80, Protocol: "tcp", State: model.StateOpen, Service: "HTTP"},
	}})
	r.Add(model.HostResult{Address: "10.0.0.2", Ports: []model.PortResult{
		{Port: 443, Protocol: "tcp", State: model.StateOpen, Service: "HTTPS"},
	}})
	return r
}

func TestSaveAndLoadScan(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	started := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	orig := sampleResult("10.0.0.0/24", started)

	id, err := db.SaveScan(ctx, orig)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if id == "" || orig.ID != id {
		t.Fatalf("id not assigned: %q / %q", id, orig.ID)
	}

	got, err := db.LoadScan(ctx, id)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Target != orig.Target || got.HostsProbed != 254 {
		t.Errorf("header = %+v", got)
	}
	if !reflect.DeepEqual(got.Ports, orig.Ports) || !reflect.DeepEqual(got.LiveHosts, orig.LiveHosts) {
		t.Errorf("ports/live = %v %v", got.Ports, got.LiveHosts)
	}
	if !got.StartedAt.Equal(started) || got.Duration() != 1500*time.Millisecond {
		t.Errorf("times = %v, %v", got.StartedAt, got.Duration())
	}
	if !reflect.DeepEqual(got.Hosts, orig.Hosts) {
		t.Fatalf("hosts differ:\n got %+v\nwant %+v", got.Hosts, orig.Hosts)
	}
	if h, ok := got.Host("10.0.0.2"); !ok || h.Ports[0].Port != 443 {
		t.Errorf("lookup failed: %+v", got.Hosts)
	}
}

func TestSaveScan_ReplacesExisting(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	r := sampleResult("10.0.0.0/24", time.Now())
	if _, err := db.SaveScan(ctx, r); err != nil {
		t.Fatalf("save: %v", err)
	}

	r.Hosts = nil
	r.Add(model.HostResult{Address: "10.0.0.30", Ports: []model.PortResult{
		{Port: 80, Protocol: "tcp", State: model.StateOpen, Service: "HTTP"},
	}})
	if _, err := db.SaveScan(ctx, r); err != nil {
		t.Fatalf("resave: %v", err)
	}

	got, err := db.LoadScan(ctx, r.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Len() != 1 || got.Hosts[0].Address != "10.0.0.30" {
		t.Fatalf("stale rows survived: %+v", got.Hosts)
	}
}

func TestLoadScan_NotFound(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.LoadScan(context.Background(), "missing"); !errors.Is(err, ErrScanNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestRecentScans(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, tg := range []string{"10.0.0.0/24", "10.0.1.0/24", "10.0.2.0/24"} {
		if _, err := db.SaveScan(ctx, sampleResult(tg, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("save %s: %v", tg, err)
		}
	}
	empty := model.NewScanResult("192.0.2.1", []int{80})
	empty.StartedAt = base.Add(-time.Hour)
	empty.FinishedAt = empty.StartedAt
	if _, err := db.SaveScan(ctx, empty); err != nil {
		t.Fatalf("save empty: %v", err)
	}

	list, err := db.RecentScans(ctx, 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("got %d rows, want 3", len(list))
	}
	if list[0].Target != "10.0.2.0/24" || list[2].Target != "10.0.0.0/24" {
		t.Errorf("order = %s, %s, %s", list[0].Target, list[1].Target, list[2].Target)
	}
	if list[0].OpenPorts != 3 || list[0].LiveHosts != 3 || list[0].HostsProbed != 254 {
		t.Errorf("counts = %+v", list[0])
	}

	all, err := db.RecentScans(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 4 || all[3].OpenPorts != 0 || all[3].LiveHosts != 0 {
		t.Errorf("all = %+v", all)
	}
}
