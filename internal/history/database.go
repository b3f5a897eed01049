// Package history keeps past scan runs in a local SQLite database.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"netsweep/internal/model"
	"netsweep/internal/utils"
)

// ErrScanNotFound is returned by LoadScan for unknown ids.
var ErrScanNotFound = errors.New("scan not found")

type Database struct {
	db     *sql.DB
	path   string
	logger *utils.Logger
}

// Summary is one row of the scan listing.
type Summary struct {
	ID          string
	Target      string
	StartedAt   time.Time
	FinishedAt  time.Time
	HostsProbed int
	LiveHosts   int
	OpenPorts   int
}

func NewDatabase(dbPath string) (*Database, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// one writer; sqlite serialises anyway
	db.SetMaxOpenConns(1)

	d := &Database{
		db:     db,
		path:   dbPath,
		logger: utils.NewLogger("history"),
	}
	if err := d.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return d, nil
}

func (d *Database) initTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scans (
		id TEXT PRIMARY KEY,
		target TEXT NOT NULL,
		ports TEXT NOT NULL,
		live_hosts TEXT NOT NULL,
		hosts_probed INTEGER NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS open_ports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		scan_id TEXT NOT NULL,
		host_seq INTEGER NOT NULL,
		address TEXT NOT NULL,
		port_seq INTEGER NOT NULL,
		port INTEGER NOT NULL,
		service TEXT,
		banner TEXT,
		latency_ns INTEGER,
		FOREIGN KEY (scan_id) REFERENCES scans(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_open_ports_scan ON open_ports(scan_id);
	CREATE INDEX IF NOT EXISTS idx_open_ports_address ON open_ports(address);
	CREATE INDEX IF NOT EXISTS idx_scans_started ON scans(started_at);
	`

	_, err := d.db.Exec(schema)
	return err
}

// SaveScan stores result in one transaction. A result without ID gets a
// fresh UUID, which is written back and returned.
func (d *Database) SaveScan(ctx context.Context, result *model.ScanResult) (string, error) {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}

	ports, err := json.Marshal(result.Ports)
	if err != nil {
		return "", err
	}
	live, err := json.Marshal(result.LiveHosts)
	if err != nil {
		return "", err
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO scans
		(id, target, ports, live_hosts, hosts_probed, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		result.ID, result.Target, string(ports), string(live), result.HostsProbed,
		formatTime(result.StartedAt), formatTime(result.FinishedAt),
	)
	if err != nil {
		return "", fmt.Errorf("insert scan: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM open_ports WHERE scan_id = ?`, result.ID); err != nil {
		return "", err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO open_ports
		(scan_id, host_seq, address, port_seq, port, service, banner, latency_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer stmt.Close()

	for hi, host := range result.Hosts {
		for pi, p := range host.Ports {
			if _, err := stmt.ExecContext(ctx, result.ID, hi, host.Address, pi, p.Port, p.Service, p.Banner, int64(p.Latency)); err != nil {
				return "", fmt.Errorf("insert port %s:%d: %w", host.Address, p.Port, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	d.logger.Debug("saved scan %s (%d hosts) to %s", result.ID, result.Len(), d.path)
	return result.ID, nil
}

// LoadScan rebuilds a stored result.
func (d *Database) LoadScan(ctx context.Context, id string) (*model.ScanResult, error) {
	var (
		target, ports, live, started, finished string
		probed                                 int
	)
	err := d.db.QueryRowContext(ctx, `
		SELECT target, ports, live_hosts, hosts_probed, started_at, finished_at
		FROM scans WHERE id = ?`, id,
	).Scan(&target, &ports, &live, &probed, &started, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrScanNotFound
	}
	if err != nil {
		return nil, err
	}

	var portList []int
	if err := json.Unmarshal([]byte(ports), &portList); err != nil {
		return nil, fmt.Errorf("decode ports: %w", err)
	}
	result := model.NewScanResult(target, portList)
	result.ID = id
	result.HostsProbed = probed
	if err := json.Unmarshal([]byte(live), &result.LiveHosts); err != nil {
		return nil, fmt.Errorf("decode live hosts: %w", err)
	}
	if result.StartedAt, err = parseTime(started); err != nil {
		return nil, err
	}
	if result.FinishedAt, err = parseTime(finished); err != nil {
		return nil, err
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT address, port, service, banner, latency_ns
		FROM open_ports WHERE scan_id = ?
		ORDER BY host_seq, port_seq`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var current *model.HostResult
	for rows.Next() {
		var (
			address         string
			service, banner sql.NullString
			latency         sql.NullInt64
			p               model.PortResult
		)
		if err := rows.Scan(&address, &p.Port, &service, &banner, &latency); err != nil {
			return nil, err
		}
		p.Protocol = "tcp"
		p.State = model.StateOpen
		p.Service = service.String
		p.Banner = banner.String
		p.Latency = time.Duration(latency.Int64)

		if current == nil || current.Address != address {
			if current != nil {
				result.Add(*current)
			}
			current = &model.HostResult{Address: address}
		}
		current.Ports = append(current.Ports, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if current != nil {
		result.Add(*current)
	}
	return result, nil
}

// RecentScans lists the latest runs, newest first.
func (d *Database) RecentScans(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := d.db.QueryContext(ctx, `
		SELECT s.id, s.target, s.live_hosts, s.hosts_probed, s.started_at, s.finished_at,
		       (SELECT COUNT(*) FROM open_ports o WHERE o.scan_id = s.id)
		FROM scans s
		ORDER BY s.started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			s                       Summary
			live, started, finished string
		)
		if err := rows.Scan(&s.ID, &s.Target, &live, &s.HostsProbed, &started, &finished, &s.OpenPorts); err != nil {
			d.logger.Warn("skipping unreadable scan row: %v", err)
			continue
		}
		var liveHosts []string
		if err := json.Unmarshal([]byte(live), &liveHosts); err == nil {
			s.LiveHosts = len(liveHosts)
		}
		s.StartedAt, _ = parseTime(started)
		s.FinishedAt, _ = parseTime(finished)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (d *Database) Close() error {
	return d.db.Close()
}

// fixed width so started_at sorts lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("decode timestamp %q: %w", s, err)
	}
	return t, nil
}
