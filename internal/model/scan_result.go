package model

import "time"

// Port states reported by the prober.
const (
	StateOpen        = "open"
	StateClosed      = "closed"
	StateFiltered    = "filtered"
	StateUnreachable = "unreachable"
)

// PortResult is the outcome of probing one host:port. Service and Banner are
// empty unless the port is open.
type PortResult struct {
	Port     int           `json:"port"`
	Protocol string        `json:"protocol"`
	State    string        `json:"state"`
	Service  string        `json:"service,omitempty"`
	Banner   string        `json:"banner,omitempty"`
	Latency  time.Duration `json:"latency_ns"`
}

// Open reports whether the connect succeeded.
func (r PortResult) Open() bool {
	return r.State == StateOpen
}

// HostResult holds the open ports of one host.
type HostResult struct {
	Address string       `json:"address"`
	Ports   []PortResult `json:"ports"`
}

// ScanResult maps host address to its open ports, keeping insertion order.
type ScanResult struct {
	ID          string       `json:"id,omitempty"`
	Target      string       `json:"target"`
	Ports       []int        `json:"ports_scanned"`
	StartedAt   time.Time    `json:"started_at"`
	FinishedAt  time.Time    `json:"finished_at"`
	HostsProbed int          `json:"hosts_probed"`
	LiveHosts   []string     `json:"live_hosts"`
	Hosts       []HostResult `json:"hosts"`

	index map[string]int
}

// NewScanResult creates an empty result for target.
func NewScanResult(target string, ports []int) *ScanResult {
	return &ScanResult{
		Target:    target,
		Ports:     ports,
		StartedAt: time.Now(),
		index:     make(map[string]int),
	}
}

// Add records host. Hosts without open ports are dropped and a repeated
// address replaces the earlier entry in place.
func (r *ScanResult) Add(host HostResult) {
	if len(host.Ports) == 0 {
		return
	}
	if r.index == nil {
		r.reindex()
	}
	if i, ok := r.index[host.Address]; ok {
		r.Hosts[i] = host
		return
	}
	r.index[host.Address] = len(r.Hosts)
	r.Hosts = append(r.Hosts, host)
}

// Host looks up the result for address.
func (r *ScanResult) Host(address string) (HostResult, bool) {
	if r.index == nil {
		r.reindex()
	}
	i, ok := r.index[address]
	if !ok {
		return HostResult{}, false
	}
	return r.Hosts[i], true
}

// Len returns the number of hosts with open ports.
func (r *ScanResult) Len() int {
	return len(r.Hosts)
}

// Empty reports a valid scan that found no host with open ports.
func (r *ScanResult) Empty() bool {
	return len(r.Hosts) == 0
}

// Duration of the scan; zero while it is still running.
func (r *ScanResult) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

func (r *ScanResult) reindex() {
	r.index = make(map[string]int, len(r.Hosts))
	for i, h := range r.Hosts {
		r.index[h.Address] = i
	}
}

// ScanOptions carries the command line settings.
type ScanOptions struct {
	Target           string
	PortRange        string
	GrabBanners      bool
	Timeout          time.Duration
	BannerTimeout    time.Duration
	LivenessTimeout  time.Duration
	Threads          int
	DiscoveryThreads int
	OutputFile       string
	OutputFormat     string // text, json, csv
	NoColor          bool
	Verbose          bool
	DBPath           string
	History          bool
}
