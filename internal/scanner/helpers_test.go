package scanner

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"netsweep/internal/model"
	"netsweep/internal/target"
)

// serve starts a loopback listener running handle for every accepted
// connection and returns its address.
func serve(t *testing.T, handle func(net.Conn)) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })

	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				if handle != nil {
					handle(conn)
				}
			}()
		}
	}()
	return l.Addr().String()
}

func sendBanner(banner string) func(net.Conn) {
	return func(c net.Conn) {
		_, _ = c.Write([]byte(banner))
	}
}

// silent keeps the connection open without sending anything.
func silent(c net.Conn) {
	_, _ = io.Copy(io.Discard, c)
}

// closedAddr returns a loopback address nothing listens on.
func closedAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	_ = l.Close()
	return addr
}

func refused(network string) error {
	return &net.OpError{Op: "dial", Net: network, Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}
}

// fakeNet routes "host:port" to real loopback listeners and refuses
// everything else, so tests can talk about well-known ports on any address.
type fakeNet struct {
	mu     sync.Mutex
	routes map[string]string
	dialed []string
	d      net.Dialer
}

func newFakeNet() *fakeNet {
	return &fakeNet{routes: make(map[string]string)}
}

func (f *fakeNet) route(from, to string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[from] = to
}

func (f *fakeNet) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	f.mu.Lock()
	f.dialed = append(f.dialed, address)
	to, ok := f.routes[address]
	f.mu.Unlock()
	if !ok {
		return nil, refused(network)
	}
	return f.d.DialContext(ctx, network, to)
}

func (f *fakeNet) dials() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.dialed...)
}

// blackhole never answers; dials end when the context does.
type blackhole struct {
	calls atomic.Int32
}

func (b *blackhole) DialContext(ctx context.Context, network, _ string) (net.Conn, error) {
	b.calls.Add(1)
	<-ctx.Done()
	return nil, &net.OpError{Op: "dial", Net: network, Err: ctx.Err()}
}

// slowNet refuses every dial after delay and records peak concurrency.
type slowNet struct {
	delay time.Duration
	cur   atomic.Int32
	peak  atomic.Int32
	total atomic.Int32
}

func (s *slowNet) DialContext(ctx context.Context, network, _ string) (net.Conn, error) {
	s.total.Add(1)
	n := s.cur.Add(1)
	defer s.cur.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
	}
	return nil, refused(network)
}

// recorder is an Observer keeping every event in order.
type recorder struct {
	events []string
	open   map[string][]int
}

func newRecorder() *recorder {
	return &recorder{open: make(map[string][]int)}
}

func (r *recorder) ScanStarted(t target.Target, ports []int) {
	r.events = append(r.events, fmt.Sprintf("start %s %d", t, len(ports)))
}

func (r *recorder) HostChecked(address string, alive bool) {
	r.events = append(r.events, fmt.Sprintf("checked %s %v", address, alive))
}

func (r *recorder) DiscoveryFinished(live []string) {
	r.events = append(r.events, fmt.Sprintf("discovered %d", len(live)))
}

func (r *recorder) HostScanStarted(address string) {
	r.events = append(r.events, "scan "+address)
}

func (r *recorder) PortOpen(address string, result model.PortResult) {
	r.events = append(r.events, fmt.Sprintf("open %s %d", address, result.Port))
	r.open[address] = append(r.open[address], result.Port)
}

func portsOf(results []model.PortResult) []int {
	ports := make([]int, 0, len(results))
	for _, r := range results {
		ports = append(ports, r.Port)
	}
	sort.Ints(ports)
	return ports
}

func fastConfig() Config {
	return Config{
		ProbeTimeout:    300 * time.Millisecond,
		BannerTimeout:   300 * time.Millisecond,
		LivenessTimeout: 200 * time.Millisecond,
	}
}
