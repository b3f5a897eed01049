package scanner

import (
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"syscall"
	"time"

	"netsweep/internal/model"
	"netsweep/internal/utils"
)

const (
	// bannerReadLimit caps the single banner read.
	bannerReadLimit = 1024

	DefaultProbeTimeout     = time.Second
	DefaultBannerTimeout    = 2 * time.Second
	DefaultLivenessTimeout  = 500 * time.Millisecond
	DefaultHostWorkers      = 50
	DefaultDiscoveryWorkers = 100
)

// DefaultLivenessPorts are tried in order; the first accepted connect marks
// the host alive. Hosts serving only other ports are reported dead.
var DefaultLivenessPorts = []int{80, 443, 22}

// ContextDialer is satisfied by *net.Dialer.
type ContextDialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Config tunes a PortScanner. Zero fields take the defaults above.
type Config struct {
	ProbeTimeout     time.Duration
	BannerTimeout    time.Duration
	LivenessTimeout  time.Duration
	LivenessPorts    []int
	HostWorkers      int
	DiscoveryWorkers int
	GrabBanners      bool
}

type PortScanner struct {
	cfg      Config
	dialer   ContextDialer
	observer Observer
	logger   *utils.Logger
}

// Option customises a PortScanner.
type Option func(*PortScanner)

// WithDialer replaces the network dialer.
func WithDialer(d ContextDialer) Option {
	return func(ps *PortScanner) {
		if d != nil {
			ps.dialer = d
		}
	}
}

// WithObserver streams scan progress to o.
func WithObserver(o Observer) Option {
	return func(ps *PortScanner) {
		if o != nil {
			ps.observer = o
		}
	}
}

func NewPortScanner(cfg Config, opts ...Option) *PortScanner {
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = DefaultProbeTimeout
	}
	if cfg.BannerTimeout <= 0 {
		cfg.BannerTimeout = DefaultBannerTimeout
	}
	if cfg.LivenessTimeout <= 0 {
		cfg.LivenessTimeout = DefaultLivenessTimeout
	}
	if len(cfg.LivenessPorts) == 0 {
		cfg.LivenessPorts = DefaultLivenessPorts
	}
	if cfg.HostWorkers <= 0 {
		cfg.HostWorkers = DefaultHostWorkers
	}
	if cfg.DiscoveryWorkers <= 0 {
		cfg.DiscoveryWorkers = DefaultDiscoveryWorkers
	}

	ps := &PortScanner{
		cfg:      cfg,
		dialer:   &net.Dialer{},
		observer: NopObserver{},
		logger:   utils.NewLogger("scanner"),
	}
	for _, opt := range opts {
		opt(ps)
	}
	return ps
}

// Config returns the effective configuration.
func (ps *PortScanner) Config() Config {
	return ps.cfg
}

// ProbePort connect-scans address:port once. Failures are reported through
// the result state, never as an error.
func (ps *PortScanner) ProbePort(ctx context.Context, address string, port int) model.PortResult {
	result := model.PortResult{
		Port:     port,
		Protocol: "tcp",
		State:    model.StateClosed,
	}

	start := time.Now()
	conn, err := ps.dial(ctx, address, port, ps.cfg.ProbeTimeout)
	result.Latency = time.Since(start)
	if err != nil {
		result.State = classifyDialError(err)
		if ps.logger.DebugEnabled() {
			ps.logger.Debug("%s:%d %s: %v", address, port, result.State, err)
		}
		return result
	}
	_ = conn.Close()

	result.State = model.StateOpen
	result.Service = model.ServiceName(port)
	return result
}

// GrabBanner opens a fresh connection and returns whatever the service sends
// first, up to 1024 bytes. Invalid UTF-8 is dropped and surrounding
// whitespace trimmed. Any failure yields "".
func (ps *PortScanner) GrabBanner(ctx context.Context, address string, port int) string {
	conn, err := ps.dial(ctx, address, port, ps.cfg.BannerTimeout)
	if err != nil {
		ps.logger.Debug("banner %s:%d: dial: %v", address, port, err)
		return ""
	}
	defer conn.Close()

	// Unblock the read as soon as the scan is cancelled.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	_ = conn.SetReadDeadline(time.Now().Add(ps.cfg.BannerTimeout))
	buf := make([]byte, bannerReadLimit)
	n, err := conn.Read(buf)
	if n == 0 {
		if err != nil {
			ps.logger.Debug("banner %s:%d: read: %v", address, port, err)
		}
		return ""
	}
	return decodeBanner(buf[:n])
}

// IsAlive tries the liveness ports in order and stops at the first accepted
// connection.
func (ps *PortScanner) IsAlive(ctx context.Context, address string) bool {
	for _, port := range ps.cfg.LivenessPorts {
		if ctx.Err() != nil {
			return false
		}
		conn, err := ps.dial(ctx, address, port, ps.cfg.LivenessTimeout)
		if err != nil {
			continue
		}
		_ = conn.Close()
		return true
	}
	return false
}

func (ps *PortScanner) dial(ctx context.Context, address string, port int, timeout time.Duration) (net.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return ps.dialer.DialContext(dialCtx, "tcp", net.JoinHostPort(address, strconv.Itoa(port)))
}

func decodeBanner(raw []byte) string {
	return strings.TrimSpace(strings.ToValidUTF8(string(raw), ""))
}

// classifyDialError maps a failed connect to a port state.
func classifyDialError(err error) string {
	var netErr net.Error
	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return model.StateClosed
	case errors.Is(err, syscall.ENETUNREACH), errors.Is(err, syscall.EHOSTUNREACH):
		return model.StateUnreachable
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return model.StateFiltered
	}

	// Windows and wrapped resolver errors only show up in the message.
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "refused"):
		return model.StateClosed
	case strings.Contains(msg, "unreachable"), strings.Contains(msg, "no route to host"):
		return model.StateUnreachable
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "timed out"):
		return model.StateFiltered
	}
	return model.StateClosed
}
