package scanner

import (
	"context"
	"fmt"
	"net/netip"
	"slices"
	"time"

	"netsweep/internal/model"
	"netsweep/internal/target"
)

// ScanNetwork runs host discovery over every usable address of spec, then
// port-scans the live hosts one at a time. spec is validated before any
// probing. A range without live hosts gives an empty result and a nil error.
func (ps *PortScanner) ScanNetwork(ctx context.Context, spec string, ports []int) (*model.ScanResult, error) {
	t, err := target.Parse(spec)
	if err != nil {
		return nil, err
	}
	return ps.scanTarget(ctx, t, ports, true)
}

// Scan is ScanNetwork, except that a bare address skips discovery and is
// port-scanned directly.
func (ps *PortScanner) Scan(ctx context.Context, spec string, ports []int) (*model.ScanResult, error) {
	t, err := target.Parse(spec)
	if err != nil {
		return nil, err
	}
	return ps.scanTarget(ctx, t, ports, !t.Single)
}

func (ps *PortScanner) scanTarget(ctx context.Context, t target.Target, ports []int, discover bool) (*model.ScanResult, error) {
	if len(ports) == 0 {
		return nil, fmt.Errorf("%w: no ports to scan", ErrInvalidPortSpec)
	}

	result := model.NewScanResult(t.String(), ports)
	defer func() { result.FinishedAt = time.Now() }()
	ps.observer.ScanStarted(t, ports)

	var live []string
	if discover {
		var err error
		live, result.HostsProbed, err = ps.Discover(ctx, t)
		result.LiveHosts = live
		if err != nil {
			return result, err
		}
	} else {
		live = []string{t.Prefix.Addr().String()}
		result.HostsProbed = 1
		result.LiveHosts = live
	}

	for _, address := range live {
		open, err := ps.ScanHost(ctx, address, ports)
		result.Add(model.HostResult{Address: address, Ports: open})
		if err != nil {
			return result, err
		}
	}
	return result, nil
}

// Discover checks every usable address of t for liveness on a bounded pool.
// It returns the live addresses in ascending order and the number of
// addresses whose check completed.
func (ps *PortScanner) Discover(ctx context.Context, t target.Target) ([]string, int, error) {
	type check struct {
		addr  netip.Addr
		alive bool
	}

	start := time.Now()
	checks := make(chan check)
	workers := newPool(ps.cfg.DiscoveryWorkers)

	go func() {
		defer close(checks)
		t.Each(func(addr netip.Addr) bool {
			err := workers.Go(ctx, func() {
				checks <- check{addr: addr, alive: ps.IsAlive(ctx, addr.String())}
			})
			return err == nil
		})
		workers.Wait()
	}()

	var alive []netip.Addr
	probed := 0
	for c := range checks {
		// Checks cut short by cancellation say nothing about the host.
		if ctx.Err() != nil {
			continue
		}
		probed++
		ps.observer.HostChecked(c.addr.String(), c.alive)
		if c.alive {
			alive = append(alive, c.addr)
		}
	}

	slices.SortFunc(alive, func(a, b netip.Addr) int { return a.Compare(b) })
	live := make([]string, 0, len(alive))
	for _, addr := range alive {
		live = append(live, addr.String())
	}

	ps.logger.Debug("discovery %s: %d/%d hosts alive in %s", t, len(live), probed, time.Since(start).Round(time.Millisecond))
	if err := ctx.Err(); err != nil {
		return live, probed, err
	}
	ps.observer.DiscoveryFinished(live)
	return live, probed, nil
}
