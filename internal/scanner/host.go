package scanner

import (
	"context"
	"time"

	"netsweep/internal/model"
)

// ScanHost probes every port of address on a bounded pool and returns the
// open ones in completion order. Each open port reaches the observer as soon
// as it is found. The error is non-nil only when ctx is cancelled, in which
// case the ports found so far are returned with it.
func (ps *PortScanner) ScanHost(ctx context.Context, address string, ports []int) ([]model.PortResult, error) {
	ps.observer.HostScanStarted(address)
	start := time.Now()

	results := make(chan model.PortResult)
	workers := newPool(ps.cfg.HostWorkers)

	go func() {
		defer close(results)
		for _, port := range ports {
			err := workers.Go(ctx, func() {
				result := ps.ProbePort(ctx, address, port)
				if result.Open() && ps.cfg.GrabBanners {
					result.Banner = ps.GrabBanner(ctx, address, port)
				}
				results <- result
			})
			if err != nil {
				break
			}
		}
		workers.Wait()
	}()

	var open []model.PortResult
	for result := range results {
		if !result.Open() {
			continue
		}
		open = append(open, result)
		ps.observer.PortOpen(address, result)
	}

	ps.logger.Debug("%s: %d/%d ports open in %s", address, len(open), len(ports), time.Since(start).Round(time.Millisecond))
	if err := ctx.Err(); err != nil {
		return open, err
	}
	return open, nil
}
