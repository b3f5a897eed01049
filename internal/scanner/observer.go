package scanner

import (
	"netsweep/internal/model"
	"netsweep/internal/target"
)

// Observer receives scan progress as it happens. The scanner calls it from a
// single goroutine, so implementations need no locking.
type Observer interface {
	ScanStarted(t target.Target, ports []int)
	HostChecked(address string, alive bool)
	DiscoveryFinished(live []string)
	HostScanStarted(address string)
	PortOpen(address string, result model.PortResult)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) ScanStarted(target.Target, []int) {}
func (NopObserver) HostChecked(string, bool) {}
func (NopObserver) DiscoveryFinished([]string) {}
func (NopObserver) HostScanStarted(string) {}
func (NopObserver) PortOpen(string, model.PortResult) {}
