package cli

import (
	"fmt"
	"io"

	"netsweep/internal/model"
	"netsweep/internal/target"
)

const (
	liveBannerWidth    = 50
	summaryBannerWidth = 40
)

// Console prints scan progress as it happens. It satisfies scanner.Observer.
type Console struct {
	w       io.Writer
	style   Styler
	verbose bool
}

func NewConsole(w io.Writer, style Styler, verbose bool) *Console {
	return &Console{w: w, style: style, verbose: verbose}
}

func (c *Console) ScanStarted(t target.Target, ports []int) {
	if t.Single {
		fmt.Fprintln(c.w, c.style.Header(fmt.Sprintf("[*] Scanning host: %s", t)))
	} else {
		fmt.Fprintln(c.w, c.style.Header(fmt.Sprintf("[*] Scanning network: %s", t)))
		fmt.Fprintln(c.w, c.style.Header(fmt.Sprintf("[*] Total hosts: %d", t.Size())))
	}
	fmt.Fprintln(c.w, c.style.Header(fmt.Sprintf("[*] Ports to scan: %d", len(ports))))
	fmt.Fprintln(c.w)
	if !t.Single {
		fmt.Fprintln(c.w, c.style.Warning("[*] Phase 1: Discovering live hosts..."))
	}
}

func (c *Console) HostChecked(address string, alive bool) {
	switch {
	case alive:
		fmt.Fprintln(c.w, c.style.Success(fmt.Sprintf("[+] Host %s is alive", address)))
	case c.verbose:
		fmt.Fprintf(c.w, "[-] Host %s did not answer\n", address)
	}
}

func (c *Console) DiscoveryFinished(live []string) {
	fmt.Fprintln(c.w)
	fmt.Fprintln(c.w, c.style.Note(fmt.Sprintf("[*] Found %d live host(s)", len(live))))
	if len(live) > 0 {
		fmt.Fprintln(c.w)
		fmt.Fprintln(c.w, c.style.Warning("[*] Phase 2: Scanning ports on live hosts..."))
	}
}

func (c *Console) HostScanStarted(address string) {
	fmt.Fprintln(c.w)
	fmt.Fprintln(c.w, c.style.Info(fmt.Sprintf("[*] Scanning %s...", address)))
}

func (c *Console) PortOpen(address string, r model.PortResult) {
	line := fmt.Sprintf("  [+] Port %d/tcp - %s", r.Port, r.Service)
	if r.Banner != "" {
		line += " - " + truncate(r.Banner, liveBannerWidth)
	}
	fmt.Fprintln(c.w, c.style.Success(line))
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
