package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"netsweep/internal/config"
	"netsweep/internal/model"
)

// ErrUsage marks invalid command line input.
var ErrUsage = errors.New("invalid usage")

type Parser struct {
	Options model.ScanOptions

	fs  *flag.FlagSet
	out io.Writer
}

// NewParser seeds flag defaults from cfg. Help text goes to out.
func NewParser(cfg config.Config, out io.Writer) *Parser {
	p := &Parser{out: out}
	fs := flag.NewFlagSet("netsweep", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = p.printHelp

	o := &p.Options
	fs.StringVar(&o.Target, "target", "", "")
	fs.StringVar(&o.Target, "t", "", "")
	fs.StringVar(&o.PortRange, "ports", "", "")
	fs.StringVar(&o.PortRange, "p", "", "")
	fs.BoolVar(&o.GrabBanners, "banner", false, "")
	fs.BoolVar(&o.GrabBanners, "b", false, "")
	fs.StringVar(&o.OutputFile, "output", "", "")
	fs.StringVar(&o.OutputFile, "o", "", "")
	fs.StringVar(&o.OutputFormat, "format", FormatText, "")
	fs.DurationVar(&o.Timeout, "timeout", cfg.ProbeTimeout, "")
	fs.DurationVar(&o.BannerTimeout, "banner-timeout", cfg.BannerTimeout, "")
	fs.DurationVar(&o.LivenessTimeout, "liveness-timeout", cfg.LivenessTimeout, "")
	fs.IntVar(&o.Threads, "threads", cfg.HostWorkers, "")
	fs.IntVar(&o.DiscoveryThreads, "discovery-threads", cfg.DiscoveryWorkers, "")
	fs.BoolVar(&o.NoColor, "no-color", cfg.NoColor, "")
	fs.BoolVar(&o.Verbose, "verbose", false, "")
	fs.BoolVar(&o.Verbose, "v", false, "")
	fs.StringVar(&o.DBPath, "db", cfg.DBPath, "")
	fs.BoolVar(&o.History, "history", false, "")

	p.fs = fs
	return p
}

// Parse reads args (without the program name). It returns flag.ErrHelp
// when help was requested and an ErrUsage-wrapped error for bad input.
func (p *Parser) Parse(args []string) error {
	if err := p.fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if p.fs.NArg() > 0 {
		return fmt.Errorf("%w: unexpected argument %q", ErrUsage, p.fs.Arg(0))
	}

	o := &p.Options
	o.Target = strings.TrimSpace(o.Target)
	o.OutputFormat = strings.ToLower(strings.TrimSpace(o.OutputFormat))

	if o.History {
		if o.DBPath == "" {
			return fmt.Errorf("%w: -history needs -db or NETSWEEP_DB", ErrUsage)
		}
		return nil
	}
	if o.Target == "" {
		return fmt.Errorf("%w: a target is required (-target)", ErrUsage)
	}
	switch o.OutputFormat {
	case FormatText, FormatJSON, FormatCSV:
	default:
		return fmt.Errorf("%w: unknown format %q", ErrUsage, o.OutputFormat)
	}
	if o.Timeout <= 0 || o.BannerTimeout <= 0 || o.LivenessTimeout <= 0 {
		return fmt.Errorf("%w: timeouts must be positive", ErrUsage)
	}
	if o.Threads < 1 || o.DiscoveryThreads < 1 {
		return fmt.Errorf("%w: thread counts must be at least 1", ErrUsage)
	}
	return nil
}

func (p *Parser) printHelp() {
	w := p.out
	fmt.Fprintln(w, "netsweep - host discovery and TCP connect port scanner")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage: netsweep -target <ip|cidr> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Options:")
	fmt.Fprintln(w, "  -target, -t string         IPv4 address or CIDR range (required)")
	fmt.Fprintln(w, "  -ports, -p string          ports: 22,80,8000-8100, common or all (default: common)")
	fmt.Fprintln(w, "  -banner, -b                grab a banner from each open port")
	fmt.Fprintln(w, "  -output, -o string         write results to a file")
	fmt.Fprintln(w, "  -format string             file format: text, json, csv (default: text)")
	fmt.Fprintf(w, "  -timeout duration          connect timeout per port (default: %s)\n", p.fs.Lookup("timeout").DefValue)
	fmt.Fprintf(w, "  -banner-timeout duration   banner connect and read timeout (default: %s)\n", p.fs.Lookup("banner-timeout").DefValue)
	fmt.Fprintf(w, "  -liveness-timeout duration liveness probe timeout (default: %s)\n", p.fs.Lookup("liveness-timeout").DefValue)
	fmt.Fprintf(w, "  -threads int               concurrent port probes per host (default: %s)\n", p.fs.Lookup("threads").DefValue)
	fmt.Fprintf(w, "  -discovery-threads int     concurrent liveness probes (default: %s)\n", p.fs.Lookup("discovery-threads").DefValue)
	fmt.Fprintln(w, "  -no-color                  disable colored output")
	fmt.Fprintln(w, "  -verbose, -v               debug logging and dead-host lines")
	fmt.Fprintln(w, "  -db string                 record scans in this SQLite database")
	fmt.Fprintln(w, "  -history                   list recent scans from -db and exit")
	fmt.Fprintln(w, "  -help                      show this help")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  netsweep -target 192.168.1.0/24")
	fmt.Fprintln(w, "  netsweep -t 10.0.0.5 -p 1-1024 -b -o results.txt")
	fmt.Fprintln(w, "  netsweep -t 10.0.0.0/28 -p 22,80,443 -o results.json -format json")
}
