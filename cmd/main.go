package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"netsweep/internal/config"
	"netsweep/internal/history"
	"netsweep/internal/model"
	"netsweep/internal/scanner"
	"netsweep/internal/target"
	"netsweep/internal/utils"
	"netsweep/pkg/cli"
)

const (
	exitOK          = 0
	exitError       = 1
	exitInterrupted = 130
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	logger := utils.NewLogger("main")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load .env: %v", err)
		return exitError
	}
	utils.SetLevel(cfg.LogLevel)

	parser := cli.NewParser(cfg, stderr)
	if err := parser.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintf(stderr, "Error: %v\n\n", err)
		fmt.Fprintln(stderr, "Usage: netsweep -target <ip|cidr> [options]")
		fmt.Fprintln(stderr, "Run with -help for the full option list")
		return exitError
	}

	options := parser.Options
	if options.Verbose {
		utils.SetLevel("debug")
	}

	var style cli.Styler
	if f, ok := stdout.(*os.File); ok {
		style = cli.NewStyler(f, options.NoColor)
	}
	formatter, err := cli.NewOutputFormatter(options.OutputFormat, style)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}

	if options.History {
		return showHistory(ctx, options.DBPath, formatter, stdout, logger)
	}

	tg, err := target.Parse(options.Target)
	if err != nil {
		fmt.Fprintln(stderr, style.Fail(fmt.Sprintf("[!] %v", err)))
		return exitError
	}
	ports, err := scanner.ParsePortRange(options.PortRange)
	if err != nil {
		fmt.Fprintln(stderr, style.Fail(fmt.Sprintf("[!] %v", err)))
		return exitError
	}

	ps := scanner.NewPortScanner(scanner.Config{
		ProbeTimeout:     options.Timeout,
		BannerTimeout:    options.BannerTimeout,
		LivenessTimeout:  options.LivenessTimeout,
		HostWorkers:      options.Threads,
		DiscoveryWorkers: options.DiscoveryThreads,
		GrabBanners:      options.GrabBanners,
	}, scanner.WithObserver(cli.NewConsole(stdout, style, options.Verbose)))

	printBanner(stdout, style)
	fmt.Fprintln(stdout, style.Note("[*] Scan started at: "+time.Now().Format("2006-01-02 15:04:05")))
	fmt.Fprintln(stdout)
	logger.Debug("target %s, %d ports, %d host workers, %d discovery workers",
		tg, len(ports), options.Threads, options.DiscoveryThreads)

	result, err := ps.Scan(ctx, options.Target, ports)
	if errors.Is(err, context.Canceled) || ctx.Err() != nil {
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, style.Warning("[!] Scan interrupted by user"))
		return exitInterrupted
	}
	if err != nil {
		logger.Error("scan failed: %v", err)
		return exitError
	}

	switch {
	case len(result.LiveHosts) == 0:
		fmt.Fprintln(stdout, style.Fail("[!] No live hosts found"))
	case result.Empty():
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, style.Warning("[!] No open ports found"))
	default:
		formatter.PrintSummary(stdout, result)
	}
	formatter.PrintTiming(stdout, result)

	code := exitOK
	if options.OutputFile != "" {
		if err := formatter.WriteFile(options.OutputFile, result); err != nil {
			logger.Error("failed to save results: %v", err)
			fmt.Fprintln(stdout, style.Fail("[!] Error saving results: "+err.Error()))
			code = exitError
		} else {
			fmt.Fprintln(stdout, style.Success("[+] Results saved to "+options.OutputFile))
		}
	}

	if options.DBPath != "" {
		if err := saveHistory(ctx, options.DBPath, result); err != nil {
			logger.Error("failed to record scan in %s: %v", options.DBPath, err)
			code = exitError
		} else {
			logger.Info("scan %s recorded in %s", result.ID, options.DBPath)
		}
	}
	return code
}

func printBanner(w io.Writer, style cli.Styler) {
	line := strings.Repeat("=", 60)
	fmt.Fprintln(w, style.Note(line))
	fmt.Fprintln(w, style.Note("  netsweep - host discovery and TCP port scanner"))
	fmt.Fprintln(w, style.Note(line))
}

func saveHistory(ctx context.Context, dbPath string, result *model.ScanResult) error {
	db, err := history.NewDatabase(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()
	_, err = db.SaveScan(ctx, result)
	return err
}

func showHistory(ctx context.Context, dbPath string, formatter *cli.OutputFormatter, w io.Writer, logger *utils.Logger) int {
	db, err := history.NewDatabase(dbPath)
	if err != nil {
		logger.Error("failed to open history %s: %v", dbPath, err)
		return exitError
	}
	defer db.Close()

	scans, err := db.RecentScans(ctx, 20)
	if err != nil {
		logger.Error("failed to list scans: %v", err)
		return exitError
	}
	formatter.PrintHistory(w, scans)
	return exitOK
}
