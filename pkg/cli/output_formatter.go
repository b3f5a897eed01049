package cli

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"netsweep/internal/history"
	"netsweep/internal/model"
)

const (
	FormatText = "text"
	FormatJSON = "json"
	FormatCSV  = "csv"

	textHeaderPrefix = "Network Scan Results - "
	timestampLayout  = "2006-01-02 15:04:05"
)

var (
	ErrUnknownFormat = errors.New("unknown output format")
	errMalformedText = errors.New("malformed results file")
)

var (
	bannerEscaper   = strings.NewReplacer(`\`, `\\`, "\r", `\r`, "\n", `\n`)
	bannerUnescaper = strings.NewReplacer(`\\`, `\`, `\r`, "\r", `\n`, "\n")
)

type OutputFormatter struct {
	format string
	style  Styler
}

// NewOutputFormatter validates format; "" means text.
func NewOutputFormatter(format string, style Styler) (*OutputFormatter, error) {
	f := strings.ToLower(strings.TrimSpace(format))
	switch f {
	case "":
		f = FormatText
	case FormatText, FormatJSON, FormatCSV:
	default:
		return nil, fmt.Errorf("%w: %q (want text, json or csv)", ErrUnknownFormat, format)
	}
	return &OutputFormatter{format: f, style: style}, nil
}

func (of *OutputFormatter) Format() string {
	return of.format
}

// PrintSummary writes the terminal summary. Banners are cut to 40 runes here
// only; files keep them whole.
func (of *OutputFormatter) PrintSummary(w io.Writer, result *model.ScanResult) {
	line := strings.Repeat("=", 60)
	fmt.Fprintln(w)
	fmt.Fprintln(w, of.style.Header(line))
	fmt.Fprintln(w, of.style.Header("SCAN SUMMARY"))
	fmt.Fprintln(w, of.style.Header(line))
	fmt.Fprintln(w)

	for _, host := range result.Hosts {
		fmt.Fprintln(w, of.style.Info("Host: "+host.Address))
		fmt.Fprintln(w, of.style.Info(strings.Repeat("─", 40)))
		for _, p := range sortedPorts(host.Ports) {
			row := fmt.Sprintf("  Port %5d/tcp  %-15s", p.Port, p.Service)
			if p.Banner != "" {
				row += "  " + truncate(p.Banner, summaryBannerWidth)
			}
			fmt.Fprintln(w, of.style.Success(row))
		}
		fmt.Fprintln(w)
	}

	open := 0
	for _, host := range result.Hosts {
		open += len(host.Ports)
	}
	fmt.Fprintln(w, of.style.Bold(fmt.Sprintf("%d live host(s), %d with open ports, %d open port(s)",
		len(result.LiveHosts), result.Len(), open)))
}

// PrintTiming writes the start, end and duration lines of a finished run.
func (of *OutputFormatter) PrintTiming(w io.Writer, result *model.ScanResult) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, of.style.Note("[*] Scan completed at: "+result.FinishedAt.Local().Format(timestampLayout)))
	fmt.Fprintln(w, of.style.Note("[*] Total duration: "+result.Duration().Round(time.Millisecond).String()))
}

// PrintHistory lists stored runs.
func (of *OutputFormatter) PrintHistory(w io.Writer, scans []history.Summary) {
	if len(scans) == 0 {
		fmt.Fprintln(w, "No scans recorded")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tTARGET\tPROBED\tLIVE\tOPEN\tDURATION")
	for _, s := range scans {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			s.ID,
			s.StartedAt.Local().Format(timestampLayout),
			s.Target,
			s.HostsProbed,
			s.LiveHosts,
			s.OpenPorts,
			s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond),
		)
	}
	tw.Flush()
}

// Render encodes result in the formatter's format.
func (of *OutputFormatter) Render(result *model.ScanResult) ([]byte, error) {
	switch of.format {
	case FormatJSON:
		return of.formatJSON(result)
	case FormatCSV:
		return of.formatCSV(result)
	default:
		return of.formatText(result), nil
	}
}

// WriteFile renders result and replaces path atomically.
func (of *OutputFormatter) WriteFile(path string, result *model.ScanResult) error {
	data, err := of.Render(result)
	if err != nil {
		return err
	}
	return WriteAtomic(path, data)
}

func (of *OutputFormatter) formatText(result *model.ScanResult) []byte {
	var b bytes.Buffer

	stamp := result.FinishedAt
	if stamp.IsZero() {
		stamp = time.Now()
	}
	b.WriteString(textHeaderPrefix + stamp.Local().Format(timestampLayout) + "\n")
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	for _, host := range result.Hosts {
		b.WriteString("Host: " + host.Address + "\n")
		b.WriteString(strings.Repeat("-", 40) + "\n")
		for _, p := range sortedPorts(host.Ports) {
			fmt.Fprintf(&b, "  Port %d/tcp - %s", p.Port, p.Service)
			if p.Banner != "" {
				b.WriteString(" - " + bannerEscaper.Replace(p.Banner))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return b.Bytes()
}

func (of *OutputFormatter) formatJSON(result *model.ScanResult) ([]byte, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func (of *OutputFormatter) formatCSV(result *model.ScanResult) ([]byte, error) {
	var b bytes.Buffer
	w := csv.NewWriter(&b)

	w.Write([]string{"host", "port", "protocol", "state", "service", "banner", "latency_ms"})
	for _, host := range result.Hosts {
		for _, p := range sortedPorts(host.Ports) {
			w.Write([]string{
				host.Address,
				strconv.Itoa(p.Port),
				p.Protocol,
				p.State,
				p.Service,
				p.Banner,
				strconv.FormatFloat(float64(p.Latency)/float64(time.Millisecond), 'f', 2, 64),
			})
		}
	}
	w.Flush()
	return b.Bytes(), w.Error()
}

// ParseText reads a file written in the text format back into a result.
// Only hosts, ports, services and banners are recovered; the header
// timestamp becomes FinishedAt.
func ParseText(r io.Reader) (*model.ScanResult, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	result := model.NewScanResult("", nil)
	var (
		current *model.HostResult
		lineNo  int
	)
	flush := func() {
		if current != nil {
			result.Add(*current)
			current = nil
		}
	}

	for sc.Scan() {
		lineNo++
		line := sc.Text()
		switch {
		case lineNo == 1:
			stamp, ok := strings.CutPrefix(line, textHeaderPrefix)
			if !ok {
				return nil, fmt.Errorf("%w: missing header", errMalformedText)
			}
			t, err := time.ParseInLocation(timestampLayout, stamp, time.Local)
			if err != nil {
				return nil, fmt.Errorf("%w: header timestamp: %v", errMalformedText, err)
			}
			result.FinishedAt = t
		case strings.HasPrefix(line, "Host: "):
			flush()
			current = &model.HostResult{Address: strings.TrimPrefix(line, "Host: ")}
		case strings.HasPrefix(line, "  Port "):
			if current == nil {
				return nil, fmt.Errorf("%w: line %d: port outside host block", errMalformedText, lineNo)
			}
			p, err := parsePortLine(line)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", errMalformedText, lineNo, err)
			}
			current.Ports = append(current.Ports, p)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if lineNo == 0 {
		return nil, fmt.Errorf("%w: empty", errMalformedText)
	}
	flush()
	return result, nil
}

func parsePortLine(line string) (model.PortResult, error) {
	rest := strings.TrimPrefix(line, "  Port ")
	num, rest, ok := strings.Cut(rest, "/tcp - ")
	if !ok {
		return model.PortResult{}, fmt.Errorf("bad port line %q", line)
	}
	port, err := strconv.Atoi(num)
	if err != nil {
		return model.PortResult{}, fmt.Errorf("bad port %q", num)
	}
	service, banner, _ := strings.Cut(rest, " - ")
	return model.PortResult{
		Port:     port,
		Protocol: "tcp",
		State:    model.StateOpen,
		Service:  service,
		Banner:   bannerUnescaper.Replace(banner),
	}, nil
}

func sortedPorts(ports []model.PortResult) []model.PortResult {
	out := slices.Clone(ports)
	slices.SortFunc(out, func(a, b model.PortResult) int { return a.Port - b.Port })
	return out
}
