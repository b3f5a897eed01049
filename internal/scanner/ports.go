package scanner

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"netsweep/internal/model"
)

// ErrInvalidPortSpec wraps every port specification error.
var ErrInvalidPortSpec = errors.New("invalid port spec")

const (
	minPort = 1
	maxPort = 65535
)

// ParsePortRange parses "80,443,8000-8100" style specs into a sorted,
// deduplicated port list. An empty spec, "common" or "default" yields the
// well-known table; "all" yields 1-65535.
func ParsePortRange(portRange string) ([]int, error) {
	spec := strings.TrimSpace(portRange)
	switch strings.ToLower(spec) {
	case "", "common", "default":
		return model.CommonPortsList(), nil
	case "all":
		return expand(minPort, maxPort), nil
	}

	seen := make(map[int]struct{})
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("%w: empty token in %q", ErrInvalidPortSpec, portRange)
		}

		if strings.Contains(part, "-") {
			bounds := strings.Split(part, "-")
			if len(bounds) != 2 {
				return nil, fmt.Errorf("%w: bad range %q", ErrInvalidPortSpec, part)
			}
			start, err := parsePort(bounds[0])
			if err != nil {
				return nil, err
			}
			end, err := parsePort(bounds[1])
			if err != nil {
				return nil, err
			}
			if start > end {
				return nil, fmt.Errorf("%w: range start greater than end: %s", ErrInvalidPortSpec, part)
			}
			for port := start; port <= end; port++ {
				seen[port] = struct{}{}
			}
			continue
		}

		port, err := parsePort(part)
		if err != nil {
			return nil, err
		}
		seen[port] = struct{}{}
	}

	ports := make([]int, 0, len(seen))
	for port := range seen {
		ports = append(ports, port)
	}
	sort.Ints(ports)
	return ports, nil
}

func parsePort(s string) (int, error) {
	s = strings.TrimSpace(s)
	port, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidPortSpec, s)
	}
	if port < minPort || port > maxPort {
		return 0, fmt.Errorf("%w: port %d outside %d-%d", ErrInvalidPortSpec, port, minPort, maxPort)
	}
	return port, nil
}

func expand(start, end int) []int {
	ports := make([]int, 0, end-start+1)
	for port := start; port <= end; port++ {
		ports = append(ports, port)
	}
	return ports
}
