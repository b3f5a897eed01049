package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestServiceName(t *testing.T) {
	cases := map[int]string{
		21:    "FTP",
		443:   "HTTPS",
		8080:  "HTTP-Proxy",
		8443:  "HTTPS-Alt",
		6379:  UnknownService,
		31337: UnknownService,
	}
	for port, want := range cases {
		if got := ServiceName(port); got != want {
			t.Errorf("ServiceName(%d) = %q, want %q", port, got, want)
		}
	}
}

func TestCommonPortsList_Sorted(t *testing.T) {
	ports := CommonPortsList()
	if len(ports) != len(CommonPorts) {
		t.Fatalf("got %d ports", len(ports))
	}
	for i := 1; i < len(ports); i++ {
		if ports[i-1] >= ports[i] {
			t.Fatalf("not ascending at %d: %v", i, ports)
		}
	}
}

func TestScanResult_AddKeepsOrderAndSkipsEmpty(t *testing.T) {
	r := NewScanResult("10.0.0.0/24", []int{22, 80})
	r.Add(HostResult{Address: "10.0.0.9", Ports: []PortResult{{Port: 22, State: StateOpen}}})
	r.Add(HostResult{Address: "10.0.0.3"})
	r.Add(HostResult{Address: "10.0.0.1", Ports: []PortResult{{Port: 80, State: StateOpen}}})

	if r.Len() != 2 || r.Empty() {
		t.Fatalf("len = %d", r.Len())
	}
	if r.Hosts[0].Address != "10.0.0.9" || r.Hosts[1].Address != "10.0.0.1" {
		t.Fatalf("order = %v", r.Hosts)
	}
	if _, ok := r.Host("10.0.0.3"); ok {
		t.Fatal("host without open ports was recorded")
	}

	r.Add(HostResult{Address: "10.0.0.9", Ports: []PortResult{{Port: 443, State: StateOpen}}})
	h, ok := r.Host("10.0.0.9")
	if !ok || h.Ports[0].Port != 443 || r.Len() != 2 {
		t.Fatalf("replacement failed: %+v", r.Hosts)
	}
}

func TestScanResult_LookupAfterDecode(t *testing.T) {
	r := NewScanResult("10.0.0.1", []int{22})
	r.Add(HostResult{Address: "10.0.0.1", Ports: []PortResult{{Port: 22, State: StateOpen, Service: "SSH"}}})
	r.FinishedAt = r.StartedAt.Add(time.Second)

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded ScanResult
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	h, ok := decoded.Host("10.0.0.1")
	if !ok || h.Ports[0].Service != "SSH" {
		t.Fatalf("lookup after decode failed: %+v", decoded.Hosts)
	}
	if decoded.Duration() != time.Second {
		t.Errorf("duration = %v", decoded.Duration())
	}
}

func TestPortResult_Open(t *testing.T) {
	if !(PortResult{State: StateOpen}).Open() {
		t.Error("open state not open")
	}
	for _, s := range []string{StateClosed, StateFiltered, StateUnreachable, ""} {
		if (PortResult{State: s}).Open() {
			t.Errorf("%q reported open", s)
		}
	}
}
