package model

import "sort"

// UnknownService is reported for open ports missing from CommonPorts.
const UnknownService = "Unknown"

// CommonPorts well-known port table scanned when no port spec is given
var CommonPorts = map[int]string{
	21:   "FTP",
	22:   "SSH",
	23:   "Telnet",
	25:   "SMTP",
	53:   "DNS",
	80:   "HTTP",
	110:  "POP3",
	143:  "IMAP",
	443:  "HTTPS",
	445:  "SMB",
	3306: "MySQL",
	3389: "RDP",
	5432: "PostgreSQL",
	8080: "HTTP-Proxy",
	8443: "HTTPS-Alt",
}

// ServiceName resolves a port to its service name, "Unknown" when off-table.
func ServiceName(port int) string {
	if name, ok := CommonPorts[port]; ok {
		return name
	}
	return UnknownService
}

// CommonPortsList returns the table's ports in ascending order.
func CommonPortsList() []int {
	ports := make([]int, 0, len(CommonPorts))
	for port := range CommonPorts {
		ports = append(ports, port)
	}
	sort.Ints(ports)
	return ports
}
