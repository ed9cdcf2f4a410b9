package transport

import (
	"fmt"
	"net"
	"net/netip"
	"strings"
)

// DefaultVirtualPrefixes names interfaces (containers, hypervisor bridges,
// tunnels) that are skipped during enumeration. Their addresses are rarely
// reachable from other hosts on the LAN.
var DefaultVirtualPrefixes = []string{
	"docker",
	"br-",
	"veth",
	"virbr",
	"vboxnet",
	"vmnet",
	"utun",
	"awdl",
	"llw",
}

// Interface is a local IPv4 address usable for multicast discovery.
type Interface struct {
	Name  string
	Index int
	Addr  netip.Addr
}

// LocalIPv4Addrs returns the IPv4 addresses of every interface that is up,
// multicast-capable, not loopback and not virtual.
func LocalIPv4Addrs() ([]netip.Addr, error) {
	ifaces, err := Interfaces(DefaultVirtualPrefixes)
	if err != nil {
		return nil, err
	}
	addrs := make([]netip.Addr, 0, len(ifaces))
	for _, ifi := range ifaces {
		addrs = append(addrs, ifi.Addr)
	}
	return addrs, nil
}

// Interfaces enumerates usable IPv4 interface addresses, skipping interfaces
// whose name starts with one of skipPrefixes.
func Interfaces(skipPrefixes []string) ([]Interface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("list interfaces: %w", err)
	}

	var out []Interface
	for _, ifi := range ifaces {
		if !usable(ifi.Flags, ifi.Name, skipPrefixes) {
			continue
		}
		addrs, err := ifi.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range ipv4Addrs(addrs) {
			out = append(out, Interface{Name: ifi.Name, Index: ifi.Index, Addr: addr})
		}
	}
	return out, nil
}

func usable(flags net.Flags, name string, skipPrefixes []string) bool {
	if flags&net.FlagUp == 0 || flags&net.FlagMulticast == 0 || flags&net.FlagLoopback != 0 {
		return false
	}
	lower := strings.ToLower(name)
	for _, prefix := range skipPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return false
		}
	}
	return true
}

func ipv4Addrs(addrs []net.Addr) []netip.Addr {
	var out []netip.Addr
	for _, a := range addrs {
		var ip net.IP
		switch v := a.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		default:
			continue
		}
		addr, ok := netip.AddrFromSlice(ip.To4())
		if !ok || addr.IsLoopback() {
			continue
		}
		out = append(out, addr)
	}
	return out
}

// interfaceByAddr finds the interface that owns addr.
func interfaceByAddr(addr netip.Addr) (*net.Interface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("list interfaces: %w", err)
	}
	for i := range ifaces {
		addrs, err := ifaces[i].Addrs()
		if err != nil {
			continue
		}
		for _, a := range ipv4Addrs(addrs) {
			if a == addr {
				return &ifaces[i], nil
			}
		}
	}
	return nil, fmt.Errorf("no interface has address %s", addr)
}
