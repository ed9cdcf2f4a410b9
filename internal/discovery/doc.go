// Package discovery turns mDNS responses into device summaries for the CLI,
// the TUI and the gateway.
//
// The discover package delivers raw responses, one per datagram per
// interface. This package projects each response into a Device (instance
// name, address, port, TXT metadata) and offers a Collector that folds
// repeated sightings of the same instance into one entry.
//
// # Discovery Process
//
// A Scanner runs a time-boxed discovery:
//  1. Sends a PTR query for the service on every usable interface
//  2. Keeps only responses that answer for the service
//  3. Projects each response into a Device
//  4. De-duplicates devices by instance name
//  5. Returns the device list after the timeout period
//
// # Usage Example
//
//	devices, err := discovery.ScanForDevices(ctx, "_googlecast._tcp.local", 10*time.Second)
//	if err != nil {
//	    return err
//	}
//
//	for _, device := range devices {
//	    fmt.Printf("Found: %s at %s\n", device.Name(), device.Address())
//	}
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Devices must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
//
// # Thread Safety
//
// Collector is safe for concurrent use. Devices returned from it are copies.
package discovery
