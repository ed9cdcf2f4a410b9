// Package discover browses the local network for devices advertising a
// DNS-SD service over multicast DNS.
//
// A Discovery opens one socket per usable IPv4 interface, each bound to port
// 5353 and joined to 224.0.0.251 on that interface. Once consumption starts it
// sends a PTR query for the service on every interface, repeats it on a fixed
// interval, and streams every decoded reply as a Result.
//
//	d, err := discover.All("_googlecast._tcp.local", discover.WithTimeout(10*time.Second))
//	if err != nil {
//	    return err
//	}
//	defer d.Close()
//
//	for res := range d.Results() {
//	    if res.Err != nil {
//	        log.Printf("%s: %v", res.Interface, res.Err)
//	        continue
//	    }
//	    if addr, ok := res.Response.SocketAddr(); ok {
//	        fmt.Println(addr)
//	    }
//	}
//
// # Pacing
//
// Query rounds are never closer together than the query interval, whether
// they come from the ticker or from Solicit. The first round is sent as soon
// as consumption starts unless WithInitialQuery(false) is given.
//
// # Filtering
//
// Responses with no records are dropped by default (WithIgnoreEmpty). Every
// other decoded message seen on the group is delivered, including replies to
// other hosts' queries for unrelated services; WithServiceFilter restricts the
// stream to responses answering for the browsed service name.
//
// The same announcement heard on two interfaces is delivered twice, once per
// interface. Callers that want a device list de-duplicate themselves.
//
// # Errors
//
// A datagram whose DNS envelope cannot be decoded is delivered as a Result
// with an error matching ErrDecode and the session carries on. Any other
// receive failure is delivered once and stops that interface's receiver.
package discover
