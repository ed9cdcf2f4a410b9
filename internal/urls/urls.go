package urls

// MulticastDNS is RFC 6762, the multicast DNS protocol.
const MulticastDNS = "https://www.rfc-editor.org/rfc/rfc6762"

// DNSServiceDiscovery is RFC 6763, which defines the PTR/SRV/TXT layout
// of DNS-SD announcements.
const DNSServiceDiscovery = "https://www.rfc-editor.org/rfc/rfc6763"

// ServiceNameRegistry is the IANA registry of DNS-SD service names
// ("_ipp", "_airplay", ...).
const ServiceNameRegistry = "https://www.iana.org/assignments/service-names-port-numbers/service-names-port-numbers.xhtml"
