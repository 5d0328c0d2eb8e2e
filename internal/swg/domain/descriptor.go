package domain

// RequestDescriptor is the inbound contract from the intercepting transport.
// The transport terminates TLS and hands the engine a fully-formed outbound
// request descriptor; the engine inspects only the destination, never content.
type RequestDescriptor struct {
	// Host is the destination host as supplied by the transport (Host header
	// or TLS SNI), possibly carrying a port.
	Host string
	// Scheme is "http" or "https"; informational, used only for logging.
	Scheme string
	// Method is the HTTP method when known; informational.
	Method string
	// ClientAddr is the requesting client's address; informational.
	ClientAddr string
}
