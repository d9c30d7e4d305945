// Package security builds the TLS settings used by the OpenAI transport.
//
// A zero TLSConfig means "use the system defaults"; Build then returns nil so
// callers can leave http.Transport.TLSClientConfig untouched. Setting CAFile
// is the usual way to reach a private gateway or proxy in front of the API.
//
//	cfg := security.TLSConfig{CAFile: "/etc/ssl/gateway-ca.pem"}
//	tlsConfig, err := cfg.Build()
package security
