// Package driving provides interfaces implemented by the core services
// and consumed by transports (primary/inbound ports): the HTTP API, the
// tool-protocol server, the CLI, and the TUI all bind to RecallService.
package driving
