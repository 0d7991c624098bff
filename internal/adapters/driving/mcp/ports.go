package mcp

import (
	"errors"

	"github.com/Terronex-dev/aifbin-recall/internal/core/ports/driving"
)

// Ports holds the driving-port dependencies of the MCP server.
type Ports struct {
	// Recall is the facade all tools dispatch through.
	Recall driving.RecallService
}

// Validate checks that required ports are present.
func (p *Ports) Validate() error {
	if p == nil {
		return errors.New("ports is nil")
	}
	if p.Recall == nil {
		return errors.New("recall service is required")
	}
	return nil
}
