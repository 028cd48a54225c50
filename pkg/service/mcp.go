package service

import (
	"net/http"

	"github.com/mark3labs/mcp-go/server"

	"github.com/theapemachine/mnemo/pkg/ledger"
	"github.com/theapemachine/mnemo/pkg/tools"
)

/*
MCPBroker exposes the memory tool suite over the transports a host runtime
may speak: stdio for plugin-style wiring, SSE for remote clients.
*/
type MCPBroker struct {
	srv *server.MCPServer
	sse *server.SSEServer
}

func NewMCPBroker(store *ledger.Store) (*MCPBroker, error) {
	suite, err := tools.NewMemoryToolSuite(store)
	if err != nil {
		return nil, err
	}

	mcpSrv := server.NewMCPServer(
		"mnemo",
		"1.0.0",
		server.WithLogging(),
		server.WithToolCapabilities(true),
	)

	suite.Register(mcpSrv)

	sseSrv := server.NewSSEServer(
		mcpSrv,
	)

	return &MCPBroker{
		srv: mcpSrv,
		sse: sseSrv,
	}, nil
}

// ServeStdio blocks, serving the tools over stdin/stdout.
func (b *MCPBroker) ServeStdio() error {
	return server.ServeStdio(b.srv)
}

// Start blocks, serving the tools over SSE on the given address.
func (b *MCPBroker) Start(addr string) error {
	return b.sse.Start(addr)
}

func (b *MCPBroker) Handler() http.Handler {
	return b.sse
}
