// Package mcpserver exposes a fetchedrecords.Controller's projection as
// MCP tools (the whole projection, and one record by index; IndexOf is
// not exposed), grounded on
// server/mcp.Server's tool-registration and Streamable HTTP transport
// shape.
package mcpserver

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/kasuganosora/fetchedrecords/fetchedrecords"
)

// Config configures a Server.
type Config[R any] struct {
	Controller *fetchedrecords.Controller[R]

	// Name and Version identify the server to MCP clients.
	Name    string
	Version string

	// ToJSON converts a record into a value encoding/json can render.
	// Required.
	ToJSON func(record R) any
}

// Server serves a Controller's current projection over MCP: a
// list_records tool dumping the whole projection, and a get_record tool
// returning a single record by index.
type Server[R any] struct {
	ctrl    *fetchedrecords.Controller[R]
	name    string
	version string
	toJSON  func(R) any
}

// New builds a Server from cfg.
func New[R any](cfg Config[R]) *Server[R] {
	name := cfg.Name
	if name == "" {
		name = "fetchedrecords"
	}
	version := cfg.Version
	if version == "" {
		version = "1.0.0"
	}
	return &Server[R]{
		ctrl:    cfg.Controller,
		name:    name,
		version: version,
		toJSON:  cfg.ToJSON,
	}
}

// MCPServer assembles the mcp-go server with this Server's tools
// registered. Exported so callers that want their own transport (or a
// test driving AddTool's registered handlers) don't have to go through
// Start.
func (s *Server[R]) MCPServer() *mcpserver.MCPServer {
	mcpSrv := mcpserver.NewMCPServer(
		s.name,
		s.version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithRecovery(),
	)

	listTool := mcp.NewTool("list_records",
		mcp.WithDescription("List every record currently held in the fetched-records projection, in projection order."),
	)
	getTool := mcp.NewTool("get_record",
		mcp.WithDescription("Get a single record at a zero-based index into the projection."),
		mcp.WithString("index", mcp.Description("zero-based index into the projection"), mcp.Required()),
	)

	mcpSrv.AddTool(listTool, s.handleListRecords)
	mcpSrv.AddTool(getTool, s.handleGetRecord)
	return mcpSrv
}

// Start serves Streamable HTTP at addr (blocking).
func (s *Server[R]) Start(addr string) error {
	httpSrv := mcpserver.NewStreamableHTTPServer(
		s.MCPServer(),
		mcpserver.WithEndpointPath("/mcp"),
	)
	return httpSrv.Start(addr)
}
