package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
)

// handleListRecords implements the list_records tool.
func (s *Server[R]) handleListRecords(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	records, ok := s.ctrl.FetchedRecords()
	if !ok {
		return mcp.NewToolResultError("no records fetched yet; call PerformFetch first"), nil
	}

	out := make([]any, len(records))
	for i, r := range records {
		out[i] = s.toJSON(r)
	}

	body, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal records: %v", err)), nil
	}
	return mcp.NewToolResultText(string(body)), nil
}

// handleGetRecord implements the get_record tool.
func (s *Server[R]) handleGetRecord(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	indexArg := request.GetString("index", "")
	if indexArg == "" {
		return mcp.NewToolResultError("index parameter is required"), nil
	}
	index, err := strconv.Atoi(indexArg)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("index must be an integer: %v", err)), nil
	}

	records, ok := s.ctrl.FetchedRecords()
	if !ok {
		return mcp.NewToolResultError("no records fetched yet; call PerformFetch first"), nil
	}
	if index < 0 || index >= len(records) {
		return mcp.NewToolResultError(fmt.Sprintf("index %d out of range (%d records)", index, len(records))), nil
	}

	body, err := json.Marshal(s.toJSON(records[index]))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal record: %v", err)), nil
	}
	return mcp.NewToolResultText(string(body)), nil
}
