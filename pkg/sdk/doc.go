// Package sdk provides a typed Go client for the Comesocial MCP server.
//
// The client wraps mcp-go/client.CallTool with one method per MCP tool,
// connection management, and automatic retry via fortify. Tool errors
// (conflicts, permission and state violations) are returned as *ToolError
// and are never retried.
//
// Usage:
//
//	transport, _ := client.NewStdioTransport("comesocial", "mcp")
//	c := sdk.NewClient(transport)
//	defer c.Close()
//
//	info, _ := c.Initialize(ctx)
//	draft, _ := c.CreateDraft(ctx, sdk.CreateDraftRequest{HostID: "host", Title: "Friday"})
//	fmt.Println(draft.ID)
package sdk
