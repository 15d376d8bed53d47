package mcp

import (
	"encoding/json"
	"strings"

	mcplib "github.com/felixgeelhaar/mcp-go"
)

// APIDocument is the subset of OpenAPI 3.0 needed to describe the tools as
// POST endpoints.
type APIDocument struct {
	OpenAPI string              `json:"openapi"`
	Info    APIInfo             `json:"info"`
	Tags    []APITag            `json:"tags,omitempty"`
	Paths   map[string]PathItem `json:"paths"`
}

type APIInfo struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version"`
}

type APITag struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type PathItem struct {
	Post *Operation `json:"post,omitempty"`
}

type Operation struct {
	OperationID string              `json:"operationId"`
	Summary     string              `json:"summary,omitempty"`
	Tags        []string            `json:"tags,omitempty"`
	RequestBody *RequestBody        `json:"requestBody,omitempty"`
	Responses   map[string]Response `json:"responses"`
}

type RequestBody struct {
	Required bool                 `json:"required"`
	Content  map[string]MediaType `json:"content"`
}

type MediaType struct {
	Schema any `json:"schema"`
}

type Response struct {
	Description string `json:"description"`
}

var toolTags = []APITag{
	{Name: "drafts", Description: "Collaborative editing before the night starts"},
	{Name: "plans", Description: "Live plan progress"},
	{Name: "attendance", Description: "Per-participant status and stop attendance"},
}

// OpenAPI returns the OpenAPI 3.0 JSON document for this server.
func (s *Server) OpenAPI() ([]byte, error) {
	return GenerateOpenAPI(s.mcpServer)
}

// GenerateOpenAPI maps every registered tool to POST /tools/{name}. The
// documented error responses follow the failures each tool can produce.
func GenerateOpenAPI(srv *mcplib.Server) ([]byte, error) {
	tools := srv.Tools()

	paths := make(map[string]PathItem, len(tools))
	for _, t := range tools {
		op := Operation{
			OperationID: t.Name,
			Summary:     t.Description,
			Tags:        []string{toolTag(t.Name)},
			Responses:   toolResponses(t.Name),
		}
		if hasProperties(t.InputSchema) {
			op.RequestBody = &RequestBody{
				Required: true,
				Content: map[string]MediaType{
					"application/json": {Schema: t.InputSchema},
				},
			}
		}
		paths["/tools/"+t.Name] = PathItem{Post: &op}
	}

	doc := APIDocument{
		OpenAPI: "3.0.3",
		Info: APIInfo{
			Title:       "Comesocial Plan Engine Tools",
			Description: "Generated from the MCP tool registrations of the plan engine.",
			Version:     SchemaVersion,
		},
		Tags:  toolTags,
		Paths: paths,
	}
	return json.MarshalIndent(doc, "", "  ")
}

func toolTag(name string) string {
	switch {
	case name == "friend_status_set" || name == "stop_attendance":
		return "attendance"
	case strings.HasPrefix(name, "plan_"):
		return "plans"
	default:
		return "drafts"
	}
}

func toolResponses(name string) map[string]Response {
	r := map[string]Response{
		"200": {Description: "Successful response"},
		"400": {Description: "Invalid arguments"},
		"404": {Description: "Draft or plan not found"},
	}
	switch name {
	case "draft_create":
		delete(r, "404")
	case "draft_get", "plan_get", "stop_attendance":
	default:
		r["403"] = Response{Description: "Role or lock violation"}
	}
	switch name {
	case "stop_update", "stop_reorder":
		r["409"] = Response{Description: "Stale expected_version; the current draft is returned"}
	case "draft_convert", "plan_start", "plan_check_in", "plan_next":
		r["422"] = Response{Description: "Not possible in the current state"}
	}
	return r
}

// hasProperties reports whether a JSON schema declares any properties. The
// schema is normalized through JSON so typed schema values work too.
func hasProperties(schema any) bool {
	if schema == nil {
		return false
	}
	m, ok := schema.(map[string]any)
	if !ok {
		data, err := json.Marshal(schema)
		if err != nil || json.Unmarshal(data, &m) != nil {
			return false
		}
	}
	props, ok := m["properties"].(map[string]any)
	return ok && len(props) > 0
}
