package sdk

// SupportedSchemaMajor is the major schema version this SDK supports.
// Compatibility requires the server's schema major version to match.
const SupportedSchemaMajor = "1"

// SchemaURI is the resource the server publishes its schema under.
const SchemaURI = "comesocial://schema"

// SchemaInfo describes the MCP schema version and deprecation info.
type SchemaInfo struct {
	SchemaVersion string            `json:"schema_version"`
	ServerVersion string            `json:"server_version"`
	Tools         []string          `json:"tools"`
	Deprecated    []DeprecatedField `json:"deprecated"`
}

// DeprecatedField records a field or tool that has been deprecated.
type DeprecatedField struct {
	Tool      string `json:"tool"`
	Field     string `json:"field"`
	Since     string `json:"since"`
	RemovedIn string `json:"removed_in"`
	Migration string `json:"migration"`
}
