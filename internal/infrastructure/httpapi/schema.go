package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/kevinbrodzinski/comesocial-sub003/pkg/domain/outing"
)

const maxBodyBytes = 1 << 20

const createDraftSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "title": { "type": "string" },
    "description": { "type": "string" },
    "plan_type": { "type": "string" },
    "date": { "type": "string" },
    "time": { "type": "string" },
    "chat_open": { "type": "boolean" },
    "allow_all_edit": { "type": "boolean" },
    "host_id": { "type": "string" },
    "participants": {
      "type": "array",
      "maxItems": 12,
      "items": {
        "type": "object",
        "required": ["id"],
        "properties": {
          "id": { "type": "string", "minLength": 1 },
          "name": { "type": "string" },
          "avatar": { "type": "string" }
        }
      }
    }
  }
}`

const addStopSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "venue_id": { "type": "string" },
    "venue_name": { "type": "string" },
    "query": { "type": "string" },
    "notes": { "type": "string" },
    "estimated_time": { "type": "integer", "minimum": 0 }
  },
  "anyOf": [
    { "required": ["venue_name"] },
    { "required": ["query"] }
  ]
}`

const updateStopSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["field", "value"],
  "properties": {
    "field": { "enum": ["venue_id", "venue_name", "notes", "estimated_time"] },
    "expected_version": { "type": "integer", "minimum": 0 }
  }
}`

const reorderSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "target_stop_id": { "type": "string" },
    "expected_version": { "type": "integer", "minimum": 0 }
  }
}`

const suggestionSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "venue_id": { "type": "string" },
    "venue_name": { "type": "string" },
    "query": { "type": "string" },
    "notes": { "type": "string" }
  },
  "anyOf": [
    { "required": ["venue_name"] },
    { "required": ["venue_id"] },
    { "required": ["query"] }
  ]
}`

const policySchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["allow_all_edit"],
  "properties": {
    "allow_all_edit": { "type": "boolean" }
  }
}`

const participantSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["id"],
  "properties": {
    "id": { "type": "string", "minLength": 1 },
    "name": { "type": "string" },
    "avatar": { "type": "string" }
  }
}`

const editingSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["stop_id", "field"],
  "properties": {
    "stop_id": { "type": "string", "minLength": 1 },
    "field": { "enum": ["venue_id", "venue_name", "notes", "estimated_time"] }
  }
}`

const checkInSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "stop_id": { "type": "string" }
  }
}`

const pingSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "message": { "type": "string", "maxLength": 500 }
  }
}`

const friendStatusSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["status"],
  "properties": {
    "status": { "enum": ["no-response", "en-route", "checked-in", "left-early"] },
    "eta": { "type": "string" },
    "venue_id": { "type": "string" }
  }
}`

var (
	createDraftSchema  = gojsonschema.NewStringLoader(createDraftSchemaJSON)
	addStopSchema      = gojsonschema.NewStringLoader(addStopSchemaJSON)
	updateStopSchema   = gojsonschema.NewStringLoader(updateStopSchemaJSON)
	reorderSchema      = gojsonschema.NewStringLoader(reorderSchemaJSON)
	suggestionSchema   = gojsonschema.NewStringLoader(suggestionSchemaJSON)
	policySchema       = gojsonschema.NewStringLoader(policySchemaJSON)
	participantSchema  = gojsonschema.NewStringLoader(participantSchemaJSON)
	editingSchema      = gojsonschema.NewStringLoader(editingSchemaJSON)
	checkInSchema      = gojsonschema.NewStringLoader(checkInSchemaJSON)
	pingSchema         = gojsonschema.NewStringLoader(pingSchemaJSON)
	friendStatusSchema = gojsonschema.NewStringLoader(friendStatusSchemaJSON)
)

// decode validates the request body against schema, then decodes it into v.
// An empty body is treated as an empty object.
func decode(r *http.Request, schema gojsonschema.JSONLoader, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", outing.ErrInvalidInput, err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		body = []byte("{}")
	}

	result, err := gojsonschema.Validate(schema, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("%w: malformed JSON: %v", outing.ErrInvalidInput, err)
	}
	if !result.Valid() {
		issues := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			issues = append(issues, desc.String())
		}
		return fmt.Errorf("%w: %s", outing.ErrInvalidInput, strings.Join(issues, "; "))
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", outing.ErrInvalidInput, err)
	}
	return nil
}
