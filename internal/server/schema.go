// internal/server/schema.go
package server

import (
	"github.com/xeipuuv/gojsonschema"

	pipeerrors "epd-assistant/internal/common/errors"
)

// askRequestSchema is the wire contract of POST /ask. Validation happens
// before decoding so malformed requests never reach the pipeline.
const askRequestSchema = `{
	"type": "object",
	"properties": {
		"question": {
			"type": "string",
			"maxLength": 4000
		},
		"productIds": {
			"type": "array",
			"items": {"type": "string"},
			"maxItems": 20
		},
		"indicatorKeys": {
			"type": "array",
			"items": {"type": "string"},
			"maxItems": 50
		},
		"model": {
			"type": "string"
		}
	},
	"required": ["question"],
	"additionalProperties": false
}`

var askSchemaLoader = gojsonschema.NewStringLoader(askRequestSchema)

func validateAskBody(body []byte) error {
	result, err := gojsonschema.Validate(askSchemaLoader, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return pipeerrors.NewInvalidInputError("request body must be valid JSON")
	}
	if !result.Valid() {
		return pipeerrors.NewInvalidInputError(result.Errors()[0].String())
	}
	return nil
}
