package messaging

import "github.com/xeipuuv/gojsonschema"

var envelopeSchemaLoader = gojsonschema.NewBytesLoader(envelopeSchemaBytes)

var messagesSchemaLoader = gojsonschema.NewBytesLoader(messagesSchemaBytes)

// nolint: lll
var envelopeSchemaBytes = []byte(`
{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"$id": "github.com/krancour/porter/envelope.schema.json",

	"definitions": {

		"message": {
			"type": "object",
			"required": ["name"],
			"properties": {
				"name": {
					"type": "string",
					"minLength": 1,
					"maxLength": 250,
					"description": "The logical message type used for routing"
				},
				"body": {
					"type": ["string", "null"],
					"description": "The base64 encoded message body"
				}
			}
		}

	},

	"title": "Envelope",
	"type": "object",
	"required": ["id", "message", "timestamp"],
	"properties": {
		"id": {
			"type": "string",
			"minLength": 1
		},
		"message": { "$ref": "#/definitions/message" },
		"timestamp": {
			"type": "string",
			"format": "date-time"
		},
		"handleTime": {
			"type": ["string", "null"],
			"format": "date-time"
		}
	}
}
`)

// nolint: lll
var messagesSchemaBytes = []byte(`
{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"$id": "github.com/krancour/porter/messages.schema.json",

	"title": "Messages",
	"type": "array",
	"items": {
		"type": "object",
		"required": ["name"],
		"properties": {
			"name": {
				"type": "string",
				"minLength": 1,
				"maxLength": 250
			},
			"body": {
				"type": ["string", "null"]
			}
		}
	}
}
`)
