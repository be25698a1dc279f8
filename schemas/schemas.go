// Package schemas embeds the JSON Schema files shipped with the resume builder.
package schemas

import _ "embed"

// Resume is the JSON Schema of the document import/export format.
//
//go:embed resume.schema.json
var Resume []byte
