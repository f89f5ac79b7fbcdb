// Package api serves template generation over HTTP.
//
// Routes:
//
//	POST /api/generatetemplate         build (or reuse) and stream the zip
//	POST /api/generatetemplate/async   start a build, 202 with the key
//	GET  /api/generatetemplate/{key}   the zip, or 202 with the build status
//	GET  /healthz /readyz /health      health checks
//	GET  /metrics                      Prometheus metrics, when enabled
//
// Request bodies follow JSON:API:
//
//	{"data": {"type": "generatetemplate", "attributes": {
//	    "generator": "generator-node:app",
//	    "options":   {"skip-git": true},
//	    "answers":   {"name": "demo"},
//	    "args":      []
//	}}}
//
// Non-string option and answer values are converted to their JSON text,
// so true and "true" select the same template.
package api
