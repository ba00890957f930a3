// Package metrics collects gateway activity through a buffered event channel
// processed by a single collector goroutine, keeping aggregation off the
// request path. A JSON snapshot is exposed over HTTP.
package metrics
