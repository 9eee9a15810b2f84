// Package internal contains client implementation details that are shared between packages, but are
// not exposed to application code. The events, enrich, validation, and metrics subpackages hold the
// components of the delivery pipeline.
package internal
