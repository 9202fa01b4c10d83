// Package api exposes the study service over HTTP. Handlers translate
// requests into service calls and map service errors onto status codes and
// client-safe messages; routes are mounted with Routes.
package api
