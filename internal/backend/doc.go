// Package backend holds the HTTP clients for the upstream generation
// services: the local Ollama daemon, the Kimi cloud API, the local image and
// video renderers, and the hosted pollinations fallbacks. Each client owns
// its timeout and exposes the probe URL its health checks use.
package backend
