// Package handler exposes the bridge's HTTP API: chat with optional SSE
// streaming, hybrid local/cloud chat, image and video generation, model
// management, webhook logging, and status. Every generation route runs
// through a gateway cascade so a dead upstream degrades instead of failing.
package handler
