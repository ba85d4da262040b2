// Package openai provides embed.Embedder implementations backed by
// OpenAI-compatible embedding APIs, covering both the hosted OpenAI
// service and local servers such as Ollama or LocalAI that expose the
// same wire protocol.
package openai
