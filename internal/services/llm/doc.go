// Package llm provides the HTTP client loreline uses to ask a hosted model to
// segment transcript chunks.
//
// Two wire formats are supported: "openai" chat completions (OpenRouter and
// compatible gateways, bearer auth) and "anthropic" messages (x-api-key plus
// anthropic-version). Requests carry the model, max_tokens and a system/user
// prompt pair; the returned text is handed back verbatim for the caller to
// parse.
//
// # Retry Behaviour
//
// Every transport failure (network error, timeout, non-2xx status,
// undecodable envelope, empty content) is retried a fixed number of times
// with a fixed delay. A Retry-After header overrides the delay, capped.
// Context cancellation aborts immediately.
//
// The API key is not checked up front; a missing key surfaces as an
// authentication failure from the service.
package llm
