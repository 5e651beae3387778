// Package llm defines a provider-neutral chat completion interface with
// tool calling, and implements it for OpenAI (go-openai) and Anthropic
// (anthropic-sdk-go).
package llm
