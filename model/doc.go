// Package model defines the provider‑agnostic abstractions and helpers for
// interacting with chat language models.
//
// Core goals:
//   - Keep request/response shapes minimal and transport independent
//   - Normalize tool / function call representation (ToolDefinition, core.FunctionCall)
//   - Surface vendor failures uniformly as *ProviderError
//   - Facilitate lightweight mocking for tests (MockModel)
//
// Providers (OpenAI, Anthropic) implement the Model interface so higher layers
// (agent executor, tools) stay decoupled from vendor SDKs.
package model
