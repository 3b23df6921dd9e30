// Package memory holds conversational memory for the agent executor. A
// ChatMessageHistory stores the ordered messages of one conversation and a
// BufferMemory exposes them to the executor under a memory key and records
// each completed exchange.
package memory
