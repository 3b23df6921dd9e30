// Package prompt provides the prompt building blocks used by tools and the
// agent executor: Template renders a text/template with declared input
// variables and pre-bound partial variables, and StructuredOutputParser turns
// a set of named fields into model format instructions and parses model
// output back into a validated object.
package prompt
