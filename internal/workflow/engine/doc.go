// Package engine runs a workflow definition step by step against one module
// context. It records each step's outcome and declared attachments, stops at
// the first step that returns an error, and persists a JSON report per run.
package engine
