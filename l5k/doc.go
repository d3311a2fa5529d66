// Package l5k parses Rockwell L5K project exports into a structured model
// and re-emits filtered subsets as valid L5K text.
//
// The package is organized as three layers:
//
//   - Lexical helpers and a statement accumulator handle the format's
//     line-spanning statements: balanced parentheses, single- and
//     double-quoted strings with the $ escape character, and statements
//     terminated by a top-level semicolon.
//   - A line-oriented state machine builds the Project model: type
//     definitions (DATATYPE), add-on instruction definitions
//     (ADD_ON_INSTRUCTION_DEFINITION, including the ENCODED_DATA header
//     style), controller and program tags, and the file/controller headers.
//     A second pass resolves dotted parameter type paths down to primitive
//     base types, logging each correction.
//   - Two exporters filter the model by a Selection: ExportWhitelist renders
//     purely from the model, ExportFiltered rewrites the original source
//     lines.
//
// Usage:
//
//	res, err := l5k.Parse(src)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	out := res.ExportWhitelist(l5k.SelectAll(res.Project))
//
// Parsing is tolerant: content outside the modeled grammar is
// skipped (routine bodies, vendor metadata), malformed tag statements are
// dropped and counted, and unresolvable type paths are left unchanged.
package l5k
