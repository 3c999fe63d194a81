// Package file provides file-based implementations of driven port interfaces.
//
// Adapters:
//   - ConfigStore: TOML configuration with dotted key access
//   - PromptStore: user-editable prompt templates
package file
