package main

// Default limits for CLI commands.
const (
	DefaultAuditLimit = 20
	MaxAuditLimit     = 1000
)

// Valid output formats.
var validFormats = []string{"table", "json"}
