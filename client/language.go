package client

// Language is the narrow collaborator the façade spawns: it supplies the
// argv of the language server to launch. Anything else about "what
// language this is" — file extensions, syntax, project layout — is the
// caller's concern, not the transport's.
type Language interface {
	// Command returns the argv to execute: Command()[0] is the
	// executable, the rest are its arguments. Must be non-empty.
	Command() []string
}

// CommandLine is the simplest Language implementation: a fixed argv.
type CommandLine []string

func (c CommandLine) Command() []string { return []string(c) }
