// Package deps resolves the external executables mmt shells out to.
package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Tool describes one resolved executable.
type Tool struct {
	Name string
	// Command is the configured name, replaced by the absolute path once found.
	Command string
	Found   bool
	// Version is the banner version, empty when unknown.
	Version string
	Detail  string
}

// Summary is the one-line description used in status output.
func (t Tool) Summary() string {
	switch {
	case !t.Found:
		return t.Detail
	case t.Version != "":
		return t.Command + " (" + t.Version + ")"
	default:
		return t.Command
	}
}

// Lookup resolves command on PATH.
func Lookup(name, command string) Tool {
	tool := Tool{Name: name, Command: strings.TrimSpace(command)}
	if tool.Command == "" {
		tool.Detail = "command not configured"
		return tool
	}
	path, err := exec.LookPath(tool.Command)
	if err != nil {
		tool.Detail = fmt.Sprintf("binary %q not found", tool.Command)
		return tool
	}
	tool.Command = path
	tool.Found = true
	return tool
}
