package main

import (
	"testing"
)

func TestRootCommandSubcommands(t *testing.T) {
	root := newRootCmd()

	for _, name := range []string{"serve", "report", "version"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil {
			t.Errorf("Expected %q subcommand, got error: %v", name, err)
			continue
		}
		if cmd == root {
			t.Errorf("Expected %q to resolve to its own subcommand", name)
		}
	}
}

func TestRootCommandRunsServerByDefault(t *testing.T) {
	root := newRootCmd()
	if root.RunE == nil {
		t.Fatal("Expected bare root invocation to start the server")
	}
}
