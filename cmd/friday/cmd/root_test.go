package cmd

import "testing"

func TestSubcommandsRegistered(t *testing.T) {
	want := []string{
		"add-account",
		"list-accounts",
		"remove-account",
		"update-account",
		"unread",
		"send",
		"serve",
		"mcp",
		"version",
	}

	registered := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		registered[c.Name()] = true
	}

	for _, name := range want {
		if !registered[name] {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestRootFlags(t *testing.T) {
	for _, name := range []string{"config", "verbose", "headless"} {
		if rootCmd.PersistentFlags().Lookup(name) == nil {
			t.Errorf("persistent flag %q not defined", name)
		}
	}
}
