package config

import "testing"

func TestHolderUpdateReplacesConfig(t *testing.T) {
	initial := DefaultConfig()
	h := NewHolder(initial, "/some/config.toml")

	if h.Path() != "/some/config.toml" {
		t.Fatalf("Path() = %q, want /some/config.toml", h.Path())
	}
	if h.Config() != initial {
		t.Fatal("Config() did not return the initial config")
	}

	updated := DefaultConfig()
	updated.Logging.LogLevel = "debug"
	h.Update(updated)

	if h.Config() != updated {
		t.Fatal("Config() did not return the updated config")
	}
}
