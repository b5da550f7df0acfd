package deviceid

import (
	"path/filepath"
	"testing"
)

func TestLoadGeneratesAndPersistsOnFirstCall(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device_id.json")

	id, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if id == "" {
		t.Fatal("expected a non-empty device id")
	}

	again, err := Load(path)
	if err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if again != id {
		t.Fatalf("Load returned %q on second call, want stable %q", again, id)
	}
}

func TestLoadRecoversFromEmptyDeviceID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device_id.json")

	if err := save(path, ""); err != nil {
		t.Fatalf("save: %v", err)
	}

	id, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if id == "" {
		t.Fatal("expected Load to regenerate a non-empty device id")
	}
}
