package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name  string   `yaml:"name" toml:"name"`
	Port  int      `yaml:"port" toml:"port"`
	Items []string `yaml:"items" toml:"items"`
}

func (s *sample) Validate() error {
	if s.Port == 0 {
		return errors.New("port is required")
	}
	return nil
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "from-env")
	p := writeFile(t, "c.yaml", "name: ${SAMPLE_NAME}\nport: 8080\nitems: [a, b]\n")

	var s sample
	if err := Load(p, &s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "from-env" || s.Port != 8080 || len(s.Items) != 2 {
		t.Errorf("loaded = %+v", s)
	}
}

func TestLoadTOML(t *testing.T) {
	t.Setenv("SAMPLE_PORT", "9090")
	p := writeFile(t, "c.toml", "name = \"toml\"\nport = ${SAMPLE_PORT}\nitems = [\"x\"]\n")

	var s sample
	if err := Load(p, &s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "toml" || s.Port != 9090 || s.Items[0] != "x" {
		t.Errorf("loaded = %+v", s)
	}
}

func TestLoadValidationFails(t *testing.T) {
	p := writeFile(t, "c.yml", "name: x\n")
	var s sample
	err := Load(p, &s)
	if err == nil || !strings.Contains(err.Error(), "port is required") {
		t.Errorf("err = %v", err)
	}
}

func TestLoadParseError(t *testing.T) {
	p := writeFile(t, "c.toml", "name = [\n")
	var s sample
	if err := Load(p, &s); err == nil || !strings.Contains(err.Error(), "failed to parse") {
		t.Errorf("err = %v", err)
	}
}

func TestLoadWithDefaults(t *testing.T) {
	def := writeFile(t, "default.yaml", "port: 1\n")
	var s sample
	if err := LoadWithDefaults(filepath.Join(t.TempDir(), "missing.yaml"), def, &s); err != nil {
		t.Fatalf("LoadWithDefaults: %v", err)
	}
	if s.Port != 1 {
		t.Errorf("port = %d", s.Port)
	}

	if err := LoadWithDefaults("missing.yaml", "", &s); err == nil {
		t.Error("expected error without default file")
	}
}
