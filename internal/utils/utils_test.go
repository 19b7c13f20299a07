package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEnsureDirectory(t *testing.T) {
	t.Run("Creates new directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "logs", "nested")

		if err := EnsureDirectory(dir); err != nil {
			t.Fatalf("Failed to create directory: %v", err)
		}

		stat, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("Failed to stat directory: %v", err)
		}
		if !stat.IsDir() {
			t.Error("Directory was created but is not a directory")
		}
	})

	t.Run("Handles existing directory", func(t *testing.T) {
		dir := t.TempDir()

		if err := EnsureDirectory(dir); err != nil {
			t.Errorf("Failed on existing directory: %v", err)
		}
	})

	t.Run("Fails: if path is a file", func(t *testing.T) {
		filePath := filepath.Join(t.TempDir(), "test-file")

		if file, err := os.Create(filePath); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		} else {
			file.Close()
		}

		if err := EnsureDirectory(filePath); err == nil {
			t.Error("Expected error when path is a file, but got nil")
		}
	})
}

func TestDownloadName(t *testing.T) {
	tests := []struct {
		uploaded string
		want     string
	}{
		{"clientes.xlsx", "clientes_resultados.xlsx"},
		{"/tmp/base datos.csv", "base datos_resultados.xlsx"},
		{`Año "2024".xls`, "A_o 2024_resultados.xlsx"},
		{"", "coverage_resultados.xlsx"},
	}

	for _, tt := range tests {
		t.Run(tt.uploaded, func(t *testing.T) {
			if got := DownloadName(tt.uploaded, "_resultados", ".xlsx"); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestMakeMap(t *testing.T) {
	m := MakeMap("config_url", "https://config.example.com")
	if len(m) != 1 || m["config_url"] != "https://config.example.com" {
		t.Errorf("Unexpected map: %v", m)
	}
}
