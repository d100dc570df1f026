package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rscada/canconfig/internal/descriptor"
)

func useDescriptor(t *testing.T, path string) {
	t.Helper()
	old := descriptorPath
	descriptorPath = path
	t.Cleanup(func() { descriptorPath = old })
}

func TestInitCreatesDescriptor(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "canconfig.yaml")
	useDescriptor(t, outPath)

	initForce = false
	if err := initCmd.RunE(initCmd, nil); err != nil {
		t.Fatalf("init: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("descriptor is empty")
	}
}

func TestInitRefusesOverwrite(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "canconfig.yaml")
	if err := os.WriteFile(outPath, []byte("existing"), 0644); err != nil {
		t.Fatal(err)
	}
	useDescriptor(t, outPath)

	initForce = false
	err := initCmd.RunE(initCmd, nil)
	if err == nil {
		t.Fatal("expected error when file exists")
	}
	if !strings.Contains(err.Error(), "already exists") {
		t.Errorf("error should mention 'already exists': %v", err)
	}
}

func TestInitForceOverwrites(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "canconfig.yaml")
	if err := os.WriteFile(outPath, []byte("old content"), 0644); err != nil {
		t.Fatal(err)
	}
	useDescriptor(t, outPath)

	initForce = true
	defer func() { initForce = false }()
	if err := initCmd.RunE(initCmd, nil); err != nil {
		t.Fatalf("init --force: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) == "old content" {
		t.Error("file was not overwritten")
	}
}

func TestInitTemplateIsValidDescriptor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "canconfig.yaml")
	if err := os.WriteFile(path, []byte(initTemplate), 0644); err != nil {
		t.Fatal(err)
	}

	d, err := descriptor.Load(path)
	if err != nil {
		t.Fatalf("scaffold does not load: %v", err)
	}
	if d.Package.Name != "canopen" || d.Package.Version != "0.1.0" || d.Package.Contact != "info@rscada.se" {
		t.Errorf("package = %+v", d.Package)
	}
	if d.Manifest == nil || d.Manifest.File != "libcanopen.pc" {
		t.Errorf("manifest = %+v", d.Manifest)
	}
}
