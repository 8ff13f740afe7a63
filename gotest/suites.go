package gotest

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/mod/modfile"
)

// ModulePath reads the module path from the go.mod in dir
func ModulePath(dir string) (string, error) {
	goModPath := filepath.Join(dir, "go.mod")
	goModContent, err := os.ReadFile(goModPath)
	if err != nil {
		return "", fmt.Errorf("failed to read go.mod: %w", err)
	}

	modFile, err := modfile.Parse(goModPath, goModContent, nil)
	if err != nil {
		return "", fmt.Errorf("failed to parse go.mod: %w", err)
	}

	moduleName := modFile.Module.Mod.Path
	if moduleName == "" {
		return "", fmt.Errorf("could not find module name in go.mod")
	}
	return moduleName, nil
}

// ModuleSuiteNamer names suites by their path relative to the module.
// The module's root package is named after the last element of the module path.
// Packages outside the module keep their full path.
func ModuleSuiteNamer(modulePath string) SuiteNamer {
	return func(pkg string) string {
		if pkg == modulePath {
			return path.Base(modulePath)
		}
		if rel := strings.TrimPrefix(pkg, modulePath+"/"); rel != pkg {
			return rel
		}
		return pkg
	}
}
