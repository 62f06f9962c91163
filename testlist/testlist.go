// Package testlist discovers test functions by parsing _test.go files
// directly, without compiling or running anything. It backs the CLI's list
// command.
package testlist

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/mod/modfile"
)

// FindTestFunctions returns the names of the top-level Test functions in the
// package at pkgPath. The path may be relative ("./reporting") or a full
// import path inside the module rooted at workingDir. TestMain and test
// methods on receivers are not tests and are excluded.
func FindTestFunctions(pkgPath, workingDir string) ([]string, error) {
	relPath, err := resolvePackageDir(pkgPath, workingDir)
	if err != nil {
		return nil, err
	}

	pkgDir := filepath.Join(workingDir, relPath)
	entries, err := os.ReadDir(pkgDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read package directory: %w", err)
	}

	var tests []string
	fset := token.NewFileSet()
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), "_test.go") {
			continue
		}
		f, err := parser.ParseFile(fset, filepath.Join(pkgDir, entry.Name()), nil, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", entry.Name(), err)
		}
		for _, decl := range f.Decls {
			fn, ok := decl.(*ast.FuncDecl)
			if !ok || fn.Recv != nil {
				continue
			}
			if strings.HasPrefix(fn.Name.Name, "Test") && fn.Name.Name != "TestMain" {
				tests = append(tests, fn.Name.Name)
			}
		}
	}
	return tests, nil
}

// FindTestPackages walks root for directories containing _test.go files and
// returns them as package patterns relative to workingDir, sorted. A
// trailing "/..." on root is accepted and ignored, matching go test's
// pattern notation.
func FindTestPackages(root, workingDir string) ([]string, error) {
	root = strings.TrimSuffix(root, "/...")
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("test directory %s does not exist", root)
	}

	seen := make(map[string]struct{})
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), "_test.go") {
			return nil
		}
		seen[filepath.Dir(path)] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}

	packages := make([]string, 0, len(seen))
	for dir := range seen {
		rel, err := filepath.Rel(workingDir, dir)
		if err != nil {
			return nil, fmt.Errorf("failed to relativize %s: %w", dir, err)
		}
		packages = append(packages, "./"+filepath.ToSlash(rel))
	}
	sort.Strings(packages)
	return packages, nil
}

// resolvePackageDir maps a package path onto a directory relative to the
// module root, consulting go.mod when the path is a full import path.
func resolvePackageDir(pkgPath, workingDir string) (string, error) {
	if strings.HasPrefix(pkgPath, "./") {
		return strings.TrimPrefix(pkgPath, "./"), nil
	}

	goModPath := filepath.Join(workingDir, "go.mod")
	content, err := os.ReadFile(goModPath)
	if err != nil {
		return "", fmt.Errorf("failed to find go.mod: %w", err)
	}
	mod, err := modfile.Parse(goModPath, content, nil)
	if err != nil {
		return "", fmt.Errorf("failed to parse go.mod: %w", err)
	}
	if mod.Module == nil || mod.Module.Mod.Path == "" {
		return "", fmt.Errorf("no module path declared in %s", goModPath)
	}
	moduleName := mod.Module.Mod.Path

	if !strings.HasPrefix(pkgPath, moduleName) {
		return "", fmt.Errorf("package %s is not in module %s", pkgPath, moduleName)
	}
	rel := strings.TrimPrefix(strings.TrimPrefix(pkgPath, moduleName), "/")
	if rel == "" {
		rel = "."
	}
	return rel, nil
}
