// Package testlist enumerates the test functions of a package from source.
// The session's collection phase uses it to know every identifier a package
// will produce before any test runs, so baseline matches can be flagged up
// front.
package testlist

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/mod/modfile"
)

// FindTestFunctions returns the names of the top-level Test functions of
// pkgPath. Relative paths ("./foo") resolve against workDir directly;
// module-qualified paths resolve through workDir's go.mod.
func FindTestFunctions(pkgPath string, workDir string) ([]string, error) {
	pkgDir, err := ResolvePackageDir(pkgPath, workDir)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(pkgDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read package directory: %w", err)
	}

	fset := token.NewFileSet()
	var testFunctions []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), "_test.go") {
			continue
		}

		filePath := filepath.Join(pkgDir, entry.Name())
		f, err := parser.ParseFile(fset, filePath, nil, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", entry.Name(), err)
		}

		for _, decl := range f.Decls {
			funcDecl, ok := decl.(*ast.FuncDecl)
			if !ok || funcDecl.Recv != nil {
				continue
			}
			if isTestFunction(funcDecl) {
				testFunctions = append(testFunctions, funcDecl.Name.Name)
			}
		}
	}

	return testFunctions, nil
}

// ImportPath resolves a package path to the module-qualified import path
// that `go test -json` reports in its events. Module-qualified inputs pass
// through unchanged; relative paths resolve against workDir's go.mod.
func ImportPath(pkgPath string, workDir string) (string, error) {
	if pkgPath != "." && !strings.HasPrefix(pkgPath, "./") {
		return pkgPath, nil
	}

	goModPath := filepath.Join(workDir, "go.mod")
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

	rel := strings.Trim(strings.TrimPrefix(pkgPath, "."), "/")
	if rel == "" {
		return moduleName, nil
	}
	return moduleName + "/" + rel, nil
}

// ResolvePackageDir maps a package path to the directory that holds its
// source files.
func ResolvePackageDir(pkgPath string, workDir string) (string, error) {
	if pkgPath == "." || strings.HasPrefix(pkgPath, "./") {
		return filepath.Join(workDir, strings.TrimPrefix(pkgPath, "./")), nil
	}

	goModPath := filepath.Join(workDir, "go.mod")
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
	if !strings.HasPrefix(pkgPath, moduleName) {
		return "", fmt.Errorf("package %s is not in module %s", pkgPath, moduleName)
	}

	relPath := strings.Trim(strings.TrimPrefix(pkgPath, moduleName), "/")
	if relPath == "" {
		relPath = "."
	}
	return filepath.Join(workDir, relPath), nil
}

// ExpandPattern expands a "/..." wildcard package pattern into the concrete
// packages beneath it that contain test files, returned as "./"-relative
// paths. Non-wildcard patterns come back as-is. Directories the go tool
// ignores (testdata, vendor, "." and "_" prefixes) are not descended into.
func ExpandPattern(pkgPath string, workDir string) ([]string, error) {
	if !strings.HasSuffix(pkgPath, "/...") {
		return []string{pkgPath}, nil
	}

	base := strings.TrimSuffix(pkgPath, "/...")
	if base == "." || base == "" {
		base = "."
	}
	baseDir, err := ResolvePackageDir(base, workDir)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	err = filepath.WalkDir(baseDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != baseDir && (name == "testdata" || name == "vendor" ||
				strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), "_test.go") {
			return nil
		}
		rel, err := filepath.Rel(workDir, filepath.Dir(path))
		if err != nil {
			return err
		}
		pkg := "./" + filepath.ToSlash(rel)
		if pkg == "./." {
			pkg = "."
		}
		seen[pkg] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to expand package pattern %s: %w", pkgPath, err)
	}

	pkgs := make([]string, 0, len(seen))
	for pkg := range seen {
		pkgs = append(pkgs, pkg)
	}
	sort.Strings(pkgs)
	return pkgs, nil
}

// isTestFunction reports whether the declaration has the shape the go tool
// treats as a test: Test-prefixed, not TestMain, and a single *testing.T
// (or *testing.B/*testing.F for the sibling kinds) parameter.
func isTestFunction(fn *ast.FuncDecl) bool {
	name := fn.Name.Name
	if !strings.HasPrefix(name, "Test") || name == "TestMain" {
		return false
	}
	// "Testing" style helpers are not tests; the rune after the prefix must
	// not be lowercase.
	if rest := strings.TrimPrefix(name, "Test"); rest != "" {
		r := rune(rest[0])
		if r >= 'a' && r <= 'z' {
			return false
		}
	}
	if fn.Type.Params == nil || len(fn.Type.Params.List) != 1 {
		return false
	}
	star, ok := fn.Type.Params.List[0].Type.(*ast.StarExpr)
	if !ok {
		return false
	}
	sel, ok := star.X.(*ast.SelectorExpr)
	if !ok {
		return false
	}
	ident, ok := sel.X.(*ast.Ident)
	return ok && ident.Name == "testing" && sel.Sel.Name == "T"
}
