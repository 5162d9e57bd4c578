package gen

import (
	"bytes"
	"errors"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/mod/modfile"

	"github.com/muurk/tagreg"
	"github.com/muurk/tagreg/internal/logging"
)

const (
	// Directive marks a type declaration for tag generation.
	Directive = "//tagreg:type"

	// OutputFile is the name of the generated file.
	OutputFile = "tags_gen.go"
)

// TypeTag is one generated type/identifier pair.
type TypeTag struct {
	Name string    // type name as declared
	Key  string    // registry key the identifier was resolved under
	ID   uuid.UUID // resolved identifier
}

// Result describes one generation run.
type Result struct {
	Package    string    // package name of the scanned directory
	OutputPath string    // written file, empty when no annotated types exist
	Types      []TypeTag // sorted by type name
}

// Run scans dir for annotated types, resolves their tags through reg,
// and writes the generated file into dir. When the directory has no
// annotated types, nothing is written.
func Run(reg *tagreg.Registry, dir string) (*Result, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", dir, err)
	}

	pkgName, names, err := scan(absDir)
	if err != nil {
		return nil, err
	}

	res := &Result{Package: pkgName}
	if len(names) == 0 {
		logging.Debug("no annotated types found", zap.String("dir", absDir))
		return res, nil
	}
	sort.Strings(names)
	logging.Debug("annotated types found",
		zap.String("dir", absDir),
		zap.Int("count", len(names)),
	)

	importPath := ""
	if reg.Keying() == tagreg.KeyingQualified {
		importPath, err = packageImportPath(absDir)
		if err != nil {
			return nil, err
		}
	}

	for _, name := range names {
		key := name
		if importPath != "" {
			key = importPath + "." + name
		}
		id, err := reg.ResolveTypeName(key)
		if err != nil {
			return nil, err
		}
		res.Types = append(res.Types, TypeTag{Name: name, Key: key, ID: id})
	}

	out, err := render(pkgName, res.Types)
	if err != nil {
		return nil, err
	}

	res.OutputPath = filepath.Join(absDir, OutputFile)
	if err := os.WriteFile(res.OutputPath, out, 0o644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", res.OutputPath, err)
	}
	logging.Info("generated type tags",
		zap.String("file", res.OutputPath),
		zap.Int("types", len(res.Types)),
	)
	return res, nil
}

// scan parses every non-test Go file in dir and collects the names of
// type declarations carrying the directive.
func scan(dir string) (pkgName string, names []string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	fset := token.NewFileSet()
	for _, entry := range entries {
		fname := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(fname, ".go") {
			continue
		}
		if strings.HasSuffix(fname, "_test.go") || fname == OutputFile {
			continue
		}

		file, err := parser.ParseFile(fset, filepath.Join(dir, fname), nil, parser.ParseComments)
		if err != nil {
			return "", nil, fmt.Errorf("parsing %s: %w", fname, err)
		}
		if pkgName == "" {
			pkgName = file.Name.Name
		}

		for _, decl := range file.Decls {
			gd, ok := decl.(*ast.GenDecl)
			if !ok || gd.Tok != token.TYPE {
				continue
			}
			declMarked := hasDirective(gd.Doc)
			for _, spec := range gd.Specs {
				ts, ok := spec.(*ast.TypeSpec)
				if !ok {
					continue
				}
				if declMarked || hasDirective(ts.Doc) {
					names = append(names, ts.Name.Name)
				}
			}
		}
	}

	if pkgName == "" && len(names) > 0 {
		return "", nil, fmt.Errorf("no package clause found in %s", dir)
	}
	return pkgName, names, nil
}

func hasDirective(cg *ast.CommentGroup) bool {
	if cg == nil {
		return false
	}
	for _, c := range cg.List {
		if strings.TrimSpace(c.Text) == Directive {
			return true
		}
	}
	return false
}

// packageImportPath derives the import path of the package in dir from
// the enclosing module's go.mod.
func packageImportPath(dir string) (string, error) {
	modDir := dir
	for {
		data, err := os.ReadFile(filepath.Join(modDir, "go.mod"))
		if err == nil {
			modPath := modfile.ModulePath(data)
			if modPath == "" {
				return "", fmt.Errorf("go.mod in %s has no module path", modDir)
			}
			rel, err := filepath.Rel(modDir, dir)
			if err != nil {
				return "", err
			}
			if rel == "." {
				return modPath, nil
			}
			return path.Join(modPath, filepath.ToSlash(rel)), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("reading go.mod: %w", err)
		}
		parent := filepath.Dir(modDir)
		if parent == modDir {
			return "", fmt.Errorf("no go.mod found above %s", dir)
		}
		modDir = parent
	}
}

// render produces the formatted generated file.
func render(pkgName string, tags []TypeTag) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "// Code generated by tagreg. DO NOT EDIT.\n\n")
	fmt.Fprintf(&buf, "package %s\n\n", pkgName)
	fmt.Fprintf(&buf, "import \"github.com/google/uuid\"\n\n")
	for _, t := range tags {
		fmt.Fprintf(&buf, "// %sTypeTag is the stable identifier for %s.\n", t.Name, t.Name)
		fmt.Fprintf(&buf, "var %sTypeTag = uuid.MustParse(%q)\n\n", t.Name, t.ID.String())
	}

	out, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("formatting generated source: %w", err)
	}
	return out, nil
}
