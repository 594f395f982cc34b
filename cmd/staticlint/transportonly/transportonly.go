// Package transportonly defines an analyzer that keeps outbound HTTP calls
// inside internal/transport, where timeouts, rate limiting, logging,
// metrics and error mapping are applied.
package transportonly

import (
	"go/ast"
	"go/types"
	"path/filepath"
	"strings"

	"golang.org/x/tools/go/analysis"
)

// Analyzer reports direct HTTP client use outside the transport package.
var Analyzer = &analysis.Analyzer{
	Name: "transportonly",
	Doc:  "reports outbound HTTP clients created or used outside internal/transport",
	Run:  run,
}

const transportPkgSuffix = "/internal/transport"

var forbidden = map[string]map[string]bool{
	"net/http": {
		"Get":                   true,
		"Head":                  true,
		"Post":                  true,
		"PostForm":              true,
		"NewRequest":            true,
		"NewRequestWithContext": true,
		"DefaultClient":         true,
	},
	"github.com/go-resty/resty/v2": {
		"New":           true,
		"NewWithClient": true,
	},
}

func run(pass *analysis.Pass) (interface{}, error) {
	if strings.HasSuffix(pass.Pkg.Path(), transportPkgSuffix) {
		return nil, nil
	}

	for _, file := range pass.Files {
		filename := pass.Fset.File(file.Pos()).Name()
		if strings.HasSuffix(filename, "_test.go") || isGoBuildCacheFile(filename) {
			continue
		}

		ast.Inspect(file, func(n ast.Node) bool {
			sel, ok := n.(*ast.SelectorExpr)
			if !ok {
				return true
			}
			ident, ok := sel.X.(*ast.Ident)
			if !ok {
				return true
			}
			pkgName, ok := pass.TypesInfo.Uses[ident].(*types.PkgName)
			if !ok {
				return true
			}

			path := pkgName.Imported().Path()
			if forbidden[path][sel.Sel.Name] {
				pass.Reportf(sel.Pos(), "%s.%s bypasses the transport client, use internal/transport", path, sel.Sel.Name)
			}

			return true
		})
	}

	return nil, nil
}

func isGoBuildCacheFile(path string) bool {
	path = filepath.ToSlash(path)
	return strings.Contains(path, "/go-build/")
}
