package chunk

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/python"
)

// extraction holds what the tree-sitter walk pulled out of one file.
type extraction struct {
	signatures []string
	imports    []string
}

// extractorFor returns the extraction function for a file extension, or
// nil when the language is not summarizable. Unsupported files still get
// counted and packed; they just carry no signature list.
func extractorFor(path string) func([]byte) extraction {
	switch {
	case strings.HasSuffix(path, ".py"), strings.HasSuffix(path, ".pyw"):
		return extractPython
	case strings.HasSuffix(path, ".go"):
		return extractGo
	default:
		return nil
	}
}

func extractPython(content []byte) extraction {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return extraction{}
	}
	defer tree.Close()

	lines := strings.Split(string(content), "\n")
	var ex extraction

	var walk func(node *sitter.Node, depth int)
	walk = func(node *sitter.Node, depth int) {
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			switch child.Type() {
			case "class_definition":
				ex.signatures = append(ex.signatures, signatureLine(lines, child, depth))
				if body := child.ChildByFieldName("body"); body != nil {
					walk(body, depth+1)
				}
			case "function_definition":
				ex.signatures = append(ex.signatures, signatureLine(lines, child, depth))
			case "decorated_definition":
				// The decorated inner definition carries the signature.
				walk(child, depth)
			case "import_statement", "import_from_statement":
				ex.imports = append(ex.imports, importName(child, content))
			}
		}
	}
	walk(tree.RootNode(), 0)
	return ex
}

func extractGo(content []byte) extraction {
	parser := sitter.NewParser()
	parser.SetLanguage(golang.GetLanguage())
	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return extraction{}
	}
	defer tree.Close()

	lines := strings.Split(string(content), "\n")
	var ex extraction
	root := tree.RootNode()

	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		switch child.Type() {
		case "function_declaration", "method_declaration":
			ex.signatures = append(ex.signatures, signatureLine(lines, child, 0))
		case "type_declaration":
			ex.signatures = append(ex.signatures, signatureLine(lines, child, 0))
		case "import_declaration":
			ex.imports = append(ex.imports, goImportPaths(child, content)...)
		}
	}
	return ex
}

// signatureLine returns the first source line of a definition, trimmed,
// indented two spaces per nesting level so methods read under their class.
func signatureLine(lines []string, node *sitter.Node, depth int) string {
	row := int(node.StartPoint().Row)
	if row < 0 || row >= len(lines) {
		return ""
	}
	sig := strings.TrimSpace(lines[row])
	// Bodies on the same line add noise; keep up to the opening brace or colon.
	if idx := strings.Index(sig, " {"); idx > 0 {
		sig = sig[:idx]
	}
	return strings.Repeat("  ", depth) + sig
}

// importName returns the dotted module path of a Python import statement.
func importName(node *sitter.Node, content []byte) string {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() == "dotted_name" || child.Type() == "aliased_import" || child.Type() == "relative_import" {
			name := string(content[child.StartByte():child.EndByte()])
			if idx := strings.Index(name, " as "); idx > 0 {
				name = name[:idx]
			}
			return name
		}
	}
	return strings.TrimSpace(string(content[node.StartByte():node.EndByte()]))
}

// goImportPaths returns the unquoted import paths of an import declaration.
func goImportPaths(node *sitter.Node, content []byte) []string {
	var paths []string
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if n.Type() == "interpreted_string_literal" {
			paths = append(paths, strings.Trim(string(content[n.StartByte():n.EndByte()]), `"`))
			return
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			visit(n.NamedChild(i))
		}
	}
	visit(node)
	return paths
}
