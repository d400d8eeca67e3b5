package behavior

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Def is the serialisable form of a tree, as produced by definition loaders.
//
//	{"kind": "sequence", "children": [
//	    {"kind": "leaf", "action": "find_task"},
//	    {"kind": "for", "until": "success", "limit": 3, "children": [{"kind": "leaf", "action": "work"}]}
//	]}
type Def struct {
	Kind         string `json:"kind"`
	Children     []Def  `json:"children,omitempty"`
	Until        string `json:"until,omitempty"`
	Limit        int    `json:"limit,omitempty"`
	Action       string `json:"action,omitempty"`
	Precondition string `json:"precondition,omitempty"`
	// Ref names a tree already registered in the Library.
	Ref string `json:"ref,omitempty"`
}

// Compile builds the tree described by def. Subtree references are resolved
// against lib, which may be nil if def has none.
func Compile(name string, def Def, lib *Library) (*Tree, error) {
	b := NewBuilder(name)
	root, err := compileDef(b, def, lib, "$")
	if err != nil {
		return nil, err
	}
	return b.Build(root)
}

// ParseDef decodes a JSON tree definition and compiles it.
func ParseDef(name string, data []byte, lib *Library) (*Tree, error) {
	var def Def
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to decode tree %q: %w", name, err)
	}
	return Compile(name, def, lib)
}

func compileDef(b *Builder, def Def, lib *Library, path string) (NodeID, error) {
	children := make([]NodeID, 0, len(def.Children))
	for i, c := range def.Children {
		id, err := compileDef(b, c, lib, fmt.Sprintf("%s.children[%d]", path, i))
		if err != nil {
			return 0, err
		}
		children = append(children, id)
	}
	single := func() (NodeID, error) {
		if len(children) != 1 {
			return 0, fmt.Errorf("%w: %s: %q takes exactly one child, got %d", ErrMalformedTree, path, def.Kind, len(children))
		}
		return children[0], nil
	}

	switch strings.ToLower(def.Kind) {
	case "sequence":
		return b.Sequence(children...), nil
	case "selector", "fallback":
		return b.Selector(children...), nil
	case "all":
		return b.All(children...), nil
	case "not", "reverse":
		child, err := single()
		if err != nil {
			return 0, err
		}
		return b.Reverse(child), nil
	case "for":
		child, err := single()
		if err != nil {
			return 0, err
		}
		until, err := ParseResult(def.Until)
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %w", ErrMalformedTree, path, err)
		}
		return b.ForLoop(child, until, def.Limit), nil
	case "leaf":
		return b.Leaf(def.Action, def.Precondition), nil
	case "subtree":
		if lib == nil {
			return 0, fmt.Errorf("%w: %s: subtree %q without a library", ErrMalformedTree, path, def.Ref)
		}
		h, ok := lib.Lookup(def.Ref)
		if !ok {
			return 0, fmt.Errorf("%w: %s: unknown subtree %q", ErrMalformedTree, path, def.Ref)
		}
		return b.Subtree(lib.Get(h)), nil
	default:
		return 0, fmt.Errorf("%w: %s: unknown node kind %q", ErrMalformedTree, path, def.Kind)
	}
}
