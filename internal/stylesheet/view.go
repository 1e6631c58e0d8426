package stylesheet

import (
	"slices"

	"github.com/beevik/etree"
)

// standaloneCopy copies e and re-declares on the copy every namespace
// binding e inherits from its ancestors, so the copy parses the same way
// once it is cut loose from the tree.
func standaloneCopy(e *etree.Element) *etree.Element {
	cp := e.Copy()

	declared := make(map[string]bool)
	for _, a := range cp.Attr {
		if isNamespaceDecl(a) {
			declared[a.FullKey()] = true
		}
	}

	for p := e.Parent(); p != nil; p = p.Parent() {
		for _, a := range p.Attr {
			if !isNamespaceDecl(a) || declared[a.FullKey()] {
				continue
			}
			cp.CreateAttr(a.FullKey(), a.Value)
			declared[a.FullKey()] = true
		}
	}

	return cp
}

func isNamespaceDecl(a etree.Attr) bool {
	return a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns")
}

// withoutElement returns a deep copy of doc with the element at the same
// position as e removed. doc itself is left untouched.
func withoutElement(doc *etree.Document, e *etree.Element) *etree.Document {
	var path []int
	for cur := e; cur.Parent() != nil; cur = cur.Parent() {
		path = append(path, cur.Index())
	}
	slices.Reverse(path)

	view := doc.Copy()
	node := &view.Element
	for i, idx := range path {
		if i == len(path)-1 {
			node.RemoveChildAt(idx)
			break
		}
		next, ok := node.Child[idx].(*etree.Element)
		if !ok {
			break
		}
		node = next
	}
	return view
}
