// Package stanza provides the tree structured node that carries protocol records over the wire.
package stanza

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Attrs holds Node attributes.
type Attrs map[string]string

// Node is a stanza tree element.
// Content is either nil, a []byte or a []Node.
type Node struct {
	Tag     string
	Attrs   Attrs
	Content any
}

// Children returns the child nodes of self, nil if Content is not a []Node.
func (self Node) Children() []Node {
	children, _ := self.Content.([]Node)
	return children
}

// Bytes returns self binary Content, nil if Content is not a []byte.
func (self Node) Bytes() []byte {
	content, _ := self.Content.([]byte)
	return content
}

// ChildByTag follows the tags path starting from self.
// It returns the last node of the path and true if every tag was found.
// The first matching child is selected at each level.
func (self Node) ChildByTag(tags ...string) (Node, bool) {
	node := self
	for _, tag := range tags {
		found := false
		for _, child := range node.Children() {
			if tag == child.Tag {
				node = child
				found = true
				break
			}
		}
		if !found {
			return Node{}, false
		}
	}

	return node, true
}

// OptionalChildByTag is like ChildByTag but returns a nil *Node when the path is missing.
func (self Node) OptionalChildByTag(tags ...string) *Node {
	node, found := self.ChildByTag(tags...)
	if !found {
		return nil
	}
	return &node
}

// Attr returns the key attribute value, "" if missing.
func (self Node) Attr(key string) string {
	return self.Attrs[key]
}

// LookupAttr returns the key attribute value and true if it is present.
func (self Node) LookupAttr(key string) (string, bool) {
	value, found := self.Attrs[key]
	return value, found
}

// String returns an XML like rendering of self, with binary content hex encoded.
func (self Node) String() string {
	var sb strings.Builder
	self.render(&sb)
	return sb.String()
}

func (self Node) render(sb *strings.Builder) {
	sb.WriteString("<")
	sb.WriteString(self.Tag)
	for _, key := range slices.Sorted(maps.Keys(self.Attrs)) {
		fmt.Fprintf(sb, " %s=%q", key, self.Attrs[key])
	}
	switch content := self.Content.(type) {
	case []Node:
		sb.WriteString(">")
		for _, child := range content {
			child.render(sb)
		}
	case []byte:
		fmt.Fprintf(sb, "><!-- %d bytes -->%x", len(content), content)
	default:
		sb.WriteString("/>")
		return
	}
	sb.WriteString("</")
	sb.WriteString(self.Tag)
	sb.WriteString(">")
}
