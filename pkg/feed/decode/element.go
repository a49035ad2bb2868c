package decode

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
)

// element is a generic markup node: a tag with attributes and child elements.
// Character data is ignored, the feed transports everything in attributes.
type element struct {
	name     string
	attrs    map[string]string
	children []*element
}

// childrenNamed returns all direct children with the given name. The result
// is always a slice, regardless if the feed sent one or many elements.
func (e *element) childrenNamed(name string) []*element {
	ret := make([]*element, 0, len(e.children))
	for _, c := range e.children {
		if c.name == name {
			ret = append(ret, c)
		}
	}
	return ret
}

var (
	errNoElement     = errors.New("no element found")
	errMultipleRoots = errors.New("more than one root element")
)

func parseElement(data []byte) (*element, error) {
	d := xml.NewDecoder(bytes.NewReader(data))
	d.Strict = true

	var root *element
	stack := make([]*element, 0, 4)
	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			el := &element{name: t.Name.Local, attrs: make(map[string]string, len(t.Attr))}
			for _, a := range t.Attr {
				el.attrs[a.Name.Local] = a.Value
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, errMultipleRoots
				}
				root = el
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, el)
			}
			stack = append(stack, el)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		}
	}
	if root == nil {
		return nil, errNoElement
	}
	return root, nil
}
