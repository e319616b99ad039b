// Package hierarchy parses Android UI hierarchy dumps into an element tree
// and provides the queries the locator runs against it.
package hierarchy

import (
	"encoding/xml"
	"io"
	"strconv"
	"strings"

	"github.com/uitap-dev/uitap/pkg/core"
)

// Element is a node in the parsed UI hierarchy. Elements are immutable once
// parsed and discarded with their snapshot.
type Element struct {
	ResourceID string
	ClassName  string
	Text       string
	Clickable  bool
	Enabled    bool
	Visible    bool
	Bounds     core.Bounds
	Children   []*Element
	Depth      int
}

// Center returns the midpoint of the element's bounding rectangle.
func (e *Element) Center() core.Point {
	return e.Bounds.Center()
}

// Parse parses a UI hierarchy XML dump into an element tree and returns the
// root. Supports both dump formats:
//   - UIAutomator dump: class name as element tag (e.g. <android.widget.Button>)
//   - generic format: <node> elements with a class attribute
func Parse(raw string) (*Element, error) {
	decoder := xml.NewDecoder(strings.NewReader(raw))

	var roots []*Element
	foundHierarchy := false
	var parseElement func() (*Element, error)

	parseElement = func() (*Element, error) {
		for {
			token, err := decoder.Token()
			if err != nil {
				return nil, err
			}

			switch t := token.(type) {
			case xml.StartElement:
				// The hierarchy wrapper itself is not an element.
				if t.Name.Local == "hierarchy" {
					foundHierarchy = true
					continue
				}

				elem := &Element{
					ClassName: t.Name.Local, // Class name is the element tag
					Visible:   true,
				}

				for _, attr := range t.Attr {
					switch attr.Name.Local {
					case "text":
						elem.Text = attr.Value
					case "resource-id":
						elem.ResourceID = attr.Value
					case "class":
						elem.ClassName = attr.Value // Override if class attr exists
					case "bounds":
						elem.Bounds = parseBounds(attr.Value)
					case "clickable":
						elem.Clickable = attr.Value == "true"
					case "enabled":
						elem.Enabled = attr.Value == "true"
					case "displayed", "visible-to-user":
						elem.Visible = attr.Value != "false"
					}
				}

				for {
					child, err := parseElement()
					if err != nil || child == nil {
						if err != nil && err != io.EOF {
							return nil, err
						}
						break
					}
					elem.Children = append(elem.Children, child)
				}

				return elem, nil

			case xml.EndElement:
				return nil, nil // End of current element
			}
		}
	}

	var parseErr error
	for {
		elem, err := parseElement()
		if err != nil {
			if err != io.EOF {
				parseErr = err
			}
			break
		}
		if elem != nil {
			roots = append(roots, elem)
		}
	}

	// A syntax error anywhere invalidates the whole dump, even when earlier
	// sibling windows parsed; a partial tree would silently hide elements.
	if parseErr != nil {
		return nil, core.ErrParse.WithCause(parseErr)
	}
	if !foundHierarchy {
		return nil, core.ErrParse.WithMessage("invalid dump: no hierarchy element found")
	}
	if len(roots) == 0 {
		return nil, core.ErrParse.WithMessage("invalid dump: hierarchy has no nodes")
	}

	root := roots[0]
	// Multi-window dumps have siblings under <hierarchy>; fold them under a
	// synthetic root so callers always traverse one tree.
	if len(roots) > 1 {
		root = &Element{ClassName: "hierarchy", Visible: true, Children: roots}
	}
	setDepth(root, 0)

	return root, nil
}

func setDepth(e *Element, depth int) {
	e.Depth = depth
	for _, c := range e.Children {
		setDepth(c, depth+1)
	}
}

// parseBounds parses the Android bounds string "[x1,y1][x2,y2]".
func parseBounds(s string) core.Bounds {
	s = strings.ReplaceAll(s, "][", ",")
	s = strings.Trim(s, "[]")
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return core.Bounds{}
	}

	x1, err1 := strconv.Atoi(parts[0])
	y1, err2 := strconv.Atoi(parts[1])
	x2, err3 := strconv.Atoi(parts[2])
	y2, err4 := strconv.Atoi(parts[3])
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return core.Bounds{}
	}

	return core.Bounds{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// Find collects every node under root (root included) for which pred holds,
// in depth-first pre-order. The order matches the dump's encoding:
// top-to-bottom, left-to-right.
func Find(root *Element, pred func(*Element) bool) []*Element {
	if root == nil {
		return nil
	}

	var result []*Element
	stack := []*Element{root}
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if pred(e) {
			result = append(result, e)
		}
		// Push children in reverse so the leftmost is visited first.
		for i := len(e.Children) - 1; i >= 0; i-- {
			stack = append(stack, e.Children[i])
		}
	}
	return result
}

// FindClickableDescendant returns the first clickable node at or below el in
// depth-first pre-order, preferring el itself over its descendants. Returns
// nil when no clickable node exists. Traversal uses an explicit stack so
// deeply nested hierarchies cannot exhaust the call stack.
func FindClickableDescendant(el *Element) *Element {
	if el == nil {
		return nil
	}

	stack := []*Element{el}
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if e.Clickable {
			return e
		}
		for i := len(e.Children) - 1; i >= 0; i-- {
			stack = append(stack, e.Children[i])
		}
	}
	return nil
}

// Predicate constructors. Text matching is case-sensitive; callers needing
// case-insensitivity normalize both sides beforehand.

// ByResourceID matches the resource-id attribute exactly.
func ByResourceID(id string) func(*Element) bool {
	return func(e *Element) bool { return e.ResourceID == id }
}

// ByClass matches the class name exactly.
func ByClass(class string) func(*Element) bool {
	return func(e *Element) bool { return e.ClassName == class }
}

// ByText matches the displayed text exactly.
func ByText(text string) func(*Element) bool {
	return func(e *Element) bool { return e.Text == text }
}

// ByTextContains matches elements whose text contains the substring.
func ByTextContains(sub string) func(*Element) bool {
	return func(e *Element) bool { return e.Text != "" && strings.Contains(e.Text, sub) }
}

// And combines predicates; all must hold.
func And(preds ...func(*Element) bool) func(*Element) bool {
	return func(e *Element) bool {
		for _, p := range preds {
			if !p(e) {
				return false
			}
		}
		return true
	}
}
