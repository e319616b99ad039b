// Package task handles parsing and representation of YAML task files.
//
// A task file names an app and a list of steps:
//
//	name: send greeting
//	app:
//	  package: com.app
//	  activity: .Main
//	steps:
//	  - tap:
//	      id: com.app:id/search_box
//	  - input:
//	      id: com.app:id/search_box
//	      value: "Ali"
//	  - "Alice"
//	  - wait:
//	      text: Chats
//
// A bare string step is shorthand for tapping the element with that text.
package task

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/uitap-dev/uitap/pkg/core"
	"github.com/uitap-dev/uitap/pkg/locator"
	"github.com/uitap-dev/uitap/pkg/session"
)

// Task is one parsed task file.
type Task struct {
	Name       string
	App        session.App
	Steps      []session.Step
	SourcePath string
}

// ParseError represents a parsing error with location info.
type ParseError struct {
	Path    string
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ParseFile parses a single YAML task file.
func ParseFile(path string) (*Task, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- path is user-provided task file
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Parse(data, path)
}

// Parse parses YAML task content.
func Parse(data []byte, sourcePath string) (*Task, error) {
	var doc struct {
		Name string `yaml:"name"`
		App  struct {
			Package  string `yaml:"package"`
			Activity string `yaml:"activity"`
		} `yaml:"app"`
		Steps []yaml.Node `yaml:"steps"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{
			Path:    sourcePath,
			Message: fmt.Sprintf("invalid task: %v", err),
		}
	}

	task := &Task{
		Name:       doc.Name,
		App:        session.App{Package: doc.App.Package, Activity: doc.App.Activity},
		SourcePath: sourcePath,
	}

	if len(doc.Steps) == 0 {
		return nil, &ParseError{
			Path:    sourcePath,
			Line:    1,
			Message: "task has no steps",
		}
	}

	for _, node := range doc.Steps {
		step, err := parseStep(&node, sourcePath)
		if err != nil {
			return nil, err
		}
		task.Steps = append(task.Steps, step)
	}

	return task, nil
}

var actions = map[string]session.Action{
	"tap":       session.ActionTap,
	"longPress": session.ActionLongPress,
	"swipe":     session.ActionSwipe,
	"input":     session.ActionInput,
	"wait":      session.ActionWait,
}

func parseStep(node *yaml.Node, sourcePath string) (session.Step, error) {
	// "- Alice" taps the element with that text.
	if node.Kind == yaml.ScalarNode {
		if node.Value == "" {
			return session.Step{}, &ParseError{
				Path:    sourcePath,
				Line:    node.Line,
				Message: "empty step",
			}
		}
		return session.Step{
			Name:   node.Value,
			Action: session.ActionTap,
			Target: locator.Criteria{Text: node.Value},
		}, nil
	}

	if node.Kind != yaml.MappingNode || len(node.Content) < 2 {
		return session.Step{}, &ParseError{
			Path:    sourcePath,
			Line:    node.Line,
			Message: "step must be an action mapping or a text string",
		}
	}

	key := node.Content[0].Value
	action, ok := actions[key]
	if !ok {
		return session.Step{}, &ParseError{
			Path:    sourcePath,
			Line:    node.Line,
			Message: fmt.Sprintf("unknown action: %s", key),
		}
	}

	return decodeStep(action, node.Content[1], sourcePath)
}

// stepBody is the YAML shape shared by all action mappings. Selector
// fields pick the target; the rest parameterize the action.
type stepBody struct {
	Name string `yaml:"name"`

	// Selector
	ID        string `yaml:"id"`
	Text      string `yaml:"text"`
	ExactText bool   `yaml:"exactText"`
	Class     string `yaml:"class"`
	Template  string `yaml:"template"`
	Index     *int   `yaml:"index"`

	// Action parameters
	Value      string `yaml:"value"`    // input: text to type
	DeltaX     int    `yaml:"deltaX"`   // swipe
	DeltaY     int    `yaml:"deltaY"`   // swipe
	DurationMs int    `yaml:"duration"` // swipe drag / longPress hold, ms

	// Overrides
	TimeoutMs int  `yaml:"timeout"` // locate timeout, ms
	Retries   *int `yaml:"retries"`
}

func decodeStep(action session.Action, value *yaml.Node, sourcePath string) (session.Step, error) {
	var body stepBody

	switch value.Kind {
	case yaml.ScalarNode:
		// "- tap: Send" selects by text; "- input: hi" types into the
		// focused field.
		if action == session.ActionInput {
			body.Value = value.Value
		} else {
			body.Text = value.Value
		}
	case yaml.MappingNode:
		if err := value.Decode(&body); err != nil {
			return session.Step{}, &ParseError{
				Path:    sourcePath,
				Line:    value.Line,
				Message: fmt.Sprintf("invalid %s step: %v", action, err),
			}
		}
	default:
		return session.Step{}, &ParseError{
			Path:    sourcePath,
			Line:    value.Line,
			Message: fmt.Sprintf("%s step must be a mapping or string", action),
		}
	}

	step := session.Step{
		Name:   body.Name,
		Action: action,
		Target: locator.Criteria{
			ResourceID: body.ID,
			Text:       body.Text,
			ExactText:  body.ExactText,
			ClassName:  body.Class,
			Template:   body.Template,
			Index:      body.Index,
		},
		Text:     body.Value,
		Delta:    core.Point{X: body.DeltaX, Y: body.DeltaY},
		Duration: time.Duration(body.DurationMs) * time.Millisecond,
		Timeout:  time.Duration(body.TimeoutMs) * time.Millisecond,
		Retries:  body.Retries,
	}
	if step.Name == "" {
		step.Name = defaultStepName(step)
	}

	if err := validateStep(step, value, sourcePath); err != nil {
		return session.Step{}, err
	}
	return step, nil
}

func validateStep(step session.Step, node *yaml.Node, sourcePath string) error {
	if step.Target.IsEmpty() && step.Action != session.ActionInput {
		return &ParseError{
			Path:    sourcePath,
			Line:    node.Line,
			Message: fmt.Sprintf("%s step needs a selector", step.Action),
		}
	}
	if step.Action == session.ActionInput && step.Text == "" {
		return &ParseError{
			Path:    sourcePath,
			Line:    node.Line,
			Message: "input step needs a value",
		}
	}
	if step.Action == session.ActionSwipe && step.Delta == (core.Point{}) {
		return &ParseError{
			Path:    sourcePath,
			Line:    node.Line,
			Message: "swipe step needs deltaX or deltaY",
		}
	}
	return nil
}

func defaultStepName(step session.Step) string {
	if step.Target.IsEmpty() {
		return string(step.Action)
	}
	return fmt.Sprintf("%s %s", step.Action, step.Target.Describe())
}
