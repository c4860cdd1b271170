// Package script replays a YAML list of edits against an editor.
//
//	steps:
//	  - {action: edit, row: 0, field: plannedStartTime, value: "08:00"}
//	  - {action: add, row: 0}
//	  - {action: delete, row: 1}
//	  - {action: history, row: 0}
//	  - {action: company, value: cmp-external}
package script

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/zulandar/assignyard/internal/assignment"
	"github.com/zulandar/assignyard/internal/editor"
	"gopkg.in/yaml.v3"
)

// Step actions.
const (
	ActionEdit    = "edit"
	ActionAdd     = "add"
	ActionDelete  = "delete"
	ActionHistory = "history"
	ActionCompany = "company"
)

// Step is one scripted operation. Row is the target row index (for add,
// the row to insert after). Value is the field's text form for edits and
// the company id for company changes; empty erases.
type Step struct {
	Action string `yaml:"action"`
	Row    int    `yaml:"row"`
	Field  string `yaml:"field"`
	Value  string `yaml:"value"`
}

func (s Step) String() string {
	switch s.Action {
	case ActionEdit:
		return fmt.Sprintf("edit row %d %s=%q", s.Row, s.Field, s.Value)
	case ActionCompany:
		return fmt.Sprintf("company %q", s.Value)
	}
	return fmt.Sprintf("%s row %d", s.Action, s.Row)
}

// Script is an ordered list of steps.
type Script struct {
	Steps []Step `yaml:"steps"`
}

// CompanyResolver looks up a company by id.
type CompanyResolver func(ctx context.Context, id string) (*editor.Company, error)

// Load reads a script file.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("script: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals and validates a script.
func Parse(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("script: parse: %w", err)
	}
	var errs []string
	for i, st := range s.Steps {
		switch st.Action {
		case ActionEdit:
			if st.Field == "" {
				errs = append(errs, fmt.Sprintf("steps[%d].field is required", i))
			}
		case ActionAdd, ActionDelete, ActionHistory, ActionCompany:
		case "":
			errs = append(errs, fmt.Sprintf("steps[%d].action is required", i))
		default:
			errs = append(errs, fmt.Sprintf("steps[%d].action %q is unknown", i, st.Action))
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("script: validation failed: %s", strings.Join(errs, "; "))
	}
	return &s, nil
}

// Run applies every step to e in order and stops at the first failure.
func (s *Script) Run(ctx context.Context, e *editor.Editor, companies CompanyResolver) error {
	for i, st := range s.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := runStep(ctx, e, companies, st); err != nil {
			return fmt.Errorf("script: step %d (%s): %w", i+1, st, err)
		}
	}
	return nil
}

func runStep(ctx context.Context, e *editor.Editor, companies CompanyResolver, st Step) error {
	switch st.Action {
	case ActionEdit:
		c, err := assignment.ParseChange(assignment.FieldName(st.Field), st.Value)
		if err != nil {
			return err
		}
		return e.Apply(st.Row, c)
	case ActionAdd:
		return e.AddRow(st.Row)
	case ActionDelete:
		return e.DeleteRow(st.Row)
	case ActionHistory:
		return e.RequestHistory(st.Row)
	case ActionCompany:
		if st.Value == "" {
			e.SetResourceCompany(nil)
			return nil
		}
		if companies == nil {
			return fmt.Errorf("no company resolver")
		}
		c, err := companies(ctx, st.Value)
		if err != nil {
			return err
		}
		e.SetResourceCompany(c)
		return nil
	}
	return fmt.Errorf("unknown action %q", st.Action)
}
