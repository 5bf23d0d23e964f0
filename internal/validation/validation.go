// Package validation checks user supplied board text before it reaches the
// store or a backend. Every check is pure and returns a renderable message.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Field limits used by the board.
const (
	ListNameMin           = 3
	ListNameMax           = 15
	ProjectTitleMin       = 5
	ProjectTitleMax       = 20
	ProjectDescriptionMin = 5
	ProjectDescriptionMax = 20
)

// Rule describes one value to check. Zero MinLength or MaxLength disables that bound.
type Rule struct {
	Value     string
	Required  bool
	MinLength int
	MaxLength int
	Label     string
}

// Validate returns the first failing message in the order required, too short,
// too long, or "" when the value is acceptable. The value is trimmed first.
func Validate(r Rule) string {
	label := strings.ToUpper(r.Label)
	rules := make([]validation.Rule, 0, 3)
	if r.Required {
		rules = append(rules, validation.Required.Error(
			fmt.Sprintf("The %s value is required.", label)))
	}
	if r.MinLength > 0 {
		// RuneLength accepts empty values; the lower bound applies to them too.
		msg := fmt.Sprintf("The %s value must be at least %d characters long.", label, r.MinLength)
		rules = append(rules, validation.By(func(value any) error {
			if utf8.RuneCountInString(value.(string)) < r.MinLength {
				return errors.New(msg)
			}
			return nil
		}))
	}
	if r.MaxLength > 0 {
		rules = append(rules, validation.RuneLength(0, r.MaxLength).Error(
			fmt.Sprintf("The %s value must be at max %d characters long.", label, r.MaxLength)))
	}

	if err := validation.Validate(strings.TrimSpace(r.Value), rules...); err != nil {
		return err.Error()
	}
	return ""
}

// ListName is the rule for list names.
func ListName(v string) Rule {
	return Rule{Value: v, Required: true, MinLength: ListNameMin, MaxLength: ListNameMax, Label: "name"}
}

// ProjectTitle is the rule for project titles.
func ProjectTitle(v string) Rule {
	return Rule{Value: v, Required: true, MinLength: ProjectTitleMin, MaxLength: ProjectTitleMax, Label: "title"}
}

// ProjectDescription is the rule for project descriptions.
func ProjectDescription(v string) Rule {
	return Rule{Value: v, Required: true, MinLength: ProjectDescriptionMin, MaxLength: ProjectDescriptionMax, Label: "description"}
}
