// Copyright (c) 2025 Formplay
// Licensed under the MIT License. See LICENSE file in the project root for details.

package form

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// InfoAnswer is submitted for display-only questions in place of their
// empty answer.
const InfoAnswer = "OK"

// AccumulateAnswers collects the answers submitted with a form. Only the
// children of non-question nodes are traversed. A question contributes its
// answer when it is locally valid; info questions contribute InfoAnswer.
// prevalidated is false when any question is locally invalid.
func AccumulateAnswers(nodes []*Node) (answers map[string]any, prevalidated bool) {
	answers = make(map[string]any)
	prevalidated = true
	var visit func([]*Node)
	visit = func(nodes []*Node) {
		for _, n := range nodes {
			if !n.IsQuestion() {
				visit(n.Children)
				continue
			}
			if !n.Valid() {
				prevalidated = false
				continue
			}
			if n.Datatype == DatatypeInfo {
				answers[n.Ix] = InfoAnswer
			} else {
				answers[n.Ix] = n.Answer
			}
		}
	}
	visit(nodes)
	return answers, prevalidated
}

// Local validation messages.
const (
	MsgRequired    = "An answer is required."
	MsgWholeNumber = "Not a valid whole number."
	MsgNumber      = "Not a valid number."
	MsgChoice      = "Not a valid choice."
)

// SetAnswer stores value on n and re-runs local validation.
func (n *Node) SetAnswer(value any) {
	n.Answer = value
	n.Validate()
}

// Validate runs the local checks and records the result in
// ValidationError.
func (n *Node) Validate() {
	n.ValidationError = ""
	if !n.IsQuestion() || n.IsInfo() {
		return
	}
	if isEmpty(n.Answer) {
		if n.Required {
			n.ValidationError = MsgRequired
		}
		return
	}
	switch n.Datatype {
	case DatatypeInt, DatatypeLong:
		if _, err := toInt(n.Answer); err != nil {
			n.ValidationError = MsgWholeNumber
		}
	case DatatypeFloat, DatatypeDecimal:
		if _, err := toFloat(n.Answer); err != nil {
			n.ValidationError = MsgNumber
		}
	case DatatypeSelect:
		if i, err := toInt(n.Answer); err != nil || i < 1 || (len(n.Choices) > 0 && i > len(n.Choices)) {
			n.ValidationError = MsgChoice
		}
	}
}

// CoerceAnswer converts raw user input into the answer representation the
// service expects for n's datatype. Empty input yields a nil answer.
// Select answers are 1-based choice numbers; a choice label is accepted too.
func CoerceAnswer(n *Node, raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	switch n.Datatype {
	case DatatypeInt, DatatypeLong:
		v, err := strconv.Atoi(raw)
		if err != nil {
			return nil, errors.New(MsgWholeNumber)
		}
		return v, nil
	case DatatypeFloat, DatatypeDecimal:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, errors.New(MsgNumber)
		}
		return v, nil
	case DatatypeSelect:
		return choiceNumber(n, raw)
	case DatatypeMultiSelect:
		var out []int
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			v, err := choiceNumber(n, part)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	default:
		return raw, nil
	}
}

func choiceNumber(n *Node, raw string) (int, error) {
	if v, err := strconv.Atoi(raw); err == nil {
		if v < 1 || (len(n.Choices) > 0 && v > len(n.Choices)) {
			return 0, errors.New(MsgChoice)
		}
		return v, nil
	}
	for i, c := range n.Choices {
		if strings.EqualFold(c, raw) {
			return i + 1, nil
		}
	}
	return 0, errors.New(MsgChoice)
}

func isEmpty(v any) bool {
	switch a := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(a) == ""
	case []any:
		return len(a) == 0
	case []int:
		return len(a) == 0
	}
	return false
}

func toInt(v any) (int, error) {
	switch a := v.(type) {
	case int:
		return a, nil
	case int64:
		return int(a), nil
	case float64:
		if a != float64(int(a)) {
			return 0, fmt.Errorf("%v is not whole", a)
		}
		return int(a), nil
	case string:
		return strconv.Atoi(strings.TrimSpace(a))
	}
	return 0, fmt.Errorf("unsupported answer type %T", v)
}

func toFloat(v any) (float64, error) {
	switch a := v.(type) {
	case int:
		return float64(a), nil
	case int64:
		return float64(a), nil
	case float64:
		return a, nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(a), 64)
	}
	return 0, fmt.Errorf("unsupported answer type %T", v)
}
