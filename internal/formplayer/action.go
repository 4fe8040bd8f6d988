// Copyright (c) 2025 Formplay
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package formplayer is the wire client for the remote form-playing service.
// It builds request envelopes, posts them to {base_url}/{action-token}, and
// decodes the responses. Ordering, blocking and retry policy live in the
// session package; this package sends exactly one request per call.
package formplayer

import (
	"fmt"
	"sort"
	"strings"
)

// Action is a tagged operation understood by the service.
type Action int

const (
	ActionNewForm Action = iota + 1
	ActionCurrent
	ActionAnswer
	ActionAnswerMedia
	ActionClearAnswer
	ActionNewRepeat
	ActionDeleteRepeat
	ActionNextQuestion
	ActionPrevQuestion
	ActionSubmit
	ActionEvaluateXPath
	ActionChangeLanguage
	ActionQuestionsForIndex
	ActionFormattedQuestions
)

var actionNames = map[Action]string{
	ActionNewForm:            "NEW_FORM",
	ActionCurrent:            "CURRENT",
	ActionAnswer:             "ANSWER",
	ActionAnswerMedia:        "ANSWER_MEDIA",
	ActionClearAnswer:        "CLEAR_ANSWER",
	ActionNewRepeat:          "NEW_REPEAT",
	ActionDeleteRepeat:       "DELETE_REPEAT",
	ActionNextQuestion:       "NEXT_QUESTION",
	ActionPrevQuestion:       "PREV_QUESTION",
	ActionSubmit:             "SUBMIT",
	ActionEvaluateXPath:      "EVALUATE_XPATH",
	ActionChangeLanguage:     "CHANGE_LANGUAGE",
	ActionQuestionsForIndex:  "QUESTIONS_FOR_INDEX",
	ActionFormattedQuestions: "FORMATTED_QUESTIONS",
}

func (a Action) String() string {
	if s, ok := actionNames[a]; ok {
		return s
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// ParseAction looks an action up by its tag name, case-insensitively.
func ParseAction(name string) (Action, bool) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for a, s := range actionNames {
		if s == name {
			return a, true
		}
	}
	return 0, false
}

// Actions returns every action in declaration order.
func Actions() []Action {
	out := make([]Action, 0, len(actionNames))
	for a := range actionNames {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Tokens maps actions to the wire tokens the service expects.
type Tokens map[Action]string

// TokensFrom builds Tokens from a tag-name keyed map, such as the action
// table of a manifest. Every action must be given a non-empty token.
func TokensFrom(names map[string]string) (Tokens, error) {
	t := make(Tokens, len(names))
	for name, token := range names {
		a, ok := ParseAction(name)
		if !ok {
			return nil, fmt.Errorf("unknown action %q", name)
		}
		token = strings.TrimSpace(token)
		if token == "" {
			return nil, fmt.Errorf("action %s has an empty token", a)
		}
		t[a] = token
	}
	for _, a := range Actions() {
		if _, ok := t[a]; !ok {
			return nil, fmt.Errorf("no token for action %s", a)
		}
	}
	return t, nil
}

// Token returns the wire token for a.
func (t Tokens) Token(a Action) string { return t[a] }
