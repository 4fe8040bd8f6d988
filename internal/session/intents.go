// Copyright (c) 2025 Formplay
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

import (
	"formplay/cli/internal/events"
	"formplay/cli/internal/form"
	"formplay/cli/internal/formplayer"
)

// Intent payloads accepted on the bus. Events that only need an index or
// a language (CLEAR_ANSWER, NEW_REPEAT, DELETE_REPEAT, CHANGE_LANG) carry a
// plain string; SUBMIT carries nothing.
type (
	// AnswerIntent answers a question. Media is set for file questions.
	AnswerIntent struct {
		Ix    string
		Value any
		Media *formplayer.Media
	}
	NavIntent struct {
		Callback func(NavResult)
	}
	XPathIntent struct {
		Expr     string
		Callback func(XPathResult)
	}
	IndexIntent struct {
		Ix       string
		Callback func(*form.Tree)
	}
	FormattedIntent struct {
		Callback func(string)
	}
)

func (s *Session) subscribe() error {
	routes := map[events.Name]events.Handler{
		events.Answer: func(ev events.Event) {
			in, ok := ev.Payload.(AnswerIntent)
			if !ok {
				s.badPayload(ev)
				return
			}
			if in.Media != nil {
				s.AttachMedia(in.Ix, in.Media)
				return
			}
			s.AnswerQuestion(in.Ix, in.Value)
		},
		events.ClearAnswer: s.withString(s.ClearAnswer),
		events.Submit:      func(events.Event) { s.SubmitForm() },
		events.NextQuestion: func(ev events.Event) {
			in, _ := ev.Payload.(NavIntent)
			s.NextQuestion(in.Callback)
		},
		events.PrevQuestion: func(ev events.Event) {
			in, _ := ev.Payload.(NavIntent)
			s.PrevQuestion(in.Callback)
		},
		events.NewRepeat:    s.withString(s.NewRepeat),
		events.DeleteRepeat: s.withString(s.DeleteRepeat),
		events.ChangeLang:   s.withString(s.ChangeLang),
		events.EvaluateXPath: func(ev events.Event) {
			in, ok := ev.Payload.(XPathIntent)
			if !ok {
				s.badPayload(ev)
				return
			}
			s.EvaluateXPath(in.Expr, in.Callback)
		},
		events.QuestionsForIndex: func(ev events.Event) {
			in, ok := ev.Payload.(IndexIntent)
			if !ok {
				s.badPayload(ev)
				return
			}
			s.QuestionsForIndex(in.Ix, in.Callback)
		},
		events.FormattedQuestions: func(ev events.Event) {
			in, _ := ev.Payload.(FormattedIntent)
			s.FormattedQuestions(in.Callback)
		},
	}

	for name, h := range routes {
		sub, err := s.deps.Bus.Subscribe(name, h)
		if err != nil {
			return err
		}
		s.subs = append(s.subs, sub)
	}
	return nil
}

func (s *Session) withString(fn func(string)) events.Handler {
	return func(ev events.Event) {
		v, ok := ev.Payload.(string)
		if !ok {
			s.badPayload(ev)
			return
		}
		fn(v)
	}
}

func (s *Session) badPayload(ev events.Event) {
	s.log.Warn().Str("event", string(ev.Name)).Msgf("unexpected payload %T", ev.Payload)
}
