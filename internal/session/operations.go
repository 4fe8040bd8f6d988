// Copyright (c) 2025 Formplay
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

import (
	"fmt"

	"github.com/tidwall/gjson"

	apperr "formplay/cli/internal/errors"
	"formplay/cli/internal/form"
	"formplay/cli/internal/formplayer"
	"formplay/cli/internal/httperrors"
)

// DebugOutput is the level of detail requested from EVALUATE_XPATH.
const DebugOutput = "basic"

// XPathResult is the outcome of EvaluateXPath.
type XPathResult struct {
	Status formplayer.Status
	Output string
}

// Load opens the form. A session with an id resumes with CURRENT;
// otherwise NEW_FORM starts one. lang overrides Options.Lang when set.
func (s *Session) Load(lang string) {
	s.loop.Post(func() { s.load(lang) })
}

func (s *Session) load(lang string) {
	if lang != "" {
		s.lang = lang
	}

	var req formplayer.Request
	if s.sessionID != "" {
		req = formplayer.Static(formplayer.ActionCurrent, nil)
	} else {
		req = formplayer.Static(formplayer.ActionNewForm, s.newFormParams())
	}

	prev := s.state
	s.setState(Loading)
	sent := s.serverRequest(req, BlockAll, handlers{
		onSuccess: func(resp *formplayer.Response) { s.applyLoad(req.Action, resp) },
		onFailure: func(ErrorInfo) { s.setState(prev) },
		onErrorResponse: func(resp *formplayer.Response) {
			s.setState(prev)
			s.reportErrorResponse(req.Action, resp, handlers{})
		},
		onStale: func() { s.setState(prev) },
	})
	if !sent {
		s.setState(prev)
	}
}

func (s *Session) newFormParams() formplayer.Params {
	p := formplayer.Params{
		"lang":                 s.lang,
		"session-data":         s.opts.SessionData,
		"uses_sql_backend":     s.opts.UsesSQLBackend,
		"oneQuestionPerScreen": s.opts.OneQuestionPerScreen,
	}
	if s.opts.InstanceContent != "" {
		p["instance-content"] = s.opts.InstanceContent
	}
	switch f := s.opts.Form; {
	case f.Name != "":
		p["form-name"] = f.Name
	case f.Content != "":
		p["form-content"] = f.Content
	case f.URL != "":
		p["form-url"] = f.URL
	}
	return p
}

func (s *Session) applyLoad(action formplayer.Action, resp *formplayer.Response) {
	tree, err := form.ParseTree(resp.Raw)
	if err != nil {
		s.setState(Uninitialized)
		e := apperr.Wrap(apperr.Unexpected, httperrors.MsgGeneric, err)
		s.report(action, e, 0)
		s.emitError(e)
		return
	}
	if s.tree == nil {
		s.tree = tree
	} else {
		s.tree.Reconcile(tree)
	}
	if resp.Title != "" {
		s.title = resp.Title
	}
	if len(resp.Langs) > 0 {
		s.langs = resp.Langs
	}
	if resp.CurrentIndex != "" {
		s.currentIndex = resp.CurrentIndex
	}

	s.setState(Ready)
	s.setSubmitControls(true)
	s.publishReconcile(action, resp, s.tree)
	s.record()

	if resp.ShouldAutoSubmit {
		s.loop.Post(s.submitForm)
	}
}

// AnswerQuestion saves value as the answer to the question at ix.
func (s *Session) AnswerQuestion(ix string, value any) {
	s.loop.Post(func() {
		if n := s.question(ix); n != nil {
			n.SetAnswer(value)
			s.sendAnswer(n, nil)
		}
	})
}

// ClearAnswer removes the answer to the question at ix.
func (s *Session) ClearAnswer(ix string) {
	s.loop.Post(func() {
		if n := s.question(ix); n != nil {
			n.PendingAction = form.EntryClear
			n.SetAnswer(nil)
			s.sendAnswer(n, nil)
		}
	})
}

// AttachMedia answers a file or signature question with m.
func (s *Session) AttachMedia(ix string, m *formplayer.Media) {
	if m == nil {
		return
	}
	s.loop.Post(func() {
		if n := s.question(ix); n != nil {
			n.SetAnswer(m.Filename)
			n.MediaPath = m.Filename
			s.sendAnswer(n, m)
		}
	})
}

func (s *Session) question(ix string) *form.Node {
	if s.tree == nil {
		s.log.Warn().Str("ix", ix).Msg("answer before form loaded")
		return nil
	}
	n := s.tree.Find(ix)
	if n == nil || !n.IsQuestion() {
		s.log.Warn().Str("ix", ix).Msg("no question at index")
		return nil
	}
	return n
}

// sendAnswer sends the entry's pending action. Questions currently
// showing an error are sent along for re-validation.
func (s *Session) sendAnswer(n *form.Node, media *formplayer.Media) {
	action := formplayer.ActionAnswer
	var answer any = n.Answer
	switch n.PendingAction {
	case form.EntryClear:
		action = formplayer.ActionClearAnswer
		answer = nil
	case form.EntryMedia:
		if media != nil {
			action = formplayer.ActionAnswerMedia
		}
	}

	toValidate := s.tree.ErroredAnswers()
	revalidated := make([]string, 0, len(toValidate)+1)
	for k := range toValidate {
		revalidated = append(revalidated, k)
	}
	revalidated = append(revalidated, n.Ix)

	p := formplayer.Params{
		"ix":                n.Ix,
		"answer":            answer,
		"answersToValidate": toValidate,
	}
	if media != nil {
		p[formplayer.FileParam] = media
	}

	ix := n.Ix
	n.Pending = true
	sent := s.serverRequest(formplayer.Static(action, p), BlockSubmit, handlers{
		onSuccess: func(resp *formplayer.Response) {
			s.reconcileTree(resp)
			node := s.tree.Find(ix)
			if node != nil {
				if node.PendingAction == form.EntryClear {
					node.PendingAction = node.AnswerAction()
				}
				node.Pending = false
			}
			s.tree.SurfaceErrors(revalidated, resp.ErrorMessages())
			s.publishReconcile(action, resp, node)
			if s.cb.OnAnswer != nil {
				s.cb.OnAnswer(node, resp)
			}
		},
		onErrorResponse: func(resp *formplayer.Response) {
			s.tree.SurfaceErrors(revalidated, resp.ErrorMessages())
			s.answerFailed(ix)
			s.reportErrorResponse(action, resp, handlers{})
		},
		onFailure: func(ErrorInfo) { s.answerFailed(ix) },
		onStale: func() {
			if node := s.tree.Find(ix); node != nil {
				node.Pending = false
			}
		},
	})
	if !sent {
		n.Pending = false
	}
}

func (s *Session) answerFailed(ix string) {
	if node := s.tree.Find(ix); node != nil {
		node.ServerError = httperrors.MsgCouldNotSave
		node.Pending = false
	}
}

// NextQuestion moves to the next question in one-question-per-screen mode.
func (s *Session) NextQuestion(cb func(NavResult)) {
	s.loop.Post(func() { s.navigate(formplayer.ActionNextQuestion, cb) })
}

// PrevQuestion moves to the previous question in one-question-per-screen mode.
func (s *Session) PrevQuestion(cb func(NavResult)) {
	s.loop.Post(func() { s.navigate(formplayer.ActionPrevQuestion, cb) })
}

func (s *Session) navigate(action formplayer.Action, cb func(NavResult)) {
	p := formplayer.Params{"formIndex": s.currentIndex}
	s.serverRequest(formplayer.Static(action, p), BlockNone, handlers{
		onSuccess: func(resp *formplayer.Response) {
			s.currentIndex = resp.CurrentIndex
			s.reconcileTree(resp)
			nav := NavResult{
				CurrentIndex:   resp.CurrentIndex,
				IsAtFirstIndex: resp.IsAtFirstIndex,
				IsAtLastIndex:  resp.IsAtLastIndex,
			}
			if cb != nil {
				cb(nav)
			}
			s.publishReconcile(action, resp, nav)
		},
	})
}

// NewRepeat adds a repetition to the repeat at ix. Every other request is
// dropped until it completes.
func (s *Session) NewRepeat(ix string) {
	s.loop.Post(func() {
		s.serverRequest(formplayer.Static(formplayer.ActionNewRepeat, formplayer.Params{"ix": ix}), BlockAll, handlers{
			onSuccess: func(resp *formplayer.Response) {
				s.reconcileTree(resp)
				s.publishReconcile(formplayer.ActionNewRepeat, resp, ix)
			},
		})
	})
}

// DeleteRepeat removes the repetition at ix, for example "2_1" for the
// second repetition of the repeat at "2". Every other request is dropped
// until it completes.
func (s *Session) DeleteRepeat(ix string) {
	s.loop.Post(func() {
		parsed, err := form.ParseIndex(ix)
		if err == nil && parsed.Parent() == nil {
			err = fmt.Errorf("delete repeat %q: %w", ix, form.ErrNoParent)
		}
		if err != nil {
			s.log.Warn().Err(err).Str("ix", ix).Msg("invalid repetition index")
			s.emitError(apperr.Wrap(apperr.Unexpected, httperrors.MsgGeneric, err))
			return
		}
		ordinal, _ := parsed.RepeatOrdinal()
		p := formplayer.Params{
			"ix":      ordinal,
			"form_ix": parsed.Parent().Format(),
		}
		s.serverRequest(formplayer.Static(formplayer.ActionDeleteRepeat, p), BlockAll, handlers{
			onSuccess: func(resp *formplayer.Response) {
				s.reconcileTree(resp)
				s.publishReconcile(formplayer.ActionDeleteRepeat, resp, parsed)
			},
		})
	})
}

// ChangeLang switches the form language and refetches its text.
func (s *Session) ChangeLang(lang string) {
	s.loop.Post(func() {
		s.serverRequest(formplayer.Static(formplayer.ActionChangeLanguage, formplayer.Params{"lang": lang}), BlockNone, handlers{
			onSuccess: func(resp *formplayer.Response) {
				s.lang = lang
				s.reconcileTree(resp)
				s.publishReconcile(formplayer.ActionChangeLanguage, resp, lang)
				s.record()
			},
		})
	})
}

// EvaluateXPath evaluates expr against the form instance.
func (s *Session) EvaluateXPath(expr string, cb func(XPathResult)) {
	s.loop.Post(func() {
		p := formplayer.Params{"xpath": expr, "debugOutput": DebugOutput}
		deliver := func(resp *formplayer.Response) {
			if cb != nil {
				cb(XPathResult{Status: resp.Status, Output: gjson.GetBytes(resp.Raw, "output").String()})
			}
		}
		s.serverRequest(formplayer.Static(formplayer.ActionEvaluateXPath, p), BlockNone, handlers{
			onSuccess:       deliver,
			onErrorResponse: deliver,
		})
	})
}

// QuestionsForIndex fetches the questions shown on the screen at ix.
func (s *Session) QuestionsForIndex(ix string, cb func(*form.Tree)) {
	s.loop.Post(func() {
		s.serverRequest(formplayer.Static(formplayer.ActionQuestionsForIndex, formplayer.Params{"ix": ix}), BlockNone, handlers{
			onSuccess: func(resp *formplayer.Response) {
				tree, err := form.ParseTree(resp.Raw)
				if err != nil {
					s.log.Debug().Err(err).Str("ix", ix).Msg("no questions for index")
				}
				if cb != nil {
					cb(tree)
				}
			},
		})
	})
}

// FormattedQuestions fetches a plain-text rendering of all answers.
func (s *Session) FormattedQuestions(cb func(string)) {
	s.loop.Post(func() {
		s.serverRequest(formplayer.Static(formplayer.ActionFormattedQuestions, nil), BlockNone, handlers{
			onSuccess: func(resp *formplayer.Response) {
				if cb != nil {
					cb(gjson.GetBytes(resp.Raw, "formattedQuestions").String())
				}
			},
		})
	})
}

// reconcileTree applies the tree carried by resp, if any.
func (s *Session) reconcileTree(resp *formplayer.Response) {
	next, err := form.ParseTree(resp.Raw)
	if err != nil {
		return
	}
	if s.tree == nil {
		s.tree = next
		return
	}
	s.tree.Reconcile(next)
}
