// Copyright (c) 2025 Formplay
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package session drives one form-filling session against the form service.
//
// A Session owns the question tree, the blocking status, the response
// sequencer and the per-action task queue. All of that state lives on a
// single loop goroutine; public methods post work onto the loop and return
// immediately. HTTP requests run on their own goroutines and hand their
// results back to the loop, so responses are applied one at a time and a
// response older than one already applied is discarded.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	apperr "formplay/cli/internal/errors"
	"formplay/cli/internal/events"
	"formplay/cli/internal/form"
	"formplay/cli/internal/formplayer"
	"formplay/cli/internal/loop"
	"formplay/cli/internal/netstatus"
	"formplay/cli/internal/sequencer"
	"formplay/cli/internal/store"
	"formplay/cli/internal/taskqueue"
	"formplay/cli/internal/telemetry"
)

// Blocking is the session-wide guard set while a request is outstanding.
type Blocking int

const (
	// BlockNone lets every request through.
	BlockNone Blocking = iota
	// BlockSubmit holds back submission until the request completes.
	BlockSubmit
	// BlockAll drops every new request until the request completes.
	BlockAll
)

func (b Blocking) String() string {
	switch b {
	case BlockNone:
		return "none"
	case BlockSubmit:
		return "submit"
	case BlockAll:
		return "all"
	}
	return "unknown"
}

// State is the lifecycle stage of a session.
type State int

const (
	Uninitialized State = iota
	Loading
	Ready
	Submitting
	Submitted
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Submitting:
		return "submitting"
	case Submitted:
		return "submitted"
	}
	return "unknown"
}

// Submit polling bounds.
const (
	DefaultPollInterval = 250 * time.Millisecond
	DefaultPollAttempts = 10
)

// ErrClosed is returned by synchronous accessors after Close.
var ErrClosed = errors.New("session closed")

// FormSpec names the form to open. Exactly one field must be set.
type FormSpec struct {
	Name    string
	Content string
	URL     string
}

// Validate checks that exactly one form source is set.
func (f FormSpec) Validate() error {
	n := 0
	for _, v := range []string{f.Name, f.Content, f.URL} {
		if v != "" {
			n++
		}
	}
	if n != 1 {
		return apperr.New(apperr.InvalidFormSpec, "exactly one of form name, form content or form URL must be given")
	}
	return nil
}

// Options describe the session to open.
type Options struct {
	// SessionID resumes an existing session with CURRENT.
	SessionID            string
	Domain               string
	Username             string
	RestoreAs            string
	Form                 FormSpec
	SessionData          map[string]any
	FormContext          map[string]any
	InstanceContent      string
	UsesSQLBackend       bool
	OneQuestionPerScreen bool
	Debugger             bool
	Lang                 string
	Zone                 formplayer.Zone
}

// Transport sends one request to the form service.
type Transport interface {
	Send(ctx context.Context, action formplayer.Action, ectx formplayer.Context, params formplayer.Params) (*formplayer.Response, error)
}

// Recorder persists resumable sessions. *store.Store satisfies it.
type Recorder interface {
	Save(ctx context.Context, r store.Record) error
}

// ErrorInfo is what OnError receives.
type ErrorInfo struct {
	HumanReadableMessage string
	IsHTML               bool
	Kind                 apperr.Kind
}

// NavResult is the outcome of NextQuestion and PrevQuestion.
type NavResult struct {
	CurrentIndex   string
	IsAtFirstIndex bool
	IsAtLastIndex  bool
}

// Callbacks notify the embedding UI. They run on the session loop and must
// not call Snapshot or WaitIdle; posting further operations is fine.
type Callbacks struct {
	OnSubmit          func(*formplayer.Response)
	OnError           func(ErrorInfo)
	OnLoading         func()
	OnLoadingComplete func()
	OnAnswer          func(*form.Node, *formplayer.Response)
	// OnSubmitControls enables or disables submit and form controls.
	OnSubmitControls func(enabled bool)
	OnSessionID      func(string)
	OnStateChange    func(State)
}

// Deps are the collaborators of a session. Only Transport is required.
type Deps struct {
	Transport Transport
	Bus       *events.Bus
	Reporter  telemetry.Reporter
	Net       netstatus.Checker
	Store     Recorder
	Log       zerolog.Logger
}

// Reconcile is the payload of events.Reconcile.
type Reconcile struct {
	Action   formplayer.Action
	Response *formplayer.Response
	// Entity is the node, index or language the response applies to.
	Entity any
}

// Session is one form-filling session.
type Session struct {
	opts Options
	deps Deps
	cb   Callbacks
	log  zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	loop   *loop.Loop
	bg     sync.WaitGroup
	closed sync.Once

	pollInterval time.Duration
	pollAttempts int

	// Loop-owned state.
	queue           *taskqueue.Queue
	seq             *sequencer.Sequencer
	blocking        Blocking
	state           State
	sessionID       string
	lang            string
	title           string
	langs           []string
	currentIndex    string
	tree            *form.Tree
	submitting      bool
	polling         bool
	outstanding     int
	controlsEnabled bool
	subs            []events.Subscription
}

// New validates opts, starts the session loop and subscribes to the
// inbound intents on the bus. Nothing is sent until Load.
func New(ctx context.Context, opts Options, deps Deps, cb Callbacks) (*Session, error) {
	if deps.Transport == nil {
		return nil, errors.New("session transport is nil")
	}
	if opts.SessionID == "" {
		if err := opts.Form.Validate(); err != nil {
			return nil, err
		}
	} else if opts.Form != (FormSpec{}) {
		if err := opts.Form.Validate(); err != nil {
			return nil, err
		}
	}
	if deps.Bus == nil {
		deps.Bus = events.NewBus()
	}
	if deps.Reporter == nil {
		deps.Reporter = telemetry.Nop{}
	}
	if deps.Net == nil {
		deps.Net = netstatus.Probe{}
	}

	sctx, cancel := context.WithCancel(ctx)
	s := &Session{
		opts:            opts,
		deps:            deps,
		cb:              cb,
		log:             deps.Log.With().Str("component", "session").Logger(),
		ctx:             sctx,
		cancel:          cancel,
		loop:            loop.New(deps.Log),
		pollInterval:    DefaultPollInterval,
		pollAttempts:    DefaultPollAttempts,
		queue:           taskqueue.New(deps.Log),
		seq:             sequencer.New(),
		sessionID:       opts.SessionID,
		lang:            opts.Lang,
		controlsEnabled: true,
	}
	go s.loop.Run(sctx)

	if err := s.subscribe(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Bus returns the event bus the session publishes on and listens to.
func (s *Session) Bus() *events.Bus { return s.deps.Bus }

// Close cancels in-flight requests, stops the loop and unsubscribes from
// the bus. Background telemetry and store writes are awaited.
func (s *Session) Close() {
	s.closed.Do(func() {
		for _, sub := range s.subs {
			sub.Unsubscribe()
		}
		s.cancel()
		s.loop.Stop()
		<-s.loop.Done()
		s.bg.Wait()
	})
}

// Snapshot is a copy of the session state.
type Snapshot struct {
	State        State
	Blocking     Blocking
	SessionID    string
	Lang         string
	Langs        []string
	Title        string
	CurrentIndex string
	LastSeq      int64
	Submitting   bool
	Tree         *form.Tree
}

// Snapshot copies the current state. It must not be called from a callback.
func (s *Session) Snapshot() (Snapshot, error) {
	var snap Snapshot
	ok := s.loop.Call(func() {
		snap = Snapshot{
			State:        s.state,
			Blocking:     s.blocking,
			SessionID:    s.sessionID,
			Lang:         s.lang,
			Langs:        append([]string(nil), s.langs...),
			Title:        s.title,
			CurrentIndex: s.currentIndex,
			LastSeq:      s.seq.Last(),
			Submitting:   s.submitting,
			Tree:         s.tree.Clone(),
		}
	})
	if !ok {
		return snap, ErrClosed
	}
	return snap, nil
}

// WaitIdle blocks until no request is queued or in flight and no submit
// is waiting for the guard to clear. It must not be called from a callback.
func (s *Session) WaitIdle(ctx context.Context) error {
	t := time.NewTicker(10 * time.Millisecond)
	defer t.Stop()
	for {
		var idle bool
		if !s.loop.Call(func() { idle = s.outstanding == 0 && !s.polling }) {
			return ErrClosed
		}
		if idle {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (s *Session) setBlocking(b Blocking) {
	s.blocking = b
	_ = s.deps.Bus.Publish(events.Block, b)
}

func (s *Session) setState(st State) {
	if s.state == st {
		return
	}
	s.state = st
	if s.cb.OnStateChange != nil {
		s.cb.OnStateChange(st)
	}
}

// setSessionID adopts the server's session id unless one is already set.
func (s *Session) setSessionID(id string) {
	if id == "" || s.sessionID != "" {
		return
	}
	s.sessionID = id
	if s.cb.OnSessionID != nil {
		s.cb.OnSessionID(id)
	}
}

func (s *Session) setSubmitControls(enabled bool) {
	if s.controlsEnabled == enabled {
		return
	}
	s.controlsEnabled = enabled
	if s.cb.OnSubmitControls != nil {
		s.cb.OnSubmitControls(enabled)
	}
}

func (s *Session) loading() {
	if s.cb.OnLoading != nil {
		s.cb.OnLoading()
	}
}

func (s *Session) loadingComplete() {
	if s.cb.OnLoadingComplete != nil {
		s.cb.OnLoadingComplete()
	}
}

func (s *Session) emitError(e *apperr.E) {
	if s.cb.OnError != nil {
		s.cb.OnError(ErrorInfo{HumanReadableMessage: e.Message, IsHTML: e.HTML, Kind: e.Kind})
	}
}

func (s *Session) publishReconcile(action formplayer.Action, resp *formplayer.Response, entity any) {
	_ = s.deps.Bus.Publish(events.Reconcile, Reconcile{Action: action, Response: resp, Entity: entity})
}

func (s *Session) envelopeContext() formplayer.Context {
	return formplayer.Context{
		SessionID:   s.sessionID,
		Domain:      s.opts.Domain,
		Username:    s.opts.Username,
		RestoreAs:   s.opts.RestoreAs,
		FormContext: s.opts.FormContext,
		Debugger:    s.opts.Debugger,
		Zone:        s.opts.Zone,
	}
}

// record persists the session in the background when a store is set.
func (s *Session) record() {
	if s.deps.Store == nil || s.sessionID == "" {
		return
	}
	rec := store.Record{
		Key:       store.Key(s.opts.Domain, s.opts.Username, s.formKey()),
		SessionID: s.sessionID,
		FormName:  s.title,
		Domain:    s.opts.Domain,
		Username:  s.opts.Username,
		Lang:      s.lang,
		State:     s.state.String(),
	}
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.deps.Store.Save(ctx, rec); err != nil {
			s.log.Warn().Err(err).Msg("could not record session")
		}
	}()
}

// formKey identifies the form within the store key.
func (s *Session) formKey() string {
	switch {
	case s.opts.Form.Name != "":
		return s.opts.Form.Name
	case s.opts.Form.URL != "":
		return s.opts.Form.URL
	}
	return s.sessionID
}
