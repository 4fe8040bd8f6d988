// Copyright (c) 2025 Formplay
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package events is the publish/subscribe channel between a form session
// and the UI that renders it.
//
// A Bus is created by the caller and injected into the session, so each
// session's subscriptions are explicit and can be torn down with it. Event
// names form a closed set; publishing or subscribing to an unknown name is
// an error.
package events

import (
	"errors"
	"fmt"
	"sync"
)

// Name identifies an event.
type Name string

// Inbound intents published by the UI and consumed by the session.
const (
	Answer             Name = "formplayer.ANSWER"
	ClearAnswer        Name = "formplayer.CLEAR_ANSWER"
	Submit             Name = "formplayer.SUBMIT"
	NextQuestion       Name = "formplayer.NEXT_QUESTION"
	PrevQuestion       Name = "formplayer.PREV_QUESTION"
	NewRepeat          Name = "formplayer.NEW_REPEAT"
	DeleteRepeat       Name = "formplayer.DELETE_REPEAT"
	EvaluateXPath      Name = "formplayer.EVALUATE_XPATH"
	ChangeLang         Name = "formplayer.CHANGE_LANG"
	QuestionsForIndex  Name = "formplayer.QUESTIONS_FOR_INDEX"
	FormattedQuestions Name = "formplayer.FORMATTED_QUESTIONS"
)

// Outbound notifications published by the session.
const (
	// Reconcile carries a server response and the entity that triggered it.
	Reconcile Name = "session.reconcile"
	// Block carries the session's current blocking status.
	Block Name = "session.block"
)

var known = map[Name]struct{}{
	Answer: {}, ClearAnswer: {}, Submit: {}, NextQuestion: {}, PrevQuestion: {},
	NewRepeat: {}, DeleteRepeat: {}, EvaluateXPath: {}, ChangeLang: {},
	QuestionsForIndex: {}, FormattedQuestions: {}, Reconcile: {}, Block: {},
}

// ErrUnknownEvent is returned for names outside the closed set.
var ErrUnknownEvent = errors.New("unknown event")

// Valid reports whether n is a known event name.
func (n Name) Valid() bool {
	_, ok := known[n]
	return ok
}

// Event is delivered to handlers.
type Event struct {
	Name    Name
	Payload any
}

// Handler receives events. Handlers run synchronously on the publisher's
// goroutine and must not block.
type Handler func(Event)

type subscription struct {
	id uint64
	h  Handler
}

// Bus fans events out to subscribers in subscription order.
type Bus struct {
	mu   sync.RWMutex
	subs map[Name][]subscription
	next uint64
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Name][]subscription)}
}

// Subscription cancels a Subscribe call.
type Subscription struct {
	bus  *Bus
	name Name
	id   uint64
}

// Unsubscribe removes the handler. It is safe to call more than once.
func (s Subscription) Unsubscribe() {
	if s.bus == nil {
		return
	}
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	list := s.bus.subs[s.name]
	for i, sub := range list {
		if sub.id == s.id {
			s.bus.subs[s.name] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// Subscribe registers h for name.
func (b *Bus) Subscribe(name Name, h Handler) (Subscription, error) {
	if !name.Valid() {
		return Subscription{}, fmt.Errorf("subscribe %q: %w", name, ErrUnknownEvent)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	b.subs[name] = append(b.subs[name], subscription{id: b.next, h: h})
	return Subscription{bus: b, name: name, id: b.next}, nil
}

// Publish delivers payload to every handler of name.
func (b *Bus) Publish(name Name, payload any) error {
	if !name.Valid() {
		return fmt.Errorf("publish %q: %w", name, ErrUnknownEvent)
	}
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[name]))
	for _, sub := range b.subs[name] {
		handlers = append(handlers, sub.h)
	}
	b.mu.RUnlock()

	ev := Event{Name: name, Payload: payload}
	for _, h := range handlers {
		h(ev)
	}
	return nil
}

// Subscribers reports how many handlers are registered for name.
func (b *Bus) Subscribers(name Name) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[name])
}
