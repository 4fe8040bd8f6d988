// Copyright (c) 2025 Formplay
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package form models the question tree returned by the form service and
// the client-side state kept per question (entry state).
//
// A Tree is owned by the session loop. Callers outside the loop work on
// copies obtained with Clone.
package form

import (
	"errors"

	"github.com/tidwall/gjson"
)

// NodeType distinguishes questions from structural nodes.
type NodeType string

const (
	TypeQuestion       NodeType = "question"
	TypeSubGroup       NodeType = "sub-group"
	TypeRepeatJuncture NodeType = "repeat-juncture"
)

// Datatypes with special handling.
const (
	DatatypeInfo        = "info"
	DatatypeFile        = "file"
	DatatypeSignature   = "signature"
	DatatypeInt         = "int"
	DatatypeLong        = "long"
	DatatypeFloat       = "float"
	DatatypeDecimal     = "decimal"
	DatatypeSelect      = "select"
	DatatypeMultiSelect = "multiselect"
)

// EntryAction is the request an entry sends on its next edit.
type EntryAction int

const (
	// EntryAnswer sends a regular answer.
	EntryAnswer EntryAction = iota
	// EntryClear sends the "no answer" sentinel.
	EntryClear
	// EntryMedia sends the answer with an attached file.
	EntryMedia
)

// Node is one element of the question tree.
type Node struct {
	Ix       string
	Caption  string
	Help     string
	Type     NodeType
	Datatype string
	Answer   any
	Required bool
	Choices  []string
	Children []*Node
	Parent   *Node `json:"-"`

	// ValidationError is set by local checks.
	ValidationError string
	// ServerError is the last error the server reported for this question.
	ServerError string
	// PendingAction selects the next request kind for this entry.
	PendingAction EntryAction
	// Pending is true while an answer for this entry is in flight.
	Pending bool
	// MediaPath is the local file attached to a media answer.
	MediaPath string
}

// IsQuestion reports whether n is an answerable question.
func (n *Node) IsQuestion() bool { return n.Type == TypeQuestion }

// IsInfo reports whether n is a display-only question.
func (n *Node) IsInfo() bool { return n.IsQuestion() && n.Datatype == DatatypeInfo }

// IsMedia reports whether answers to n carry a file.
func (n *Node) IsMedia() bool {
	return n.Datatype == DatatypeFile || n.Datatype == DatatypeSignature
}

// Valid reports whether n passes local validation.
func (n *Node) Valid() bool { return n.ValidationError == "" }

// ShowsError reports whether an error is currently displayed for n.
func (n *Node) ShowsError() bool { return n.ValidationError != "" || n.ServerError != "" }

// AnswerAction returns the entry action used after a successful edit.
// Once cleared, media questions resume with media answers and all others
// with plain answers.
func (n *Node) AnswerAction() EntryAction {
	if n.IsMedia() {
		return EntryMedia
	}
	return EntryAnswer
}

// Tree is the question tree of one form.
type Tree struct {
	Nodes []*Node
}

// ErrNoTree is returned when a response carries no tree.
var ErrNoTree = errors.New("response has no tree")

// ParseTree reads the "tree" array of a service response.
func ParseTree(body []byte) (*Tree, error) {
	res := gjson.GetBytes(body, "tree")
	if !res.Exists() || !res.IsArray() {
		return nil, ErrNoTree
	}
	return &Tree{Nodes: parseNodes(res, nil)}, nil
}

func parseNodes(arr gjson.Result, parent *Node) []*Node {
	var out []*Node
	arr.ForEach(func(_, v gjson.Result) bool {
		n := &Node{
			Ix:       v.Get("ix").String(),
			Caption:  v.Get("caption").String(),
			Help:     v.Get("help").String(),
			Type:     NodeType(v.Get("type").String()),
			Datatype: v.Get("datatype").String(),
			Required: v.Get("required").Bool(),
			Parent:   parent,
		}
		if a := v.Get("answer"); a.Exists() && a.Type != gjson.Null {
			n.Answer = a.Value()
		}
		v.Get("choices").ForEach(func(_, c gjson.Result) bool {
			n.Choices = append(n.Choices, c.String())
			return true
		})
		if n.IsMedia() {
			n.PendingAction = EntryMedia
		}
		if kids := v.Get("children"); kids.IsArray() {
			n.Children = parseNodes(kids, n)
		}
		out = append(out, n)
		return true
	})
	return out
}

// Walk visits nodes depth-first until fn returns false.
func (t *Tree) Walk(fn func(*Node) bool) {
	if t == nil {
		return
	}
	walk(t.Nodes, fn)
}

func walk(nodes []*Node, fn func(*Node) bool) bool {
	for _, n := range nodes {
		if !fn(n) {
			return false
		}
		if !walk(n.Children, fn) {
			return false
		}
	}
	return true
}

// Find returns the node with index ix, or nil.
func (t *Tree) Find(ix string) *Node {
	var found *Node
	t.Walk(func(n *Node) bool {
		if n.Ix == ix {
			found = n
			return false
		}
		return true
	})
	return found
}

// Questions returns every question node in document order.
func (t *Tree) Questions() []*Node {
	var out []*Node
	t.Walk(func(n *Node) bool {
		if n.IsQuestion() {
			out = append(out, n)
		}
		return true
	})
	return out
}

// ErroredAnswers maps the index of every question currently showing an
// error to its answer, so the server can re-validate them.
func (t *Tree) ErroredAnswers() map[string]any {
	out := make(map[string]any)
	t.Walk(func(n *Node) bool {
		if n.IsQuestion() && n.ShowsError() {
			out[n.Ix] = n.Answer
		}
		return true
	})
	return out
}

// SurfaceErrors applies server-reported errors. Indices in revalidated
// that the server no longer reports have their server error cleared.
func (t *Tree) SurfaceErrors(revalidated []string, errs map[string]string) {
	for _, ix := range revalidated {
		if n := t.Find(ix); n != nil {
			n.ServerError = errs[ix]
		}
	}
	for ix, msg := range errs {
		if n := t.Find(ix); n != nil {
			n.ServerError = msg
		}
	}
}

// Reconcile replaces the tree's nodes with next, carrying over local entry
// state for indices present in both.
func (t *Tree) Reconcile(next *Tree) {
	if next == nil {
		return
	}
	old := make(map[string]*Node)
	t.Walk(func(n *Node) bool {
		old[n.Ix] = n
		return true
	})
	next.Walk(func(n *Node) bool {
		prev, ok := old[n.Ix]
		if !ok || prev.Type != n.Type {
			return true
		}
		n.ValidationError = prev.ValidationError
		n.ServerError = prev.ServerError
		n.PendingAction = prev.PendingAction
		n.Pending = prev.Pending
		n.MediaPath = prev.MediaPath
		return true
	})
	t.Nodes = next.Nodes
}

// Clone returns a deep copy of the tree.
func (t *Tree) Clone() *Tree {
	if t == nil {
		return nil
	}
	return &Tree{Nodes: cloneNodes(t.Nodes, nil)}
}

func cloneNodes(nodes []*Node, parent *Node) []*Node {
	if nodes == nil {
		return nil
	}
	out := make([]*Node, len(nodes))
	for i, n := range nodes {
		c := *n
		c.Parent = parent
		c.Choices = append([]string(nil), n.Choices...)
		c.Children = cloneNodes(n.Children, &c)
		out[i] = &c
	}
	return out
}
