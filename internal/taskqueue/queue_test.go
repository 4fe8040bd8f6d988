package taskqueue

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder keeps the done callbacks of started tasks so tests can finish
// them in any order.
type recorder struct {
	started []string
	done    map[string]func()
}

func newRecorder() *recorder { return &recorder{done: make(map[string]func())} }

func (r *recorder) task(action, name string) Task {
	return Task{Action: action, Run: func(done func()) error {
		r.started = append(r.started, name)
		r.done[name] = done
		return nil
	}}
}

func TestAddRunsImmediatelyWhenIdle(t *testing.T) {
	q := New(zerolog.Nop())
	r := newRecorder()

	q.Add(r.task("answer", "a1"))
	assert.Equal(t, []string{"a1"}, r.started)
	assert.True(t, q.Running("answer"))
	assert.Equal(t, 0, q.Pending("answer"))
}

func TestSameKeyIsFIFO(t *testing.T) {
	q := New(zerolog.Nop())
	r := newRecorder()

	q.Add(r.task("answer", "a1"))
	q.Add(r.task("answer", "a2"))
	q.Add(r.task("answer", "a3"))
	require.Equal(t, []string{"a1"}, r.started)
	assert.Equal(t, 2, q.Pending("answer"))

	r.done["a1"]()
	assert.Equal(t, []string{"a1", "a2"}, r.started)
	r.done["a2"]()
	r.done["a3"]()
	assert.Equal(t, []string{"a1", "a2", "a3"}, r.started)
	assert.False(t, q.Running("answer"))
}

func TestDifferentKeysInterleave(t *testing.T) {
	q := New(zerolog.Nop())
	r := newRecorder()

	q.Add(r.task("answer", "a1"))
	q.Add(r.task("next_index", "n1"))
	assert.Equal(t, []string{"a1", "n1"}, r.started)
}

func TestClearKeepsOnlyLatestSubmit(t *testing.T) {
	q := New(zerolog.Nop())
	r := newRecorder()

	q.Add(r.task("submit-all", "in-flight"))
	q.Add(r.task("submit-all", "A"))

	dropped := q.Clear("submit-all")
	q.Add(r.task("submit-all", "B"))
	assert.Equal(t, 1, dropped)

	r.done["in-flight"]()
	r.done["B"]()

	assert.Equal(t, []string{"in-flight", "B"}, r.started)
	assert.NotContains(t, r.started, "A")
}

func TestClearOnlyAffectsItsKey(t *testing.T) {
	q := New(zerolog.Nop())
	r := newRecorder()

	q.Add(r.task("answer", "a1"))
	q.Add(r.task("answer", "a2"))
	q.Clear("submit-all")
	assert.Equal(t, 1, q.Pending("answer"))
}

func TestSynchronousFailureMovesOn(t *testing.T) {
	q := New(zerolog.Nop())
	r := newRecorder()

	q.Add(r.task("answer", "a1"))
	q.Add(Task{Action: "answer", Run: func(func()) error {
		r.started = append(r.started, "broken")
		return errors.New("build failed")
	}})
	q.Add(r.task("answer", "a3"))

	r.done["a1"]()
	assert.Equal(t, []string{"a1", "broken", "a3"}, r.started)
	assert.True(t, q.Running("answer"))
}

func TestDoneCalledSynchronously(t *testing.T) {
	q := New(zerolog.Nop())
	var order []string
	sync := func(name string) Task {
		return Task{Action: "k", Run: func(done func()) error {
			order = append(order, name)
			done()
			return nil
		}}
	}

	q.Add(sync("one"))
	q.Add(sync("two"))
	assert.Equal(t, []string{"one", "two"}, order)
	assert.False(t, q.Running("k"))
}

func TestDoneIsIdempotent(t *testing.T) {
	q := New(zerolog.Nop())
	r := newRecorder()

	q.Add(r.task("k", "first"))
	q.Add(r.task("k", "second"))
	q.Add(r.task("k", "third"))

	r.done["first"]()
	r.done["first"]()
	assert.Equal(t, []string{"first", "second"}, r.started)
}
