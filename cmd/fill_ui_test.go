package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"formplay/cli/internal/form"
)

func TestNextAsksRepeatJunctureAfterRepetitions(t *testing.T) {
	tree, err := form.ParseTree([]byte(`{"tree":[
		{"ix":"0","type":"question","datatype":"str","caption":"Name"},
		{"ix":"1","type":"repeat-juncture","caption":"child","children":[
			{"ix":"1_0","type":"sub-group","children":[
				{"ix":"1_0,0","type":"question","datatype":"int","caption":"Age"}
			]}
		]},
		{"ix":"2","type":"question","datatype":"info","caption":"Thanks"}
	]}`))
	assert.NoError(t, err)

	u := &fillUI{asked: map[string]bool{}}
	var order []string
	for n := u.next(tree); n != nil; n = u.next(tree) {
		order = append(order, n.Ix)
		u.asked[n.Ix] = true
	}
	assert.Equal(t, []string{"0", "1_0,0", "1", "2"}, order)
}

func TestNextOnEmptyTree(t *testing.T) {
	u := &fillUI{asked: map[string]bool{}}
	assert.Nil(t, u.next(nil))
	assert.Nil(t, u.next(&form.Tree{}))
}

func TestAnswerAndErrorText(t *testing.T) {
	n := &form.Node{Ix: "0"}
	assert.Equal(t, "-", answerText(n))
	n.Answer = 34
	assert.Equal(t, "34", answerText(n))
	n.MediaPath = "photo.jpg"
	assert.Equal(t, "photo.jpg", answerText(n))

	n.ValidationError = "local"
	assert.Equal(t, "local", errorText(n))
	n.ServerError = "server"
	assert.Equal(t, "server", errorText(n))
}

func TestToAnyMap(t *testing.T) {
	assert.Nil(t, toAnyMap(nil))
	assert.Equal(t, map[string]any{"case_id": "42"}, toAnyMap(map[string]string{" case_id ": "42"}))
}

func TestRenderPairsAlignsKeys(t *testing.T) {
	got := renderPairs([][]string{{"User", "ada"}, {"Telemetry", "log"}})
	assert.Equal(t, "User       ada\nTelemetry  log", got)
}
