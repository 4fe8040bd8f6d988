package formplayer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func testTokens(t *testing.T) Tokens {
	t.Helper()
	names := map[string]string{}
	for _, a := range Actions() {
		names[a.String()] = "tok-" + a.String()
	}
	names["ANSWER"] = "answer"
	names["SUBMIT"] = "submit-all"
	names["ANSWER_MEDIA"] = "answer-media"
	tokens, err := TokensFrom(names)
	require.NoError(t, err)
	return tokens
}

func TestTokensFromRequiresEveryAction(t *testing.T) {
	_, err := TokensFrom(map[string]string{"ANSWER": "answer"})
	require.Error(t, err)

	_, err = TokensFrom(map[string]string{"NOPE": "x"})
	require.Error(t, err)
}

func TestParseAction(t *testing.T) {
	a, ok := ParseAction(" next_question ")
	require.True(t, ok)
	assert.Equal(t, ActionNextQuestion, a)

	_, ok = ParseAction("")
	assert.False(t, ok)
	assert.Equal(t, "Action(99)", Action(99).String())
}

func TestBuildEnvelopeSessionFields(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	zone := Zone{Name: "Asia/Kolkata", Location: time.FixedZone("IST", 5*3600+1800)}
	ctx := Context{
		SessionID:   "s-1",
		Domain:      "demo",
		Username:    "worker",
		FormContext: map[string]any{"case_id": "c1"},
		Debugger:    true,
		Zone:        zone,
		Now:         now,
	}

	body, err := BuildEnvelope("answer", ctx, Params{
		"ix":     "0_1",
		"answer": 7,
		"a.b":    "dotted",
		"file":   &Media{Filename: "x.png"},
	})
	require.NoError(t, err)

	root := gjson.ParseBytes(body)
	assert.Equal(t, "answer", root.Get("action").String())
	assert.Equal(t, "c1", root.Get("form_context.case_id").String())
	assert.Equal(t, "demo", root.Get("domain").String())
	assert.Equal(t, "worker", root.Get("username").String())
	assert.Equal(t, gjson.Null, root.Get("restoreAs").Type)
	assert.Equal(t, "s-1", root.Get("session-id").String())
	assert.Equal(t, "s-1", root.Get("session_id").String())
	assert.True(t, root.Get("debuggerEnabled").Bool())
	assert.Equal(t, int64(19800000), root.Get("tz_offset_millis").Int())
	assert.Equal(t, "Asia/Kolkata", root.Get("tz_from_browser").String())
	assert.Equal(t, "0_1", root.Get("ix").String())
	assert.Equal(t, int64(7), root.Get("answer").Int())
	assert.Equal(t, "dotted", root.Get(`a\.b`).String())
	assert.False(t, root.Get("file").Exists())
}

func TestBuildEnvelopeWithoutSession(t *testing.T) {
	body, err := BuildEnvelope("new-form", Context{}, nil)
	require.NoError(t, err)

	root := gjson.ParseBytes(body)
	assert.Equal(t, gjson.Null, root.Get("session-id").Type)
	assert.Equal(t, gjson.Null, root.Get("session_id").Type)
	assert.True(t, root.Get("form_context").IsObject())
	assert.Equal(t, int64(0), root.Get("tz_offset_millis").Int())
	assert.Equal(t, "UTC", root.Get("tz_from_browser").String())
}

func TestRequestResolve(t *testing.T) {
	p, err := Static(ActionAnswer, nil).Resolve()
	require.NoError(t, err)
	assert.NotNil(t, p)

	calls := 0
	req := Deferred(ActionSubmit, func() (Params, error) {
		calls++
		return Params{"n": calls}, nil
	})
	assert.True(t, req.IsDeferred())
	assert.Equal(t, 0, calls)
	p, err = req.Resolve()
	require.NoError(t, err)
	assert.Equal(t, 1, p["n"])

	boom := errors.New("boom")
	_, err = Deferred(ActionSubmit, func() (Params, error) { return nil, boom }).Resolve()
	assert.ErrorIs(t, err, boom)
}

func TestParseResponse(t *testing.T) {
	body := []byte(`{
		"status": "error",
		"seq_id": "12",
		"session_id": "abc",
		"errors": {"0": {"type": "constraint", "reason": "too big"}, "1": "required"},
		"notification": {"message": "Form is locked", "error": true},
		"currentIndex": 3,
		"isAtLastIndex": true,
		"langs": ["en", "fr"]
	}`)
	r, err := ParseResponse(body)
	require.NoError(t, err)

	assert.Equal(t, StatusError, r.Status)
	assert.True(t, r.IsError())
	require.NotNil(t, r.SeqID)
	assert.Equal(t, int64(12), *r.SeqID)
	assert.Equal(t, "abc", r.SessionID)
	assert.Equal(t, map[string]string{"0": "too big", "1": "required"}, r.ErrorMessages())
	assert.Equal(t, "constraint", r.Errors["0"].Type)
	assert.Equal(t, "Form is locked", r.Notification)
	assert.Equal(t, "3", r.CurrentIndex)
	assert.True(t, r.IsAtLastIndex)
	assert.Equal(t, []string{"en", "fr"}, r.Langs)
}

func TestParseResponseWithoutSeq(t *testing.T) {
	r, err := ParseResponse([]byte(`{"status":"success","notification":"hello"}`))
	require.NoError(t, err)
	assert.Nil(t, r.SeqID)
	assert.Equal(t, "hello", r.Notification)

	_, err = ParseResponse([]byte(`[1,2]`))
	assert.ErrorIs(t, err, ErrInvalidResponse)
	_, err = ParseResponse([]byte(`<html>`))
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestClientSendJSON(t *testing.T) {
	var gotPath, gotAuth, gotType, gotReqID string
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		gotReqID = r.Header.Get("X-Request-ID")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"status":"success","seq_id":4,"session_id":"s-9"}`)
	}))
	defer srv.Close()

	c, err := NewClient(Options{
		BaseURL:   srv.URL + "/",
		Tokens:    testTokens(t),
		AuthToken: func() string { return "tkn" },
	})
	require.NoError(t, err)

	resp, err := c.Send(context.Background(), ActionAnswer, Context{SessionID: "s-9"}, Params{"ix": "0", "answer": "x"})
	require.NoError(t, err)

	assert.Equal(t, "/answer", gotPath)
	assert.Equal(t, "Bearer tkn", gotAuth)
	assert.Equal(t, "application/json", gotType)
	assert.NotEmpty(t, gotReqID)
	assert.Equal(t, "answer", got["action"])
	assert.Equal(t, "x", got["answer"])
	assert.Equal(t, "s-9", resp.SessionID)
	require.NotNil(t, resp.SeqID)
	assert.Equal(t, int64(4), *resp.SeqID)
}

func TestClientSendMultipart(t *testing.T) {
	var envelope map[string]any
	var fileName string
	var fileData []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if fh := r.MultipartForm.File["answer"]; len(fh) == 1 {
			f, _ := fh[0].Open()
			_ = json.NewDecoder(f).Decode(&envelope)
			f.Close()
		}
		if fh := r.MultipartForm.File["file"]; len(fh) == 1 {
			fileName = fh[0].Filename
			f, _ := fh[0].Open()
			fileData, _ = io.ReadAll(f)
			f.Close()
		}
		_, _ = io.WriteString(w, `{"status":"success"}`)
	}))
	defer srv.Close()

	c, err := NewClient(Options{BaseURL: srv.URL, Tokens: testTokens(t)})
	require.NoError(t, err)

	_, err = c.Send(context.Background(), ActionAnswerMedia, Context{}, Params{
		"ix":   "2",
		"file": &Media{Filename: "photo.jpg", Data: []byte("jpegdata")},
	})
	require.NoError(t, err)

	assert.Equal(t, "answer-media", envelope["action"])
	assert.Equal(t, "2", envelope["ix"])
	assert.NotContains(t, envelope, "file")
	assert.Equal(t, "photo.jpg", fileName)
	assert.Equal(t, []byte("jpegdata"), fileData)
}

func TestClientMediaWithoutFile(t *testing.T) {
	c, err := NewClient(Options{BaseURL: "http://127.0.0.1:1", Tokens: testTokens(t)})
	require.NoError(t, err)
	_, err = c.Send(context.Background(), ActionAnswerMedia, Context{}, Params{"ix": "0"})
	assert.ErrorIs(t, err, ErrMissingMedia)
}

func TestClientHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusLocked)
		_, _ = io.WriteString(w, `{"exception":"session locked"}`)
	}))
	defer srv.Close()

	c, err := NewClient(Options{BaseURL: srv.URL, Tokens: testTokens(t)})
	require.NoError(t, err)

	_, err = c.Send(context.Background(), ActionCurrent, Context{}, nil)
	require.Error(t, err)

	status, ok := StatusOf(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusLocked, status)

	var he *HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, "session locked", he.ServerMessage())
	assert.Equal(t, "formplayer returned 423: session locked", he.Error())
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(Options{Tokens: testTokens(t)})
	assert.Error(t, err)
	_, err = NewClient(Options{BaseURL: "http://x"})
	assert.Error(t, err)
}
