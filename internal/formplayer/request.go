// Copyright (c) 2025 Formplay
// Licensed under the MIT License. See LICENSE file in the project root for details.

package formplayer

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/sjson"
)

// Params are the action-specific fields of a request.
type Params map[string]any

// FileParam is the params key carrying a Media attachment.
const FileParam = "file"

// Media is a file attached to an ANSWER_MEDIA request.
type Media struct {
	Filename string
	Data     []byte
}

// ReadMedia loads a local file as a Media attachment.
func ReadMedia(path string) (*Media, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &Media{Filename: filepath.Base(path), Data: data}, nil
}

// Request describes one call to the service. Its params are either fixed
// when the request is created or produced by a builder that runs when the
// request is actually sent, so it can capture the latest state.
type Request struct {
	Action Action
	static Params
	build  func() (Params, error)
}

// Static creates a request whose params are fixed now.
func Static(action Action, p Params) Request {
	return Request{Action: action, static: p}
}

// Deferred creates a request whose params are built at send time.
func Deferred(action Action, build func() (Params, error)) Request {
	return Request{Action: action, build: build}
}

// IsDeferred reports whether the params are built at send time.
func (r Request) IsDeferred() bool { return r.build != nil }

// Resolve returns the request params, running the builder if there is one.
func (r Request) Resolve() (Params, error) {
	if r.build != nil {
		p, err := r.build()
		if err != nil {
			return nil, err
		}
		if p == nil {
			p = Params{}
		}
		return p, nil
	}
	if r.static == nil {
		return Params{}, nil
	}
	return r.static, nil
}

// Context is the session metadata attached to every request.
type Context struct {
	SessionID   string
	Domain      string
	Username    string
	RestoreAs   string
	FormContext map[string]any
	Debugger    bool
	Zone        Zone
	Now         time.Time
}

// Zone is the client time zone reported to the service.
type Zone struct {
	Name     string
	Location *time.Location
}

// LoadZone resolves an IANA zone name. An empty name uses $TZ, then UTC.
func LoadZone(name string) (Zone, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = strings.TrimPrefix(os.Getenv("TZ"), ":")
	}
	if name == "" || strings.EqualFold(name, "local") {
		name = "UTC"
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return Zone{}, err
	}
	return Zone{Name: name, Location: loc}, nil
}

// OffsetMillis is the zone's offset from UTC at t, positive east of UTC.
func (z Zone) OffsetMillis(t time.Time) int64 {
	loc := z.Location
	if loc == nil {
		loc = time.UTC
	}
	_, offset := t.In(loc).Zone()
	return int64(offset) * 1000
}

// ErrMissingMedia is returned for ANSWER_MEDIA requests without a file.
var ErrMissingMedia = errors.New("media answer without file")

// BuildEnvelope renders the JSON body for one request: the session fields
// every request carries followed by params. The "file" param is left out.
func BuildEnvelope(token string, c Context, p Params) ([]byte, error) {
	now := c.Now
	if now.IsZero() {
		now = time.Now()
	}
	formContext := c.FormContext
	if formContext == nil {
		formContext = map[string]any{}
	}
	var sessionID any
	if c.SessionID != "" {
		sessionID = c.SessionID
	}
	var restoreAs any
	if c.RestoreAs != "" {
		restoreAs = c.RestoreAs
	}
	zoneName := c.Zone.Name
	if zoneName == "" {
		zoneName = "UTC"
	}

	body := []byte(`{}`)
	fields := []struct {
		path  string
		value any
	}{
		{"action", token},
		{"form_context", formContext},
		{"domain", c.Domain},
		{"username", c.Username},
		{"restoreAs", restoreAs},
		{"session-id", sessionID},
		{"session_id", sessionID},
		{"debuggerEnabled", c.Debugger},
		{"tz_offset_millis", c.Zone.OffsetMillis(now)},
		{"tz_from_browser", zoneName},
	}
	var err error
	for _, f := range fields {
		if body, err = sjson.SetBytes(body, f.path, f.value); err != nil {
			return nil, err
		}
	}

	keys := make([]string, 0, len(p))
	for k := range p {
		if k != FileParam {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if body, err = sjson.SetBytes(body, escapePath(k), p[k]); err != nil {
			return nil, err
		}
	}
	return body, nil
}

var pathEscaper = strings.NewReplacer(
	`\`, `\\`, ".", `\.`, "*", `\*`, "?", `\?`, "|", `\|`, "#", `\#`, "@", `\@`,
)

// escapePath makes a params key safe to use as a single sjson path component.
func escapePath(k string) string { return pathEscaper.Replace(k) }

func mediaFrom(p Params) (*Media, error) {
	v, ok := p[FileParam]
	if !ok || v == nil {
		return nil, nil
	}
	switch m := v.(type) {
	case *Media:
		return m, nil
	case Media:
		return &m, nil
	}
	return nil, errors.New("file param is not media")
}
