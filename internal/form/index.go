// Copyright (c) 2025 Formplay
// Licensed under the MIT License. See LICENSE file in the project root for details.

package form

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Segment is one level of a composite index. Sep is the separator written
// before N, zero for the first level.
type Segment struct {
	N   int
	Sep rune
}

// Index is a parsed composite question index. Repeat levels are written
// with ':' on the wire ("2_1:0"), other levels with '_' or ','. Each
// segment keeps its separator so Format reproduces the parsed text.
type Index []Segment

// ErrEmptyIndex is returned when parsing an empty index string.
var ErrEmptyIndex = errors.New("empty index")

// ErrNoParent is returned for a top-level index where a parent is needed.
var ErrNoParent = errors.New("index has no parent")

func isIndexSep(r rune) bool { return r == '_' || r == ':' || r == ',' }

// ParseIndex parses a composite index such as "0", "1_2", "2:0_3" or "1,2".
func ParseIndex(s string) (Index, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrEmptyIndex
	}
	var (
		out Index
		sep rune
	)
	rest := s
	for {
		end := strings.IndexFunc(rest, isIndexSep)
		part := rest
		if end >= 0 {
			part = rest[:end]
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("index %q: segment %q is not a number", s, part)
		}
		if n < 0 {
			return nil, fmt.Errorf("index %q: negative segment %d", s, n)
		}
		out = append(out, Segment{N: n, Sep: sep})
		if end < 0 {
			return out, nil
		}
		sep = rune(rest[end])
		rest = rest[end+1:]
	}
}

// Format renders the index with the separators it was parsed with.
func (ix Index) Format() string {
	var b strings.Builder
	for i, seg := range ix {
		if i > 0 {
			sep := seg.Sep
			if sep == 0 {
				sep = '_'
			}
			b.WriteRune(sep)
		}
		b.WriteString(strconv.Itoa(seg.N))
	}
	return b.String()
}

func (ix Index) String() string { return ix.Format() }

// RepeatOrdinal returns the last segment, which for a repetition is its
// position within the enclosing repeat.
func (ix Index) RepeatOrdinal() (int, error) {
	if len(ix) == 0 {
		return 0, ErrEmptyIndex
	}
	return ix[len(ix)-1].N, nil
}

// Parent returns the index with the last segment removed.
func (ix Index) Parent() Index {
	if len(ix) <= 1 {
		return nil
	}
	out := make(Index, len(ix)-1)
	copy(out, ix)
	return out
}
