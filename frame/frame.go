// Package frame decodes motion-capture session logs into frames.
//
// A session log is a sequence of JSON objects, usually pretty-printed with one
// key or brace per line, each object being a snapshot of the tracked bodies at
// one sensor sampling instant.  The first object of a log only carries the
// recording start time.
package frame

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Keys understood in frames and bodies.
const (
	KeyStartTime     = "start time"
	KeyPeople        = "people"
	KeyTrackingID    = "trackingId"
	KeyVoiceActivity = "voice activity"
	KeyHeadDir       = "head dir"
)

// JointSize is the number of components of a joint: x, y, z, roll, pitch, yaw.
const JointSize = 6

// A Body holds one tracked person's fields.  Numbers are kept as json.Number
// so that they can be written out exactly as they were recorded.
type Body map[string]any

// Get returns the value of a field and whether it is present.
func (b Body) Get(key string) (any, bool) {
	v, ok := b[key]
	return v, ok
}

// A Joint is the ordered list of components recorded for one joint.  A
// well-formed joint has JointSize components.
type Joint []any

// Joint returns the joint recorded under key.  It fails if the value is present
// but is not an array.
func (b Body) Joint(key string) (Joint, bool, error) {
	v, ok := b[key]
	if !ok {
		return nil, false, nil
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, true, fmt.Errorf("joint %q: expected an array, got %T", key, v)
	}
	return Joint(arr), true, nil
}

// A Frame is one decoded object of a session log.
type Frame struct {
	fields map[string]any
	people []Body
}

// Decode parses a single JSON object into a Frame.
func Decode(text []byte) (*Frame, error) {
	dec := json.NewDecoder(bytes.NewReader(text))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, errors.New("frame is not an object")
	}
	f := &Frame{fields: fields}
	switch people := fields[KeyPeople].(type) {
	case nil:
	case []any:
		f.people = make([]Body, len(people))
		for i, p := range people {
			body, ok := p.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("people[%d]: expected an object, got %T", i, p)
			}
			f.people[i] = Body(body)
		}
	default:
		return nil, fmt.Errorf("people: expected an array, got %T", people)
	}
	return f, nil
}

// Get returns a top level field of the frame.
func (f *Frame) Get(key string) (any, bool) {
	v, ok := f.fields[key]
	return v, ok
}

// Bodies returns the tracked bodies in the order they were recorded.  A frame
// without a "people" key has no bodies.
func (f *Frame) Bodies() []Body {
	return f.people
}

func (f *Frame) BodyCount() int {
	return len(f.people)
}

// StartTime returns the recording start time carried by the first frame of a
// log.  The boolean is false when the frame has no start time.
func (f *Frame) StartTime() (float64, bool, error) {
	v, ok := f.fields[KeyStartTime]
	if !ok {
		return 0, false, nil
	}
	t, err := ParseFloat(v)
	if err != nil {
		return 0, true, fmt.Errorf("start time: %w", err)
	}
	return t, true, nil
}

// ParseFloat interprets a decoded JSON value as a float.  Strings are accepted
// because the recorder writes most numbers as strings.
func ParseFloat(v any) (float64, error) {
	switch x := v.(type) {
	case json.Number:
		return x.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(x), 64)
	case float64:
		return x, nil
	default:
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
}
