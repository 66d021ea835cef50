package row

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/phri-lab/mocapcsv/frame"
)

// MaxBodies is the number of body slots in a row.
const MaxBodies = 2

var (
	// ErrMissingTrackingID is returned when a body has no tracking id.  The
	// data cannot be trusted any more so conversion should stop.
	ErrMissingTrackingID = errors.New("no tracking ID found")

	// ErrMalformedField is returned when a field is present but cannot be
	// interpreted.
	ErrMalformedField = errors.New("malformed field")

	// ErrTooManyBodies is returned when a frame has more than MaxBodies
	// bodies.  It usually means someone walked into the recording area and
	// the frame can be skipped.
	ErrTooManyBodies = errors.New("more than 2 people detected")
)

// A BodyError reports a problem with one field of one body.
type BodyError struct {
	Body  int // Index of the body in the frame
	Field string
	Err   error
}

func (e *BodyError) Error() string {
	return fmt.Sprintf("body %d: %q: %s", e.Body, e.Field, e.Err)
}

func (e *BodyError) Unwrap() error {
	return e.Err
}

// Number of fields written for a body before its joints: tracking id, voice
// activity and the three head angles.
const bodyPrefixWidth = 5

// A Builder turns the bodies of a frame into a Row.  The row always has
// MaxBodies slots; slots without a body are filled with NaN.
type Builder struct {
	jointKeys []string
}

// NewBuilder returns a Builder writing the given joints, in that order.
func NewBuilder(jointKeys []string) *Builder {
	return &Builder{jointKeys: append([]string(nil), jointKeys...)}
}

// BodyWidth is the number of fields written for one body.
func (b *Builder) BodyWidth() int {
	return bodyPrefixWidth + frame.JointSize*len(b.jointKeys)
}

// Width is the number of fields in every row.
func (b *Builder) Width() int {
	return MaxBodies * b.BodyWidth()
}

// Header returns the column names of the CSV header.  It describes a single
// body and starts with an "id" column, as downstream tools expect.
func (b *Builder) Header() []string {
	cols := []string{"id", "trackingId", "voice_activity", "head_roll", "head_yaw", "head_pitch"}
	for _, key := range b.jointKeys {
		for _, suffix := range jointSuffixes {
			cols = append(cols, key+suffix)
		}
	}
	return cols
}

var jointSuffixes = [frame.JointSize]string{"_x", "_y", "_z", "_ro", "_pi", "_ya"}

// Build returns the row for a frame's bodies.
func (b *Builder) Build(bodies []frame.Body) (Row, error) {
	if len(bodies) > MaxBodies {
		return nil, fmt.Errorf("%w: %d bodies", ErrTooManyBodies, len(bodies))
	}
	row := make(Row, 0, b.Width())
	for i := 0; i < MaxBodies; i++ {
		if i >= len(bodies) {
			row = b.appendMissingBody(row)
			continue
		}
		var err error
		row, err = b.appendBody(row, i, bodies[i])
		if err != nil {
			return nil, err
		}
	}
	return row, nil
}

func (b *Builder) appendMissingBody(row Row) Row {
	for i := b.BodyWidth(); i > 0; i-- {
		row = append(row, NaN)
	}
	return row
}

func (b *Builder) appendBody(row Row, index int, body frame.Body) (Row, error) {
	fail := func(field string, err error) (Row, error) {
		return nil, &BodyError{Body: index, Field: field, Err: err}
	}

	id, ok := body.Get(frame.KeyTrackingID)
	if !ok || id == nil {
		return fail(frame.KeyTrackingID, ErrMissingTrackingID)
	}
	f, err := verbatim(id)
	if err != nil {
		return fail(frame.KeyTrackingID, err)
	}
	row = append(row, f)

	if v, ok := body.Get(frame.KeyVoiceActivity); ok {
		f, err := verbatim(v)
		if err != nil {
			return fail(frame.KeyVoiceActivity, err)
		}
		row = append(row, f)
	} else {
		row = append(row, NaN)
	}

	if v, ok := body.Get(frame.KeyHeadDir); ok {
		angles, err := parseHeadDir(v)
		if err != nil {
			return fail(frame.KeyHeadDir, err)
		}
		for _, a := range angles {
			row = append(row, FloatField(a))
		}
	} else {
		row = append(row, NaN, NaN, NaN)
	}

	for _, key := range b.jointKeys {
		joint, ok, err := body.Joint(key)
		if err != nil {
			return fail(key, fmt.Errorf("%w: %s", ErrMalformedField, err))
		}
		for c := 0; c < frame.JointSize; c++ {
			if !ok || c >= len(joint) {
				row = append(row, NaN)
				continue
			}
			f, err := verbatim(joint[c])
			if err != nil {
				return fail(key, err)
			}
			row = append(row, f)
		}
	}
	return row, nil
}

// parseHeadDir reads the "roll,pitch,yaw" string written by the face tracker.
// An array of three numbers is accepted too.
func parseHeadDir(v any) ([3]float64, error) {
	var angles [3]float64
	var parts []any
	switch x := v.(type) {
	case string:
		for _, p := range strings.Split(x, ",") {
			parts = append(parts, p)
		}
	case []any:
		parts = x
	default:
		return angles, fmt.Errorf("%w: expected \"roll,pitch,yaw\", got %T", ErrMalformedField, v)
	}
	if len(parts) != len(angles) {
		return angles, fmt.Errorf("%w: expected 3 angles, got %d", ErrMalformedField, len(parts))
	}
	for i, p := range parts {
		a, err := frame.ParseFloat(p)
		if err != nil {
			return angles, fmt.Errorf("%w: %s", ErrMalformedField, err)
		}
		angles[i] = a
	}
	return angles, nil
}

// verbatim renders a scalar exactly as it was recorded.  JSON null is treated
// as a missing value.
func verbatim(v any) (Field, error) {
	switch x := v.(type) {
	case nil:
		return NaN, nil
	case string:
		return VerbatimField(x), nil
	case json.Number:
		return VerbatimField(string(x)), nil
	case bool:
		return VerbatimField(strconv.FormatBool(x)), nil
	case float64:
		return FloatField(x), nil
	default:
		return NaN, fmt.Errorf("%w: expected a scalar, got %T", ErrMalformedField, v)
	}
}
