package mocapcsv

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/phri-lab/mocapcsv/frame"
	"github.com/phri-lab/mocapcsv/row"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	startFrame = `{"start time": "0.0"}` + "\n"
	spokenBody = `{"trackingId":"7","voice activity":"0","head dir":"0.1,0.2,0.3","2":[1,2,3,4,5,6]}`
	otherBody  = `{"trackingId":"8"}`
	noIDBody   = `{"voice activity":"1"}`
)

func peopleFrame(bodies ...string) string {
	return `{"people":[` + strings.Join(bodies, ",") + "]}\n"
}

func expectedHeader() string {
	var b strings.Builder
	b.WriteString("id, trackingId, voice_activity, head_roll, head_yaw, head_pitch, ")
	for _, key := range DefaultJointKeys {
		for _, suffix := range []string{"_x", "_y", "_z", "_ro", "_pi", "_ya"} {
			b.WriteString(key + suffix + ", ")
		}
	}
	b.WriteString("\n")
	return b.String()
}

func newTestConverter(t *testing.T, logs *bytes.Buffer, configure ...func(*Config)) *Converter {
	t.Helper()
	cfg := DefaultConfig()
	cfg.OriginFolder = filepath.Join(t.TempDir(), "raw")
	cfg.DestFolder = filepath.Join(t.TempDir(), "csv")
	for _, f := range configure {
		f(&cfg)
	}
	logger := zerolog.Nop()
	if logs != nil {
		logger = zerolog.New(logs).Level(zerolog.DebugLevel)
	}
	c, err := NewConverter(cfg, logger)
	require.NoError(t, err)
	return c
}

func convertString(t *testing.T, c *Converter, input string) (*FileResult, []string, error) {
	t.Helper()
	var out bytes.Buffer
	res, err := c.ConvertStream(strings.NewReader(input), &out)
	require.NotNil(t, res)
	lines := strings.SplitAfter(out.String(), "\n")
	if last := len(lines) - 1; lines[last] == "" {
		lines = lines[:last]
	}
	return res, lines, err
}

func TestConvertStreamRoundTrip(t *testing.T) {
	c := newTestConverter(t, nil)
	res, lines, err := convertString(t, c, startFrame+peopleFrame(spokenBody))
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, expectedHeader(), lines[0])

	data := strings.TrimSuffix(lines[1], "\n")
	assert.True(t, strings.HasPrefix(data, "7, 0, 0.1, 0.2, 0.3, 1, 2, 3, 4, 5, 6, "), data)
	fields := strings.Split(data, row.Separator)
	assert.Len(t, fields, 130)
	for i, f := range fields[11:] {
		assert.Equal(t, "NaN", f, "field %d", i+11)
	}

	assert.Equal(t, 1, res.Frames)
	assert.Equal(t, 1, res.Rows)
	assert.Equal(t, 0, res.Dropped)
	assert.Equal(t, 0.0, res.StartTime)
}

func TestConvertStreamPrettyPrinted(t *testing.T) {
	input := `{
    "start time": "1528378496.25"
}
{
    "people": [
        {
            "trackingId": "1",
            "head dir": "1,2,3"
        },
        {
            "trackingId": "2"
        }
    ]
}

{
}
`
	c := newTestConverter(t, nil)
	res, lines, err := convertString(t, c, input)
	require.NoError(t, err)
	require.Len(t, lines, 3)
	assert.Equal(t, 1528378496.25, res.StartTime)

	fields := strings.Split(strings.TrimSuffix(lines[1], "\n"), row.Separator)
	assert.Equal(t, []string{"1", "NaN", "1", "2", "3"}, fields[:5])
	assert.Equal(t, "2", fields[65])

	// A frame without people is a row of sentinels
	empty := strings.Split(strings.TrimSuffix(lines[2], "\n"), row.Separator)
	assert.Len(t, empty, 130)
	assert.Equal(t, []string{"NaN"}, unique(empty))
}

func unique(fields []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}

func TestConvertStreamTooManyBodies(t *testing.T) {
	var logs bytes.Buffer
	c := newTestConverter(t, &logs)
	crowd := peopleFrame(spokenBody, otherBody, otherBody)
	input := startFrame + peopleFrame(spokenBody) + crowd + crowd + peopleFrame(otherBody) + crowd

	res, lines, err := convertString(t, c, input)
	require.NoError(t, err)
	assert.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "7, "))
	assert.True(t, strings.HasPrefix(lines[2], "8, "))
	assert.Equal(t, 5, res.Frames)
	assert.Equal(t, 2, res.Rows)
	assert.Equal(t, 3, res.Dropped)

	// One warning per run of crowded frames
	assert.Equal(t, 2, strings.Count(logs.String(), `"level":"warn"`))
	assert.Contains(t, logs.String(), "more than 2 people detected")
}

func TestConvertStreamMissingTrackingID(t *testing.T) {
	c := newTestConverter(t, nil)
	input := startFrame + peopleFrame(spokenBody) + peopleFrame(otherBody, noIDBody) + peopleFrame(spokenBody)

	res, lines, err := convertString(t, c, input)
	require.ErrorIs(t, err, row.ErrMissingTrackingID)
	assert.Equal(t, StatusBadFrame, StatusOf(err))
	assert.Contains(t, err.Error(), "frame 2")

	// Rows before the bad frame are kept, nothing after it is written
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "7, "))
	assert.Equal(t, 1, res.Rows)
}

func TestConvertStreamMalformedFrame(t *testing.T) {
	c := newTestConverter(t, nil)
	input := startFrame + peopleFrame(spokenBody) + "{\n  \"people\": [\n    {\"trackingId\": }\n  ]\n}\n"

	_, lines, err := convertString(t, c, input)
	var syntaxErr *frame.SyntaxError
	require.ErrorAs(t, err, &syntaxErr)
	assert.Equal(t, 3, syntaxErr.Line)
	assert.Equal(t, StatusBadFrame, StatusOf(err))
	assert.Len(t, lines, 2)
}

func TestConvertStreamMissingStartTime(t *testing.T) {
	tests := []struct {
		name  string
		first string
	}{
		{"no start time", peopleFrame(spokenBody)},
		{"unreadable start time", `{"start time": "yesterday"}` + "\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			c := newTestConverter(t, &logs)
			res, lines, err := convertString(t, c, tt.first+peopleFrame(otherBody))
			require.NoError(t, err)
			assert.Equal(t, 0.0, res.StartTime)
			assert.Contains(t, logs.String(), `"level":"warn"`)
			assert.Contains(t, logs.String(), "start time")
			// The first frame is never converted
			require.Len(t, lines, 2)
			assert.True(t, strings.HasPrefix(lines[1], "8, "))
		})
	}
}

func TestConvertStreamEmpty(t *testing.T) {
	c := newTestConverter(t, nil)
	res, lines, err := convertString(t, c, "")
	require.NoError(t, err)
	assert.Equal(t, []string{expectedHeader()}, lines)
	assert.Equal(t, 0, res.Rows)
}

func TestConvertStreamFlushesLastRows(t *testing.T) {
	const frames = 2345
	c := newTestConverter(t, nil)
	var input strings.Builder
	input.WriteString(startFrame)
	for i := 0; i < frames; i++ {
		input.WriteString(peopleFrame(fmt.Sprintf(`{"trackingId":"%d"}`, i)))
	}

	res, lines, err := convertString(t, c, input.String())
	require.NoError(t, err)
	assert.Len(t, lines, frames+1)
	assert.Equal(t, frames, res.Rows)
	assert.True(t, strings.HasPrefix(lines[frames], fmt.Sprintf("%d, ", frames-1)))
}

func TestConvertStreamDuration(t *testing.T) {
	c := newTestConverter(t, nil, func(cfg *Config) { cfg.Frequency = 2 })
	res, _, err := convertString(t, c, startFrame+strings.Repeat(peopleFrame(otherBody), 5))
	require.NoError(t, err)
	assert.Equal(t, "2.5s", res.Duration.String())
}

func writeFile(t *testing.T, dir, name, contents string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o644))
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func TestRunNoInput(t *testing.T) {
	c := newTestConverter(t, nil)
	require.NoError(t, os.MkdirAll(c.config.OriginFolder, 0o755))
	writeFile(t, c.config.OriginFolder, "notes.txt", "not a log")

	report, err := c.Run()
	assert.ErrorIs(t, err, ErrNoInput)
	assert.Equal(t, StatusNoInput, StatusOf(err))
	assert.Equal(t, StatusNoInput, report.Status())
	assert.NoDirExists(t, c.config.DestFolder)
}

func TestRunMissingOriginFolder(t *testing.T) {
	c := newTestConverter(t, nil)
	report, err := c.Run()
	assert.ErrorIs(t, err, ErrNoInput)
	assert.Equal(t, StatusNoInput, report.Status())
}

func TestRun(t *testing.T) {
	c := newTestConverter(t, nil)
	origin, dest := c.config.OriginFolder, c.config.DestFolder
	writeFile(t, origin, "session.01.json", startFrame+peopleFrame(spokenBody)+peopleFrame(otherBody))
	writeFile(t, origin, "b.json", startFrame+peopleFrame(otherBody))
	writeFile(t, origin, "ignored.csv", "")

	report, err := c.Run()
	require.NoError(t, err)
	assert.Equal(t, StatusOK, report.Status())
	require.Len(t, report.Files, 2)
	assert.Equal(t, filepath.Join(dest, "b.csv"), report.Files[0].Output)
	assert.Equal(t, filepath.Join(dest, "session.01.csv"), report.Files[1].Output)

	lines := readLines(t, filepath.Join(dest, "session.01.csv"))
	require.Len(t, lines, 3)
	assert.Equal(t, strings.TrimSuffix(expectedHeader(), "\n"), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "7, 0, 0.1"))
	assert.Len(t, readLines(t, filepath.Join(dest, "b.csv")), 2)
	assert.NoFileExists(t, filepath.Join(dest, "ignored.csv"))
}

func TestRunIsolatesFailures(t *testing.T) {
	tests := []struct {
		name            string
		continueOnError bool
		cConverted      bool
	}{
		{"continue on error", true, true},
		{"stop on error", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestConverter(t, nil, func(cfg *Config) { cfg.ContinueOnError = tt.continueOnError })
			origin, dest := c.config.OriginFolder, c.config.DestFolder
			writeFile(t, origin, "a.json", startFrame+peopleFrame(spokenBody))
			writeFile(t, origin, "b.json", startFrame+peopleFrame(spokenBody)+peopleFrame(noIDBody))
			writeFile(t, origin, "c.json", startFrame+peopleFrame(otherBody))

			report, err := c.Run()
			require.Error(t, err)
			assert.ErrorIs(t, err, row.ErrMissingTrackingID)
			assert.Contains(t, err.Error(), "b.json")
			assert.Equal(t, StatusBadFrame, report.Status())

			assert.Len(t, readLines(t, filepath.Join(dest, "a.csv")), 2)
			// The partial output of the failed file is left behind
			assert.Len(t, readLines(t, filepath.Join(dest, "b.csv")), 2)
			if tt.cConverted {
				assert.Len(t, report.Files, 3)
				assert.Len(t, readLines(t, filepath.Join(dest, "c.csv")), 2)
			} else {
				assert.Len(t, report.Files, 2)
				assert.NoFileExists(t, filepath.Join(dest, "c.csv"))
			}
		})
	}
}

func TestRunDestinationNotWritable(t *testing.T) {
	c := newTestConverter(t, nil)
	writeFile(t, c.config.OriginFolder, "a.json", startFrame)
	// A file where the destination folder should be
	writeFile(t, filepath.Dir(c.config.DestFolder), filepath.Base(c.config.DestFolder), "")

	_, err := c.Run()
	require.Error(t, err)
	assert.Equal(t, StatusIOFailure, StatusOf(err))
}

func TestNewConverterInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FlushThreshold = 0
	_, err := NewConverter(cfg, zerolog.Nop())
	assert.Error(t, err)
}
