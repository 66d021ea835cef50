package mocapcsv

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/go-multierror"
	"github.com/phri-lab/mocapcsv/encoding/csv"
	"github.com/phri-lab/mocapcsv/frame"
	"github.com/phri-lab/mocapcsv/row"
	"github.com/rs/zerolog"
)

// FileResult describes the conversion of one session log.
type FileResult struct {
	Input  string
	Output string

	// Recording start time from the first frame, 0 if it was missing.
	StartTime float64

	// Data frames read, not counting the start time frame.
	Frames int

	// Rows written to the output.
	Rows int

	// Frames skipped because too many bodies were tracked.
	Dropped int

	// Time covered by the data frames at the configured frequency.
	Duration time.Duration

	Err error
}

func (r *FileResult) Status() Status {
	return StatusOf(r.Err)
}

// A Report collects the results of a run.
type Report struct {
	NoInput bool
	Files   []*FileResult
}

// Status returns the status of the run: the status of the first file that
// failed, StatusNoInput if there was nothing to convert, StatusOK otherwise.
func (r *Report) Status() Status {
	if r.NoInput {
		return StatusNoInput
	}
	for _, f := range r.Files {
		if f.Err != nil {
			return f.Status()
		}
	}
	return StatusOK
}

// A Converter turns session logs into CSV files.
type Converter struct {
	config  Config
	logger  zerolog.Logger
	builder *row.Builder
}

// NewConverter validates cfg and returns a Converter logging to logger.
func NewConverter(cfg Config, logger zerolog.Logger) (*Converter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Converter{
		config:  cfg,
		logger:  logger,
		builder: row.NewBuilder(cfg.JointKeys),
	}, nil
}

// Run converts every *.json file of the origin folder into a CSV file with
// the same base name in the destination folder.
//
// If there is no JSON file, ErrNoInput is returned and the destination folder
// is not touched.  Otherwise the returned error aggregates the errors of all
// the files that could not be converted.  Output files of failed conversions
// are left as they are.
func (c *Converter) Run() (*Report, error) {
	report := &Report{}
	inputs, err := c.inputFiles()
	if err != nil {
		return report, fmt.Errorf("listing %q: %w", c.config.OriginFolder, err)
	}
	if len(inputs) == 0 {
		c.logger.Warn().Str("folder", c.config.OriginFolder).Msg("no json file found")
		report.NoInput = true
		return report, ErrNoInput
	}
	if err := os.MkdirAll(c.config.DestFolder, 0o755); err != nil {
		return report, fmt.Errorf("creating destination folder: %w", err)
	}

	var runErr *multierror.Error
	for _, input := range inputs {
		output := filepath.Join(c.config.DestFolder, baseName(input)+".csv")
		c.logger.Info().Str("file", filepath.Base(input)).Msg("processing")
		res := c.convertFile(input, output)
		report.Files = append(report.Files, res)
		if res.Err == nil {
			c.logger.Info().
				Str("file", filepath.Base(output)).
				Int("rows", res.Rows).
				Int("dropped", res.Dropped).
				Msg("converted")
			continue
		}
		c.logger.Error().Err(res.Err).Str("file", filepath.Base(input)).Msg("conversion failed")
		runErr = multierror.Append(runErr, fmt.Errorf("%s: %w", input, res.Err))
		if !c.config.ContinueOnError {
			break
		}
	}
	return report, runErr.ErrorOrNil()
}

func (c *Converter) inputFiles() ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(c.config.OriginFolder), "*.json", doublestar.WithFilesOnly())
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	files := make([]string, len(matches))
	for i, m := range matches {
		files[i] = filepath.Join(c.config.OriginFolder, filepath.FromSlash(m))
	}
	return files, nil
}

// baseName strips the directory and the final extension from a path.
func baseName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func (c *Converter) convertFile(input, output string) (res *FileResult) {
	res = &FileResult{Input: input, Output: output}

	src, err := os.Open(input)
	if err != nil {
		res.Err = err
		return res
	}
	defer src.Close()

	dst, err := os.Create(output)
	if err != nil {
		res.Err = err
		return res
	}
	defer func() {
		if err := dst.Close(); err != nil && res.Err == nil {
			res.Err = err
		}
	}()

	converted, err := c.ConvertStream(src, dst)
	converted.Input, converted.Output, converted.Err = input, output, err
	return converted
}

// ConvertStream converts one session log read from r, writing CSV to w.
//
// The first frame of the log only gives the start time.  A frame with more
// than two bodies is logged and skipped.  Any other problem with a frame stops
// the conversion; rows converted before it are still written to w.
func (c *Converter) ConvertStream(r io.Reader, w io.Writer) (*FileResult, error) {
	res := &FileResult{}
	enc := csv.NewEncoder(w, c.config.FlushThreshold)
	frames := frame.NewReader(r)

	err := c.convertFrames(frames, enc, res)
	res.Rows = enc.Rows()
	res.Duration = time.Duration(float64(res.Frames) / c.config.Frequency * float64(time.Second))
	if flushErr := enc.Flush(); err == nil {
		err = flushErr
	}
	return res, err
}

func (c *Converter) convertFrames(frames *frame.Reader, enc *csv.Encoder, res *FileResult) error {
	if err := enc.WriteHeader(c.builder.Header()); err != nil {
		return err
	}

	first, err := frames.Next()
	if err == io.EOF {
		c.logger.Warn().Msg("empty session log")
		return nil
	}
	if err != nil {
		return err
	}
	res.StartTime = c.startTime(first)

	// Length of the current run of frames with too many bodies
	var crowded int
	for {
		f, err := frames.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		res.Frames++

		r, err := c.builder.Build(f.Bodies())
		if errors.Is(err, row.ErrTooManyBodies) {
			res.Dropped++
			if crowded == 0 {
				c.logger.Warn().Int("frame", res.Frames).Int("people", f.BodyCount()).Msg("more than 2 people detected, skipping frames")
			} else {
				c.logger.Debug().Int("frame", res.Frames).Int("people", f.BodyCount()).Msg("skipping frame")
			}
			crowded++
			continue
		}
		if crowded > 0 {
			c.logger.Info().Int("frame", res.Frames).Int("skipped", crowded).Msg("back to at most 2 people")
			crowded = 0
		}
		if err != nil {
			return fmt.Errorf("frame %d: %w", res.Frames, err)
		}
		if err := enc.WriteRow(r); err != nil {
			return err
		}
	}
	return nil
}

// startTime reads the start time from the first frame of a log, falling back
// to 0.
func (c *Converter) startTime(f *frame.Frame) float64 {
	t, ok, err := f.StartTime()
	switch {
	case !ok:
		c.logger.Warn().Msg(`no "start time" information found`)
	case err != nil:
		c.logger.Warn().Err(err).Msg(`invalid "start time"`)
	default:
		c.logger.Debug().Float64("start_time", t).Msg("start time")
		return t
	}
	return 0
}
