// Package mocapcsv converts motion-capture session logs into CSV files for
// offline analysis.
//
// The package is organized into several sub-packages:
//
// - frame: splits a session log into frames and decodes them
// - row: flattens the tracked bodies of a frame into a fixed-width row
// - encoding/csv: buffered CSV output
//
// These are combined into a conversion pipeline:
//
//	session log -> frame.Reader -> row.Builder -> csv.Encoder -> CSV file
//
// The Converter in this package runs the pipeline over every JSON file of a
// folder.  The CLI utility is in the directory cmd/mocap2csv.
package mocapcsv
