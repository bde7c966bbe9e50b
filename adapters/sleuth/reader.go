// Package sleuth parses the Sleuth plain-text foci format used to
// exchange coordinate tables between meta-analysis tools:
//
//	// Reference=MNI
//	// Smith et al., 2009: Subjects=12
//	-38 -44 48
//	36 -40 44
//
//	// Jones et al., 2011: Subjects=20
//	...
//
// Comment lines carrying "Subjects=" open a new study; bare coordinate
// lines belong to the most recent study.
package sleuth

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/tamarajafar/NeuroMeta/domain/core"
	"github.com/tamarajafar/NeuroMeta/domain/study"
)

// Reader parses Sleuth text from an io.Reader.
type Reader struct {
	src io.Reader
}

// NewReader wraps an open stream.
func NewReader(src io.Reader) *Reader {
	return &Reader{src: src}
}

// FileReader reads the given Sleuth text file; implements
// ports.StudySource.
type FileReader struct {
	path string
}

// NewFileReader creates a file-backed reader.
func NewFileReader(path string) *FileReader {
	return &FileReader{path: path}
}

// ReadStudies implements ports.StudySource.
func (r *FileReader) ReadStudies(ctx context.Context) ([]study.Study, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("open sleuth file: %w", err)
	}
	defer f.Close()
	return NewReader(f).ReadStudies(ctx)
}

// ReadStudies parses the stream into studies in order of appearance.
func (r *Reader) ReadStudies(ctx context.Context) ([]study.Study, error) {
	var studies []study.Study
	var current *study.Study

	scanner := bufio.NewScanner(r.src)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "//") {
			header := strings.TrimSpace(strings.TrimPrefix(line, "//"))
			if name, n, ok := parseStudyHeader(header); ok {
				if current != nil {
					studies = append(studies, *current)
				}
				current = &study.Study{Name: name, SampleSize: n}
			}
			// Other comment lines (e.g. Reference=MNI) are metadata.
			continue
		}
		f, err := parseFocusLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if current == nil {
			return nil, fmt.Errorf("line %d: %w: focus before any study header", lineNo, core.ErrMalformedFociTable)
		}
		current.Foci = append(current.Foci, f)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read sleuth text: %w", err)
	}
	if current != nil {
		studies = append(studies, *current)
	}
	return studies, nil
}

// parseStudyHeader recognizes "<name>: Subjects=<n>".
func parseStudyHeader(header string) (string, int, bool) {
	const marker = "Subjects="
	at := strings.Index(header, marker)
	if at < 0 {
		return "", 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(header[at+len(marker):]))
	if err != nil {
		return "", 0, false
	}
	name := strings.TrimSuffix(strings.TrimSpace(header[:at]), ":")
	return strings.TrimSpace(name), n, true
}

func parseFocusLine(line string) (study.Focus, error) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return study.Focus{}, fmt.Errorf("%w: expected 3 coordinates, got %d", core.ErrMalformedFociTable, len(fields))
	}
	var coords [3]float64
	for i, fld := range fields {
		v, err := strconv.ParseFloat(fld, 64)
		if err != nil {
			return study.Focus{}, fmt.Errorf("%w: %q is not a number", core.ErrMalformedFociTable, fld)
		}
		coords[i] = v
	}
	return study.Focus{X: coords[0], Y: coords[1], Z: coords[2]}, nil
}
