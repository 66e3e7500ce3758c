/*
Copyright (c) YugabyteDB, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package datafile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"github.com/yugabyte/yb-table-anonymizer/src/errs"
)

const (
	DEFAULT_DELIMITER = ","
	DEFAULT_ENCLOSURE = `"`
	DEFAULT_ENCODING  = "utf-8"
)

// Format describes how the rows of a table's chunks are serialised.
type Format struct {
	Delimiter rune
	// Either `"` or empty. Empty enclosure reads quotes as ordinary characters.
	Enclosure string
	Encoding  string

	enc encoding.Encoding // nil for utf-8
}

func DefaultFormat() Format {
	f, _ := NewFormat("", "", "")
	return f
}

func NewFormat(delimiter string, enclosure string, encodingName string) (Format, error) {
	if delimiter == "" {
		delimiter = DEFAULT_DELIMITER
	}
	resolved, ok := interpreteEscapeSequences(delimiter)
	if !ok {
		return Format{}, errs.NewConfigurationErrorWithReason("delimiter", delimiter, "delimiter must be a single character")
	}
	r, _ := utf8.DecodeRuneInString(resolved)
	if r == '"' || r == '\r' || r == '\n' || r == utf8.RuneError {
		return Format{}, errs.NewConfigurationErrorWithReason("delimiter", delimiter, "delimiter cannot be a quote or a line break")
	}

	if enclosure != "" && enclosure != DEFAULT_ENCLOSURE {
		return Format{}, errs.NewConfigurationError("enclosure", enclosure, []string{DEFAULT_ENCLOSURE, ""})
	}

	if encodingName == "" {
		encodingName = DEFAULT_ENCODING
	}
	enc, err := htmlindex.Get(encodingName)
	if err != nil {
		return Format{}, errs.NewConfigurationErrorWithReason("encoding", encodingName, "unknown character encoding")
	}
	canonical, _ := htmlindex.Name(enc)
	if canonical == DEFAULT_ENCODING {
		enc = nil
	}
	return Format{Delimiter: r, Enclosure: enclosure, Encoding: encodingName, enc: enc}, nil
}

func (f Format) DelimiterString() string {
	return string(f.Delimiter)
}

// interpreteEscapeSequences turns `\t` style escapes into the character they denote.
func interpreteEscapeSequences(value string) (string, bool) {
	if utf8.RuneCountInString(value) == 1 {
		return value, true
	}
	resolvedValue, err := strconv.Unquote(`"` + value + `"`)
	if err != nil || utf8.RuneCountInString(resolvedValue) != 1 {
		return value, false
	}
	return resolvedValue, true
}

type countingReader struct {
	r         io.Reader
	bytesRead int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.bytesRead += int64(n)
	return n, err
}

// CsvReader streams the records of one chunk.
type CsvReader struct {
	path    string
	file    *os.File
	counter *countingReader
	reader  *csv.Reader
}

func OpenCsvReader(path string, format Format) (*CsvReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errs.NewIOError("open", path, err)
	}
	counter := &countingReader{r: file}
	var src io.Reader = counter
	if format.enc != nil {
		src = transform.NewReader(counter, format.enc.NewDecoder())
	}
	reader := csv.NewReader(src)
	reader.Comma = format.Delimiter
	reader.FieldsPerRecord = -1 // rows are zipped positionally, width is not validated
	reader.LazyQuotes = format.Enclosure == ""
	reader.ReuseRecord = true
	log.Debugf("opened csv reader for %q (delimiter %q, encoding %q)", path, format.DelimiterString(), format.Encoding)
	return &CsvReader{path: path, file: file, counter: counter, reader: reader}, nil
}

// Read returns the next record, or io.EOF once the chunk is exhausted.
// The returned slice is reused by the next call.
func (r *CsvReader) Read() ([]string, error) {
	record, err := r.reader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return nil, errs.NewIOError("parse", r.path, err)
		}
		return nil, errs.NewIOError("read", r.path, err)
	}
	return record, nil
}

func (r *CsvReader) BytesRead() int64 {
	return r.counter.bytesRead
}

func (r *CsvReader) Close() error {
	return r.file.Close()
}

// CsvWriter writes records with the same delimiter and encoding they were read with.
// Fields are quoted only when they need to be.
type CsvWriter struct {
	path    string
	file    *os.File
	encoder *transform.Writer
	writer  *csv.Writer
}

func CreateCsvWriter(path string, format Format) (*CsvWriter, error) {
	err := os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return nil, errs.NewIOError("create directory", filepath.Dir(path), err)
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, errs.NewIOError("create", path, err)
	}
	w := &CsvWriter{path: path, file: file}
	var dst io.Writer = file
	if format.enc != nil {
		w.encoder = transform.NewWriter(file, format.enc.NewEncoder())
		dst = w.encoder
	}
	w.writer = csv.NewWriter(dst)
	w.writer.Comma = format.Delimiter
	return w, nil
}

func (w *CsvWriter) Write(record []string) error {
	err := w.writer.Write(record)
	if err != nil {
		return errs.NewIOError("write", w.path, err)
	}
	return nil
}

// Close flushes buffered rows and closes the file. The first failure wins.
func (w *CsvWriter) Close() error {
	w.writer.Flush()
	err := w.writer.Error()
	if w.encoder != nil {
		if cerr := w.encoder.Close(); err == nil {
			err = cerr
		}
	}
	if cerr := w.file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return errs.NewIOError("write", w.path, err)
	}
	return nil
}

// ReadHeader returns the first record of the chunk at path, or nil if the chunk is empty.
func ReadHeader(path string, format Format) ([]string, error) {
	r, err := OpenCsvReader(path, format)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	record, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	header := append([]string(nil), record...)
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	return header, nil
}
