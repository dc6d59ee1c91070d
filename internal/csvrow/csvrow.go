// Package csvrow разбирает загруженный CSV в строки, адресуемые по именам колонок.
package csvrow

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Header имена колонок в порядке файла.
type Header []string

func (h Header) Index(name string) int {
	for i, col := range h {
		if col == name {
			return i
		}
	}
	return -1
}

func (h Header) Has(name string) bool {
	return h.Index(name) >= 0
}

// Row одна строка данных. Значения отсутствующих ячеек - пустые строки.
type Row struct {
	header Header
	values []string
	line   int
}

// FromPairs удобная сборка строки: FromPairs("partner_user_id", "u1", "contact", "").
func FromPairs(kv ...string) Row {
	var row Row
	for i := 0; i+1 < len(kv); i += 2 {
		row.header = append(row.header, kv[i])
		row.values = append(row.values, kv[i+1])
	}
	return row
}

func (r Row) Get(name string) string {
	i := r.header.Index(name)
	if i < 0 || i >= len(r.values) {
		return ""
	}
	return r.values[i]
}

func (r Row) Keys() []string {
	return append([]string(nil), r.header...)
}

// Line номер строки в исходном файле (0 для собранных вручную).
func (r Row) Line() int {
	return r.line
}

func (r Row) Map() map[string]string {
	m := make(map[string]string, len(r.header))
	for _, k := range r.header {
		m[k] = r.Get(k)
	}
	return m
}

// ParseError файл не разбирается как CSV.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("csv parse error on line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

var ErrMissingColumns = errors.New("missing required columns")

var bom = []byte{0xEF, 0xBB, 0xBF}

// Parse читает весь поток. Первая запись - заголовок, строки с '#' - комментарии,
// пустые строки пропускаются. Длина строк не проверяется.
func Parse(r io.Reader) ([]Row, Header, error) {
	br := bufio.NewReader(r)
	if prefix, err := br.Peek(len(bom)); err == nil && string(prefix) == string(bom) {
		br.Discard(len(bom))
	}

	reader := csv.NewReader(br)
	reader.Comment = '#'
	reader.FieldsPerRecord = -1

	var header Header
	var rows []Row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var line int
			var csvErr *csv.ParseError
			if errors.As(err, &csvErr) {
				line = csvErr.Line
			}
			return nil, nil, &ParseError{Line: line, Err: err}
		}

		if header == nil {
			header = make(Header, len(record))
			for i, col := range record {
				header[i] = strings.TrimSpace(col)
			}
			continue
		}

		line, _ := reader.FieldPos(0)
		values := make([]string, len(header))
		copy(values, record)
		rows = append(rows, Row{header: header, values: values, line: line})
	}
	return rows, header, nil
}

// RequireAny проверяет, что в заголовке есть хотя бы одна из колонок.
func RequireAny(header Header, cols ...string) error {
	for _, col := range cols {
		if header.Has(col) {
			return nil
		}
	}
	return fmt.Errorf("%w: csv must contain at least one of %s", ErrMissingColumns, strings.Join(cols, ", "))
}
