// Package fileformat описывает форматы CSV-файлов для программ с загрузкой файла.
package fileformat

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

type Field struct {
	Name        string `yaml:"name" json:"name"`
	Type        string `yaml:"type" json:"type"`
	Required    bool   `yaml:"required" json:"required"`
	Description string `yaml:"description" json:"description"`
}

type Format struct {
	ID          string     `yaml:"id" json:"id"`
	Name        string     `yaml:"name" json:"name"`
	Description string     `yaml:"description" json:"description"`
	Fields      []Field    `yaml:"fields" json:"fields"`
	Sample      [][]string `yaml:"sample" json:"-"`
}

var ErrUnknownFormat = errors.New("unknown file format")

//go:embed formats.yaml
var catalogYAML []byte

var catalog = mustLoad(catalogYAML)

func mustLoad(data []byte) []Format {
	formats, err := load(data)
	if err != nil {
		panic(err)
	}
	return formats
}

func load(data []byte) ([]Format, error) {
	var formats []Format
	if err := yaml.Unmarshal(data, &formats); err != nil {
		return nil, fmt.Errorf("file formats: %w", err)
	}
	for _, f := range formats {
		for i, row := range f.Sample {
			if len(row) != len(f.Fields) {
				return nil, fmt.Errorf("file format %s: sample row %d has %d cells, want %d",
					f.ID, i+1, len(row), len(f.Fields))
			}
		}
	}
	return formats, nil
}

// List возвращает копию каталога.
func List() []Format {
	res := make([]Format, len(catalog))
	copy(res, catalog)
	return res
}

func Get(id string) (Format, error) {
	for _, f := range catalog {
		if f.ID == id {
			return f, nil
		}
	}
	return Format{}, ErrUnknownFormat
}

func (f Format) Header() []string {
	header := make([]string, 0, len(f.Fields))
	for _, field := range f.Fields {
		header = append(header, field.Name)
	}
	return header
}

// SampleCSV пример файла: строки-комментарии с описанием, заголовок, данные.
func (f Format) SampleCSV() ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# Sample CSV file: %s\n", f.Name)
	fmt.Fprintf(&buf, "# %s\n", f.Description)

	w := csv.NewWriter(&buf)
	if err := w.Write(f.Header()); err != nil {
		return nil, err
	}
	if err := w.WriteAll(f.Sample); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
