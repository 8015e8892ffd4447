// Package parser reads instrumentation-list YAML files and normalizes their
// library entries into the canonical instrumentation record.
package parser

import (
	"fmt"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/getlawrence/instrumentation-explorer/pkg/instrumentation/types"
)

// ParseError reports a source file that could not be read or decoded.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseFile reads and decodes one instrumentation-list file.
func ParseFile(fs afero.Fs, path string) (*types.InstrumentationList, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	list, err := Parse(data)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return list, nil
}

// Parse decodes instrumentation-list YAML content. A document without a
// libraries mapping is an error; every other field is optional.
func Parse(data []byte) (*types.InstrumentationList, error) {
	var list types.InstrumentationList
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, err
	}
	if list.Libraries == nil {
		return nil, fmt.Errorf("missing libraries mapping")
	}
	return &list, nil
}

// Entry is a transformed library together with its position in the source.
type Entry struct {
	Group  string
	Record types.Instrumentation
}

// Extract transforms every library of every group, in source order.
func Extract(list *types.InstrumentationList) []Entry {
	entries := make([]Entry, 0, list.Libraries.Count())
	for _, group := range list.Libraries {
		for _, lib := range group.Entries {
			entries = append(entries, Entry{
				Group:  group.Name,
				Record: Transform(lib, group.Name),
			})
		}
	}
	return entries
}
