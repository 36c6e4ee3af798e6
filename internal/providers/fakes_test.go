package providers

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"reflect"
	"strings"

	"github.com/spf13/afero"
)

type fakeRunner struct {
	tools  map[string]string
	errs   map[string]error
	called []string
}

func (f *fakeRunner) LookPath(file string) (string, error) {
	if _, ok := f.tools[file]; ok {
		return "/usr/bin/" + file, nil
	}
	return "", exec.ErrNotFound
}

func (f *fakeRunner) Output(_ context.Context, name string, args ...string) ([]byte, error) {
	f.called = append(f.called, name)
	if err := f.errs[name]; err != nil {
		return nil, err
	}
	return []byte(f.tools[name]), nil
}

// fakeQuerier answers by class name, taken from the FROM clause or the
// AssocClass of an ASSOCIATORS query
type fakeQuerier struct {
	rows    map[string]interface{}
	fail    map[string]error
	queries []string
}

func queryClass(q string) string {
	if i := strings.Index(q, "AssocClass = "); i >= 0 {
		return strings.TrimSpace(q[i+len("AssocClass = "):])
	}
	if i := strings.Index(q, " FROM "); i >= 0 {
		rest := strings.Fields(q[i+len(" FROM "):])
		if len(rest) > 0 {
			return rest[0]
		}
	}
	return ""
}

func (f *fakeQuerier) Query(_ context.Context, _ string, query string, dst interface{}) error {
	f.queries = append(f.queries, query)
	class := strings.ToLower(queryClass(query))
	for k, err := range f.fail {
		if strings.ToLower(k) == class {
			return err
		}
	}
	for k, rows := range f.rows {
		if strings.ToLower(k) == class {
			out := reflect.ValueOf(dst).Elem()
			v := reflect.ValueOf(rows)
			if v.Type() != out.Type() {
				return fmt.Errorf("fake: %s rows are %s, want %s", k, v.Type(), out.Type())
			}
			out.Set(v)
			return nil
		}
	}
	return nil
}

var errWMI = errors.New("0x80041010 invalid class")

func writeFiles(fs afero.Fs, files map[string]string) {
	for path, content := range files {
		_ = afero.WriteFile(fs, path, []byte(content), 0644)
	}
}
