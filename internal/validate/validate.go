// Package validate checks request bodies against the embedded JSON schemas in
// schemas/ before they are decoded.
package validate

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/qri-io/jsonschema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Schema names.
const (
	Signup            = "signup"
	Signin            = "signin"
	TaskCreate        = "task_create"
	TaskStatus        = "task_status"
	TaskAmplifier     = "task_amplifier"
	ProjectCreate     = "project_create"
	ProjectUpdate     = "project_update"
	EventCreate       = "event_create"
	AttendanceApprove = "attendance_approve"
	UserRole          = "user_role"
	RecurringCreate   = "recurring_create"
)

var ErrInvalid = errors.New("invalid request body")

// Error lists the schema violations of a body.
type Error struct {
	Problems []string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalid, strings.Join(e.Problems, "; "))
}

func (e *Error) Unwrap() error { return ErrInvalid }

// Validator caches compiled schemas by name.
type Validator struct {
	mu    sync.RWMutex
	cache map[string]*jsonschema.Schema
}

// New compiles the embedded schemas.
func New() (*Validator, error) {
	v := &Validator{cache: make(map[string]*jsonschema.Schema)}
	if err := v.Load(schemaFS, "schemas"); err != nil {
		return nil, err
	}
	return v, nil
}

// Load compiles every *.json file in dir, replacing the cache.
func (v *Validator) Load(fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("read schemas: %w", err)
	}

	next := make(map[string]*jsonschema.Schema, len(entries))
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".json" {
			continue
		}
		b, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return fmt.Errorf("read schema %s: %w", e.Name(), err)
		}
		rs := &jsonschema.Schema{}
		if err := json.Unmarshal(b, rs); err != nil {
			return fmt.Errorf("compile schema %s: %w", e.Name(), err)
		}
		next[strings.TrimSuffix(e.Name(), ".json")] = rs
	}

	v.mu.Lock()
	v.cache = next
	v.mu.Unlock()
	return nil
}

// Names lists the loaded schemas.
func (v *Validator) Names() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]string, 0, len(v.cache))
	for k := range v.cache {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Validate checks body against the named schema. Violations are returned as
// *Error, which matches ErrInvalid.
func (v *Validator) Validate(ctx context.Context, name string, body []byte) error {
	v.mu.RLock()
	rs, ok := v.cache[name]
	v.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown schema %q", name)
	}

	if !json.Valid(body) {
		return &Error{Problems: []string{"body is not valid JSON"}}
	}

	kerrs, err := rs.ValidateBytes(ctx, body)
	if err != nil {
		return &Error{Problems: []string{err.Error()}}
	}
	if len(kerrs) == 0 {
		return nil
	}

	problems := make([]string, 0, len(kerrs))
	for _, ke := range kerrs {
		problems = append(problems, ke.Error())
	}
	return &Error{Problems: problems}
}
