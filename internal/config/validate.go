package config

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/roach88/picbridge/internal/ir"
)

//go:embed schema.cue
var schemaSource string

// Validation error codes (E200-E209)
const (
	ErrSchemaCompile  = "E200" // embedded schema failed to compile
	ErrSchemaMismatch = "E201" // value does not satisfy #Config
	ErrBadTimeout     = "E202" // fallback timeout not a positive duration
)

// ValidationError is one rejected configuration field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks the resolved configuration against the embedded CUE
// schema. Returns all errors found (does not fail-fast).
func (c *Config) Validate() []ValidationError {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return []ValidationError{{Field: "schema", Message: err.Error(), Code: ErrSchemaCompile}}
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	value := ctx.Encode(c)
	if err := value.Err(); err != nil {
		return []ValidationError{{Field: "config", Message: err.Error(), Code: ErrSchemaMismatch}}
	}

	var errs []ValidationError
	if err := def.Unify(value).Validate(cue.Concrete(true)); err != nil {
		for _, e := range cueerrors.Errors(err) {
			format, args := e.Msg()
			path := e.Path()
			if len(path) > 0 && path[0] == "#Config" {
				path = path[1:]
			}
			field := strings.Join(path, ".")
			if field == "" {
				field = "config"
			}
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf(format, args...),
				Code:    ErrSchemaMismatch,
			})
		}
	}

	if _, err := c.FallbackTimeout(); err != nil {
		errs = append(errs, ValidationError{
			Field:   "fallback.timeout",
			Message: fmt.Sprintf("%q is not a positive duration", c.Fallback.Timeout),
			Code:    ErrBadTimeout,
		})
	}

	return errs
}

// Check runs Validate and folds the result into a single error.
func (c *Config) Check() error {
	errs := c.Validate()
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return ir.NewError(ir.ErrConfigInvalid, ir.StageConfig, "", strings.Join(msgs, "; "))
}
