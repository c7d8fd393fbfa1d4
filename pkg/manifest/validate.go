package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/fulmenhq/gofulmen/schema"

	schemasassets "github.com/3leaps/skybrowse/internal/assets/schemas"
	"github.com/3leaps/skybrowse/pkg/transfer"
)

// SchemaID is the schema identifier for batch manifests.
const SchemaID = "skybrowse/v1.0.0/batch-manifest"

var (
	// ErrSchemaNotFound indicates the embedded schema is missing.
	ErrSchemaNotFound = errors.New("manifest schema not found")

	// ErrValidationFailed indicates the manifest failed validation.
	ErrValidationFailed = errors.New("manifest validation failed")
)

var (
	validatorOnce sync.Once
	validator     *schema.Validator
	validatorErr  error
)

// ValidationError is a single validation issue.
type ValidationError struct {
	// Path is the JSON pointer to the problematic field (e.g., "/copies/0/key").
	Path    string
	Message string
}

func (e ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors is every issue found in one manifest.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	switch len(e) {
	case 0:
		return "validation failed"
	case 1:
		return e[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "manifest validation failed with %d errors:", len(e))
	for _, err := range e {
		b.WriteString("\n  - ")
		b.WriteString(err.Error())
	}
	return b.String()
}

func (e ValidationErrors) Unwrap() error {
	return ErrValidationFailed
}

// Validate checks a manifest built in code against the schema and the
// semantic rules applied on load.
func Validate(m *Manifest) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to serialize manifest for validation: %w", err)
	}
	if err := ValidateRaw(data); err != nil {
		return err
	}
	return validateSemantics(m)
}

// ValidateRaw checks raw JSON against the embedded batch-manifest schema.
func ValidateRaw(jsonData []byte) error {
	v, err := getValidator()
	if err != nil {
		return err
	}
	diags, err := v.ValidateJSON(jsonData)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	var errs ValidationErrors
	for _, d := range diags {
		if d.Severity == schema.SeverityError {
			errs = append(errs, ValidationError{Path: d.Pointer, Message: d.Message})
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// validateSemantics checks what the schema cannot express: object keys and
// container names the stores accept.
func validateSemantics(m *Manifest) error {
	var errs ValidationErrors
	check := func(path string, err error) {
		if err != nil {
			errs = append(errs, ValidationError{Path: path, Message: err.Error()})
		}
	}

	check("/container", transfer.ValidateContainer(m.Container))
	for i, step := range m.Downloads {
		for j, k := range step.Keys {
			check(fmt.Sprintf("/downloads/%d/keys/%d", i, j), transfer.ValidateKey(k))
		}
	}
	for i, step := range m.Copies {
		check(fmt.Sprintf("/copies/%d/key", i), transfer.ValidateKey(step.Key))
		check(fmt.Sprintf("/copies/%d/target_container", i), transfer.ValidateContainer(step.TargetContainer))
	}
	if m.Deletes != nil {
		for j, k := range m.Deletes.Keys {
			check(fmt.Sprintf("/deletes/keys/%d", j), transfer.ValidateKey(k))
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func getValidator() (*schema.Validator, error) {
	validatorOnce.Do(func() {
		if len(schemasassets.BatchManifestSchema) == 0 {
			validatorErr = fmt.Errorf("%w: embedded batch-manifest schema is empty", ErrSchemaNotFound)
			return
		}
		validator, validatorErr = schema.NewValidator(schemasassets.BatchManifestSchema)
		if validatorErr != nil {
			validatorErr = fmt.Errorf("failed to compile manifest schema: %w", validatorErr)
		}
	})
	return validator, validatorErr
}
