package scoring

import (
	"bytes"
	_ "embed"
	"fmt"
)

//go:embed default_rubric.yaml
var defaultRubricYAML []byte

// DefaultRubric returns the rubric revision compiled into the binary.
// Deployments point LITSCREEN_RUBRIC_PATH at a file to override it.
func DefaultRubric() Rubric {
	rubric, err := Load(bytes.NewReader(defaultRubricYAML))
	if err != nil {
		panic(fmt.Sprintf("embedded rubric is invalid: %v", err))
	}
	return rubric
}
