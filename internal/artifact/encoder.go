package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/field-risk-service/internal/domain"
	"gopkg.in/yaml.v3"
)

// encoderFile is the exported state of a fitted one-hot encoder: the input
// feature names, the fitted categories per feature, and the unknown-category
// policy.
type encoderFile struct {
	Features      []string   `json:"features" yaml:"features"`
	Categories    [][]string `json:"categories" yaml:"categories"`
	HandleUnknown string     `json:"handle_unknown" yaml:"handle_unknown"`
}

// LoadEncoder reads a fitted one-hot encoder from a JSON or YAML export.
// The encoder's features must be exactly the observation's categorical
// fields, in order.
func LoadEncoder(path string) (*domain.OneHotEncoder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read encoder: %w", err)
	}

	var f encoderFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &f)
	default:
		err = json.Unmarshal(data, &f)
	}
	if err != nil {
		return nil, fmt.Errorf("parse encoder %s: %w", filepath.Base(path), err)
	}

	want := domain.CategoricalFields()
	if strings.Join(f.Features, ",") != strings.Join(want, ",") {
		return nil, fmt.Errorf("encoder features %v do not match expected %v", f.Features, want)
	}

	return domain.NewOneHotEncoder(f.Features, f.Categories, domain.HandleUnknown(f.HandleUnknown))
}
