package dispute

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Windows holds the statutory response window, in days, per dispute type.
// The defaults follow the federal baselines; jurisdictions that extend a
// window (e.g. the 45-day reinvestigation extension) override via config.
type Windows struct {
	Bureau     int `yaml:"bureau"`
	Furnisher  int `yaml:"furnisher"`
	Validation int `yaml:"validation"`
	CFPB       int `yaml:"cfpb"`
	Legal      int `yaml:"legal"`
}

// DefaultWindows returns the federal baseline windows.
func DefaultWindows() Windows {
	return Windows{
		Bureau:     30,
		Furnisher:  30,
		Validation: 30,
		CFPB:       15,
		Legal:      30,
	}
}

// Days returns the response window for the given dispute type. Unknown types
// fall back to 30 days.
func (w Windows) Days(t Type) int {
	switch t {
	case TypeBureau:
		return w.Bureau
	case TypeFurnisher:
		return w.Furnisher
	case TypeValidation:
		return w.Validation
	case TypeCFPB:
		return w.CFPB
	case TypeLegal:
		return w.Legal
	}
	return 30
}

type windowsFile struct {
	ResponseWindows map[string]int `yaml:"response_windows"`
}

// LoadWindows reads per-type overrides from a YAML file and applies them over
// the defaults. Types absent from the file keep their baseline.
func LoadWindows(path string) (Windows, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Windows{}, fmt.Errorf("dispute: read windows config: %w", err)
	}
	var f windowsFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return Windows{}, fmt.Errorf("dispute: parse windows config: %w", err)
	}

	w := DefaultWindows()
	for name, days := range f.ResponseWindows {
		if days <= 0 {
			return Windows{}, fmt.Errorf("dispute: window for %q must be positive, got %d", name, days)
		}
		switch Type(name) {
		case TypeBureau:
			w.Bureau = days
		case TypeFurnisher:
			w.Furnisher = days
		case TypeValidation:
			w.Validation = days
		case TypeCFPB:
			w.CFPB = days
		case TypeLegal:
			w.Legal = days
		default:
			return Windows{}, fmt.Errorf("dispute: unknown dispute type %q in windows config", name)
		}
	}
	return w, nil
}
