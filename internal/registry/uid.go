package registry

import (
	"errors"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/rollcall/internal/fault"
)

// uidPattern is the canonical UID rendering: upper-case hex bytes separated
// by single spaces, e.g. "04 A1 B2 C3".
var uidPattern = regexp.MustCompile(`^[0-9A-F]{2}( [0-9A-F]{2})*$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("carduid", func(fl validator.FieldLevel) bool {
		return uidPattern.MatchString(fl.Field().String())
	})
	return v
}

// entry bounds display names to 128 characters after normalization.
type entry struct {
	UID  string `validate:"required,carduid"`
	Name string `validate:"required,max=128"`
}

// NormalizeUID converts "04a1b2c3", "04:A1:B2:C3" or " 04 a1 b2 c3 " to the
// canonical "04 A1 B2 C3". It fails on anything that is not whole hex bytes.
func NormalizeUID(uid string) (string, error) {
	compact := strings.Map(func(r rune) rune {
		switch r {
		case ' ', ':', '-', '\t':
			return -1
		}
		return r
	}, strings.ToUpper(strings.TrimSpace(uid)))

	if compact == "" || len(compact)%2 != 0 {
		return "", fault.Validation("registry.uid", "uid must be whole hex bytes")
	}

	pairs := make([]string, 0, len(compact)/2)
	for i := 0; i < len(compact); i += 2 {
		pairs = append(pairs, compact[i:i+2])
	}
	canonical := strings.Join(pairs, " ")

	if err := validate.Var(canonical, "carduid"); err != nil {
		return "", fault.Validation("registry.uid", "uid must be whole hex bytes")
	}
	return canonical, nil
}

// NormalizeName trims and NFC-normalizes a display name.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

func validateEntry(uid, name string) error {
	if err := validate.Struct(entry{UID: uid, Name: name}); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			switch verrs[0].Field() {
			case "Name":
				if verrs[0].Tag() == "required" {
					return fault.Validation("registry.set", "name cannot be empty")
				}
				return fault.Validation("registry.set", "name is too long")
			case "UID":
				return fault.Validation("registry.set", "uid is required")
			}
		}
		return fault.Validation("registry.set", err.Error())
	}
	return nil
}
