package room

import (
	"crypto/subtle"
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/lulubrolive/server/internal/domain"
	"github.com/lulubrolive/server/pkg/ytvideo"
)

var (
	errInvalidVideoURL    = errors.New("invalid YouTube URL")
	errInvalidCreationKey = errors.New("invalid creation key")
)

var RoomNameRule = []validation.Rule{
	validation.Required,
	validation.RuneLength(1, 100),
}

var UsernameRule = []validation.Rule{
	validation.Required,
	validation.RuneLength(1, 50),
}

var VideoURLRule = []validation.Rule{
	validation.Required,
	validation.By(func(value interface{}) error {
		ref, _ := value.(string)
		if !ytvideo.IsValid(ref) {
			return errInvalidVideoURL
		}
		return nil
	}),
}

var RoomIdRule = []validation.Rule{
	validation.Required,
	is.UUID,
}

var MemberIdRule = []validation.Rule{
	validation.Required,
	is.UUID,
}

var ParticipantIdRule = []validation.Rule{
	validation.Required,
	is.UUID,
}

var MessageContentRule = []validation.Rule{
	validation.Required,
	validation.RuneLength(1, MaxMessageLength),
}

func (s service) creationKeyRule() validation.Rule {
	return validation.By(func(value interface{}) error {
		key, _ := value.(string)
		if subtle.ConstantTimeCompare([]byte(key), []byte(s.creationKey)) != 1 {
			return errInvalidCreationKey
		}
		return nil
	})
}

// validateField reports the first failing rule as a domain validation error.
func validateField(name string, value interface{}, rules ...validation.Rule) error {
	if err := validation.Validate(value, rules...); err != nil {
		return fmt.Errorf("%w: %s: %s", domain.ErrValidation, name, err.Error())
	}

	return nil
}
