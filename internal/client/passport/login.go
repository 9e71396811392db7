package passport

import (
	"encoding/json"

	"github.com/shanmiteko/bili-login/internal/client/domain"
)

// ParseLoginResponse interprets the login endpoint reply. A non-zero code
// is a rejection, not an error.
func ParseLoginResponse(raw json.RawMessage) (domain.LoginResult, error) {
	root, err := parse("login", raw)
	if err != nil {
		return domain.LoginResult{}, err
	}
	code, err := root.integer("code")
	if err != nil {
		return domain.LoginResult{}, err
	}

	if code != 0 {
		message, err := root.str("message")
		if err != nil {
			return domain.LoginResult{}, err
		}
		return domain.Rejected(message), nil
	}

	data, err := root.object("data")
	if err != nil {
		return domain.LoginResult{}, err
	}
	url, err := data.str("url")
	if err != nil {
		return domain.LoginResult{}, err
	}
	return domain.Success(url), nil
}
