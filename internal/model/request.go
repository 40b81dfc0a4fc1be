package model

import (
	"bytes"
	"encoding/json"
)

type RegistrationRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	FullName        string `json:"full_name"`
}

// UnmarshalJSON accepts confirm_password/full_name as well as the camelCase
// confirmPassword/fullName. The snake_case key wins when both are sent.
// Unknown keys are rejected.
func (r *RegistrationRequest) UnmarshalJSON(data []byte) error {
	var wire struct {
		Username             string `json:"username"`
		Password             string `json:"password"`
		ConfirmPassword      string `json:"confirm_password"`
		ConfirmPasswordCamel string `json:"confirmPassword"`
		FullName             string `json:"full_name"`
		FullNameCamel        string `json:"fullName"`
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&wire); err != nil {
		return err
	}

	*r = RegistrationRequest{
		Username:        wire.Username,
		Password:        wire.Password,
		ConfirmPassword: firstNonEmpty(wire.ConfirmPassword, wire.ConfirmPasswordCamel),
		FullName:        firstNonEmpty(wire.FullName, wire.FullNameCamel),
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// LoginForm mirrors the OAuth2 password-grant form. ClientID and
// ClientSecret are accepted and ignored.
type LoginForm struct {
	Username     string
	Password     string
	ClientID     string
	ClientSecret string
}

type AuditQuery struct {
	Limit int
}
