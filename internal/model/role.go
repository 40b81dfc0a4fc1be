package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role is the closed set of privilege tiers, ordered from lowest to highest.
type Role int

const (
	RoleRegular Role = iota + 1
	RoleElevated
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleRegular:
		return "regular"
	case RoleElevated:
		return "elevated"
	case RoleAdmin:
		return "admin"
	}
	return fmt.Sprintf("role(%d)", int(r))
}

func (r Role) Valid() bool {
	switch r {
	case RoleRegular, RoleElevated, RoleAdmin:
		return true
	}
	return false
}

func ParseRole(raw string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "regular":
		return RoleRegular, nil
	case "elevated":
		return RoleElevated, nil
	case "admin":
		return RoleAdmin, nil
	}
	return 0, fmt.Errorf("unknown role %q", raw)
}

func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *Role) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseRole(raw)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
