package model

type LoginRequest struct {
	Code string `json:"code"`
}

// UserEditRequest carries the settings payload forwarded verbatim to the
// bot API. The dashboard does not interpret it.
type UserEditRequest map[string]any
