package arenadto

type StartRequest struct {
	// Level nil means the configured default.
	Level *int `json:"level" validate:"omitempty,min=0,max=20"`
}

type PickUpRequest struct {
	Square string `json:"square" validate:"required,square"`
}

type PickUpResponse struct {
	Lifted  bool          `json:"lifted"`
	Targets []string      `json:"targets"`
	State   *SessionState `json:"state"`
}

type DropRequest struct {
	From      string `json:"from" validate:"required,square"`
	To        string `json:"to" validate:"required,square"`
	Promotion string `json:"promotion" validate:"omitempty,oneof=q r b n"`
}

type DropResponse struct {
	Accepted bool          `json:"accepted"`
	State    *SessionState `json:"state"`
}
