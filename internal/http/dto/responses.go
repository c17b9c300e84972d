package dto

type AuthResponse struct {
	Token string `json:"token"`
	User  any    `json:"user"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type SuccessResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}

type ChatResponse struct {
	Reply string `json:"reply"`
}

type CountResponse struct {
	OK    bool `json:"ok"`
	Count int  `json:"count"`
}

type ImageResponse struct {
	OK       bool   `json:"ok"`
	ImageURL string `json:"image_url"`
}
