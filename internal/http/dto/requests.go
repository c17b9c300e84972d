package dto

import "time"

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ChatRequest struct {
	Message string `json:"message"`
}

// Campaigns

type CreateCampaignRequest struct {
	ClientID   string  `json:"client_id"`
	Name       string  `json:"name"`
	ImageModel string  `json:"image_model,omitempty"` // openai / gemini, default gemini
	ImageStyle *string `json:"image_style,omitempty"`
}

type EditPostRequest struct {
	Caption     *string    `json:"caption,omitempty"`
	Hashtags    *string    `json:"hashtags,omitempty"`
	ImagePrompt *string    `json:"image_prompt,omitempty"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	Theme       *string    `json:"theme,omitempty"`
}

type RegenerateImageRequest struct {
	Prompt *string `json:"prompt,omitempty"`
}

// Clients

type SetCredentialsRequest struct {
	AccountID   string `json:"account_id"`
	AccessToken string `json:"access_token"`
}
