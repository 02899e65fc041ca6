package domain

// WriteEntryRequest is the local write path's HTTP body. Payload arrives
// base64-encoded and is never inspected.
type WriteEntryRequest struct {
	Event      string `json:"event" validate:"required"`
	PrimaryKey string `json:"primary_key" validate:"required"`
	Payload    []byte `json:"payload"`
}

// TokenRequest exchanges the deployment's access key for a peer token.
type TokenRequest struct {
	RemoteID  string `json:"remote_id" validate:"required"`
	AccessKey string `json:"access_key" validate:"required,min=8"`
}

// TokenResponse carries the minted peer token.
type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}
