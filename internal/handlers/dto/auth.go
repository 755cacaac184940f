package dto

type CreateRoomRequest struct {
	RoomID   string `json:"room_id" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type TokenRequest struct {
	RoomID   string `json:"room_id" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type TokenResponse struct {
	Success   bool   `json:"success"`
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

type VerifyTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

type PasswordRequest struct {
	Password string `json:"password"`
}

type VerifyIPRequest struct {
	Password string `json:"password"`
	IP       string `json:"ip"`
}

// AdminRequest is shared by the /admin endpoints.
type AdminRequest struct {
	RoomID   string `json:"room_id" binding:"required"`
	Password string `json:"password"`
	IP       string `json:"ip"`
}
