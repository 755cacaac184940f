package models

// FileRecord describes one uploaded blob in a room's manifest.
type FileRecord struct {
	ID             string `json:"id"`
	Filename       string `json:"filename"`
	StoredFilename string `json:"stored_filename"`
	Size           int64  `json:"size"`
	ContentType    string `json:"type"`
	UploadedBy     string `json:"uploaded_by"`
	UploadedAt     int64  `json:"uploaded_at"`
	Locator        string `json:"-"`
}

// ReactionSet maps a reaction symbol to the users who used it.
type ReactionSet map[string][]string

// DeletedMessage is what a message deletion reports back and broadcasts.
type DeletedMessage struct {
	MessageID     string `json:"message_id"`
	DeletedBy     string `json:"deleted_by"`
	IsAdminDelete bool   `json:"is_admin_delete"`
}
