package models

// CreatedResponse is returned when a record is created
type CreatedResponse struct {
	ID string `json:"id"`
}

// SuccessResponse is returned by mutations that carry no payload. Callers
// refetch to observe the new state.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// UploadResponse carries the stable token of an attached file
type UploadResponse struct {
	Filename string `json:"filename"`
}

// FileURLResponse resolves a file token
type FileURLResponse struct {
	URL string `json:"url"`
}
