package dto

// ShareRequest captures POST /report-cards/share payload.
type ShareRequest struct {
	StudentIDs  []string `json:"studentIds" binding:"required,min=1"`
	TermID      string   `json:"termId" binding:"required"`
	ExpiryHours int      `json:"expiryHours,omitempty"`
}
