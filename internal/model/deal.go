package model

import "time"

// Deal is an uploaded credit agreement. Deals are immutable after upload
// except for deletion.
type Deal struct {
	ID         string `json:"deal_id"`
	Name       string `json:"deal_name,omitempty"`
	Borrower   string `json:"borrower,omitempty"`
	UploadDate string `json:"upload_date,omitempty"`
	CreatedAt  string `json:"created_at,omitempty"`
}

// DisplayName returns the deal name, falling back to the identifier.
func (d Deal) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	return d.ID
}

// Uploaded parses the upload (or creation) timestamp. The second return is
// false when neither field holds a parseable date.
func (d Deal) Uploaded() (time.Time, bool) {
	for _, raw := range []string{d.UploadDate, d.CreatedAt} {
		if raw == "" {
			continue
		}
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, raw); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// UploadResponse is returned by the upload endpoint.
type UploadResponse struct {
	DealID   string `json:"deal_id"`
	DealName string `json:"deal_name"`
	Status   string `json:"status"`
	Message  string `json:"message"`
}
