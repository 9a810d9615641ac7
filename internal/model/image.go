package model

import "time"

// Image is the stored record for one uploaded listing photo. AI suggestions
// and user-set finals are separate columns so enrichment can be re-run
// without clobbering edits.
type Image struct {
	ID         string `json:"id"`
	ListingID  string `json:"listing_id"`
	Filename   string `json:"filename"`
	StorageRef string `json:"storage_ref,omitempty"`

	AISuggestedLabel       *string `json:"ai_suggested_label,omitempty"`
	AISuggestedDescription *string `json:"ai_suggested_description,omitempty"`
	AISuggestedRoomType    *string `json:"ai_suggested_room_type,omitempty"`
	AISuggestedOrder       *int    `json:"ai_suggested_order,omitempty"`

	FinalLabel       *string `json:"final_label,omitempty"`
	FinalDescription *string `json:"final_description,omitempty"`
	FinalRoomType    *string `json:"final_room_type,omitempty"`

	PhotoType    *string `json:"photo_type,omitempty"`
	DisplayOrder int     `json:"display_order"`
	OrderLocked  bool    `json:"order_locked"`
	IsPrimary    bool    `json:"is_primary"`

	// UploadIndex is the image's position in upload order, the stable
	// secondary sort key for sequencing.
	UploadIndex int       `json:"upload_index"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// RoomLabel is the effective label for sequencing: the user's final label if
// set, else the AI suggestion, else "other".
func (img *Image) RoomLabel() string {
	if img.FinalLabel != nil && *img.FinalLabel != "" {
		return *img.FinalLabel
	}
	if img.AISuggestedLabel != nil && *img.AISuggestedLabel != "" {
		return *img.AISuggestedLabel
	}
	return "other"
}
