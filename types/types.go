package types

// TimeUnknown is stored as the capture time when an image carries no readable
// capture timestamp.
const TimeUnknown = "Time unknown"

// FingerprintRecord holds one indexed image file
type FingerprintRecord struct {
	Path        string `json:"path" bson:"_id"`
	Fingerprint string `json:"hash" bson:"hash"`
	FileSize    int64  `json:"file_size" bson:"file_size"`
	ImageSize   string `json:"image_size" bson:"image_size"`
	CaptureTime string `json:"capture_time" bson:"capture_time"`
}

// DuplicateItem is one member of a duplicate group
type DuplicateItem struct {
	FileName    string `json:"file_name" bson:"file_name"`
	Fingerprint string `json:"hash,omitempty" bson:"hash,omitempty"`
	FileSize    int64  `json:"file_size" bson:"file_size"`
	ImageSize   string `json:"image_size" bson:"image_size"`
	CaptureTime string `json:"capture_time" bson:"capture_time"`
}

// DuplicateGroup holds the files sharing a fingerprint, or the files whose
// fingerprints fall within a Hamming radius of the probe fingerprint Key.
type DuplicateGroup struct {
	Key      string          `json:"key" bson:"_id"`
	Total    int             `json:"total" bson:"total"`
	FileSize int64           `json:"file_size,omitempty" bson:"file_size"`
	Items    []DuplicateItem `json:"items" bson:"items"`
}

// Item converts a record into a group member
func (r FingerprintRecord) Item() DuplicateItem {
	return DuplicateItem{
		FileName:    r.Path,
		Fingerprint: r.Fingerprint,
		FileSize:    r.FileSize,
		ImageSize:   r.ImageSize,
		CaptureTime: r.CaptureTime,
	}
}

// HasUnknownTime reports whether any member lacks a capture time
func (g DuplicateGroup) HasUnknownTime() bool {
	for _, item := range g.Items {
		if item.CaptureTime == TimeUnknown {
			return true
		}
	}
	return false
}
