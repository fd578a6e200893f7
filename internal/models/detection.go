package models

// Box is a pixel-space rectangle on the uploaded image.
type Box struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

type Detection struct {
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
}

// DetectionResult is returned to the upload page.
type DetectionResult struct {
	RunID       string      `json:"run_id,omitempty"`
	Width       int         `json:"width"`
	Height      int         `json:"height"`
	Detections  []Detection `json:"detections"`
	Count       int         `json:"count"`
	ImageBase64 string      `json:"image_base64"`
	MimeType    string      `json:"mime_type"`
	SavedPath   string      `json:"saved_path,omitempty"`
}
