package models

import "time"

// Capture is one durable record of a single inbound HTTP call to an endpoint.
// The five payload columns hold the serialized field data from the normalizer,
// or its sentinel string when the field was absent. Captures are never updated
// or deleted after insert; UpdatedAt is set once alongside CreatedAt.
type Capture struct {
	ID              int64     `json:"id"`
	EndpointID      int64     `json:"endpoint_id"`
	HitAt           time.Time `json:"hit_at"`
	HeaderData      string    `json:"header_data"`
	FormData        string    `json:"form_data"`
	RawData         string    `json:"raw_data"`
	FilesData       string    `json:"files_data"`
	QueryParamsData string    `json:"query_params_data"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
