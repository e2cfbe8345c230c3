// CapturesData is a paginated response payload for the captures listing.
package dto

type CapturesData struct {
	Captures    []CaptureInfo `json:"captures"`
	StorageRoot string        `json:"storageRoot"`
	Length      int           `json:"length"`
	TotalPages  int           `json:"totalPages"`
	CurrentPage int           `json:"currentPage"`
	Limit       int           `json:"pageSize"`
}
