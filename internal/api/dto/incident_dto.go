package dto

// IncidentRequest is one free-text incident report.
type IncidentRequest struct {
	Log     string `json:"log"`
	Service string `json:"service"`
}

// ResolveRequest marks an open ticket as resolved.
type ResolveRequest struct {
	IncidentID string `json:"incident_id"`
	Resolution string `json:"resolution"`
	ResolvedBy string `json:"resolved_by"`
}
