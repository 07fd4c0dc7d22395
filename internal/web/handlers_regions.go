package web

import (
	"net/http"

	"github.com/JonMunkholm/EmployeeImport/internal/region"
)

// RegionEntry is one accepted state value.
type RegionEntry struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// RegionGroup lists the states of one geographic group.
type RegionGroup struct {
	Name    string        `json:"name"`
	Regions []RegionEntry `json:"regions"`
}

// RegionsResponse is the body of GET /api/regions.
type RegionsResponse struct {
	Groups []RegionGroup `json:"groups"`
}

// handleRegions lists the state codes and names the import accepts,
// grouped by geographic group.
func (s *Server) handleRegions(w http.ResponseWriter, r *http.Request) {
	groups := region.Groups()
	resp := RegionsResponse{Groups: make([]RegionGroup, 0, len(groups))}

	for _, g := range groups {
		codes := region.ByGroup(g)
		entries := make([]RegionEntry, len(codes))
		for i, c := range codes {
			entries[i] = RegionEntry{Code: c.Code, Name: c.FullName}
		}
		resp.Groups = append(resp.Groups, RegionGroup{Name: g, Regions: entries})
	}

	writeJSON(w, resp)
}
