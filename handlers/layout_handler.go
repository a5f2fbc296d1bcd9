package handlers

import (
	"net/http"

	"github.com/Dosada05/fishing-tournament/services"
)

type LayoutHandler struct {
	layoutService services.LayoutService
}

func NewLayoutHandler(ls services.LayoutService) *LayoutHandler {
	return &LayoutHandler{layoutService: ls}
}

// parentAndUser читает id организатора и id родительского ресурса из пути.
func parentAndUser(w http.ResponseWriter, r *http.Request, param string) (int, int, bool) {
	organizerID, ok := currentUser(w, r)
	if !ok {
		return 0, 0, false
	}
	id, err := getIDFromURL(r, param)
	if err != nil {
		badRequestResponse(w, r, err)
		return 0, 0, false
	}
	return organizerID, id, true
}

func (h *LayoutHandler) CreatePond(w http.ResponseWriter, r *http.Request) {
	organizerID, tournamentID, ok := parentAndUser(w, r, "tournamentID")
	if !ok {
		return
	}
	var input services.PondInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	pond, err := h.layoutService.CreatePond(r.Context(), organizerID, tournamentID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"pond": pond}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *LayoutHandler) ListPonds(w http.ResponseWriter, r *http.Request) {
	organizerID, tournamentID, ok := parentAndUser(w, r, "tournamentID")
	if !ok {
		return
	}
	ponds, err := h.layoutService.ListPonds(r.Context(), organizerID, tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"ponds": ponds}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *LayoutHandler) UpdatePond(w http.ResponseWriter, r *http.Request) {
	organizerID, pondID, ok := parentAndUser(w, r, "pondID")
	if !ok {
		return
	}
	var input services.PondInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	pond, err := h.layoutService.UpdatePond(r.Context(), organizerID, pondID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"pond": pond}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *LayoutHandler) DeletePond(w http.ResponseWriter, r *http.Request) {
	organizerID, pondID, ok := parentAndUser(w, r, "pondID")
	if !ok {
		return
	}
	if err := h.layoutService.DeletePond(r.Context(), organizerID, pondID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *LayoutHandler) CreateZone(w http.ResponseWriter, r *http.Request) {
	organizerID, pondID, ok := parentAndUser(w, r, "pondID")
	if !ok {
		return
	}
	var input services.ZoneInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	zone, err := h.layoutService.CreateZone(r.Context(), organizerID, pondID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"zone": zone}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *LayoutHandler) ListZones(w http.ResponseWriter, r *http.Request) {
	organizerID, pondID, ok := parentAndUser(w, r, "pondID")
	if !ok {
		return
	}
	zones, err := h.layoutService.ListZones(r.Context(), organizerID, pondID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"zones": zones}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *LayoutHandler) UpdateZone(w http.ResponseWriter, r *http.Request) {
	organizerID, zoneID, ok := parentAndUser(w, r, "zoneID")
	if !ok {
		return
	}
	var input services.ZoneInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	zone, err := h.layoutService.UpdateZone(r.Context(), organizerID, zoneID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"zone": zone}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *LayoutHandler) DeleteZone(w http.ResponseWriter, r *http.Request) {
	organizerID, zoneID, ok := parentAndUser(w, r, "zoneID")
	if !ok {
		return
	}
	if err := h.layoutService.DeleteZone(r.Context(), organizerID, zoneID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *LayoutHandler) CreateArea(w http.ResponseWriter, r *http.Request) {
	organizerID, zoneID, ok := parentAndUser(w, r, "zoneID")
	if !ok {
		return
	}
	var input services.AreaInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	area, err := h.layoutService.CreateArea(r.Context(), organizerID, zoneID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"area": area}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *LayoutHandler) ListAreas(w http.ResponseWriter, r *http.Request) {
	organizerID, zoneID, ok := parentAndUser(w, r, "zoneID")
	if !ok {
		return
	}
	areas, err := h.layoutService.ListAreas(r.Context(), organizerID, zoneID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"areas": areas}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *LayoutHandler) UpdateArea(w http.ResponseWriter, r *http.Request) {
	organizerID, areaID, ok := parentAndUser(w, r, "areaID")
	if !ok {
		return
	}
	var input services.AreaInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	area, err := h.layoutService.UpdateArea(r.Context(), organizerID, areaID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"area": area}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *LayoutHandler) DeleteArea(w http.ResponseWriter, r *http.Request) {
	organizerID, areaID, ok := parentAndUser(w, r, "areaID")
	if !ok {
		return
	}
	if err := h.layoutService.DeleteArea(r.Context(), organizerID, areaID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
