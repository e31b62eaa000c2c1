package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/shipfabric/shipfabric/internal/delivery"
)

type carrierSummary struct {
	Code         string               `json:"code"`
	DisplayName  string               `json:"displayName"`
	Capabilities []delivery.Capability `json:"capabilities"`
}

func (r *Router) listCarriers(w http.ResponseWriter, req *http.Request) {
	adapters := r.registry.List()
	out := make([]carrierSummary, len(adapters))
	for i, a := range adapters {
		out[i] = carrierSummary{Code: a.Code(), DisplayName: a.DisplayName(), Capabilities: a.Capabilities()}
	}
	respondJSON(w, http.StatusOK, out)
}

func (r *Router) fetchPickupPoints(w http.ResponseWriter, req *http.Request) {
	code := mux.Vars(req)["code"]
	country := req.URL.Query().Get("country")
	if country == "" {
		respondError(w, http.StatusBadRequest, "country query parameter is required")
		return
	}

	adapter, err := delivery.Dispatch(r.registry, code, delivery.CapFetchPickupPoints)
	if err != nil {
		respondCarrierError(w, err)
		return
	}
	points, err := adapter.FetchPickupPoints(req.Context(), country)
	if err != nil {
		respondCarrierError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, points)
}

type createShipmentRequest struct {
	CarrierCode string              `json:"carrierCode"`
	Parcels     []delivery.Parcel   `json:"parcels"`
	Options     delivery.BatchOptions `json:"options"`
}

func (r *Router) createShipment(w http.ResponseWriter, req *http.Request) {
	var body createShipmentRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if body.CarrierCode == "" || len(body.Parcels) == 0 {
		respondError(w, http.StatusBadRequest, "carrierCode and at least one parcel are required")
		return
	}

	result, err := r.flow.CreateShipment(req.Context(), body.CarrierCode, body.Parcels, body.Options)
	if err != nil {
		if result == nil {
			respondCarrierError(w, err)
			return
		}
		// Partial failure: the batch made progress (e.g. parcels created,
		// labels failed) - return what succeeded alongside the error.
		respondJSON(w, http.StatusMultiStatus, map[string]interface{}{
			"result": result,
			"error":  err.Error(),
		})
		return
	}
	respondJSON(w, http.StatusCreated, result)
}

func (r *Router) listShipmentParcels(w http.ResponseWriter, req *http.Request) {
	shipmentID := mux.Vars(req)["id"]
	parcels, err := r.flow.ListShipmentParcels(req.Context(), shipmentID)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, parcels)
}

type trackRequest struct {
	TrackingNumbers []string `json:"trackingNumbers"`
}

func (r *Router) track(w http.ResponseWriter, req *http.Request) {
	code := mux.Vars(req)["code"]
	var body trackRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	updates, err := r.flow.Track(req.Context(), code, body.TrackingNumbers)
	if err != nil {
		respondCarrierError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updates)
}

func respondCarrierError(w http.ResponseWriter, err error) {
	ce, ok := err.(*delivery.CarrierError)
	if !ok {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	status := http.StatusInternalServerError
	switch ce.Category {
	case delivery.CategoryValidation:
		status = http.StatusBadRequest
	case delivery.CategoryAuth:
		status = http.StatusUnauthorized
	case delivery.CategoryRateLimit:
		status = http.StatusTooManyRequests
	case delivery.CategoryTransient:
		status = http.StatusBadGateway
	case delivery.CategoryPermanent:
		status = http.StatusUnprocessableEntity
	}
	respondError(w, status, ce.Error())
}
