package controllers

import (
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"
	helper "github.com/lintang-b-s/fleetmap/pkg/http/router/routerhelper"
	"github.com/lintang-b-s/fleetmap/pkg/render"
	"github.com/lintang-b-s/fleetmap/pkg/util"
	"go.uber.org/zap"
)

type trackerAPI struct {
	responder
	trackerService TrackerService
	validate       *requestValidator
	log            *zap.Logger
}

func New(trackerService TrackerService, log *zap.Logger) *trackerAPI {
	return &trackerAPI{
		responder:      responder{log: log},
		trackerService: trackerService,
		validate:       newRequestValidator(),
		log:            log,
	}
}

func (api *trackerAPI) Routes(group *helper.RouteGroup) {
	group.PUT("/entities", api.updateEntities)
	group.PUT("/selection", api.setSelection)
	group.PUT("/refresh-interval", api.setRefreshInterval)
	group.PUT("/layers/:layer", api.setLayerVisible)
	group.POST("/view/reset", api.resetView)
	group.GET("/scene", api.scene)
	group.GET("/stats", api.stats)
	group.POST("/markers/:handle/click", api.clickMarker)
	group.POST("/markers/:handle/actions/:action", api.invokeAction)
}

// updateEntities godoc
//
//	@Summary		replace the agent and customer lists
//	@Description	malformed entries are accepted here and skipped by the tracker
//	@Tags			tracker
//	@Accept			json
//	@Produce		json
//	@Router			/entities [put]
func (api *trackerAPI) updateEntities(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var request updateEntitiesRequest
	if err := readJSON(w, r, &request); err != nil {
		api.getStatusCode(w, r, err)
		return
	}
	if err := api.validate.Struct(request); err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	version := api.trackerService.UpdateEntities(request.Agents, request.Customers)

	resp := updateEntitiesResponse{
		Version:   version,
		Agents:    len(request.Agents),
		Customers: len(request.Customers),
	}
	if err := writeJSON(w, http.StatusAccepted, envelope{"data": resp}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

func (api *trackerAPI) setSelection(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var request selectionRequest
	if err := readJSON(w, r, &request); err != nil {
		api.getStatusCode(w, r, err)
		return
	}
	if err := api.validate.Struct(request); err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	api.trackerService.SetSelection(request.AgentID, request.CustomerID)

	if err := writeJSON(w, http.StatusAccepted, envelope{"data": request}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

func (api *trackerAPI) setRefreshInterval(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var request refreshIntervalRequest
	if err := readJSON(w, r, &request); err != nil {
		api.getStatusCode(w, r, err)
		return
	}
	if err := api.validate.Struct(request); err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	api.trackerService.SetRefreshInterval(request.Interval())

	if err := writeJSON(w, http.StatusAccepted, envelope{"data": request}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

func (api *trackerAPI) setLayerVisible(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	layer, ok := render.ParseLayer(p.ByName("layer"))
	if !ok {
		api.NotFoundResponse(w, r, errors.New("unknown layer "+p.ByName("layer")))
		return
	}

	var request layerRequest
	if err := readJSON(w, r, &request); err != nil {
		api.getStatusCode(w, r, err)
		return
	}
	if err := api.validate.Struct(request); err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	api.trackerService.SetLayerVisible(layer, *request.Visible)

	if err := writeJSON(w, http.StatusAccepted, envelope{"data": envelope{"layer": layer, "visible": *request.Visible}}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

func (api *trackerAPI) resetView(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	api.trackerService.ResetView()
	w.WriteHeader(http.StatusAccepted)
}

// scene godoc
//
//	@Summary		current map state as GeoJSON
//	@Tags			tracker
//	@Produce		json
//	@Router			/scene [get]
func (api *trackerAPI) scene(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	if err := writeJSON(w, http.StatusOK, envelope{"data": api.trackerService.Scene()}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

func (api *trackerAPI) stats(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	resp := statsResponse{
		Stats:     api.trackerService.Stats(),
		Selection: api.trackerService.Selection(),
		Pairs:     NewRoutePairResponses(api.trackerService.Pairs()),
	}
	if err := writeJSON(w, http.StatusOK, envelope{"data": resp}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

func (api *trackerAPI) clickMarker(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	handle := render.Handle(p.ByName("handle"))
	if err := api.trackerService.Click(handle); err != nil {
		api.getStatusCode(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (api *trackerAPI) invokeAction(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	handle := render.Handle(p.ByName("handle"))
	action := render.Action(p.ByName("action"))
	if action == "" {
		api.getStatusCode(w, r, util.WrapErrorf(nil, util.ErrBadParamInput, "action is required"))
		return
	}
	if err := api.trackerService.Invoke(handle, action); err != nil {
		api.getStatusCode(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
