package controllers

import (
	"net/http"

	"github.com/RealZimboGuy/gopherstate/internal/engine"
	"github.com/RealZimboGuy/gopherstate/internal/util"
	"github.com/RealZimboGuy/gopherstate/pkg/gopherstate/models"
)

// InstancesController starts instances and applies actions to them.
type InstancesController struct {
	BaseController
}

func NewInstancesController(wm *engine.WorkflowManager) *InstancesController {
	return &InstancesController{BaseController: NewBaseController(wm)}
}

func (c *InstancesController) handleStartInstance(w http.ResponseWriter, r *http.Request) {
	req, err := util.DecodeOptionalJSONBody[models.StartInstanceRequest](r)
	if err != nil {
		badRequest(w, r, "invalid JSON payload")
		return
	}
	if req.DefinitionID == "" {
		req.DefinitionID = r.URL.Query().Get("definitionId")
	}
	if err := c.validate.Struct(req); err != nil {
		badRequest(w, r, "definitionId is required")
		return
	}

	inst, err := c.WorkflowManager.StartInstance(r.Context(), req.DefinitionID)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/instances/"+inst.ID)
	util.WriteJSONResponse(w, http.StatusCreated, inst)
}

func (c *InstancesController) handleExecuteAction(w http.ResponseWriter, r *http.Request) {
	req, err := util.DecodeOptionalJSONBody[models.ExecuteActionRequest](r)
	if err != nil {
		badRequest(w, r, "invalid JSON payload")
		return
	}
	if req.ActionID == "" {
		req.ActionID = r.URL.Query().Get("actionId")
	}
	if err := c.validate.Struct(req); err != nil {
		badRequest(w, r, "actionId is required")
		return
	}

	inst, err := c.WorkflowManager.ExecuteAction(r.Context(), r.PathValue("id"), req.ActionID)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	util.WriteJSONResponse(w, http.StatusOK, inst)
}

func (c *InstancesController) handleGetInstance(w http.ResponseWriter, r *http.Request) {
	inst, err := c.WorkflowManager.GetInstance(r.Context(), r.PathValue("id"))
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	util.WriteJSONResponse(w, http.StatusOK, inst)
}

func (c *InstancesController) handleListInstances(w http.ResponseWriter, r *http.Request) {
	insts, err := c.WorkflowManager.ListInstances(r.Context())
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	util.WriteJSONResponse(w, http.StatusOK, models.NewListResponse(insts))
}
