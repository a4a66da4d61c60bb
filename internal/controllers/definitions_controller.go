package controllers

import (
	"net/http"

	"github.com/RealZimboGuy/gopherstate/internal/engine"
	"github.com/RealZimboGuy/gopherstate/internal/util"
	"github.com/RealZimboGuy/gopherstate/pkg/gopherstate/models"
)

// DefinitionsController serves workflow definitions.
type DefinitionsController struct {
	BaseController
}

func NewDefinitionsController(wm *engine.WorkflowManager) *DefinitionsController {
	return &DefinitionsController{BaseController: NewBaseController(wm)}
}

func (c *DefinitionsController) handleCreateDefinition(w http.ResponseWriter, r *http.Request) {
	req, err := util.DecodeJSONBody[models.CreateWorkflowRequest](r)
	if err != nil {
		badRequest(w, r, "invalid JSON payload")
		return
	}
	if err := c.validate.Struct(req); err != nil {
		badRequest(w, r, err.Error())
		return
	}

	def, err := c.WorkflowManager.CreateDefinition(r.Context(), req.ToDefinition())
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/workflows/"+def.ID)
	util.WriteJSONResponse(w, http.StatusCreated, def)
}

func (c *DefinitionsController) handleListDefinitions(w http.ResponseWriter, r *http.Request) {
	defs, err := c.WorkflowManager.ListDefinitions(r.Context())
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	util.WriteJSONResponse(w, http.StatusOK, models.NewListResponse(defs))
}

func (c *DefinitionsController) handleGetDefinition(w http.ResponseWriter, r *http.Request) {
	def, err := c.WorkflowManager.GetDefinition(r.Context(), r.PathValue("id"))
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	util.WriteJSONResponse(w, http.StatusOK, def)
}
