package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/careloop/careline/internal/messaging"
	"github.com/careloop/careline/internal/middleware"
	"github.com/careloop/careline/internal/models"
)

// MeHandler answers "who am I" for clients. For patients it also exposes
// the resolved clinical record id, so the frontend can tell a registered
// patient apart from one whose clinic hasn't created a record yet.
type MeHandler struct {
	identity *messaging.IdentityResolver
	logger   *zap.Logger
}

func NewMeHandler(identity *messaging.IdentityResolver, logger *zap.Logger) *MeHandler {
	return &MeHandler{identity: identity, logger: logger}
}

// Get handles GET /v1/me
func (h *MeHandler) Get(c *gin.Context) {
	actor := middleware.GetActor(c)

	resp := gin.H{
		"user_id": actor.UserID,
		"role":    actor.Role,
		"email":   actor.Email,
	}
	if actor.TenantID != nil {
		resp["tenant_id"] = *actor.TenantID
	}

	if actor.Role == models.RolePatient {
		patient, err := h.identity.Resolve(c.Request.Context(), actor)
		if err != nil {
			writeError(c, h.logger, err)
			return
		}
		if patient != nil {
			resp["patient_id"] = patient.ID
			resp["patient_tenant_id"] = patient.TenantID
		}
	}

	c.JSON(http.StatusOK, resp)
}
