package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/maskbox/maskbox/internal/auth"
)

// SudoHandler opens the short-lived elevation window on a credential.
type SudoHandler struct {
	sudo *auth.Sudo
}

// NewSudoHandler constructs a SudoHandler.
func NewSudoHandler(sudo *auth.Sudo) *SudoHandler {
	return &SudoHandler{sudo: sudo}
}

// sudoRequest is the elevation payload.
type sudoRequest struct {
	Password string `json:"password"`
}

// Enter re-verifies the account password and stamps the elevation window
// on the acting API key.
func (h *SudoHandler) Enter(c *gin.Context) {
	identity := IdentityFrom(c)
	if identity == nil {
		WriteError(c, auth.E(auth.KindUnauthorized, "Wrong api key"))
		return
	}

	var body sudoRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		WriteError(c, auth.E(auth.KindValidation, "Request body cannot be empty"))
		return
	}

	if errEnter := h.sudo.Enter(c.Request.Context(), identity, body.Password); errEnter != nil {
		WriteError(c, errEnter)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
