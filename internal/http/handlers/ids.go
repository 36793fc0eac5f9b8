package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/instihub/portal/internal/utils"
)

// validID rejects path ids that are not UUIDs before they reach the store.
func validID(ctx *gin.Context, id string) bool {
	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "Invalid id", gin.H{"id": id})
		return false
	}
	return true
}
