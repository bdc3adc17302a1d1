package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	model2 "github.com/staffbooks/staffbooks/api/model"
)

// CreateAlias maps a raw bank payer name to a party. replace swaps an
// existing mapping instead of failing on it.
func (a Api) CreateAlias(c *gin.Context) {
	var req model2.CreateAliasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	if err := req.ValidateCreateAliasRequest(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	alias, err := a.staffbooks.CreateAlias(c.Request.Context(), req.PayerName, req.PartyID, req.ContractID, req.Notes, req.Replace)
	if err != nil {
		apiError(c, err)
		return
	}
	c.JSON(http.StatusCreated, alias)
}

// DeleteAlias unlinks a payer name. force=true cascades: allocations
// settled through the alias are reversed first.
func (a Api) DeleteAlias(c *gin.Context) {
	force := c.Query("force") == "true"
	if err := a.staffbooks.DeleteAlias(c.Request.Context(), c.Param("payer_name"), force); err != nil {
		apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
