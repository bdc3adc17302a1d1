/*
Copyright 2025 Staffbooks Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	model2 "github.com/staffbooks/staffbooks/api/model"
)

// MergePreview computes the diff of merging a bill into the target
// contract's adjacent bill, without applying it. The target contract is
// passed as the target_contract_id query param.
func (a Api) MergePreview(c *gin.Context) {
	preview, err := a.staffbooks.PreviewMerge(c.Request.Context(), c.Param("id"), c.Query("target_contract_id"))
	if err != nil {
		apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

// CommitMerge re-derives the merge plan and applies it atomically.
func (a Api) CommitMerge(c *gin.Context) {
	var req model2.MergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	if err := req.ValidateMergeRequest(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	preview, err := a.staffbooks.CommitMerge(c.Request.Context(), c.Param("id"), req.TargetContractID)
	if err != nil {
		logrus.Error(err)
		apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

// TransferBalance moves an overpaid final bill's residual credit to
// another contract's bill.
func (a Api) TransferBalance(c *gin.Context) {
	var req model2.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	if err := req.ValidateTransferRequest(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	adjustment, err := a.staffbooks.TransferBalance(c.Request.Context(), c.Param("id"), req.ToDestination())
	if err != nil {
		logrus.Error(err)
		apiError(c, err)
		return
	}
	c.JSON(http.StatusCreated, adjustment)
}
