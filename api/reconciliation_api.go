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
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	model2 "github.com/staffbooks/staffbooks/api/model"
	"github.com/staffbooks/staffbooks/model"
)

func periodFromParams(c *gin.Context) (model.Period, bool) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "year must be a number"})
		return model.Period{}, false
	}
	month, err := strconv.Atoi(c.Param("month"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "month must be a number"})
		return model.Period{}, false
	}
	period, err := model.NewPeriod(year, month)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return model.Period{}, false
	}
	return period, true
}

// ImportStatement ingests an uploaded bank statement file. Accepts CSV
// and JSON; duplicate lines are counted, not re-imported.
func (a Api) ImportStatement(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "statement file is required in the 'file' form field"})
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	summary, err := a.staffbooks.ImportStatement(c.Request.Context(), f, fileHeader.Filename)
	if err != nil {
		apiError(c, err)
		return
	}
	c.JSON(http.StatusCreated, summary)
}

// GetPeriod returns a period's transactions grouped by derived category.
func (a Api) GetPeriod(c *gin.Context) {
	period, ok := periodFromParams(c)
	if !ok {
		return
	}
	buckets, err := a.staffbooks.ListPeriod(c.Request.Context(), period)
	if err != nil {
		logrus.Error(err)
		apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, buckets)
}

// SearchParties returns ranked party candidates for the q query param.
func (a Api) SearchParties(c *gin.Context) {
	candidates, err := a.staffbooks.SearchParties(c.Request.Context(), c.Query("q"))
	if err != nil {
		apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"candidates": candidates})
}

// GetPartyObligations lists a party's obligations for a period, each
// with its derived payment status.
func (a Api) GetPartyObligations(c *gin.Context) {
	period, ok := periodFromParams(c)
	if !ok {
		return
	}
	obligations, err := a.staffbooks.GetPartyObligations(c.Request.Context(), c.Param("id"), period)
	if err != nil {
		apiError(c, err)
		return
	}

	type obligationView struct {
		*model.Obligation
		RemainingDue  model.Money `json:"remaining_due"`
		PaymentStatus string      `json:"payment_status"`
	}
	views := make([]obligationView, 0, len(obligations))
	for _, ob := range obligations {
		views = append(views, obligationView{
			Obligation:    ob,
			RemainingDue:  ob.RemainingDue(),
			PaymentStatus: ob.PaymentStatus(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"obligations": views})
}

// Allocate applies a manual allocation batch to a transaction.
func (a Api) Allocate(c *gin.Context) {
	var req model2.AllocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	if err := req.ValidateAllocateRequest(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}
	entries, err := req.ToEntries()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}
	persistAlias, err := req.ToPersistAlias()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	result, err := a.staffbooks.Allocate(c.Request.Context(), c.Param("id"), entries, persistAlias)
	if err != nil {
		logrus.Error(err)
		apiError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// AllocateAuto smart-fills the named obligation, or confirms the
// categorizer's pending proposal when the body names none.
func (a Api) AllocateAuto(c *gin.Context) {
	var req model2.AutoAllocateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
			return
		}
	}
	result, err := a.staffbooks.AllocateAuto(c.Request.Context(), c.Param("id"), req.ObligationID)
	if err != nil {
		logrus.Error(err)
		apiError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// CancelAllocations reverses all active allocations of a transaction.
func (a Api) CancelAllocations(c *gin.Context) {
	reversed, err := a.staffbooks.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reversed": reversed})
}

// IgnoreTransaction marks a transaction as out of reconciliation scope.
func (a Api) IgnoreTransaction(c *gin.Context) {
	var req model2.IgnoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	if err := a.staffbooks.Ignore(c.Request.Context(), c.Param("id"), req.Remark, req.Permanent); err != nil {
		apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ignored"})
}

// UnignoreTransaction returns a transaction to the workflow.
func (a Api) UnignoreTransaction(c *gin.Context) {
	if err := a.staffbooks.Unignore(c.Request.Context(), c.Param("id")); err != nil {
		apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "active"})
}
