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

	"github.com/staffbooks/staffbooks"
	"github.com/staffbooks/staffbooks/api/middleware"
	"github.com/staffbooks/staffbooks/config"
	"github.com/staffbooks/staffbooks/model"
)

type Api struct {
	staffbooks *staffbooks.Staffbooks
	router     *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router
	router.POST("/statements", a.ImportStatement)
	router.GET("/reconciliation/:year/:month", a.GetPeriod)

	router.GET("/parties/search", a.SearchParties)
	router.GET("/parties/:id/obligations/:year/:month", a.GetPartyObligations)

	router.POST("/transactions/:id/allocations", a.Allocate)
	router.POST("/transactions/:id/allocations/auto", a.AllocateAuto)
	router.DELETE("/transactions/:id/allocations", a.CancelAllocations)
	router.POST("/transactions/:id/ignore", a.IgnoreTransaction)
	router.POST("/transactions/:id/unignore", a.UnignoreTransaction)

	router.POST("/aliases", a.CreateAlias)
	router.DELETE("/aliases/:payer_name", a.DeleteAlias)

	router.GET("/bills/:id/merge-preview", a.MergePreview)
	router.POST("/bills/:id/merge", a.CommitMerge)
	router.POST("/bills/:id/transfer-balance", a.TransferBalance)
	return a.router
}

func NewAPI(s *staffbooks.Staffbooks) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil
	}
	r := gin.Default()
	if conf.Server.Secure {
		r.Use(middleware.SecretKeyAuthMiddleware())
	}
	r.Use(middleware.RateLimitMiddleware(conf))

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, "server running...")
	})

	return &Api{staffbooks: s, router: r}
}

// apiError maps domain errors to HTTP statuses: bad input is 400, state
// conflicts are 409, a rejected over-allocation is 422, missing
// entities are 404.
func apiError(c *gin.Context, err error) {
	switch err.(type) {
	case *model.ValidationError:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case *model.NotFoundError:
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case *model.OverAllocationError:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case *model.DuplicateAliasError, *model.AlreadyMergedError, *model.NothingToCancelError, *model.TransferNotAllowedError, *model.NoTargetBillError:
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case *model.AliasInUseError:
		inUse := err.(*model.AliasInUseError)
		c.JSON(http.StatusConflict, gin.H{
			"error":              err.Error(),
			"active_allocations": inUse.ActiveAllocIDs,
		})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}
