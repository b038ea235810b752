package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"commerce/models"
)

type bulkListingsRequest struct {
	IDs []uuid.UUID `json:"ids" binding:"required,min=1,max=500"`
}

type createCategoryRequest struct {
	Name string `json:"name" binding:"required,max=64"`
}

// Close auctions in bulk
// (POST /admin/listings/close)
func (impl *ServerImpl) PostAdminListingsClose(c *gin.Context) {
	const op = "PostAdminListingsClose"
	var req bulkListingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	updated, err := impl.ledger.CloseAuctions(c, req.IDs, CurrentPrincipal(c))
	if err != nil {
		impl.abortWithError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

// Reopen auctions in bulk
// (POST /admin/listings/reopen)
func (impl *ServerImpl) PostAdminListingsReopen(c *gin.Context) {
	const op = "PostAdminListingsReopen"
	var req bulkListingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	updated, err := impl.ledger.ReopenAuctions(c, req.IDs, CurrentPrincipal(c))
	if err != nil {
		impl.abortWithError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

// Add a category
// (POST /admin/categories)
func (impl *ServerImpl) PostAdminCategory(c *gin.Context) {
	const op = "PostAdminCategory"
	var req createCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		badRequest(c, "Category name cannot be empty.")
		return
	}
	category := &models.Category{Name: name}
	if err := impl.store.CreateCategory(c, category); err != nil {
		impl.abortWithError(c, op, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": category.ID, "name": category.Name})
}
