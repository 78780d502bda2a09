package controllers

import (
	"net/http"

	"github.com/CUknot/grammable/middleware"
	"github.com/gin-gonic/gin"
)

// ListGrams godoc
// @Summary List grams
// @Description Returns every gram, newest first
// @Tags grams
// @Produce json
// @Success 200 {object} map[string]interface{} "List of grams"
// @Failure 500 {object} map[string]string "Server error"
// @Router /api/grams [get]
func (gc *GramController) ListGrams(c *gin.Context) {
	grams, err := gc.listGrams(c.Request.Context())
	if err != nil {
		jsonError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"grams": grams})
}

// GetGram godoc
// @Summary Get a gram
// @Description Returns a single gram with its owner
// @Tags grams
// @Produce json
// @Param id path int true "Gram ID"
// @Success 200 {object} map[string]interface{} "Gram details"
// @Failure 404 {object} map[string]string "Gram not found"
// @Failure 500 {object} map[string]string "Server error"
// @Router /api/grams/{id} [get]
func (gc *GramController) GetGram(c *gin.Context) {
	gram, err := findGram(c.Request.Context(), gc.DB, c.Param("id"))
	if err != nil {
		jsonError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"gram": gram})
}

// CreateGram godoc
// @Summary Create a gram
// @Description Posts a message with a picture as the authenticated user
// @Tags grams
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param message formData string true "Message"
// @Param picture formData file true "Picture"
// @Success 201 {object} map[string]interface{} "Gram created successfully"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 422 {object} map[string]interface{} "Validation failed"
// @Failure 500 {object} map[string]string "Server error"
// @Router /api/grams [post]
func (gc *GramController) CreateGram(c *gin.Context) {
	user := middleware.CurrentUserFrom(c)

	picture, err := uploadedPicture(c)
	if err != nil {
		jsonError(c, err)
		return
	}

	gram, err := gc.createGram(c.Request.Context(), user, c.PostForm("message"), picture)
	if err != nil {
		jsonError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Gram created successfully",
		"gram":    gram,
	})
}

// UpdateGram godoc
// @Summary Update a gram
// @Description Changes the message and/or picture of a gram owned by the authenticated user
// @Tags grams
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path int true "Gram ID"
// @Param message formData string false "Message"
// @Param picture formData file false "Picture"
// @Success 200 {object} map[string]interface{} "Gram updated successfully"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Gram not found"
// @Failure 422 {object} map[string]interface{} "Validation failed"
// @Failure 500 {object} map[string]string "Server error"
// @Router /api/grams/{id} [patch]
func (gc *GramController) UpdateGram(c *gin.Context) {
	gram, err := gc.ownedGram(c)
	if err != nil {
		jsonError(c, err)
		return
	}

	var message *string
	if m, ok := c.GetPostForm("message"); ok {
		message = &m
	}

	picture, err := uploadedPicture(c)
	if err == nil {
		err = gc.updateGram(c.Request.Context(), gram, message, picture)
	}
	if err != nil {
		jsonError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Gram updated successfully",
		"gram":    gram,
	})
}

// DeleteGram godoc
// @Summary Delete a gram
// @Description Deletes a gram owned by the authenticated user
// @Tags grams
// @Produce json
// @Security BearerAuth
// @Param id path int true "Gram ID"
// @Success 200 {object} map[string]string "Gram deleted successfully"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Gram not found"
// @Failure 500 {object} map[string]string "Server error"
// @Router /api/grams/{id} [delete]
func (gc *GramController) DeleteGram(c *gin.Context) {
	gram, err := gc.ownedGram(c)
	if err != nil {
		jsonError(c, err)
		return
	}

	if err := gc.deleteGram(c.Request.Context(), gram); err != nil {
		jsonError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Gram deleted successfully"})
}
