package controllers

import (
	"errors"
	"net/http"

	"github.com/CUknot/grammable/middleware"
	"github.com/CUknot/grammable/models"
	"github.com/gin-gonic/gin"
)

// Index lists every gram, newest first
func (gc *GramController) Index(c *gin.Context) {
	grams, err := gc.listGrams(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}
	c.HTML(http.StatusOK, "index", page(c, gin.H{"Grams": grams}))
}

// New shows the form for a new gram
func (gc *GramController) New(c *gin.Context) {
	c.HTML(http.StatusOK, "new", page(c, nil))
}

// Create posts a gram as the signed in user
func (gc *GramController) Create(c *gin.Context) {
	user := middleware.CurrentUserFrom(c)
	if user == nil {
		renderError(c, models.ErrUnauthenticated)
		return
	}

	message := c.PostForm("message")
	picture, err := uploadedPicture(c)
	if err == nil {
		_, err = gc.createGram(c.Request.Context(), user, message, picture)
	}
	if err != nil {
		if errors.Is(err, models.ErrValidation) {
			c.HTML(http.StatusUnprocessableEntity, "new", page(c, gin.H{
				"Message": message,
				"Errors":  models.Messages(err),
			}))
			return
		}
		renderError(c, err)
		return
	}

	c.Redirect(http.StatusFound, "/")
}

// Show displays a single gram
func (gc *GramController) Show(c *gin.Context) {
	gram, err := findGram(c.Request.Context(), gc.DB, c.Param("id"))
	if err != nil {
		renderError(c, err)
		return
	}

	c.HTML(http.StatusOK, "show", page(c, gin.H{
		"Gram":      gram,
		"CanModify": gram.OwnedBy(middleware.CurrentUserFrom(c)),
	}))
}

// Edit shows the edit form to the gram's owner
func (gc *GramController) Edit(c *gin.Context) {
	gram, err := gc.ownedGram(c)
	if err != nil {
		renderError(c, err)
		return
	}

	c.HTML(http.StatusOK, "edit", page(c, gin.H{
		"Gram":    gram,
		"Message": gram.Message,
	}))
}

// Update changes the message and optionally the picture of a gram
func (gc *GramController) Update(c *gin.Context) {
	gram, err := gc.ownedGram(c)
	if err != nil {
		renderError(c, err)
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
		if errors.Is(err, models.ErrValidation) {
			submitted := gram.Message
			if message != nil {
				submitted = *message
			}
			c.HTML(http.StatusUnprocessableEntity, "edit", page(c, gin.H{
				"Gram":    gram,
				"Message": submitted,
				"Errors":  models.Messages(err),
			}))
			return
		}
		renderError(c, err)
		return
	}

	c.Redirect(http.StatusFound, "/")
}

// Destroy deletes a gram owned by the current user
func (gc *GramController) Destroy(c *gin.Context) {
	gram, err := gc.ownedGram(c)
	if err != nil {
		renderError(c, err)
		return
	}

	if err := gc.deleteGram(c.Request.Context(), gram); err != nil {
		renderError(c, err)
		return
	}

	c.Redirect(http.StatusFound, "/")
}

// ownedGram looks the gram up first, then checks the session and ownership
func (gc *GramController) ownedGram(c *gin.Context) (*models.Gram, error) {
	gram, err := findGram(c.Request.Context(), gc.DB, c.Param("id"))
	if err != nil {
		return nil, err
	}
	if err := authorizeOwner(middleware.CurrentUserFrom(c), gram); err != nil {
		return nil, err
	}
	return gram, nil
}
