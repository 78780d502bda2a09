package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/CUknot/grammable/middleware"
	"github.com/CUknot/grammable/models"
	"github.com/CUknot/grammable/sessions"
	"github.com/CUknot/grammable/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	errEmailTaken         = errors.New("email has already been taken")
	errInvalidCredentials = errors.New("invalid email or password")
)

// AuthController handles registration and sessions for both the pages and the API
type AuthController struct {
	DB      *gorm.DB
	Secret  string
	Revoker sessions.Revoker
}

type RegisterInput struct {
	Email                string `form:"email" json:"email" binding:"required,email" example:"someone@example.com"`
	Password             string `form:"password" json:"password" binding:"required,min=6" example:"secretPassword"`
	PasswordConfirmation string `form:"password_confirmation" json:"password_confirmation" binding:"omitempty,eqfield=Password" example:"secretPassword"`
}

type LoginInput struct {
	Email    string `form:"email" json:"email" binding:"required,email" example:"someone@example.com"`
	Password string `form:"password" json:"password" binding:"required" example:"secretPassword"`
}

func (ac *AuthController) register(input RegisterInput) (*models.User, string, error) {
	var count int64
	if err := ac.DB.Model(&models.User{}).Where("email = ?", strings.ToLower(strings.TrimSpace(input.Email))).Count(&count).Error; err != nil {
		return nil, "", fmt.Errorf("check email: %w", err)
	}
	if count > 0 {
		return nil, "", errEmailTaken
	}

	user := models.User{Email: input.Email, Password: input.Password}
	if err := ac.DB.Create(&user).Error; err != nil {
		return nil, "", fmt.Errorf("create user: %w", err)
	}

	token, err := utils.GenerateToken(user.ID, ac.Secret)
	if err != nil {
		return nil, "", err
	}
	return &user, token, nil
}

func (ac *AuthController) login(input LoginInput) (*models.User, string, error) {
	var user models.User
	if err := ac.DB.Where("email = ?", strings.ToLower(strings.TrimSpace(input.Email))).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", errInvalidCredentials
		}
		return nil, "", fmt.Errorf("find user: %w", err)
	}

	if err := user.ValidatePassword(input.Password); err != nil {
		return nil, "", errInvalidCredentials
	}

	token, err := utils.GenerateToken(user.ID, ac.Secret)
	if err != nil {
		return nil, "", err
	}
	return &user, token, nil
}

// SignUpForm shows the registration page
func (ac *AuthController) SignUpForm(c *gin.Context) {
	c.HTML(http.StatusOK, "sign_up", page(c, nil))
}

// SignUp registers a user from the HTML form and signs them in
func (ac *AuthController) SignUp(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBind(&input); err != nil {
		c.HTML(http.StatusUnprocessableEntity, "sign_up", page(c, gin.H{
			"Email":  input.Email,
			"Errors": bindingMessages(err),
		}))
		return
	}
	if input.PasswordConfirmation != input.Password {
		c.HTML(http.StatusUnprocessableEntity, "sign_up", page(c, gin.H{
			"Email":  input.Email,
			"Errors": []string{"Password confirmation doesn't match Password"},
		}))
		return
	}

	_, token, err := ac.register(input)
	if errors.Is(err, errEmailTaken) {
		c.HTML(http.StatusUnprocessableEntity, "sign_up", page(c, gin.H{
			"Email":  input.Email,
			"Errors": []string{"Email has already been taken"},
		}))
		return
	}
	if err != nil {
		renderError(c, err)
		return
	}

	middleware.SetSessionCookie(c, token)
	c.Redirect(http.StatusFound, "/")
}

// SignInForm shows the login page
func (ac *AuthController) SignInForm(c *gin.Context) {
	if middleware.CurrentUserFrom(c) != nil {
		c.Redirect(http.StatusFound, "/")
		return
	}
	c.HTML(http.StatusOK, "sign_in", page(c, nil))
}

// SignIn authenticates the HTML form and starts a session
func (ac *AuthController) SignIn(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBind(&input); err != nil {
		c.HTML(http.StatusUnauthorized, "sign_in", page(c, gin.H{
			"Email":  input.Email,
			"Errors": []string{"Invalid email or password"},
		}))
		return
	}

	_, token, err := ac.login(input)
	if errors.Is(err, errInvalidCredentials) {
		c.HTML(http.StatusUnauthorized, "sign_in", page(c, gin.H{
			"Email":  input.Email,
			"Errors": []string{"Invalid email or password"},
		}))
		return
	}
	if err != nil {
		renderError(c, err)
		return
	}

	middleware.SetSessionCookie(c, token)
	c.Redirect(http.StatusFound, "/")
}

// SignOut revokes the current session token and clears the cookie
func (ac *AuthController) SignOut(c *gin.Context) {
	if claims := middleware.ClaimsFrom(c); claims != nil && claims.ExpiresAt != nil {
		if err := ac.Revoker.Revoke(c.Request.Context(), claims.ID, claims.ExpiresAt.Time); err != nil {
			logrus.WithError(err).WithField("user_id", claims.UserID).Error("Failed to revoke session")
		}
	}
	middleware.ClearSessionCookie(c)
	c.Redirect(http.StatusFound, "/")
}

// Register godoc
// @Summary Register a new user
// @Description Creates an account and returns a bearer token
// @Tags auth
// @Accept json
// @Produce json
// @Param user body RegisterInput true "Registration"
// @Success 201 {object} map[string]interface{} "User registered successfully"
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 500 {object} map[string]string "Server error"
// @Router /api/register [post]
func (ac *AuthController) Register(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, token, err := ac.register(input)
	if errors.Is(err, errEmailTaken) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User with this email already exists"})
		return
	}
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"user": gin.H{
			"id":    user.ID,
			"email": user.Email,
		},
		"token": token,
	})
}

// Login godoc
// @Summary Log in
// @Description Exchanges credentials for a bearer token
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body LoginInput true "Credentials"
// @Success 200 {object} map[string]interface{} "Login successful"
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 401 {object} map[string]string "Invalid email or password"
// @Failure 500 {object} map[string]string "Server error"
// @Router /api/login [post]
func (ac *AuthController) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, token, err := ac.login(input)
	if errors.Is(err, errInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"user": gin.H{
			"id":    user.ID,
			"email": user.Email,
		},
		"token": token,
	})
}

// bindingMessages turns validator failures into form messages
func bindingMessages(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{"Invalid form submission"}
	}

	messages := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		if field == "PasswordConfirmation" {
			field = "Password confirmation"
		}
		switch fe.Tag() {
		case "required":
			messages = append(messages, field+" can't be blank")
		case "email":
			messages = append(messages, field+" is invalid")
		case "min":
			messages = append(messages, fmt.Sprintf("%s is too short (minimum is %s characters)", field, fe.Param()))
		case "eqfield":
			messages = append(messages, field+" doesn't match Password")
		default:
			messages = append(messages, field+" is invalid")
		}
	}
	return messages
}
