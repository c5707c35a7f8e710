package handlers

import (
	"net/http"
	"strings"

	"github.com/chachabrian/rideon-backend/internal/identity"
	"github.com/chachabrian/rideon-backend/internal/middleware"
	"github.com/chachabrian/rideon-backend/pkg/logger"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

type LoginInput struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RefreshInput struct {
	Refresh string `json:"refresh" binding:"required"`
}

type EmailInput struct {
	Email string `json:"email" binding:"required"`
}

type ResetPasswordInput struct {
	Token           string `json:"token" binding:"required"`
	Password        string `json:"password" binding:"required"`
	PasswordConfirm string `json:"password_confirm" binding:"required"`
}

type ChangePasswordInput struct {
	OldPassword        string `json:"old_password" binding:"required"`
	NewPassword        string `json:"new_password" binding:"required"`
	NewPasswordConfirm string `json:"new_password_confirm" binding:"required"`
}

// setAccessToken stores the access token in the cookie and the session so
// browser pages authenticate without a header
func setAccessToken(c *gin.Context, d *Dependencies, token string) {
	maxAge := int(d.Tokens.AccessTTL().Seconds())
	if token == "" {
		maxAge = -1
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessTokenCookie, token, maxAge, "/", "", d.CookieSecure, true)

	if _, ok := c.Get(sessions.DefaultKey); !ok {
		return
	}
	session := sessions.Default(c)
	if token == "" {
		session.Delete(middleware.AccessTokenCookie)
	} else {
		session.Set(middleware.AccessTokenCookie, token)
	}
	if err := session.Save(); err != nil {
		d.Log.Warn("Failed to save session", logger.Err(err))
	}
}

func Register(d *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input identity.RegisterInput
		if !bindJSON(c, &input) {
			return
		}

		user, err := d.Identity.Register(c.Request.Context(), input)
		if err != nil {
			middleware.RespondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"message":              "Registration successful. Please check your email to verify your account.",
			"user":                 user,
			"requiresVerification": true,
		})
	}
}

func Login(d *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input LoginInput
		if !bindJSON(c, &input) {
			return
		}

		result, err := d.Identity.Login(c.Request.Context(), input.Email, input.Password)
		if err != nil {
			middleware.RespondError(c, err)
			return
		}
		setAccessToken(c, d, result.Tokens.AccessToken)

		c.JSON(http.StatusOK, gin.H{
			"message":      "Login successful",
			"tokens":       result.Tokens,
			"user":         result.User,
			"redirect_url": middleware.LandingPage(result.User.UserType),
		})
	}
}

// Logout revokes the refresh token from the body and whatever access token
// the request carries. It always succeeds.
func Logout(d *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Refresh string `json:"refresh"`
		}
		_ = c.ShouldBindJSON(&input)

		tokens := []string{input.Refresh}
		if cookie, err := c.Cookie(middleware.AccessTokenCookie); err == nil {
			tokens = append(tokens, cookie)
		}
		if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
			tokens = append(tokens, strings.TrimPrefix(h, "Bearer "))
		}

		d.Identity.Logout(c.Request.Context(), tokens...)
		setAccessToken(c, d, "")

		c.JSON(http.StatusOK, gin.H{"message": "Successfully logged out"})
	}
}

func RefreshToken(d *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input RefreshInput
		if !bindJSON(c, &input) {
			return
		}

		pair, err := d.Identity.Refresh(c.Request.Context(), input.Refresh)
		if err != nil {
			middleware.RespondError(c, err)
			return
		}
		setAccessToken(c, d, pair.AccessToken)

		c.JSON(http.StatusOK, pair)
	}
}

// VerifyEmail accepts the token in the path (link from the email) or in the body
func VerifyEmail(d *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Param("token")
		if token == "" {
			var input struct {
				Token string `json:"token" binding:"required"`
			}
			if !bindJSON(c, &input) {
				return
			}
			token = input.Token
		}

		result, err := d.Verification.VerifyEmail(c.Request.Context(), token)
		if err != nil {
			middleware.RespondError(c, err)
			return
		}

		message := "Email verified successfully. You can now log in."
		if result.AlreadyVerified {
			message = "Email is already verified."
		}
		c.JSON(http.StatusOK, gin.H{
			"message":          message,
			"already_verified": result.AlreadyVerified,
		})
	}
}

func ResendVerification(d *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input EmailInput
		if !bindJSON(c, &input) {
			return
		}
		if err := d.Verification.ResendVerificationEmail(c.Request.Context(), input.Email); err != nil {
			middleware.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message": "If an unverified account exists for this email, a new verification link has been sent.",
		})
	}
}

func RequestPasswordReset(d *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input EmailInput
		if !bindJSON(c, &input) {
			return
		}
		if err := d.Verification.RequestPasswordReset(c.Request.Context(), input.Email); err != nil {
			middleware.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message": "If an account exists for this email, a password reset link has been sent.",
		})
	}
}

func ResetPassword(d *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input ResetPasswordInput
		if !bindJSON(c, &input) {
			return
		}
		if err := d.Verification.ResetPassword(c.Request.Context(), input.Token, input.Password, input.PasswordConfirm); err != nil {
			middleware.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Password has been reset successfully. You can now log in."})
	}
}

func ChangePassword(d *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input ChangePasswordInput
		if !bindJSON(c, &input) {
			return
		}
		user := middleware.CurrentUser(c)
		if err := d.Identity.ChangePassword(c.Request.Context(), user, input.OldPassword, input.NewPassword, input.NewPasswordConfirm); err != nil {
			middleware.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
	}
}
