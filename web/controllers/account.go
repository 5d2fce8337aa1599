package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"elitehub/web/db"
	"elitehub/web/ledger"
	"elitehub/web/metrics"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func (h *Handler) Signup(c *gin.Context) {
	var body struct {
		FullName     string `json:"full_name" binding:"required,max=120"`
		Email        string `json:"email" binding:"required,email"`
		Password     string `json:"password" binding:"required,min=8"`
		ReferralCode string `json:"referral_code"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body: " + err.Error()})
		return
	}
	email := strings.ToLower(strings.TrimSpace(body.Email))

	hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), 10)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to hash password."})
		return
	}

	ctx := c.Request.Context()
	taken, err := h.emailTaken(ctx, email)
	if err != nil {
		h.fail(c, err)
		return
	}
	if taken {
		c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
		return
	}

	user := db.User{
		UID:      uuid.NewString(),
		FullName: strings.TrimSpace(body.FullName),
		Email:    email,
		Password: string(hash),
		Role:     db.RoleUser,
	}
	// a fresh code can collide with an existing one
	for attempt := 0; attempt < 3; attempt++ {
		user.ReferralCode = ledger.NewReferralCode()
		err = h.DB.WithContext(ctx).Create(&user).Error
		if err == nil || !errors.Is(err, gorm.ErrDuplicatedKey) {
			break
		}
		// a concurrent signup may have claimed the email instead
		if taken, err = h.emailTaken(ctx, email); err != nil {
			break
		}
		if taken {
			c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
			return
		}
		err = gorm.ErrDuplicatedKey
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	// the account exists whatever happens to the referral
	applied := h.Ledger.RecordSignupReferral(ctx, user.UID, user.FullName, body.ReferralCode)
	if strings.TrimSpace(body.ReferralCode) != "" {
		if applied {
			metrics.ReferralEvent("signup_applied")
		} else {
			metrics.ReferralEvent("signup_ignored")
		}
	}
	if applied {
		if err := h.DB.WithContext(ctx).Where("uid = ?", user.UID).First(&user).Error; err != nil {
			h.Log.WithError(err).WithField("uid", user.UID).Warn("signup: reload after referral failed")
			var referrer db.User
			if h.DB.WithContext(ctx).Select("uid").
				Where("referral_code = ?", ledger.NormalizeCode(body.ReferralCode)).
				First(&referrer).Error == nil {
				user.ReferredBy = referrer.UID
			}
		}
	}

	token, err := h.Auth.IssueToken(user.UID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"user":             user,
		"token":            token,
		"referral_applied": applied,
	})
}

func (h *Handler) emailTaken(ctx context.Context, email string) (bool, error) {
	var n int64
	if err := h.DB.WithContext(ctx).Model(&db.User{}).Where("email = ?", email).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (h *Handler) Login(c *gin.Context) {
	var body struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body"})
		return
	}

	var user db.User
	err := h.DB.WithContext(c.Request.Context()).
		Where("email = ?", strings.ToLower(strings.TrimSpace(body.Email))).First(&user).Error
	if err != nil || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(body.Password)) != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email or password"})
		return
	}

	token, err := h.Auth.IssueToken(user.UID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

func (h *Handler) User(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user": mustUser(c)})
}
