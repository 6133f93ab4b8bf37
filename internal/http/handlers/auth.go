package handlers

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/smartboard-backend/internal/domain"
	"github.com/yungbote/smartboard-backend/internal/http/response"
	"github.com/yungbote/smartboard-backend/internal/services"
)

const avatarRoute = "/api/user/avatar"

// UserView is the public shape of a user. AvatarURL falls back to the
// rendered initials avatar when the identity provider gave no picture.
type UserView struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	ProfileImage string    `json:"profile_image,omitempty"`
	AvatarColor  string    `json:"avatar_color,omitempty"`
	AvatarURL    string    `json:"avatar_url"`
	CreatedAt    time.Time `json:"created_at"`
}

func newUserView(u *types.User) UserView {
	v := UserView{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		ProfileImage: u.ProfileImage,
		AvatarColor:  u.AvatarColor,
		AvatarURL:    u.ProfileImage,
		CreatedAt:    u.CreatedAt,
	}
	if strings.TrimSpace(v.AvatarURL) == "" {
		v.AvatarURL = avatarRoute
	}
	return v
}

type AuthHandler struct {
	authService services.AuthService
}

func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// POST /api/auth/exchange (and the /api/auth/google alias)
// body: { "idToken": "..." } or { "id_token": "..." }
func (ah *AuthHandler) Exchange(c *gin.Context) {
	var req struct {
		IDToken      string `json:"idToken"`
		IDTokenSnake string `json:"id_token"`
	}
	if !bindJSON(c, &req) {
		return
	}
	idToken := strings.TrimSpace(req.IDToken)
	if idToken == "" {
		idToken = strings.TrimSpace(req.IDTokenSnake)
	}
	token, user, err := ah.authService.Exchange(dbcFrom(c), idToken)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"token":      token,
		"user":       newUserView(user),
		"expires_in": int(ah.authService.GetSessionTTL().Seconds()),
	})
}
