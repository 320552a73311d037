package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/garnizeh/realty/pkg/models"
	"github.com/garnizeh/realty/pkg/repository"
)

type AuthHandler struct {
	userRepo      repository.UserRepo
	profileRepo   repository.ProfileRepo
	adminRepo     repository.AdminRepo
	jwtSecret     string
	tokenDuration time.Duration
}

// NewAuthHandler creates a new AuthHandler with required dependencies.
func NewAuthHandler(ur repository.UserRepo, pr repository.ProfileRepo, ar repository.AdminRepo, jwtSecret string, tokenDuration time.Duration) *AuthHandler {
	return &AuthHandler{userRepo: ur, profileRepo: pr, adminRepo: ar, jwtSecret: jwtSecret, tokenDuration: tokenDuration}
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string `json:"token"`
	Role  string `json:"role"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Phone = strings.TrimSpace(req.Phone)
	if err := req.Validate(); err != nil {
		invalid(w, err)
		return
	}

	ctx := r.Context()

	existing, err := h.userRepo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		serverError(w, r, "lookup user", err)
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "email already registered")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		serverError(w, r, "hash password", err)
		return
	}

	user := models.User{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: string(hash),
		Role:         RoleUser,
	}
	userID, err := h.userRepo.CreateUser(ctx, &user)
	if err != nil {
		serverError(w, r, "create user", err)
		return
	}

	// every user starts with an empty preferences profile
	if h.profileRepo != nil {
		if err := h.profileRepo.UpsertProfile(ctx, &models.Profile{UserID: userID, Preferences: []byte("{}")}); err != nil {
			serverError(w, r, "create profile", err)
			return
		}
	}

	h.respondToken(w, r, userID, req.Email, RoleUser, http.StatusCreated)
}

func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.userRepo.GetUserByEmail(r.Context(), req.Email)
	if err != nil || user == nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	h.respondToken(w, r, user.ID, user.Email, RoleUser, http.StatusOK)
}

// AdminLogin authenticates against the admins table and issues a token with
// the admin role.
func (h *AuthHandler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	admin, err := h.adminRepo.GetAdminByEmail(r.Context(), req.Email)
	if err != nil || admin == nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	h.respondToken(w, r, admin.ID, admin.Email, RoleAdmin, http.StatusOK)
}

func (h *AuthHandler) Signout(w http.ResponseWriter, r *http.Request) {
	// For stateless JWT, signout is client-side (just delete token)
	writeJSON(w, map[string]string{"message": "signed out"}, http.StatusOK)
}

func (h *AuthHandler) respondToken(w http.ResponseWriter, r *http.Request, id int64, email, role string, status int) {
	tokenStr, err := IssueToken(h.jwtSecret, id, email, role, h.tokenDuration)
	if err != nil {
		serverError(w, r, "sign token", err)
		return
	}
	writeJSON(w, authResponse{Token: tokenStr, Role: role}, status)
}

// IssueToken signs an HS256 token carrying the subject id, email and role.
func IssueToken(secret string, id int64, email, role string, d time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   strconv.FormatInt(id, 10),
		"email": email,
		"role":  role,
		"exp":   time.Now().Add(d).Unix(),
	})
	return token.SignedString([]byte(secret))
}
