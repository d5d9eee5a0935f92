package fakeapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"railctl/internal/binding"
	"railctl/internal/errors"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Roles.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

const claimsKey = "claims"

// tokenClaims are the claims of issued tokens. The subject is the user id.
type tokenClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

func (c *tokenClaims) userID() int64 {
	id, _ := strconv.ParseInt(c.Subject, 10, 64)
	return id
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name" validate:"required,max=100"`
}

type userView struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

func viewOf(u *user) userView {
	return userView{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}

// AddUser registers an account. Emails are unique, compared case-insensitively.
func (s *Store) AddUser(email, name, password, role string) (int64, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, errors.Wrap(err, "hash password")
	}
	key := strings.ToLower(strings.TrimSpace(email))

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[key]; exists {
		return 0, errors.NewAPIError(http.StatusConflict, "email "+key+" is already registered")
	}
	s.usersSeq++
	s.users[key] = &user{ID: s.usersSeq, Email: key, Name: name, Role: role, Password: hash}
	return s.usersSeq, nil
}

func (s *Store) authenticate(email, password string) (*user, bool) {
	s.mu.RLock()
	u, ok := s.users[strings.ToLower(strings.TrimSpace(email))]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if bcrypt.CompareHashAndPassword(u.Password, []byte(password)) != nil {
		return nil, false
	}
	return u, true
}

func (srv *Server) issue(u *user) (string, error) {
	now := srv.store.now()
	claims := tokenClaims{
		Email: u.Email,
		Name:  u.Name,
		Role:  u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(u.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(srv.opts.TokenTTL)),
			Issuer:    "railmock",
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(srv.opts.Secret)
}

// POST /api/auth/login
func (srv *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "invalid login payload")
		return
	}
	if err := binding.Validate(&req); err != nil {
		abort(c, http.StatusBadRequest, err.Error())
		return
	}
	u, ok := srv.store.authenticate(req.Email, req.Password)
	if !ok {
		abort(c, http.StatusUnauthorized, "invalid email or password")
		return
	}
	token, err := srv.issue(u)
	if err != nil {
		abort(c, http.StatusInternalServerError, "could not issue token")
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": viewOf(u)})
}

// POST /api/auth/register
func (srv *Server) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "invalid registration payload")
		return
	}
	if err := binding.Validate(&req); err != nil {
		abort(c, http.StatusBadRequest, err.Error())
		return
	}
	id, err := srv.store.AddUser(req.Email, req.Name, req.Password, RoleUser)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "registered",
		"user":    userView{ID: id, Email: strings.ToLower(req.Email), Name: req.Name, Role: RoleUser},
	})
}

// requireToken rejects requests without a valid bearer token.
func (srv *Server) requireToken() gin.HandlerFunc {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(srv.store.now),
	)
	return func(c *gin.Context) {
		raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || raw == "" {
			abort(c, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims := &tokenClaims{}
		_, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
			return srv.opts.Secret, nil
		})
		if err != nil {
			abort(c, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// requireRole lets only the given role through.
func requireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claimsOf(c).Role != role {
			abort(c, http.StatusForbidden, "forbidden: "+role+" role required")
			return
		}
		c.Next()
	}
}

func claimsOf(c *gin.Context) *tokenClaims {
	if v, ok := c.Get(claimsKey); ok {
		if claims, ok := v.(*tokenClaims); ok {
			return claims
		}
	}
	return &tokenClaims{}
}

func isAdmin(c *gin.Context) bool {
	return claimsOf(c).Role == RoleAdmin
}

// tokenTTL is used when Options leaves it unset.
const tokenTTL = 24 * time.Hour
