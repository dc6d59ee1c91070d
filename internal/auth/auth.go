package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/iurnickita/campaignadmin/internal/auth/config"
	"github.com/iurnickita/campaignadmin/internal/model"
	"github.com/iurnickita/campaignadmin/internal/store"
	"github.com/iurnickita/campaignadmin/internal/token"
)

type Auth interface {
	Login(w http.ResponseWriter, r *http.Request)
	Logout(w http.ResponseWriter, r *http.Request)
	Middleware(h http.HandlerFunc) http.HandlerFunc
}

const (
	HeaderUserCodeKey = "X-User-Code"
	CookieUserToken   = "campaignadminToken"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

type auth struct {
	cfg    config.Config
	store  store.Store
	zaplog *zap.Logger
}

func NewAuth(cfg config.Config, store store.Store, zaplog *zap.Logger) Auth {
	if zaplog == nil {
		zaplog = zap.NewNop()
	}
	return &auth{cfg: cfg, store: store, zaplog: zaplog}
}

type LoginJSONRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginJSONResponse struct {
	Success bool       `json:"success"`
	User    model.User `json:"user"`
}

type LogoutJSONResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

var validate = validator.New()

// Login входит пользователем; при первом входе пользователь регистрируется.
func (a *auth) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginJSONRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, "username and password are required", http.StatusBadRequest)
		return
	}

	user, err := a.login(r, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			writeError(w, err.Error(), http.StatusUnauthorized)
		default:
			writeError(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	signed, err := token.BuildJWT(strconv.Itoa(user.ID), []byte(a.cfg.Secret), a.cfg.TokenTTL)
	if err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieUserToken,
		Value:    signed,
		Path:     "/",
		Expires:  time.Now().Add(a.cfg.TokenTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, LoginJSONResponse{Success: true, User: user})
}

func (a *auth) login(r *http.Request, req LoginJSONRequest) (model.User, error) {
	ctx := r.Context()

	user, err := a.store.UserGetByUsername(ctx, req.Username)
	switch {
	case err == nil:
		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
			return model.User{}, ErrInvalidCredentials
		}
		return user, nil
	case !errors.Is(err, store.ErrNoRows):
		return model.User{}, err
	}

	// новый пользователь
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}
	user, err = a.store.UserCreate(ctx, model.User{Username: req.Username, PasswordHash: string(hash)})
	if errors.Is(err, store.ErrAlreadyExists) {
		// зарегистрирован параллельным запросом
		return a.login(r, req)
	}
	if err != nil {
		return model.User{}, err
	}
	a.zaplog.Info("user registered", zap.String("username", user.Username))
	return user, nil
}

// Logout удаляет все данные хранилища и сбрасывает cookie сессии.
func (a *auth) Logout(w http.ResponseWriter, r *http.Request) {
	if err := a.store.Clear(r.Context()); err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	a.zaplog.Info("all data cleared on logout", zap.String("user", r.Header.Get(HeaderUserCodeKey)))

	http.SetCookie(w, &http.Cookie{
		Name:     CookieUserToken,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	writeJSON(w, http.StatusOK, LogoutJSONResponse{Success: true, Message: "Logged out and all data cleared"})
}

// Middleware определяет пользователя по cookie. Доступ не ограничивает.
func (a *auth) Middleware(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// заголовок выставляет только middleware
		r.Header.Del(HeaderUserCodeKey)

		// получение id пользователя
		if userCode, err := a.getUserCode(r); err == nil {
			r.Header.Set(HeaderUserCodeKey, userCode)
		}

		// передаём управление хендлеру
		h.ServeHTTP(w, r)
	}
}

func (a *auth) getUserCode(r *http.Request) (string, error) {
	// куки пользователя
	tokenCookie, err := r.Cookie(CookieUserToken)
	if err != nil {
		return "", err
	}
	return token.GetUserCode(tokenCookie.Value, []byte(a.cfg.Secret))
}

type errorJSONResponse struct {
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, message string, code int) {
	writeJSON(w, code, errorJSONResponse{Message: message})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	responseJSON, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(responseJSON)
}
