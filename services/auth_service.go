package services

import (
	"encoding/json"
	"errors"
	"log/slog"
	"regexp"
	"time"

	"chowtrack/models"
	"chowtrack/storage"
	"chowtrack/utils"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,32}$`)

// AuthService owns accounts and the registry of known usernames. The
// registry is what lets the scheduler re-arm everyone's reminders after a
// restart.
type AuthService struct {
	store storage.Store
	log   *slog.Logger
}

func NewAuthService(store storage.Store, log *slog.Logger) *AuthService {
	return &AuthService{store: store, log: log}
}

func (a *AuthService) Register(username, password string) error {
	if !usernamePattern.MatchString(username) {
		return validationErrorf("username must be 3-32 characters of letters, digits, '_', '.' or '-'")
	}
	if len(password) < 8 {
		return validationErrorf("password must be at least 8 characters")
	}

	key := storage.UserKey(username, storage.KindAccount)
	if exists, err := a.store.Has(key); err != nil {
		return err
	} else if exists {
		return validationErrorf("username already taken")
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return err
	}
	user := models.User{Username: username, PasswordHash: hash, CreatedAt: time.Now()}
	raw, err := json.Marshal(user)
	if err != nil {
		return err
	}
	if err := a.store.Put(key, string(raw)); err != nil {
		return err
	}
	return a.addToRegistry(username)
}

func (a *AuthService) Authenticate(username, password string) (string, error) {
	raw, ok, err := a.store.Get(storage.UserKey(username, storage.KindAccount))
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errors.New("user not found")
	}
	var user models.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return "", err
	}
	if !utils.CheckPasswordHash(password, user.PasswordHash) {
		return "", errors.New("incorrect password")
	}
	return utils.GenerateJWT(username)
}

// ListUsers returns every registered username.
func (a *AuthService) ListUsers() ([]string, error) {
	raw, ok, err := a.store.Get(storage.UsersKey())
	if err != nil || !ok {
		return nil, err
	}
	var users []string
	if err := json.Unmarshal([]byte(raw), &users); err != nil {
		a.log.Warn("corrupt user registry treated as empty", "err", err)
		return nil, nil
	}
	return users, nil
}

func (a *AuthService) addToRegistry(username string) error {
	users, err := a.ListUsers()
	if err != nil {
		return err
	}
	for _, u := range users {
		if u == username {
			return nil
		}
	}
	users = append(users, username)
	raw, err := json.Marshal(users)
	if err != nil {
		return err
	}
	return a.store.Put(storage.UsersKey(), string(raw))
}
