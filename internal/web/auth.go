package web

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrBadSignature = errors.New("telegram signature mismatch")
	ErrStaleLogin   = errors.New("telegram login data too old")
	ErrBadToken     = errors.New("invalid token")
)

// maxLoginAge bounds how old a Telegram Login Widget payload may be.
const maxLoginAge = 24 * time.Hour

// TelegramLogin is the payload posted by the Telegram Login Widget.
type TelegramLogin struct {
	ID        int64  `json:"id" binding:"required"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
	PhotoURL  string `json:"photo_url,omitempty"`
	AuthDate  int64  `json:"auth_date" binding:"required"`
	Hash      string `json:"hash" binding:"required"`
}

// VerifyTelegramLogin checks the widget HMAC: the signing key is
// SHA256(bot token) and the message is the sorted key=value lines of every
// field except hash.
func VerifyTelegramLogin(botToken string, login TelegramLogin, now time.Time) error {
	fields := map[string]string{
		"id":         strconv.FormatInt(login.ID, 10),
		"first_name": login.FirstName,
		"auth_date":  strconv.FormatInt(login.AuthDate, 10),
	}
	if login.LastName != "" {
		fields["last_name"] = login.LastName
	}
	if login.Username != "" {
		fields["username"] = login.Username
	}
	if login.PhotoURL != "" {
		fields["photo_url"] = login.PhotoURL
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+fields[k])
	}

	secret := sha256.Sum256([]byte(botToken))
	mac := hmac.New(sha256.New, secret[:])
	mac.Write([]byte(strings.Join(lines, "\n")))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(login.Hash))) {
		return ErrBadSignature
	}
	if age := now.Sub(time.Unix(login.AuthDate, 0)); age > maxLoginAge || age < -5*time.Minute {
		return ErrStaleLogin
	}
	return nil
}

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"

	accessCookie  = "access_token"
	refreshCookie = "refresh_token"
)

type sessionClaims struct {
	TelegramID int64  `json:"telegram_id"`
	TokenType  string `json:"token_type"`
	jwt.RegisteredClaims
}

// tokens signs and verifies the session JWT pair.
type tokens struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func newTokens(secret string, accessTTL, refreshTTL time.Duration) tokens {
	return tokens{secret: []byte(secret), accessTTL: accessTTL, refreshTTL: refreshTTL}
}

func (t tokens) issue(telegramID int64, tokenType string, now time.Time) (string, error) {
	ttl := t.accessTTL
	if tokenType == tokenTypeRefresh {
		ttl = t.refreshTTL
	}
	claims := sessionClaims{
		TelegramID: telegramID,
		TokenType:  tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(telegramID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

func (t tokens) verify(raw, wantType string) (int64, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrBadToken, err)
	}
	if claims.TokenType != wantType {
		return 0, fmt.Errorf("%w: token type %q", ErrBadToken, claims.TokenType)
	}
	return claims.TelegramID, nil
}
