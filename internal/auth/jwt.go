package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	AccessTokenExpiry = 12 * time.Hour
	SessionExpiry     = 7 * 24 * time.Hour
)

// Claims are carried by the access tokens this service issues after login.
type Claims struct {
	WalletAddress string `json:"walletAddress"`
	SessionID     string `json:"sid"`
	jwt.RegisteredClaims
}

// ProviderClaims are issued by the external identity provider and exchanged
// for an access token at login.
type ProviderClaims struct {
	WalletAddress string `json:"wallet"`
	SessionID     string `json:"sid"`
	Name          string `json:"name"`
	Username      string `json:"username"`
	Email         string `json:"email"`
	jwt.RegisteredClaims
}

func GenerateAccessToken(walletAddress, sessionID, secret, issuer string) (string, error) {
	claims := Claims{
		WalletAddress: walletAddress,
		SessionID:     sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(AccessTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ValidateAccessToken(tokenString string, secret string) (*Claims, error) {
	claims := &Claims{}
	if err := parse(tokenString, secret, claims); err != nil {
		return nil, err
	}
	if claims.WalletAddress == "" || claims.SessionID == "" {
		return nil, errors.New("incomplete token claims")
	}
	return claims, nil
}

func ValidateProviderToken(tokenString string, secret string) (*ProviderClaims, error) {
	claims := &ProviderClaims{}
	if err := parse(tokenString, secret, claims); err != nil {
		return nil, err
	}
	if claims.WalletAddress == "" || claims.SessionID == "" {
		return nil, errors.New("incomplete provider claims")
	}
	return claims, nil
}

func parse(tokenString, secret string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return err
	}
	if !token.Valid {
		return errors.New("invalid token")
	}
	return nil
}
