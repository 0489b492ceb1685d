package auth

import (
	"errors"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v4"
	"veridoc.mx/infrastructure/logger"
)

type ClaimsData struct {
	UserID    string
	Email     *string
	DeviceID  string
	UserAgent string
	IssuedAt  int64
	ExpiresAt int64
}

func GenerateAuthToken(claimsData ClaimsData) (*string, error) {
	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss":       os.Getenv("JWT_ISSUER"),
		"userID":    claimsData.UserID,
		"email":     claimsData.Email,
		"deviceID":  claimsData.DeviceID,
		"userAgent": claimsData.UserAgent,
		"iat":       claimsData.IssuedAt,
		"exp":       claimsData.ExpiresAt,
	}).SignedString([]byte(os.Getenv("JWT_SIGNING_KEY")))
	if err != nil {
		logger.Error("failed to sign auth token", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return nil, err
	}
	return &tokenString, nil
}

func DecodeAuthToken(tokenString string) (*jwt.Token, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(os.Getenv("JWT_SIGNING_KEY")), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid auth token")
	}
	return token, nil
}
