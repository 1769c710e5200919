package jwttoken

import (
	authmw "muster/pkg/platform/middleware/auth"
)

// JWTServiceAdapter bridges JWTService to the auth middleware's validator
// interface, flattening token claims into what the middleware consumes.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateClaims(tokenString string) (*authmw.Claims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &authmw.Claims{
		User:    claims.Subject,
		Project: claims.Project,
		Admin:   claims.IsAdmin(),
	}, nil
}
