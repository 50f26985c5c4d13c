package api

import (
	"github.com/Aghostraa/abcr-deployment-v2/internal/club"
	"github.com/Aghostraa/abcr-deployment-v2/internal/validate"
)

// ClubHandler serves the domain endpoints. Every handler reads the caller from
// the request context and delegates to club.Service.
type ClubHandler struct {
	svc       *club.Service
	validator *validate.Validator
}

func NewClubHandler(svc *club.Service, v *validate.Validator) *ClubHandler {
	return &ClubHandler{svc: svc, validator: v}
}
