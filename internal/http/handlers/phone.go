package handlers

import (
	"net/http"

	"github.com/geocoder89/campuserp/internal/phone"
	"github.com/gin-gonic/gin"
)

type PhoneHandler struct {
	rule phone.Rule
}

func NewPhoneHandler(rule phone.Rule) *PhoneHandler {
	return &PhoneHandler{rule: rule}
}

type PhoneRequest struct {
	Phone string `json:"phone" binding:"max=32"`
}

type PhoneResponse struct {
	Digits    string     `json:"digits"`
	Kind      phone.Kind `json:"kind"`
	Valid     bool       `json:"valid"`
	Formatted string     `json:"formatted"`
	Error     string     `json:"error,omitempty"`
}

// Validate always answers 200: an invalid number is a normal result here.
func (h *PhoneHandler) Validate(ctx *gin.Context) {
	var req PhoneRequest
	if !BindJSON(ctx, &req) {
		return
	}

	kind, err := h.rule.Validate(req.Phone)

	resp := PhoneResponse{
		Digits:    phone.Normalize(req.Phone),
		Kind:      kind,
		Valid:     err == nil && kind != phone.KindEmpty,
		Formatted: h.rule.Format(req.Phone),
	}
	if err != nil {
		resp.Error = err.Error()
	}

	ctx.JSON(http.StatusOK, resp)
}
