package http

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/mscykler/storefront/internal/domain"
)

type ErrorResponse struct {
	Error  string   `json:"error"`
	Code   string   `json:"code,omitempty"`
	Fields []string `json:"fields,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// parseProductType accepts both the plural URL segment ("bikes") and the
// singular request-body form ("bike").
func parseProductType(s string) (domain.ProductType, bool) {
	switch strings.ToLower(s) {
	case "bike", "bikes":
		return domain.ProductTypeBike, true
	case "part", "parts":
		return domain.ProductTypePart, true
	default:
		return "", false
	}
}
