package handlers

import (
	"errors"
	"net/http"

	"github.com/Rhejna/missing-person-app/api"
	"github.com/Rhejna/missing-person-app/config"
	"github.com/Rhejna/missing-person-app/media"
)

// UploadSigner signs browser uploads
type UploadSigner interface {
	Sign() (media.Signature, error)
}

// Media exported for testing purposes
type Media struct {
	Signer UploadSigner
}

// SignatureHandler returns the parameters of a signed photo upload
func (h Media) SignatureHandler(w http.ResponseWriter, r *http.Request) {
	if h.Signer == nil {
		config.ErrorStatus("photo uploads are not configured", http.StatusServiceUnavailable, w, media.ErrNotConfigured)
		return
	}
	sig, err := h.Signer.Sign()
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, media.ErrNotConfigured) {
			status = http.StatusServiceUnavailable
		}
		config.ErrorStatus("failed to sign upload", status, w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, sig)
}
