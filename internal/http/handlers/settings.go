package handlers

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/feridsherif/crms-frontend/internal/domain"
	"github.com/feridsherif/crms-frontend/internal/entities"
	"github.com/feridsherif/crms-frontend/internal/http/middleware"
	"github.com/feridsherif/crms-frontend/internal/upstream"
	"github.com/feridsherif/crms-frontend/internal/utils"
)

const maxFormBytes = 10 << 20

// POST /api/user-management/settings/{general,social,notifications}
// POST /api/user-management/account/profile
func (a *API) SaveSettings(sec entities.SettingsSection) gin.HandlerFunc {
	return func(c *gin.Context) {
		var (
			result any
			err    error
		)
		if sec.Multipart {
			form, ok := readMultipart(c)
			if !ok {
				return
			}
			result, err = a.Gateway.SubmitSettingsForm(requestContext(c), middleware.GetSession(c), sec.Name, form)
		} else {
			var payload map[string]any
			if !BindJSONOrError(c, &payload) {
				return
			}
			result, err = a.Gateway.SaveSettings(requestContext(c), middleware.GetSession(c), sec.Name, payload)
		}
		if err != nil {
			RespondDomainError(c, err)
			return
		}
		utils.LogEvent(a.Logger, middleware.GetRequestID(c), "settings", sec.Name, "saved")

		switch {
		case sec.Success != "" && result != nil:
			c.JSON(http.StatusOK, gin.H{"message": sec.Success, "data": result})
		case sec.Success != "":
			c.JSON(http.StatusOK, gin.H{"message": sec.Success})
		case result != nil:
			c.JSON(http.StatusOK, result)
		default:
			c.JSON(http.StatusOK, gin.H{"message": sec.Label + " updated successfully"})
		}
	}
}

// readMultipart reads a bounded multipart/form-data body and checks it is
// well formed before it is forwarded.
func readMultipart(c *gin.Context) (upstream.RawBody, bool) {
	contentType := c.GetHeader("Content-Type")
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != "multipart/form-data" || params["boundary"] == "" {
		respondError(c, http.StatusBadRequest, "invalid_input", "Expected multipart form data.", nil)
		return upstream.RawBody{}, false
	}
	data, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxFormBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, http.StatusRequestEntityTooLarge, "invalid_input", "Form data is too large.", nil)
			return upstream.RawBody{}, false
		}
		RespondDomainError(c, domain.ValidationError{Msg: "Could not read form data.", Err: err})
		return upstream.RawBody{}, false
	}

	reader := multipart.NewReader(bytes.NewReader(data), params["boundary"])
	parts := 0
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			RespondDomainError(c, domain.ValidationError{Msg: "Malformed form data.", Err: err})
			return upstream.RawBody{}, false
		}
		_, _ = io.Copy(io.Discard, part)
		parts++
	}
	if parts == 0 {
		RespondDomainError(c, domain.ValidationError{Msg: "Form data is empty."})
		return upstream.RawBody{}, false
	}
	return upstream.RawBody{ContentType: contentType, Data: data}, true
}
