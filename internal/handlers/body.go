package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tasktracker/internal/apperr"
)

const maxScalarBody = 4 << 10

// readScalar reads a single string from the request body. It accepts plain
// text, a JSON string, or a JSON object carrying the value under field.
func readScalar(c *gin.Context, field string) (string, error) {
	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxScalarBody))
	if err != nil {
		return "", apperr.Wrap(apperr.KindInvalidRequest, err, "read body")
	}

	body := strings.TrimSpace(string(raw))
	switch {
	case body == "":
		return "", apperr.Wrap(apperr.KindInvalidRequest, nil, "empty body")
	case strings.HasPrefix(body, "{"):
		var obj map[string]string
		if err := json.Unmarshal([]byte(body), &obj); err != nil {
			return "", apperr.Wrap(apperr.KindInvalidRequest, err, "decode body")
		}
		body = strings.TrimSpace(obj[field])
	case strings.HasPrefix(body, `"`):
		var s string
		if err := json.Unmarshal([]byte(body), &s); err != nil {
			return "", apperr.Wrap(apperr.KindInvalidRequest, err, "decode body")
		}
		body = strings.TrimSpace(s)
	}

	if body == "" {
		return "", apperr.Wrap(apperr.KindInvalidRequest, nil, "missing "+field)
	}
	return body, nil
}

func bindJSON(c *gin.Context, out any) error {
	if err := c.ShouldBindJSON(out); err != nil {
		return apperr.Wrap(apperr.KindInvalidRequest, err, "bind request")
	}
	return nil
}
