package adapter

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strings"

	"github.com/akolanti/LayoutAPI/internal/domain/layoutModel"
)

// TranslateFailure maps a pipeline error to the status code and message shown to clients.
// Missing files are 404 with notFoundMessage; everything else is 422 with the error type and message.
func TranslateFailure(err error, notFoundMessage string) (int, string) {
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, layoutModel.ErrMissingInput) {
		return http.StatusNotFound, notFoundMessage
	}
	message := strings.Join(strings.Fields(strings.ReplaceAll(err.Error(), "\n", "; ")), " ")
	return http.StatusUnprocessableEntity, fmt.Sprintf("%s: %s", layoutModel.ErrorName(err), message)
}
