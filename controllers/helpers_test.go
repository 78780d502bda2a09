package controllers_test

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/CUknot/grammable/models"
)

func gramPath(gram *models.Gram) string {
	return fmt.Sprintf("/grams/%d", gram.ID)
}

func editPath(gram *models.Gram) string {
	return gramPath(gram) + "/edit"
}

func newRequest(method string, gram *models.Gram) *http.Request {
	return httptest.NewRequest(method, gramPath(gram), nil)
}

func indexOf(s, substr string) int {
	return strings.Index(s, substr)
}

func idOf(gram *models.Gram) string {
	return fmt.Sprint(gram.ID)
}

// countingBody records how much of a request body the handler consumed
type countingBody struct {
	r    io.Reader
	read int
}

func (b *countingBody) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	b.read += n
	return n, err
}
